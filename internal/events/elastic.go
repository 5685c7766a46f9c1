package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ElasticStockSink met à jour le stock des livres dans l'index de recherche
type ElasticStockSink struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticStockSink(client *elasticsearch.Client, index string) *ElasticStockSink {
	if index == "" {
		index = "books"
	}
	return &ElasticStockSink{client: client, index: index}
}

func (s *ElasticStockSink) Name() string { return "elasticsearch" }

func (s *ElasticStockSink) Handle(ctx context.Context, e Event) error {
	for _, m := range e.Movements {
		body, err := json.Marshal(map[string]interface{}{
			"doc":           map[string]interface{}{"quantity": m.NewStock, "in_stock": m.NewStock > 0},
			"doc_as_upsert": true,
		})
		if err != nil {
			return err
		}
		req := esapi.UpdateRequest{
			Index:      s.index,
			DocumentID: strconv.FormatUint(uint64(m.BookID), 10),
			Body:       bytes.NewReader(body),
		}
		res, err := req.Do(ctx, s.client)
		if err != nil {
			return fmt.Errorf("erreur envoi Elastic: %w", err)
		}
		res.Body.Close()
		if res.IsError() {
			return fmt.Errorf("elastic a renvoyé une erreur pour le livre %d: %s", m.BookID, res.String())
		}
	}
	return nil
}
