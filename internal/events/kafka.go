package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/IBM/sarama"
)

// KafkaSink publie chaque événement sur un topic nommé d'après son type
type KafkaSink struct {
	producer sarama.SyncProducer
	prefix   string
}

func NewKafkaSink(producer sarama.SyncProducer, topicPrefix string) *KafkaSink {
	return &KafkaSink{producer: producer, prefix: topicPrefix}
}

// ConnectKafka réessaie tant que le broker ne répond pas (démarrage docker-compose)
func ConnectKafka(brokers []string, attempts int, wait time.Duration) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll

	var (
		producer sarama.SyncProducer
		err      error
	)
	for i := 1; i <= attempts; i++ {
		producer, err = sarama.NewSyncProducer(brokers, config)
		if err == nil {
			log.Println("✅ Kafka producer initialisé")
			return producer, nil
		}
		log.Printf("⏳ Attente de Kafka... (%d/%d) Erreur: %v", i, attempts, err)
		time.Sleep(wait)
	}
	return nil, fmt.Errorf("kafka injoignable après %d tentatives: %w", attempts, err)
}

func (k *KafkaSink) Name() string { return "kafka" }

func (k *KafkaSink) Topic(t Type) string {
	return k.prefix + string(t)
}

func (k *KafkaSink) Handle(_ context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: k.Topic(e.Type),
		Key:   sarama.StringEncoder(strconv.FormatUint(uint64(e.OrderID), 10)),
		Value: sarama.ByteEncoder(data),
	}
	if _, _, err := k.producer.SendMessage(msg); err != nil {
		return err
	}
	log.Printf("📤 Événement %s publié (commande %d)", e.Type, e.OrderID)
	return nil
}

func (k *KafkaSink) Close() error {
	return k.producer.Close()
}
