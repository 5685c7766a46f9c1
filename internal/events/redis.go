package events

import (
	"context"
	"encoding/json"

	"bookstore_back_end/internal/cache"
)

// RedisSink pousse les changements de statut aux WebSockets abonnés
// et invalide le panier en cache après une commande
type RedisSink struct {
	cache *cache.Cache
}

func NewRedisSink(c *cache.Cache) *RedisSink {
	return &RedisSink{cache: c}
}

func (r *RedisSink) Name() string { return "redis" }

func (r *RedisSink) Handle(ctx context.Context, e Event) error {
	if e.Type == OrderCreated {
		if err := r.cache.Delete(ctx, cache.CartKey(e.UserID)); err != nil {
			return err
		}
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return r.cache.Publish(ctx, cache.OrdersChannel(e.UserID), data)
}
