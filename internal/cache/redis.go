package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache enveloppe le client Redis. Un Cache sans client (Redis non configuré)
// se comporte comme un cache toujours vide : lectures manquées, écritures ignorées.
type Cache struct {
	client *redis.Client
}

var ErrMiss = errors.New("clé absente du cache")

func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Connect ouvre la connexion Redis et vérifie qu'elle répond
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("REDIS_HOST non configuré")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("impossible de se connecter à Redis: %v", err)
	}
	log.Println("✅ Redis connecté avec succès")
	return client, nil
}

func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

func (c *Cache) Client() *redis.Client {
	if c == nil {
		return nil
	}
	return c.client
}

// --- Cache générique ---

func (c *Cache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

// GetJSON décode la valeur en cache dans dest ; ErrMiss si absente
func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	if !c.Enabled() {
		return ErrMiss
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if !c.Enabled() || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// --- Rate limiting ---

// IncrementRateLimit incrémente le compteur et retourne sa nouvelle valeur
func (c *Cache) IncrementRateLimit(ctx context.Context, key string, window time.Duration) (int64, error) {
	if !c.Enabled() {
		return 0, nil
	}
	pipe := c.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (c *Cache) GetRateLimit(ctx context.Context, key string) (int64, error) {
	if !c.Enabled() {
		return 0, nil
	}
	val, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return val, err
}

// --- Verrous courts ---

// Acquire pose un verrou SETNX ; false si déjà tenu. Sans Redis, toujours accordé.
func (c *Cache) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if !c.Enabled() {
		return true, nil
	}
	return c.client.SetNX(ctx, key, "1", ttl).Result()
}

func (c *Cache) Release(ctx context.Context, key string) {
	if !c.Enabled() {
		return
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		log.Printf("⚠️ Libération du verrou %s échouée: %v", key, err)
	}
}

// --- Pub/Sub ---

func (c *Cache) Publish(ctx context.Context, channel string, payload interface{}) error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Publish(ctx, channel, payload).Err()
}

// Subscribe retourne nil si Redis n'est pas configuré
func (c *Cache) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	if !c.Enabled() {
		return nil
	}
	return c.client.Subscribe(ctx, channels...)
}
