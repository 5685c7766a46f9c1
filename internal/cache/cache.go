package cache

import (
	"fmt"
	"time"
)

const (
	CartCacheTTL       = 5 * time.Minute
	PromotionsCacheTTL = time.Minute
	CheckoutLockTTL    = 10 * time.Second

	ActivePromotionsKey = "promotions:active"
)

func CartKey(userID uint) string {
	return fmt.Sprintf("cart:%d", userID)
}

func CheckoutLockKey(userID uint) string {
	return fmt.Sprintf("checkout_lock:%d", userID)
}

// OrdersChannel : canal pub/sub des changements de statut d'un utilisateur
func OrdersChannel(userID uint) string {
	return fmt.Sprintf("orders:%d", userID)
}
