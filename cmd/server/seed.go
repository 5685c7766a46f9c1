package main

import (
	"log"
	"time"

	"bookstore_back_end/internal/auth"
	"bookstore_back_end/internal/models"
	"bookstore_back_end/internal/repository"
)

// seedDemo remplit le store mémoire pour tester le parcours sans Postgres
func seedDemo(store *repository.MemoryStore) {
	for _, u := range []models.User{
		{ID: 1, FullName: "Admin Bookstore", Email: "admin@bookstore.local", Role: "Admin"},
		{ID: 2, FullName: "Client Démo", Email: "client@bookstore.local", Role: "Customer"},
	} {
		hash, err := auth.HashPassword("demo1234")
		if err != nil {
			log.Printf("❌ Hash mot de passe démo: %v", err)
			continue
		}
		u.Password = hash
		store.PutUser(u)
	}

	books := []models.Book{
		{Title: "Le Petit Prince", Price: 85000, Quantity: 20},
		{Title: "L'Étranger", Price: 92000, Quantity: 5},
		{Title: "Les Misérables", Price: 250000, Quantity: 2},
	}
	for _, b := range books {
		b.CreatedAt = time.Now()
		store.PutBook(b)
	}

	now := time.Now()
	store.PutPromotion(models.Promotion{
		Name:          "Rentrée littéraire",
		Type:          models.PromotionTypePercentage,
		DiscountValue: 10,
		StartDate:     now.AddDate(0, 0, -1),
		EndDate:       now.AddDate(0, 1, 0),
		IsActive:      true,
	})
	log.Printf("🌱 Données de démonstration chargées (%d livres)", len(books))
}
