package models

import (
	"fmt"
	"strings"
)

type OrderStatus string
type PaymentStatus string
type PaymentMethod string

const (
	OrderStatusPending         OrderStatus = "pending"          // Créée, aucune décision de paiement
	OrderStatusAwaitingPayment OrderStatus = "awaiting_payment" // Virement attendu, stock non réservé
	OrderStatusConfirmed       OrderStatus = "confirmed"        // Stock engagé, commande acceptée
	OrderStatusShipping        OrderStatus = "shipping"
	OrderStatusDelivered       OrderStatus = "delivered"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusRefunded        OrderStatus = "refunded"

	PaymentStatusPending   PaymentStatus = "Pending"
	PaymentStatusCompleted PaymentStatus = "Completed"
	PaymentStatusFailed    PaymentStatus = "Failed"
	PaymentStatusCancelled PaymentStatus = "Cancelled"

	PaymentMethodCOD     PaymentMethod = "COD"
	PaymentMethodBanking PaymentMethod = "Banking"
)

// orderTransitions liste, pour chaque statut, les statuts atteignables.
// Un statut absent des valeurs est terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:         {OrderStatusAwaitingPayment, OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusAwaitingPayment: {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:       {OrderStatusShipping, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusShipping:        {OrderStatusDelivered, OrderStatusCancelled}, // colis refusé / retourné
	OrderStatusDelivered:       {OrderStatusRefunded},
	OrderStatusCancelled:       {},
	OrderStatusRefunded:        {},
}

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:   {PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled},
	PaymentStatusCompleted: {},
	PaymentStatusFailed:    {PaymentStatusCancelled},
	PaymentStatusCancelled: {},
}

// OrderStatuses retourne la liste blanche des statuts de commande, dans l'ordre du cycle de vie
func OrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPending,
		OrderStatusAwaitingPayment,
		OrderStatusConfirmed,
		OrderStatusShipping,
		OrderStatusDelivered,
		OrderStatusCancelled,
		OrderStatusRefunded,
	}
}

// ParseOrderStatus valide un statut reçu de l'extérieur (insensible à la casse)
func ParseOrderStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("statut de commande invalide: %q", raw)
	}
	return s, nil
}

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, candidate := range orderTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// RevenueStatuses : commandes dont le montant compte dans le chiffre d'affaires
func RevenueStatuses() []OrderStatus {
	return []OrderStatus{OrderStatusConfirmed, OrderStatusShipping, OrderStatusDelivered}
}

func (s OrderStatus) CountsAsRevenue() bool {
	for _, r := range RevenueStatuses() {
		if s == r {
			return true
		}
	}
	return false
}

// Cancellable indique si le client peut encore annuler la commande
func (s OrderStatus) Cancellable() bool {
	return s == OrderStatusPending || s == OrderStatusAwaitingPayment
}

func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	for s := range paymentTransitions {
		if strings.EqualFold(string(s), strings.TrimSpace(raw)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("statut de paiement invalide: %q", raw)
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, candidate := range paymentTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParsePaymentMethod accepte "cod", "BANKING", etc. et retourne la forme canonique
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "COD":
		return PaymentMethodCOD, nil
	case "BANKING":
		return PaymentMethodBanking, nil
	default:
		return "", fmt.Errorf("moyen de paiement invalide: %q (COD ou Banking)", raw)
	}
}

// TransitionError est retournée quand la table de transitions refuse un changement de statut
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition %s interdite: %s -> %s", e.Entity, e.From, e.To)
}
