package models

import (
	"time"

	"github.com/gocql/gocql"
)

// Méthodes de paiement acceptées au checkout
const (
	PaymentMethodCOD      = "COD"
	PaymentMethodStripe   = "Stripe"
	PaymentMethodRazorpay = "Razorpay"
)

// Statuts de traitement d'une commande (enum fermé ; l'admin peut passer
// d'un statut à n'importe quel autre)
const (
	StatusOrderPlaced          = "Order Placed"
	StatusPackaging            = "Packaging"
	StatusShipped              = "Shipped"
	StatusOutForDelivery       = "Out for Delivery"
	StatusDelivered            = "Delivered"
	StatusFailedPendingCleanup = "Failed Pending Cleanup"
)

var fulfillmentStatuses = []string{
	StatusOrderPlaced,
	StatusPackaging,
	StatusShipped,
	StatusOutForDelivery,
	StatusDelivered,
	StatusFailedPendingCleanup,
}

// IsValidStatus vérifie l'appartenance à l'enum des statuts
func IsValidStatus(status string) bool {
	for _, s := range fulfillmentStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type Order struct {
	ID            gocql.UUID  `json:"_id"`
	UserID        string      `json:"userId"`
	Items         []OrderItem `json:"items"`
	Amount        float64     `json:"amount"`
	Address       Address     `json:"address"`
	Status        string      `json:"status"`
	PaymentMethod string      `json:"paymentMethod"`
	Payment       bool        `json:"payment"`
	Date          time.Time   `json:"date"`

	// Renseigné uniquement pour la liste admin
	UserName string `json:"userName,omitempty"`
}

// OrderItem : une ligne de commande, prix unitaire figé au moment de l'achat.
// Les changements de prix catalogue ultérieurs ne touchent jamais une commande.
type OrderItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Size      string  `json:"size"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// ItemsTotal recalcule le montant à partir des lignes (validation au placement)
func ItemsTotal(items []OrderItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}
