package payment

import (
	"context"
	"math"

	"vesture_back_end/internal/models"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/checkout/session"
)

// CheckoutSession : le strict nécessaire d'une session Stripe pour la
// vérification (statut + métadonnées reliant la commande locale).
type CheckoutSession struct {
	ID      string
	URL     string
	Paid    bool
	OrderID string
	UserID  string
}

// StripeGateway : création/relecture de sessions de paiement par redirection
type StripeGateway interface {
	CreateSession(ctx context.Context, order models.Order, origin string) (CheckoutSession, error)
	RetrieveSession(ctx context.Context, sessionID string) (CheckoutSession, error)
}

type StripeClient struct {
	Currency string // devise mineure envoyée à Stripe ("usd", "eur"...)
}

func NewStripeClient(currency string) *StripeClient {
	if currency == "" {
		currency = "usd"
	}
	return &StripeClient{Currency: currency}
}

// CreateSession crée la session checkout avec les lignes re-tarifées en
// centimes et les métadonnées order_id/user_id pour la réconciliation.
func (g *StripeClient) CreateSession(ctx context.Context, order models.Order, origin string) (CheckoutSession, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(order.Items))
	for _, item := range order.Items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(g.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
				UnitAmount: stripe.Int64(int64(math.Round(item.Price * 100))),
			},
			Quantity: stripe.Int64(int64(item.Quantity)),
		})
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          lineItems,
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(origin + "/verify?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:          stripe.String(origin + "/verify?canceled=true&orderId=" + order.ID.String()),
	}
	params.Context = ctx
	params.AddMetadata("order_id", order.ID.String())
	params.AddMetadata("user_id", order.UserID)

	sess, err := session.New(params)
	if err != nil {
		return CheckoutSession{}, err
	}

	return CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func (g *StripeClient) RetrieveSession(ctx context.Context, sessionID string) (CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := session.Get(sessionID, params)
	if err != nil {
		return CheckoutSession{}, err
	}

	return CheckoutSession{
		ID:      sess.ID,
		URL:     sess.URL,
		Paid:    sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		OrderID: sess.Metadata["order_id"],
		UserID:  sess.Metadata["user_id"],
	}, nil
}
