package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"math"

	razorpay "github.com/razorpay/razorpay-go"
)

// RazorpayGateway : provider "à signature" — la commande distante est créée
// côté serveur, la confirmation revient du client sous forme de signature HMAC.
type RazorpayGateway interface {
	// CreateOrder crée la commande distante (montant en paise, receipt =
	// order_id local) et retourne l'objet provider tel quel pour le widget client
	CreateOrder(ctx context.Context, amount float64, receipt string) (map[string]interface{}, error)
	// VerifySignature recalcule la signature HMAC-SHA256 attendue et la
	// compare en temps constant à celle relayée par le client
	VerifySignature(remoteOrderID, paymentID, signature string) bool
	KeyID() string
}

type RazorpayClient struct {
	client    *razorpay.Client
	keyID     string
	keySecret string
}

func NewRazorpayClient(keyID, keySecret string) *RazorpayClient {
	return &RazorpayClient{
		client:    razorpay.NewClient(keyID, keySecret),
		keyID:     keyID,
		keySecret: keySecret,
	}
}

func (g *RazorpayClient) KeyID() string {
	return g.keyID
}

func (g *RazorpayClient) CreateOrder(ctx context.Context, amount float64, receipt string) (map[string]interface{}, error) {
	data := map[string]interface{}{
		"amount":   int64(math.Round(amount * 100)), // paise
		"currency": "INR",
		"receipt":  receipt,
	}

	// Le SDK ne prend pas de context : on borne l'appel nous-mêmes, un
	// timeout est traité comme une erreur provider, pas comme un refus.
	type result struct {
		body map[string]interface{}
		err  error
	}
	done := make(chan result, 1)
	go func() {
		body, err := g.client.Order.Create(data, nil)
		done <- result{body, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.body, r.err
	}
}

// VerifySignature : HMAC-SHA256 sur "remote_order_id|payment_id" avec le
// secret partagé, comparaison en temps constant.
func (g *RazorpayClient) VerifySignature(remoteOrderID, paymentID, signature string) bool {
	return VerifyRazorpaySignature(remoteOrderID, paymentID, signature, g.keySecret)
}

func VerifyRazorpaySignature(remoteOrderID, paymentID, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(remoteOrderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
