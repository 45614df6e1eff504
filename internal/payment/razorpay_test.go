package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func signRazorpay(remoteOrderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(remoteOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyRazorpaySignatureValid(t *testing.T) {
	secret := "test-secret"
	sig := signRazorpay("order_abc123", "pay_xyz789", secret)

	if !VerifyRazorpaySignature("order_abc123", "pay_xyz789", sig, secret) {
		t.Error("signature valide rejetée")
	}
}

func TestVerifyRazorpaySignatureAltered(t *testing.T) {
	secret := "test-secret"
	sig := signRazorpay("order_abc123", "pay_xyz789", secret)

	// un seul caractère modifié doit suffire au rejet
	altered := []byte(sig)
	if altered[0] == 'a' {
		altered[0] = 'b'
	} else {
		altered[0] = 'a'
	}

	if VerifyRazorpaySignature("order_abc123", "pay_xyz789", string(altered), secret) {
		t.Error("signature altérée acceptée")
	}
}

func TestVerifyRazorpaySignatureWrongPayment(t *testing.T) {
	secret := "test-secret"
	sig := signRazorpay("order_abc123", "pay_xyz789", secret)

	if VerifyRazorpaySignature("order_abc123", "pay_other", sig, secret) {
		t.Error("signature d'un autre paiement acceptée")
	}
}

func TestVerifyRazorpaySignatureWrongSecret(t *testing.T) {
	sig := signRazorpay("order_abc123", "pay_xyz789", "test-secret")

	if VerifyRazorpaySignature("order_abc123", "pay_xyz789", sig, "other-secret") {
		t.Error("signature calculée avec un autre secret acceptée")
	}
}
