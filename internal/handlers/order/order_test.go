package order

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"vesture_back_end/internal/models"
	"vesture_back_end/internal/payment"
	"vesture_back_end/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
)

// --- stubs providers ---

type stubStripe struct {
	createErr   error
	retrieveErr error
	session     payment.CheckoutSession
}

func (s *stubStripe) CreateSession(_ context.Context, order models.Order, _ string) (payment.CheckoutSession, error) {
	if s.createErr != nil {
		return payment.CheckoutSession{}, s.createErr
	}
	return payment.CheckoutSession{
		ID:      "cs_test_123",
		URL:     "https://checkout.stripe.test/cs_test_123",
		OrderID: order.ID.String(),
		UserID:  order.UserID,
	}, nil
}

func (s *stubStripe) RetrieveSession(_ context.Context, _ string) (payment.CheckoutSession, error) {
	if s.retrieveErr != nil {
		return payment.CheckoutSession{}, s.retrieveErr
	}
	return s.session, nil
}

// failingPaidStore fait échouer SetPaid à la demande, le reste délègue
type failingPaidStore struct {
	*store.MemoryOrderStore
	setPaidErr error
}

func (s *failingPaidStore) SetPaid(ctx context.Context, id gocql.UUID) error {
	if s.setPaidErr != nil {
		return s.setPaidErr
	}
	return s.MemoryOrderStore.SetPaid(ctx, id)
}

type stubRazorpay struct {
	createErr error
}

func (s *stubRazorpay) CreateOrder(_ context.Context, amount float64, receipt string) (map[string]interface{}, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return map[string]interface{}{
		"id":      "order_remote_1",
		"amount":  int64(amount * 100),
		"receipt": receipt,
	}, nil
}

func (s *stubRazorpay) VerifySignature(remoteOrderID, paymentID, signature string) bool {
	return payment.VerifyRazorpaySignature(remoteOrderID, paymentID, signature, "test-secret")
}

func (s *stubRazorpay) KeyID() string { return "rzp_test_key" }

// --- montage du routeur de test ---

type testEnv struct {
	handler  *Handler
	orders   *store.MemoryOrderStore
	carts    *store.MemoryCartStore
	stripe   *stubStripe
	razorpay *stubRazorpay
	router   *gin.Engine
}

func newTestEnv(userID string) *testEnv {
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		orders:   store.NewMemoryOrderStore(),
		carts:    store.NewMemoryCartStore(),
		stripe:   &stubStripe{},
		razorpay: &stubRazorpay{},
	}
	env.handler = &Handler{
		Orders:   env.orders,
		Carts:    env.carts,
		Stripe:   env.stripe,
		Razorpay: env.razorpay,
	}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("email", "client@test.fr")
	})
	r.POST("/api/order/place", env.handler.PlaceOrder)
	r.POST("/api/order/stripe", env.handler.PlaceOrderStripe)
	r.POST("/api/order/verifystripe", env.handler.VerifyStripe)
	r.POST("/api/order/razorpay", env.handler.PlaceOrderRazorpay)
	r.POST("/api/order/verifyrazorpay", env.handler.VerifyRazorpay)
	r.POST("/api/order/userorders", env.handler.UserOrders)
	r.POST("/api/order/list", env.handler.ListAllOrders)
	r.POST("/api/order/status", env.handler.UpdateOrderStatus)
	env.router = r
	return env
}

func (env *testEnv) post(t *testing.T, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("réponse non-JSON (%d): %s", w.Code, w.Body.String())
	}
	return w, resp
}

func validOrderBody() gin.H {
	return gin.H{
		"items": []gin.H{
			{"productId": "c0a80101-0000-1000-8000-00805f9b34fb", "name": "T-shirt", "size": "M", "quantity": 2, "price": 25.0},
		},
		"amount": 50.0,
		"address": gin.H{
			"firstName": "Jean", "lastName": "Dupont",
			"street": "1 rue de Rivoli", "city": "Paris",
			"zipcode": "75001", "country": "France", "phone": "0600000000",
		},
	}
}

func (env *testEnv) onlyOrder(t *testing.T) models.Order {
	t.Helper()
	orders, err := env.orders.FindAll(context.Background())
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("%d commandes en base, attendu 1", len(orders))
	}
	return orders[0]
}

// --- placement ---

func TestPlaceOrderCOD(t *testing.T) {
	env := newTestEnv("u1")
	env.carts.Add(context.Background(), "u1", "P1", "M")

	w, resp := env.post(t, "/api/order/place", validOrderBody())
	if w.Code != http.StatusOK || resp["success"] != true {
		t.Fatalf("code=%d resp=%v", w.Code, resp)
	}

	order := env.onlyOrder(t)
	if order.Status != models.StatusOrderPlaced {
		t.Errorf("statut = %q, attendu %q", order.Status, models.StatusOrderPlaced)
	}
	if order.Payment {
		t.Error("commande COD marquée payée au placement")
	}
	if order.PaymentMethod != models.PaymentMethodCOD {
		t.Errorf("méthode = %q", order.PaymentMethod)
	}

	// le panier est vidé au placement COD
	cart, _ := env.carts.Read(context.Background(), "u1")
	if len(cart) != 0 {
		t.Errorf("panier non vidé: %v", cart)
	}
}

func TestPlaceOrderValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(gin.H)
	}{
		{"sans items", func(b gin.H) { b["items"] = []gin.H{} }},
		{"montant nul", func(b gin.H) { b["amount"] = 0.0 }},
		{"montant incohérent", func(b gin.H) { b["amount"] = 99.0 }},
		{"quantité nulle", func(b gin.H) {
			b["items"] = []gin.H{{"productId": "p", "name": "x", "size": "M", "quantity": 0, "price": 25.0}}
			b["amount"] = 0.0
		}},
		{"adresse incomplète", func(b gin.H) { b["address"] = gin.H{"firstName": "Jean"} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv("u1")
			body := validOrderBody()
			tc.mutate(body)

			w, resp := env.post(t, "/api/order/place", body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("code = %d, attendu 400 (resp=%v)", w.Code, resp)
			}

			// un placement refusé ne laisse aucune trace
			orders, _ := env.orders.FindAll(context.Background())
			if len(orders) != 0 {
				t.Errorf("commande créée malgré le refus: %v", orders)
			}
		})
	}
}

// --- Stripe ---

func TestPlaceOrderStripeReturnsURL(t *testing.T) {
	env := newTestEnv("u1")
	env.carts.Add(context.Background(), "u1", "P1", "M")

	w, resp := env.post(t, "/api/order/stripe", validOrderBody())
	if w.Code != http.StatusOK || resp["success"] != true {
		t.Fatalf("code=%d resp=%v", w.Code, resp)
	}
	if resp["url"] != "https://checkout.stripe.test/cs_test_123" {
		t.Errorf("url = %v", resp["url"])
	}

	// la commande existe, impayée, en attente de vérification
	order := env.onlyOrder(t)
	if order.Payment || order.Status != models.StatusOrderPlaced {
		t.Errorf("commande = %+v", order)
	}

	// le panier n'est PAS vidé avant confirmation du paiement
	cart, _ := env.carts.Read(context.Background(), "u1")
	if len(cart) == 0 {
		t.Error("panier vidé avant confirmation")
	}
}

func TestPlaceOrderStripeProviderFailure(t *testing.T) {
	env := newTestEnv("u1")
	env.stripe.createErr = errors.New("connexion refusée")

	w, resp := env.post(t, "/api/order/stripe", validOrderBody())
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d, attendu 500 (resp=%v)", w.Code, resp)
	}

	// compensation : la commande reste visible, marquée pour réconciliation
	order := env.onlyOrder(t)
	if order.Status != models.StatusFailedPendingCleanup {
		t.Errorf("statut = %q, attendu %q", order.Status, models.StatusFailedPendingCleanup)
	}
}

func TestVerifyStripePaid(t *testing.T) {
	env := newTestEnv("u1")
	env.carts.Add(context.Background(), "u1", "P1", "M")

	env.post(t, "/api/order/stripe", validOrderBody())
	order := env.onlyOrder(t)

	env.stripe.session = payment.CheckoutSession{Paid: true, OrderID: order.ID.String(), UserID: "u1"}

	w, resp := env.post(t, "/api/order/verifystripe", gin.H{"session_id": "cs_test_123"})
	if w.Code != http.StatusOK || resp["success"] != true {
		t.Fatalf("code=%d resp=%v", w.Code, resp)
	}

	confirmed, err := env.orders.FindByID(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if !confirmed.Payment {
		t.Error("commande non marquée payée après vérification")
	}

	cart, _ := env.carts.Read(context.Background(), "u1")
	if len(cart) != 0 {
		t.Errorf("panier non vidé après confirmation: %v", cart)
	}

	// re-vérifier est un no-op qui répond encore succès
	w, resp = env.post(t, "/api/order/verifystripe", gin.H{"session_id": "cs_test_123"})
	if w.Code != http.StatusOK || resp["success"] != true {
		t.Errorf("re-vérification: code=%d resp=%v", w.Code, resp)
	}
}

func TestVerifyStripeUnpaidDeletesOrder(t *testing.T) {
	env := newTestEnv("u1")

	env.post(t, "/api/order/stripe", validOrderBody())
	order := env.onlyOrder(t)

	env.stripe.session = payment.CheckoutSession{Paid: false, OrderID: order.ID.String(), UserID: "u1"}

	w, _ := env.post(t, "/api/order/verifystripe", gin.H{"session_id": "cs_test_123"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, attendu 400", w.Code)
	}

	if _, err := env.orders.FindByID(context.Background(), order.ID); err != store.ErrOrderNotFound {
		t.Errorf("commande refusée toujours présente (err=%v)", err)
	}
}

func TestVerifyStripeUnknownOrder(t *testing.T) {
	env := newTestEnv("u1")
	env.stripe.session = payment.CheckoutSession{Paid: true, OrderID: gocql.TimeUUID().String()}

	w, _ := env.post(t, "/api/order/verifystripe", gin.H{"session_id": "cs_test_123"})
	if w.Code != http.StatusNotFound {
		t.Errorf("code = %d, attendu 404", w.Code)
	}
}

func TestVerifyStripeMissingSessionID(t *testing.T) {
	env := newTestEnv("u1")

	w, _ := env.post(t, "/api/order/verifystripe", gin.H{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("code = %d, attendu 400", w.Code)
	}
}

// --- Razorpay ---

func TestPlaceOrderRazorpay(t *testing.T) {
	env := newTestEnv("u1")

	w, resp := env.post(t, "/api/order/razorpay", validOrderBody())
	if w.Code != http.StatusOK || resp["success"] != true {
		t.Fatalf("code=%d resp=%v", w.Code, resp)
	}
	if resp["key"] != "rzp_test_key" {
		t.Errorf("key = %v", resp["key"])
	}
	if resp["order"] == nil || resp["orderId"] == nil {
		t.Errorf("réponse incomplète: %v", resp)
	}
}

func TestPlaceOrderRazorpayProviderFailure(t *testing.T) {
	env := newTestEnv("u1")
	env.razorpay.createErr = errors.New("timeout")

	w, _ := env.post(t, "/api/order/razorpay", validOrderBody())
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d, attendu 500", w.Code)
	}

	order := env.onlyOrder(t)
	if order.Status != models.StatusFailedPendingCleanup {
		t.Errorf("statut = %q, attendu %q", order.Status, models.StatusFailedPendingCleanup)
	}
}

func TestVerifyRazorpayValidSignature(t *testing.T) {
	env := newTestEnv("u1")
	env.carts.Add(context.Background(), "u1", "P1", "M")

	env.post(t, "/api/order/razorpay", validOrderBody())
	order := env.onlyOrder(t)

	sig := signRazorpayTest("order_remote_1", "pay_1")
	w, resp := env.post(t, "/api/order/verifyrazorpay", gin.H{
		"razorpay_order_id":   "order_remote_1",
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  sig,
		"orderId":             order.ID.String(),
	})
	if w.Code != http.StatusOK || resp["success"] != true {
		t.Fatalf("code=%d resp=%v", w.Code, resp)
	}

	confirmed, _ := env.orders.FindByID(context.Background(), order.ID)
	if !confirmed.Payment {
		t.Error("commande non marquée payée")
	}

	cart, _ := env.carts.Read(context.Background(), "u1")
	if len(cart) != 0 {
		t.Errorf("panier non vidé: %v", cart)
	}

	// idempotence : re-vérifier une commande payée reste un succès
	w, resp = env.post(t, "/api/order/verifyrazorpay", gin.H{
		"razorpay_order_id":   "order_remote_1",
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  sig,
		"orderId":             order.ID.String(),
	})
	if w.Code != http.StatusOK || resp["success"] != true {
		t.Errorf("re-vérification: code=%d resp=%v", w.Code, resp)
	}
}

func TestVerifyRazorpaySetPaidFailure(t *testing.T) {
	env := newTestEnv("u1")
	failing := &failingPaidStore{MemoryOrderStore: env.orders}
	env.handler.Orders = failing
	env.carts.Add(context.Background(), "u1", "P1", "M")

	env.post(t, "/api/order/razorpay", validOrderBody())
	order := env.onlyOrder(t)

	failing.setPaidErr = errors.New("écriture refusée")
	sig := signRazorpayTest("order_remote_1", "pay_1")
	body := gin.H{
		"razorpay_order_id":   "order_remote_1",
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  sig,
		"orderId":             order.ID.String(),
	}

	// le marquage payé échoue : jamais de succès partiel rapporté
	w, resp := env.post(t, "/api/order/verifyrazorpay", body)
	if w.Code != http.StatusInternalServerError || resp["success"] != false {
		t.Fatalf("code=%d resp=%v, attendu 500 success=false", w.Code, resp)
	}

	stored, _ := env.orders.FindByID(context.Background(), order.ID)
	if stored.Payment {
		t.Error("commande marquée payée malgré l'échec d'écriture")
	}
	cart, _ := env.carts.Read(context.Background(), "u1")
	if len(cart) == 0 {
		t.Error("panier vidé alors que la confirmation a échoué")
	}

	// après rétablissement du store, la re-vérification aboutit
	failing.setPaidErr = nil
	w, resp = env.post(t, "/api/order/verifyrazorpay", body)
	if w.Code != http.StatusOK || resp["success"] != true {
		t.Fatalf("re-vérification: code=%d resp=%v", w.Code, resp)
	}
	stored, _ = env.orders.FindByID(context.Background(), order.ID)
	if !stored.Payment {
		t.Error("commande non payée après re-vérification")
	}
	cart, _ = env.carts.Read(context.Background(), "u1")
	if len(cart) != 0 {
		t.Errorf("panier non vidé après confirmation: %v", cart)
	}
}

func TestVerifyStripeSetPaidFailure(t *testing.T) {
	env := newTestEnv("u1")
	failing := &failingPaidStore{MemoryOrderStore: env.orders}
	env.handler.Orders = failing
	env.carts.Add(context.Background(), "u1", "P1", "M")

	env.post(t, "/api/order/stripe", validOrderBody())
	order := env.onlyOrder(t)

	env.stripe.session = payment.CheckoutSession{Paid: true, OrderID: order.ID.String(), UserID: "u1"}
	failing.setPaidErr = errors.New("écriture refusée")

	w, resp := env.post(t, "/api/order/verifystripe", gin.H{"session_id": "cs_test_123"})
	if w.Code != http.StatusInternalServerError || resp["success"] != false {
		t.Fatalf("code=%d resp=%v, attendu 500 success=false", w.Code, resp)
	}

	stored, _ := env.orders.FindByID(context.Background(), order.ID)
	if stored.Payment {
		t.Error("commande marquée payée malgré l'échec d'écriture")
	}
	cart, _ := env.carts.Read(context.Background(), "u1")
	if len(cart) == 0 {
		t.Error("panier vidé alors que la confirmation a échoué")
	}
}

func TestVerifyRazorpayBadSignatureDeletesOrder(t *testing.T) {
	env := newTestEnv("u1")

	env.post(t, "/api/order/razorpay", validOrderBody())
	order := env.onlyOrder(t)

	w, _ := env.post(t, "/api/order/verifyrazorpay", gin.H{
		"razorpay_order_id":   "order_remote_1",
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  "0000000000000000000000000000000000000000000000000000000000000000",
		"orderId":             order.ID.String(),
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, attendu 400", w.Code)
	}

	if _, err := env.orders.FindByID(context.Background(), order.ID); err != store.ErrOrderNotFound {
		t.Errorf("commande refusée toujours présente (err=%v)", err)
	}
}

func TestVerifyRazorpayMissingFields(t *testing.T) {
	env := newTestEnv("u1")

	w, _ := env.post(t, "/api/order/verifyrazorpay", gin.H{
		"razorpay_order_id": "order_remote_1",
		"orderId":           gocql.TimeUUID().String(),
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("code = %d, attendu 400", w.Code)
	}
}

func TestVerifyRazorpayUnknownOrder(t *testing.T) {
	env := newTestEnv("u1")

	w, _ := env.post(t, "/api/order/verifyrazorpay", gin.H{
		"razorpay_order_id":   "order_remote_1",
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  signRazorpayTest("order_remote_1", "pay_1"),
		"orderId":             gocql.TimeUUID().String(),
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("code = %d, attendu 404", w.Code)
	}
}

// --- consultation et admin ---

func TestUserOrdersOnlyOwn(t *testing.T) {
	env := newTestEnv("u1")

	env.post(t, "/api/order/place", validOrderBody())
	env.orders.Insert(context.Background(), models.Order{
		ID: gocql.TimeUUID(), UserID: "u2", Status: models.StatusOrderPlaced,
	})

	_, resp := env.post(t, "/api/order/userorders", gin.H{})
	orders, ok := resp["orders"].([]interface{})
	if !ok || len(orders) != 1 {
		t.Fatalf("orders = %v, attendu 1 commande", resp["orders"])
	}
}

func TestListAllOrdersResolvesUserName(t *testing.T) {
	env := newTestEnv("u1")
	env.handler.ResolveUserName = func(_ context.Context, userID string) string {
		return "Jean Dupont"
	}

	env.post(t, "/api/order/place", validOrderBody())

	_, resp := env.post(t, "/api/order/list", gin.H{})
	orders := resp["orders"].([]interface{})
	first := orders[0].(map[string]interface{})
	if first["userName"] != "Jean Dupont" {
		t.Errorf("userName = %v", first["userName"])
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	env := newTestEnv("u1")

	env.post(t, "/api/order/place", validOrderBody())
	order := env.onlyOrder(t)

	w, resp := env.post(t, "/api/order/status", gin.H{
		"orderId": order.ID.String(),
		"status":  models.StatusShipped,
	})
	if w.Code != http.StatusOK || resp["success"] != true {
		t.Fatalf("code=%d resp=%v", w.Code, resp)
	}

	updated, _ := env.orders.FindByID(context.Background(), order.ID)
	if updated.Status != models.StatusShipped {
		t.Errorf("statut = %q", updated.Status)
	}

	// retour arrière autorisé
	w, _ = env.post(t, "/api/order/status", gin.H{
		"orderId": order.ID.String(),
		"status":  models.StatusPackaging,
	})
	if w.Code != http.StatusOK {
		t.Errorf("retour arrière refusé: code=%d", w.Code)
	}
}

func TestUpdateOrderStatusUnknownStatus(t *testing.T) {
	env := newTestEnv("u1")

	env.post(t, "/api/order/place", validOrderBody())
	order := env.onlyOrder(t)

	w, _ := env.post(t, "/api/order/status", gin.H{
		"orderId": order.ID.String(),
		"status":  "Teleported",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("code = %d, attendu 400", w.Code)
	}

	unchanged, _ := env.orders.FindByID(context.Background(), order.ID)
	if unchanged.Status != models.StatusOrderPlaced {
		t.Errorf("statut modifié malgré le refus: %q", unchanged.Status)
	}
}

func TestUpdateOrderStatusUnknownOrder(t *testing.T) {
	env := newTestEnv("u1")

	w, _ := env.post(t, "/api/order/status", gin.H{
		"orderId": gocql.TimeUUID().String(),
		"status":  models.StatusShipped,
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("code = %d, attendu 404", w.Code)
	}
}

// signRazorpayTest calcule la signature attendue par le stub (secret "test-secret")
func signRazorpayTest(remoteOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte("test-secret"))
	mac.Write([]byte(remoteOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
