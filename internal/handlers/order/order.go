package order

import (
	"context"
	"log"
	"math"
	"net/http"
	"time"

	"vesture_back_end/internal/models"
	"vesture_back_end/internal/payment"
	"vesture_back_end/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
)

// Timeout explicite sur les appels providers : un dépassement est une
// erreur provider (HTTP 500), jamais un refus de paiement.
const providerTimeout = 15 * time.Second

// Handler porte le flux commande/paiement. Les stores et gateways sont
// injectés, aucun état global.
type Handler struct {
	Orders   store.OrderStore
	Carts    store.CartStore
	Stripe   payment.StripeGateway
	Razorpay payment.RazorpayGateway

	// ResolveUserName résout le nom du propriétaire pour la liste admin (optionnel)
	ResolveUserName func(ctx context.Context, userID string) string
	// Notify envoie la confirmation de commande (optionnel, nil en tests)
	Notify func(order models.Order, email string)
}

type placeOrderRequest struct {
	Items   []models.OrderItem `json:"items"`
	Amount  float64            `json:"amount"`
	Address models.Address     `json:"address"`
}

// validate applique les règles de placement : lignes non vides, quantités ≥ 1,
// montant strictement positif et égal à la somme des lignes, adresse complète.
func (r placeOrderRequest) validate() string {
	if len(r.Items) == 0 {
		return "Items are required"
	}
	for _, item := range r.Items {
		if item.ProductID == "" || item.Size == "" {
			return "Each item needs a product and a size"
		}
		if item.Quantity < 1 {
			return "Item quantity must be at least 1"
		}
		if item.Price < 0 {
			return "Item price cannot be negative"
		}
	}
	if r.Amount <= 0 {
		return "Amount must be greater than 0"
	}
	// le montant est figé au placement : il doit correspondre aux lignes
	if math.Abs(r.Amount-models.ItemsTotal(r.Items)) > 0.01 {
		return "Amount does not match order items"
	}
	if !r.Address.IsComplete() {
		return "Address is required"
	}
	return ""
}

func (h *Handler) newOrder(userID string, req placeOrderRequest, method string) models.Order {
	return models.Order{
		ID:            gocql.TimeUUID(),
		UserID:        userID,
		Items:         req.Items,
		Amount:        req.Amount,
		Address:       req.Address,
		Status:        models.StatusOrderPlaced,
		PaymentMethod: method,
		Payment:       false,
		Date:          time.Now().UTC(),
	}
}

//
// 🟢 POST /api/order/place — commande COD
//
func (h *Handler) PlaceOrder(c *gin.Context) {
	userID := c.GetString("user_id")

	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid order data"})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": msg})
		return
	}

	order := h.newOrder(userID, req, models.PaymentMethodCOD)
	if err := h.Orders.Insert(c.Request.Context(), order); err != nil {
		log.Println("❌ Erreur insertion commande:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	if err := h.Carts.Clear(c.Request.Context(), userID); err != nil {
		log.Println("⚠️ Erreur vidage panier après placement:", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order placed successfully",
		"orderId": order.ID.String(),
	})
}

//
// 💳 POST /api/order/stripe — checkout par redirection
//
func (h *Handler) PlaceOrderStripe(c *gin.Context) {
	userID := c.GetString("user_id")

	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid order data"})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": msg})
		return
	}

	order := h.newOrder(userID, req, models.PaymentMethodStripe)
	if err := h.Orders.Insert(c.Request.Context(), order); err != nil {
		log.Println("❌ Erreur insertion commande:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), providerTimeout)
	defer cancel()

	sess, err := h.Stripe.CreateSession(ctx, order, c.GetHeader("Origin"))
	if err != nil {
		// compensation : la commande locale existe déjà, on la marque pour
		// réconciliation manuelle au lieu de la laisser passer pour valide
		h.markFailedPendingCleanup(order.ID)
		log.Printf("❌ Erreur Stripe: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Stripe error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "url": sess.URL})
}

//
// ✅ POST /api/order/verifystripe — confirmation par session id
//
func (h *Handler) VerifyStripe(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "session_id is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), providerTimeout)
	defer cancel()

	sess, err := h.Stripe.RetrieveSession(ctx, req.SessionID)
	if err != nil {
		log.Printf("❌ Erreur Stripe: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Stripe error"})
		return
	}

	orderID, err := gocql.ParseUUID(sess.OrderID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid session metadata"})
		return
	}

	order, err := h.Orders.FindByID(c.Request.Context(), orderID)
	if err == store.ErrOrderNotFound {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Order not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	// idempotence : re-vérifier une commande déjà payée est un no-op
	if order.Payment {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Payment successful"})
		return
	}

	if !sess.Paid {
		if err := h.Orders.Delete(c.Request.Context(), orderID); err != nil && err != store.ErrOrderNotFound {
			log.Println("⚠️ Erreur suppression commande refusée:", err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Payment failed"})
		return
	}

	if err := h.confirmOrder(c, order); err != nil {
		log.Println("❌ Erreur marquage paiement:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Payment successful"})
}

//
// 💳 POST /api/order/razorpay — checkout par signature
//
func (h *Handler) PlaceOrderRazorpay(c *gin.Context) {
	userID := c.GetString("user_id")

	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid order data"})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": msg})
		return
	}

	order := h.newOrder(userID, req, models.PaymentMethodRazorpay)
	if err := h.Orders.Insert(c.Request.Context(), order); err != nil {
		log.Println("❌ Erreur insertion commande:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), providerTimeout)
	defer cancel()

	remoteOrder, err := h.Razorpay.CreateOrder(ctx, order.Amount, order.ID.String())
	if err != nil {
		h.markFailedPendingCleanup(order.ID)
		log.Printf("❌ Erreur Razorpay: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Razorpay error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"order":   remoteOrder,
		"orderId": order.ID.String(),
		"key":     h.Razorpay.KeyID(),
	})
}

//
// ✅ POST /api/order/verifyrazorpay — confirmation par signature HMAC
//
func (h *Handler) VerifyRazorpay(c *gin.Context) {
	var req struct {
		RazorpayOrderID   string `json:"razorpay_order_id"`
		RazorpayPaymentID string `json:"razorpay_payment_id"`
		RazorpaySignature string `json:"razorpay_signature"`
		OrderID           string `json:"orderId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil ||
		req.RazorpayOrderID == "" || req.RazorpayPaymentID == "" || req.RazorpaySignature == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid Razorpay response"})
		return
	}

	orderID, err := gocql.ParseUUID(req.OrderID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid Razorpay response"})
		return
	}

	order, err := h.Orders.FindByID(c.Request.Context(), orderID)
	if err == store.ErrOrderNotFound {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Order not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	// idempotence : re-vérifier une commande déjà payée est un no-op
	if order.Payment {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Payment verified successfully"})
		return
	}

	if !h.Razorpay.VerifySignature(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		if err := h.Orders.Delete(c.Request.Context(), orderID); err != nil && err != store.ErrOrderNotFound {
			log.Println("⚠️ Erreur suppression commande refusée:", err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Payment verification failed"})
		return
	}

	if err := h.confirmOrder(c, order); err != nil {
		log.Println("❌ Erreur marquage paiement:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Payment verified successfully"})
}

//
// 📦 POST /api/order/userorders — commandes de l'utilisateur connecté
//
func (h *Handler) UserOrders(c *gin.Context) {
	userID := c.GetString("user_id")

	orders, err := h.Orders.FindByUser(c.Request.Context(), userID)
	if err != nil {
		log.Println("❌ Erreur récupération commandes:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "orders": orders})
}

//
// 🔑 POST /api/order/list — toutes les commandes (admin)
//
func (h *Handler) ListAllOrders(c *gin.Context) {
	orders, err := h.Orders.FindAll(c.Request.Context())
	if err != nil {
		log.Println("❌ Erreur récupération commandes:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	if h.ResolveUserName != nil {
		for i := range orders {
			orders[i].UserName = h.ResolveUserName(c.Request.Context(), orders[i].UserID)
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "orders": orders})
}

//
// 🔑 POST /api/order/status — statut de traitement (admin)
//
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var req struct {
		OrderID string `json:"orderId"`
		Status  string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.OrderID == "" || req.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "orderId and status are required"})
		return
	}

	if !models.IsValidStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Unknown status"})
		return
	}

	orderID, err := gocql.ParseUUID(req.OrderID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Order not found"})
		return
	}

	// pas de contrôle de transition : l'admin peut revenir en arrière
	if err := h.Orders.SetStatus(c.Request.Context(), orderID, req.Status); err != nil {
		if err == store.ErrOrderNotFound {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Order not found"})
			return
		}
		log.Println("❌ Erreur mise à jour statut:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	order, err := h.Orders.FindByID(c.Request.Context(), orderID)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

// confirmOrder applique la transition payé + vidage du panier, puis
// déclenche la notification hors requête. Si le marquage payé échoue,
// rien d'autre n'est fait : la commande reste impayée et revérifiable.
func (h *Handler) confirmOrder(c *gin.Context, order models.Order) error {
	if err := h.Orders.SetPaid(c.Request.Context(), order.ID); err != nil {
		return err
	}
	if err := h.Carts.Clear(c.Request.Context(), order.UserID); err != nil {
		log.Println("⚠️ Erreur vidage panier après paiement:", err)
	}

	if h.Notify != nil {
		order.Payment = true
		email := c.GetString("email")
		go h.Notify(order, email)
	}
	return nil
}

// markFailedPendingCleanup marque une commande dont l'appel provider a
// échoué : elle reste visible pour réconciliation manuelle.
func (h *Handler) markFailedPendingCleanup(id gocql.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Orders.SetStatus(ctx, id, models.StatusFailedPendingCleanup); err != nil {
		log.Println("⚠️ Erreur marquage commande à réconcilier:", err)
	}
}
