package main

import (
	"context"
	"log"
	"os"

	"vesture_back_end/internal/config"
	"vesture_back_end/internal/database"
	"vesture_back_end/internal/handlers/order"
	"vesture_back_end/internal/handlers/user"
	"vesture_back_end/internal/models"
	"vesture_back_end/internal/payment"
	"vesture_back_end/internal/routes"
	"vesture_back_end/internal/store"
	"vesture_back_end/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/stripe/stripe-go/v83"
)

func main() {
	config.Load()

	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
	if stripe.Key == "" {
		log.Fatal("❌ STRIPE_SECRET_KEY manquant dans l'environnement")
	}

	database.ConnectDatabases()
	defer database.CloseScylla()

	orderHandler := &order.Handler{
		Orders:          store.NewScyllaOrderStore(),
		Carts:           store.NewRedisCartStore(database.Redis),
		Stripe:          payment.NewStripeClient(os.Getenv("STRIPE_CURRENCY")),
		Razorpay:        payment.NewRazorpayClient(os.Getenv("RAZORPAY_KEY_ID"), os.Getenv("RAZORPAY_KEY_SECRET")),
		ResolveUserName: resolveUserName,
		Notify:          sendOrderConfirmation,
	}
	cartHandler := &user.CartHandler{
		Carts: store.NewRedisCartStore(database.Redis),
	}

	r := gin.Default()
	routes.SetupRoutes(r, orderHandler, cartHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Println("🚀 Serveur démarré sur le port", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal("❌ Erreur démarrage serveur:", err)
	}
}

// resolveUserName récupère le nom du propriétaire pour la liste admin.
// Best effort : une erreur rend juste un nom vide.
func resolveUserName(ctx context.Context, userID string) string {
	session, err := database.GetUsersSession()
	if err != nil {
		return ""
	}

	id, err := gocql.ParseUUID(userID)
	if err != nil {
		return ""
	}

	var name string
	if err := session.Query(`SELECT name FROM users WHERE user_id = ?`, id).
		WithContext(ctx).Scan(&name); err != nil {
		return ""
	}
	return name
}

// sendOrderConfirmation envoie le mail de confirmation avec facture PDF et
// QR de suivi. Tourne hors requête, les erreurs sont juste loguées.
func sendOrderConfirmation(o models.Order, email string) {
	if email == "" {
		email = o.Address.Email
	}
	if email == "" {
		return
	}

	qrBase64, err := utils.GenerateTrackingQR(o.ID.String())
	if err != nil {
		log.Println("⚠️ Erreur génération QR:", err)
	}
	html := utils.GenerateOrderConfirmationHTML(o, qrBase64)

	pdf, err := utils.GenerateInvoicePDF(o)
	if err != nil {
		log.Println("⚠️ Erreur génération facture PDF:", err)
		pdf = nil
	}

	if err := utils.SendConfirmationEmail(email, "Confirmation de votre commande Vesture", html, pdf); err != nil {
		log.Println("❌ Erreur envoi e-mail de confirmation:", err)
	}
}
