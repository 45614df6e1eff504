package routes

import (
	"os"
	"strings"
	"time"

	"vesture_back_end/internal/handlers/order"
	"vesture_back_end/internal/handlers/product"
	"vesture_back_end/internal/handlers/user"
	"vesture_back_end/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRoutes branche tous les endpoints de l'API. Les handlers qui
// portent un état (stores, gateways de paiement) sont injectés.
func SetupRoutes(r *gin.Engine, orders *order.Handler, carts *user.CartHandler) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.APIRateLimit())

	users := r.Group("/api/users")
	{
		users.POST("/signup", user.Register)
		users.POST("/login", user.Login)
		users.POST("/admin/login", user.AdminLogin)
	}

	products := r.Group("/api/products")
	{
		products.GET("/list", product.GetAllProducts)
		products.GET("/search", product.SearchProducts)
		products.GET("/:id", product.GetProduct)
		products.POST("/add", middleware.AuthRequired(), middleware.RequireAdmin(), product.CreateProduct)
		products.DELETE("/:id", middleware.AuthRequired(), middleware.RequireAdmin(), product.DeleteProduct)
	}

	cart := r.Group("/api/cart", middleware.AuthRequired())
	{
		cart.POST("/add", middleware.CartRateLimit(), carts.AddToCart)
		cart.POST("/update", carts.UpdateCart)
		cart.POST("/get", carts.GetCart)
	}

	orderGroup := r.Group("/api/order", middleware.AuthRequired())
	{
		orderGroup.POST("/place", orders.PlaceOrder)
		orderGroup.POST("/stripe", orders.PlaceOrderStripe)
		orderGroup.POST("/verifystripe", orders.VerifyStripe)
		orderGroup.POST("/razorpay", orders.PlaceOrderRazorpay)
		orderGroup.POST("/verifyrazorpay", orders.VerifyRazorpay)
		orderGroup.POST("/userorders", orders.UserOrders)

		orderGroup.POST("/list", middleware.RequireAdmin(), orders.ListAllOrders)
		orderGroup.POST("/status", middleware.RequireAdmin(), orders.UpdateOrderStatus)
	}
}

func allowedOrigins() []string {
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		return strings.Split(env, ",")
	}
	return []string{"http://localhost:5173", "http://localhost:5174"}
}
