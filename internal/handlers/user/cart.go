package user

import (
	"net/http"

	"vesture_back_end/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CartHandler expose le panier par utilisateur. Le store est injecté
// (Redis en prod, mémoire en tests).
type CartHandler struct {
	Carts store.CartStore
}

type cartRequest struct {
	ItemID   string `json:"itemId"`
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

func (r cartRequest) validateItem() string {
	if r.ItemID == "" || r.Size == "" {
		return "Item and size are required"
	}
	if _, err := uuid.Parse(r.ItemID); err != nil {
		return "Invalid item id"
	}
	return ""
}

//
// 🟢 POST /api/cart/add — incrémente (itemId, size) de 1
//
func (h *CartHandler) AddToCart(c *gin.Context) {
	userID := c.GetString("user_id")

	var req cartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return
	}
	if msg := req.validateItem(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": msg})
		return
	}

	if err := h.Carts.Add(c.Request.Context(), userID, req.ItemID, req.Size); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	cart, err := h.Carts.Read(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Item added to cart",
		"cartData": cart,
	})
}

//
// 🔁 POST /api/cart/update — écrase la quantité, 0 supprime l'entrée
//
func (h *CartHandler) UpdateCart(c *gin.Context) {
	userID := c.GetString("user_id")

	var req cartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return
	}
	if msg := req.validateItem(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": msg})
		return
	}

	if err := h.Carts.SetQuantity(c.Request.Context(), userID, req.ItemID, req.Size, req.Quantity); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Cart updated successfully"})
}

//
// 🛒 POST /api/cart/get — panier courant
//
func (h *CartHandler) GetCart(c *gin.Context) {
	userID := c.GetString("user_id")

	cart, err := h.Carts.Read(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "cartData": cart})
}
