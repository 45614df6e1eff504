package product

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"vesture_back_end/internal/database"
	"vesture_back_end/internal/models"
	"vesture_back_end/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"
)

const productsCacheKey = "products:all"

//
// ➕ POST /api/products/add (admin)
//
func CreateProduct(c *gin.Context) {
	var input struct {
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Price       float64  `json:"price"`
		Category    string   `json:"category"`
		SubCategory string   `json:"subCategory"`
		Sizes       []string `json:"sizes"`
		Bestseller  bool     `json:"bestseller"`
		ImageURLs   []string `json:"image"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return
	}
	if input.Name == "" || input.Price <= 0 || input.Category == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Name, price and category are required"})
		return
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	p := models.Product{
		ID:          gocql.TimeUUID(),
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Category:    input.Category,
		SubCategory: input.SubCategory,
		Sizes:       input.Sizes,
		Bestseller:  input.Bestseller,
		ImageURLs:   input.ImageURLs,
		Date:        time.Now().UTC(),
	}

	if err := session.Query(`INSERT INTO products (product_id, name, description, price, category, sub_category, sizes, bestseller, image_urls, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.Price, p.Category, p.SubCategory, p.Sizes, p.Bestseller, p.ImageURLs, p.Date,
	).Exec(); err != nil {
		log.Println("❌ Erreur insertion produit:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	invalidateProductsCache(c.Request.Context())
	go services.IndexProduct(p)

	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Product added", "product": p})
}

//
// 📦 GET /api/products/list — cache Redis, fallback Scylla
//
func GetAllProducts(c *gin.Context) {
	ctx := c.Request.Context()

	if database.Redis != nil {
		if cached, err := database.Redis.Get(ctx, productsCacheKey).Result(); err == nil {
			var products []models.Product
			if json.Unmarshal([]byte(cached), &products) == nil {
				c.JSON(http.StatusOK, gin.H{"success": true, "products": products})
				return
			}
		}
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	iter := session.Query(`SELECT product_id, name, description, price, category, sub_category, sizes, bestseller, image_urls, created_at FROM products`).Iter()

	products := []models.Product{}
	var p models.Product
	for iter.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.SubCategory, &p.Sizes, &p.Bestseller, &p.ImageURLs, &p.Date) {
		products = append(products, p)
		p = models.Product{}
	}
	if err := iter.Close(); err != nil {
		log.Println("❌ Erreur lecture produits:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	if database.Redis != nil {
		if data, err := json.Marshal(products); err == nil {
			database.Redis.Set(ctx, productsCacheKey, data, 5*time.Minute)
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "products": products})
}

//
// 🔍 GET /api/products/:id
//
func GetProduct(c *gin.Context) {
	parsed, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid product id"})
		return
	}
	productID := gocql.UUID(parsed)

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	var p models.Product
	if err := session.Query(`SELECT product_id, name, description, price, category, sub_category, sizes, bestseller, image_urls, created_at FROM products WHERE product_id = ?`, productID).
		Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.SubCategory, &p.Sizes, &p.Bestseller, &p.ImageURLs, &p.Date); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Product not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "product": p})
}

//
// 🗑️ DELETE /api/products/:id (admin)
//
func DeleteProduct(c *gin.Context) {
	parsed, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid product id"})
		return
	}
	productID := gocql.UUID(parsed)

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	if err := session.Query(`DELETE FROM products WHERE product_id = ?`, productID).Exec(); err != nil {
		log.Println("❌ Erreur suppression produit:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	invalidateProductsCache(c.Request.Context())
	go services.RemoveProductFromIndex(productID.String())

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Product deleted"})
}

//
// 🔎 GET /api/products/search?q= — Elasticsearch
//
func SearchProducts(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Query parameter 'q' is required"})
		return
	}

	results, err := services.SearchProducts(query)
	if err != nil {
		log.Println("⚠️ Recherche Elastic échouée:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Search unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "products": results})
}

func invalidateProductsCache(ctx context.Context) {
	if database.Redis == nil {
		return
	}
	if err := database.Redis.Del(ctx, productsCacheKey).Err(); err != nil {
		log.Println("⚠️ Invalidation cache produits:", err)
	}
}
