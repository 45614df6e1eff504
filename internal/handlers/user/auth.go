package user

import (
	"log"
	"net/http"
	"net/mail"
	"os"

	"vesture_back_end/internal/database"
	"vesture_back_end/internal/models"
	"vesture_back_end/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
)

//
// 🆕 POST /api/users/signup
//
func Register(c *gin.Context) {
	var input struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return
	}

	if input.Name == "" || input.Email == "" || input.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "All fields are required"})
		return
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid email format"})
		return
	}
	if !utils.IsStrongPassword(input.Password) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Password must be at least 8 characters with uppercase, lowercase, number, and symbol",
		})
		return
	}

	session, err := database.GetUsersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	// email déjà pris ?
	var existingID gocql.UUID
	if err := session.Query(`SELECT user_id FROM users_by_email WHERE email = ?`, input.Email).
		Scan(&existingID); err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Email already in use"})
		return
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	userID := gocql.TimeUUID()
	if err := session.Query(`INSERT INTO users (user_id, name, email, password, role) VALUES (?, ?, ?, ?, ?)`,
		userID, input.Name, input.Email, hashed, "user").Exec(); err != nil {
		log.Println("❌ Erreur création utilisateur:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}
	// table de lookup pour le login par email
	if err := session.Query(`INSERT INTO users_by_email (email, user_id, name, password, role) VALUES (?, ?, ?, ?, ?)`,
		input.Email, userID, input.Name, hashed, "user").Exec(); err != nil {
		log.Println("❌ Erreur indexation users_by_email:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	user := models.User{ID: userID.String(), Name: input.Name, Email: input.Email, Role: "user"}
	token, err := utils.GenerateJWT(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"token":   token,
		"user":    gin.H{"id": user.ID, "name": user.Name, "email": user.Email},
		"message": "User registered successfully",
	})
}

//
// 🔓 POST /api/users/login
//
func Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.Email == "" || input.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Email and password are required"})
		return
	}

	session, err := database.GetUsersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	var (
		userID             gocql.UUID
		name, hashed, role string
	)
	if err := session.Query(`SELECT user_id, name, password, role FROM users_by_email WHERE email = ?`, input.Email).
		Scan(&userID, &name, &hashed, &role); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid credentials"})
		return
	}

	ok, err := utils.VerifyPassword(input.Password, hashed)
	if err != nil || !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid credentials"})
		return
	}

	user := models.User{ID: userID.String(), Name: name, Email: input.Email, Role: role}
	token, err := utils.GenerateJWT(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"user":    gin.H{"id": user.ID, "name": user.Name, "email": user.Email},
		"message": "Login successful",
	})
}

//
// 🔑 POST /api/users/admin/login — credentials d'environnement
//
func AdminLogin(c *gin.Context) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.Email == "" || input.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Email and password are required"})
		return
	}

	if input.Email != os.Getenv("ADMIN_EMAIL") || input.Password != os.Getenv("ADMIN_PASSWORD") {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid credentials"})
		return
	}

	token, err := utils.GenerateAdminJWT(input.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"user":    gin.H{"email": input.Email, "role": "admin"},
		"message": "Admin login successful",
	})
}
