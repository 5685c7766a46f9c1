package user

import (
	"net/http"

	"bookstore_back_end/internal/handlers"
	accountsvc "bookstore_back_end/internal/services/account"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	accounts *accountsvc.Service
}

func NewAuthHandler(accounts *accountsvc.Service) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

type registerRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Phone    string `json:"phone"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.RespondError(c, handlers.BindError(err))
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), accountsvc.RegisterInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	handlers.RespondOK(c, http.StatusCreated, "Inscription réussie", user)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.RespondError(c, handlers.BindError(err))
		return
	}

	session, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		status, _ := handlers.StatusFor(err)
		if status == http.StatusUnauthorized {
			c.JSON(status, gin.H{"success": false, "message": "Email ou mot de passe incorrect"})
			return
		}
		handlers.RespondError(c, err)
		return
	}
	handlers.RespondOK(c, http.StatusOK, "Connexion réussie", session)
}
