package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"bookstore_back_end/internal/auth"
	"bookstore_back_end/internal/repository"
	"bookstore_back_end/internal/services"

	"github.com/gin-gonic/gin"
)

// ExposeErrorDetail : en production les erreurs d'infrastructure restent génériques
var ExposeErrorDetail = true

// RespondOK renvoie l'enveloppe {success, message, data}
func RespondOK(c *gin.Context, status int, message string, data interface{}) {
	body := gin.H{"success": true, "message": message}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

// RespondError traduit une erreur du domaine en statut HTTP
func RespondError(c *gin.Context, err error) {
	status, message := StatusFor(err)
	body := gin.H{"success": false, "message": message}

	var stock *services.InsufficientStockError
	if errors.As(err, &stock) {
		body["data"] = gin.H{"bookId": stock.BookID, "title": stock.Title, "available": stock.Available}
	}
	var conflict *services.ConflictError
	if errors.As(err, &conflict) {
		body["code"] = conflict.Code
	}

	if status >= http.StatusInternalServerError {
		log.Printf("❌ %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		if ExposeErrorDetail {
			body["error"] = err.Error()
		}
	}
	c.JSON(status, body)
}

// StatusFor retourne le statut HTTP et le message public d'une erreur
func StatusFor(err error) (int, string) {
	var (
		ve *services.ValidationError
		nf *services.NotFoundError
		ce *services.ConflictError
		se *services.InsufficientStockError
	)
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, "Utilisateur non authentifié"
	case errors.Is(err, services.ErrEmptyCart):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Error()
	case errors.As(err, &nf):
		return http.StatusNotFound, nf.Error()
	case errors.As(err, &se):
		return http.StatusBadRequest, se.Error()
	case errors.As(err, &ce):
		switch ce.Code {
		case services.ConflictAlreadyConfirmed, services.ConflictAlreadyFailed, services.ConflictNotCancellable:
			return http.StatusBadRequest, ce.Error()
		default:
			return http.StatusConflict, ce.Error()
		}
	default:
		return http.StatusInternalServerError, "Une erreur est survenue, la transaction a été annulée"
	}
}

// ParseID lit un paramètre de route numérique strictement positif
func ParseID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, &services.ValidationError{Field: name, Message: "identifiant invalide"}
	}
	return uint(id), nil
}

// QueryUserID lit ?userId= ; une valeur absente ou illisible vaut 0
func QueryUserID(c *gin.Context) int64 {
	id, _ := strconv.ParseInt(c.Query("userId"), 10, 64)
	return id
}

// PageFromQuery lit ?page=&pageSize=
func PageFromQuery(c *gin.Context) repository.Page {
	number, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	return repository.Page{Number: number, Size: size}.Normalize()
}

// BindError : corps JSON illisible ou incomplet
func BindError(err error) error {
	return &services.ValidationError{Message: "Données invalides: " + err.Error()}
}
