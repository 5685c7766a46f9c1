package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"bookstore_back_end/internal/auth"
	"bookstore_back_end/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"non authentifié", auth.ErrUnauthenticated, http.StatusUnauthorized},
		{"panier vide", services.ErrEmptyCart, http.StatusBadRequest},
		{"validation", &services.ValidationError{Field: "status", Message: "invalide"}, http.StatusBadRequest},
		{"introuvable", &services.NotFoundError{Entity: "paiement", ID: 3}, http.StatusNotFound},
		{"stock", &services.InsufficientStockError{Title: "Dune", Available: 1}, http.StatusBadRequest},
		{"déjà confirmé", &services.ConflictError{Code: services.ConflictAlreadyConfirmed}, http.StatusBadRequest},
		{"déjà échoué", &services.ConflictError{Code: services.ConflictAlreadyFailed}, http.StatusBadRequest},
		{"non annulable", &services.ConflictError{Code: services.ConflictNotCancellable}, http.StatusBadRequest},
		{"transition", &services.ConflictError{Code: services.ConflictInvalidTransition}, http.StatusConflict},
		{"doublon", &services.ConflictError{Code: services.ConflictDuplicate}, http.StatusConflict},
		{"occupé", &services.ConflictError{Code: services.ConflictBusy}, http.StatusConflict},
		{"enveloppée", fmt.Errorf("checkout: %w", services.ErrEmptyCart), http.StatusBadRequest},
		{"infrastructure", services.Infra("checkout", errors.New("connexion perdue")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := StatusFor(tt.err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func respond(err error) map[string]interface{} {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/orders/checkout", nil)
	RespondError(c, err)

	var body map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body
}

func TestRespondErrorHidesDetailInProduction(t *testing.T) {
	infra := services.Infra("checkout", errors.New("pq: connexion refusée"))

	ExposeErrorDetail = true
	body := respond(infra)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "connexion refusée")

	ExposeErrorDetail = false
	t.Cleanup(func() { ExposeErrorDetail = true })
	body = respond(infra)
	_, hasDetail := body["error"]
	assert.False(t, hasDetail)
	assert.Equal(t, "Une erreur est survenue, la transaction a été annulée", body["message"])
}

func TestRespondErrorCarriesStockData(t *testing.T) {
	body := respond(&services.InsufficientStockError{BookID: 4, Title: "Dune", Available: 2})
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Dune", data["title"])
	assert.EqualValues(t, 2, data["available"])
	assert.Equal(t, "Stock insuffisant pour 'Dune'. Restant : 2", body["message"])
}
