package account

import (
	"context"
	"errors"
	"log"
	"net/mail"
	"strings"

	"bookstore_back_end/internal/auth"
	"bookstore_back_end/internal/models"
	"bookstore_back_end/internal/repository"
	"bookstore_back_end/internal/services"
)

const minPasswordLength = 8

type RegisterInput struct {
	FullName string
	Email    string
	Password string
	Phone    string
}

// Session : réponse de connexion, Token vide quand aucun secret JWT n'est configuré
type Session struct {
	Token string       `json:"token,omitempty"`
	User  *models.User `json:"user"`
}

type Service struct {
	store     repository.Store
	jwtSecret string
}

func NewService(store repository.Store, jwtSecret string) *Service {
	return &Service{store: store, jwtSecret: jwtSecret}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := strings.TrimSpace(in.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, &services.ValidationError{Field: "email", Message: "Email invalide"}
	}
	if len(in.Password) < minPasswordLength {
		return nil, &services.ValidationError{Field: "password", Message: "Le mot de passe doit contenir au moins 8 caractères"}
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, services.Infra("hash du mot de passe", err)
	}
	user := &models.User{
		FullName: strings.TrimSpace(in.FullName),
		Email:    email,
		Password: hash,
		Phone:    in.Phone,
		Role:     "Customer",
	}

	err = s.store.WithinTx(ctx, func(tx repository.Tx) error {
		if err := tx.CreateUser(user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return &services.ConflictError{Code: services.ConflictDuplicate, Message: "Cet email est déjà utilisé"}
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, services.Infra("inscription", err)
	}
	log.Printf("👤 Nouvel utilisateur %d (%s)", user.ID, user.Email)
	return user, nil
}

// Login retourne auth.ErrUnauthenticated sans distinguer email inconnu et mauvais mot de passe
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	var user *models.User
	err := s.store.View(ctx, func(tx repository.Tx) error {
		var err error
		user, err = tx.FindUserByEmail(strings.TrimSpace(email))
		return err
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, auth.ErrUnauthenticated
	}
	if err != nil {
		return nil, services.Infra("connexion", err)
	}

	ok, err := auth.VerifyPassword(password, user.Password)
	if err != nil || !ok {
		return nil, auth.ErrUnauthenticated
	}

	session := &Session{User: user}
	if s.jwtSecret != "" {
		if session.Token, err = auth.GenerateToken(s.jwtSecret, user.ID, user.Email, user.Role); err != nil {
			return nil, services.Infra("génération du token", err)
		}
	}
	return session, nil
}
