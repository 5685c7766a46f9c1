package services

import (
	"errors"
	"fmt"
)

var ErrEmptyCart = errors.New("Le panier est vide")

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v introuvable", e.Entity, e.ID)
}

type ConflictCode string

const (
	ConflictAlreadyConfirmed  ConflictCode = "AlreadyConfirmed"
	ConflictAlreadyFailed     ConflictCode = "AlreadyFailed"
	ConflictNotCancellable    ConflictCode = "NotCancellable"
	ConflictInvalidTransition ConflictCode = "InvalidTransition"
	ConflictDuplicate         ConflictCode = "Duplicate"
	ConflictBusy              ConflictCode = "Busy"
)

type ConflictError struct {
	Code    ConflictCode
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// InsufficientStockError porte le titre du livre et la quantité encore disponible
type InsufficientStockError struct {
	BookID    uint
	Title     string
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Stock insuffisant pour '%s'. Restant : %d", e.Title, e.Available)
}

// InfrastructureError enveloppe une panne de stockage ; le détail n'est exposé qu'en développement
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error {
	return e.Err
}

// Infra enveloppe err sauf s'il s'agit déjà d'une erreur du domaine
func Infra(op string, err error) error {
	if err == nil || IsDomain(err) {
		return err
	}
	return &InfrastructureError{Op: op, Err: err}
}

// IsDomain : vrai pour les erreurs métier, qui ne doivent pas être ré-enveloppées
func IsDomain(err error) bool {
	var (
		ve *ValidationError
		nf *NotFoundError
		ce *ConflictError
		se *InsufficientStockError
		ie *InfrastructureError
	)
	return errors.Is(err, ErrEmptyCart) ||
		errors.As(err, &ve) ||
		errors.As(err, &nf) ||
		errors.As(err, &ce) ||
		errors.As(err, &se) ||
		errors.As(err, &ie)
}

// Paged : une page de résultats avec ses métadonnées de pagination
type Paged[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalCount int64 `json:"totalCount"`
	TotalPages int   `json:"totalPages"`
}

func NewPaged[T any](items []T, page, pageSize int, total int64) Paged[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if pageSize > 0 {
		pages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return Paged[T]{Items: items, Page: page, PageSize: pageSize, TotalCount: total, TotalPages: pages}
}
