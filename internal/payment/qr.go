package payment

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"github.com/skip2/go-qrcode"
)

// BankAccount : compte qui reçoit les virements
type BankAccount struct {
	Holder   string
	Number   string
	BIC      string
	Bank     string
	Currency string
}

// Reference identifie un virement attendu
type Reference struct {
	OrderID uint
	Amount  float64
}

// TransferContent : libellé à saisir par le client, utilisé pour le rapprochement
func (r Reference) TransferContent() string {
	return fmt.Sprintf("BOOK%d", r.OrderID)
}

// ObjectKey : chemin de l'image QR dans le bucket
func (r Reference) ObjectKey() string {
	return fmt.Sprintf("qr/order-%d.png", r.OrderID)
}

// Payload construit le contenu EPC (format SEPA) encodé dans le QR
func Payload(acct BankAccount, ref Reference) string {
	currency := acct.Currency
	if currency == "" {
		currency = "VND"
	}
	return fmt.Sprintf(`BCD
001
1
SCT
%s
%s
%s
%s%.2f
%s`, acct.BIC, acct.Holder, acct.Number, currency, ref.Amount, ref.TransferContent())
}

// ObjectStore : stockage objet (MinIO) pour servir l'image via une URL signée
type ObjectStore interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type QRGenerator struct {
	Account BankAccount
	Store   ObjectStore // nil : l'image est renvoyée en data URL
	URLTTL  time.Duration
	Size    int
}

func NewQRGenerator(acct BankAccount, store ObjectStore) *QRGenerator {
	return &QRGenerator{Account: acct, Store: store, URLTTL: 24 * time.Hour, Size: 256}
}

// Generate retourne l'URL de l'image QR pour la référence donnée
func (g *QRGenerator) Generate(ctx context.Context, ref Reference) (string, error) {
	size := g.Size
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(Payload(g.Account, ref), qrcode.Medium, size)
	if err != nil {
		return "", fmt.Errorf("génération QR: %w", err)
	}

	if g.Store != nil {
		key := ref.ObjectKey()
		if err := g.Store.PutObject(ctx, key, png, "image/png"); err == nil {
			url, err := g.Store.SignedURL(ctx, key, g.URLTTL)
			if err == nil {
				return url, nil
			}
			log.Printf("⚠️ URL signée QR impossible (commande %d): %v", ref.OrderID, err)
		} else {
			log.Printf("⚠️ Upload QR MinIO échoué (commande %d): %v", ref.OrderID, err)
		}
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
