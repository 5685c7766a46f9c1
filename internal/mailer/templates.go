package mailer

import (
	"fmt"
	"html"

	"bookstore_back_end/internal/events"
	"bookstore_back_end/internal/models"
)

func StatusSubject(status models.OrderStatus) string {
	switch status {
	case models.OrderStatusAwaitingPayment:
		return "🏦 Commande en attente de virement - Bookstore"
	case models.OrderStatusConfirmed:
		return "✅ Commande confirmée - Bookstore"
	case models.OrderStatusShipping:
		return "📦 Votre commande a été expédiée - Bookstore"
	case models.OrderStatusDelivered:
		return "🎉 Votre commande a été livrée - Bookstore"
	case models.OrderStatusCancelled:
		return "❌ Commande annulée - Bookstore"
	case models.OrderStatusRefunded:
		return "💰 Remboursement effectué - Bookstore"
	default:
		return "📋 Mise à jour de votre commande - Bookstore"
	}
}

func statusMessage(status models.OrderStatus) string {
	switch status {
	case models.OrderStatusAwaitingPayment:
		return "Votre commande est enregistrée. Elle sera confirmée dès réception de votre virement."
	case models.OrderStatusConfirmed:
		return "Votre commande est confirmée. Nous préparons vos livres."
	case models.OrderStatusShipping:
		return "Bonne nouvelle ! Votre commande a été expédiée et est en route vers vous."
	case models.OrderStatusDelivered:
		return "Votre commande a été livrée. Bonne lecture !"
	case models.OrderStatusCancelled:
		return "Votre commande a été annulée. Si vous avez des questions, n'hésitez pas à nous contacter."
	case models.OrderStatusRefunded:
		return "Votre remboursement a été traité."
	default:
		return "Le statut de votre commande a été mis à jour."
	}
}

func statusColor(status models.OrderStatus) string {
	switch status {
	case models.OrderStatusConfirmed:
		return "#10b981" // Green
	case models.OrderStatusShipping:
		return "#3b82f6" // Blue
	case models.OrderStatusDelivered:
		return "#8b5cf6" // Purple
	case models.OrderStatusCancelled:
		return "#ef4444" // Red
	case models.OrderStatusRefunded, models.OrderStatusAwaitingPayment:
		return "#f59e0b" // Orange
	default:
		return "#6b7280" // Gray
	}
}

func StatusHTML(e events.Event, shopURL string) string {
	link := ""
	if shopURL != "" {
		link = fmt.Sprintf(`<p><a href="%s/orders/%d" style="color:#667eea;">Voir ma commande</a></p>`, html.EscapeString(shopURL), e.OrderID)
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="fr">
<head><meta charset="UTF-8"><title>Mise à jour de commande</title></head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<div style="display: inline-block; padding: 12px 24px; background-color: %s; color: #ffffff; border-radius: 25px; font-weight: 600;">%s</div>
		<p>%s</p>
		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<tr><td>Commande</td><td>#%d</td></tr>
			<tr><td>Montant</td><td>%.2f</td></tr>
		</table>
		%s
		<p style="color: #999; font-size: 12px;">Cet email a été envoyé automatiquement, merci de ne pas y répondre.</p>
	</div>
</body>
</html>`, statusColor(e.OrderStatus), html.EscapeString(string(e.OrderStatus)), statusMessage(e.OrderStatus), e.OrderID, e.TotalPrice, link)
}
