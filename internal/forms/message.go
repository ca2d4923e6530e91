package forms

import (
	"fmt"
	"strings"
	"time"
)

const timestampLayout = "02.01.2006 15:04"

// FeedbackMessage renders the contact form as the notification text sent to
// the administrator.
func FeedbackMessage(f Feedback, now time.Time) string {
	parts := []string{
		"📌 New request from the website:",
		"🕒 " + now.Format(timestampLayout),
		"👤 Name: " + f.FirstName,
	}
	if f.LastName != "" {
		parts = append(parts, "👤 Last name: "+f.LastName)
	}
	if f.Patronymic != "" {
		parts = append(parts, "👤 Middle name: "+f.Patronymic)
	}
	msg := f.Message
	if msg == "" {
		msg = "not provided"
	}
	parts = append(parts,
		"📞 Phone: "+FormatPhone(f.Phone),
		"📝 Message: "+msg,
	)
	return strings.Join(parts, "\n")
}

// OrderMessage renders the checkout payload as the notification text sent to
// the administrator.
func OrderMessage(o Order, now time.Time) string {
	comment := o.Comment
	if comment == "" {
		comment = "not provided"
	}
	parts := []string{
		"📦 NEW ORDER",
		"👤 Name: " + o.Name,
		"📞 Phone: " + FormatPhone(o.Phone),
		"💬 Comment: " + comment,
		"",
		"🛒 Order items:",
	}
	for _, it := range o.Cart.Items {
		parts = append(parts, fmt.Sprintf("- %s: %s %s × %s ₽ = %s ₽",
			it.Name, it.Quantity, it.Unit, it.PricePerUnit, it.Price))
	}
	parts = append(parts,
		"",
		fmt.Sprintf("💰 Total: %s ₽", o.Cart.Total),
		"🕒 "+now.Format(timestampLayout),
	)
	return strings.Join(parts, "\n")
}
