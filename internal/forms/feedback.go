// Package forms validates submitted form data and renders it as the text
// messages relayed to the administrator.
package forms

import (
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validation error messages shown to site visitors.
const (
	MsgNameRequired  = "Name is required"
	MsgPhoneRequired = "Phone is required"
	MsgPhoneLength   = "Phone must contain 10 digits"
	MsgNameTooShort  = "Name is too short"
	MsgFakeName      = "Please enter a real name"
)

// Feedback is the contact form. Phone is stored already normalized to the
// last ten digits.
type Feedback struct {
	FirstName  string `validate:"required,min=2,realname"`
	LastName   string
	Patronymic string
	Phone      string `validate:"required,len=10,numeric"`
	Message    string
}

var fakeNames = map[string]struct{}{
	"test":    {},
	"example": {},
}

var feedbackValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// realname rejects obvious placeholder names.
	_ = v.RegisterValidation("realname", func(fl validator.FieldLevel) bool {
		_, fake := fakeNames[strings.ToLower(strings.TrimSpace(fl.Field().String()))]
		return !fake
	})
	return v
}

// ParseFeedback builds a Feedback from submitted form values, trimming
// whitespace and normalizing the phone number.
func ParseFeedback(values url.Values) Feedback {
	return Feedback{
		FirstName:  strings.TrimSpace(values.Get("firstname")),
		LastName:   strings.TrimSpace(values.Get("lastname")),
		Patronymic: strings.TrimSpace(values.Get("patronymic")),
		Phone:      NormalizePhone(values.Get("phone")),
		Message:    strings.TrimSpace(values.Get("message")),
	}
}

// ValidateFeedback returns user-facing messages for every failed rule, in
// field order.
func ValidateFeedback(f Feedback) []string {
	err := feedbackValidator.Struct(f)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}

	var msgs []string
	for _, fe := range verrs {
		switch fe.Field() {
		case "FirstName":
			switch fe.Tag() {
			case "required":
				msgs = append(msgs, MsgNameRequired)
			case "min":
				msgs = append(msgs, MsgNameTooShort)
			case "realname":
				msgs = append(msgs, MsgFakeName)
			}
		case "Phone":
			if fe.Tag() == "required" {
				msgs = append(msgs, MsgPhoneRequired)
			} else {
				msgs = append(msgs, MsgPhoneLength)
			}
		}
	}
	return msgs
}
