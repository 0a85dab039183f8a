// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"ledgerbook/internal/models"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("iso4217", validateISO4217)
		_ = v.RegisterValidation("transaction_type", validateTransactionType)
		_ = v.RegisterValidation("uid", validateUID)
	}
}

// IsCurrency reports whether code is a known ISO 4217 currency code.
// Codes are matched exactly; callers upper-case user input first.
func IsCurrency(code string) bool {
	return len(code) == 3 && code == strings.ToUpper(code) && money.GetCurrency(code) != nil
}

func validateISO4217(fl validator.FieldLevel) bool {
	return IsCurrency(fl.Field().String())
}

func validateTransactionType(fl validator.FieldLevel) bool {
	return models.TransactionType(fl.Field().String()).Valid()
}

// validateUID accepts the opaque identifiers handed out by the API:
// non-empty, at most 36 characters, no whitespace.
func validateUID(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s != "" && len(s) <= 36 && !strings.ContainsAny(s, " \t\r\n")
}
