package checkout

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/styleshop/storefront/internal/models"
)

// ErrValidation matches any ValidationErrors value with errors.Is.
var ErrValidation = errors.New("validation failed")

// Payment methods
const (
	PaymentCard   = "card"
	PaymentPayPal = "paypal"
	PaymentBank   = "bank"
)

// PaymentOption describes a selectable payment method.
type PaymentOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PaymentOptions lists the accepted payment methods in display order.
var PaymentOptions = []PaymentOption{
	{ID: PaymentCard, Name: "Credit/debit card"},
	{ID: PaymentPayPal, Name: "PayPal"},
	{ID: PaymentBank, Name: "Bank transfer"},
}

// ValidationErrors maps a field name to a human readable message.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fmt.Sprintf("invalid fields: %s", strings.Join(fields, ", "))
}

// Is lets errors.Is(err, ErrValidation) match.
func (v ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}

func required(errs ValidationErrors, field, value, label string) {
	if strings.TrimSpace(value) == "" {
		errs[field] = label + " is required"
	}
}

// ValidateShipping checks the address step. Country is prefilled and not
// required.
func ValidateShipping(info models.ShippingInfo) ValidationErrors {
	errs := ValidationErrors{}
	required(errs, "email", info.Email, "email")
	required(errs, "firstName", info.FirstName, "first name")
	required(errs, "lastName", info.LastName, "last name")
	required(errs, "address", info.Address, "address")
	required(errs, "city", info.City, "city")
	required(errs, "postalCode", info.PostalCode, "postal code")
	return errs
}

// ValidatePayment checks the payment step. Card details are required only
// when paying by card and are checked for presence only: no Luhn or expiry
// date arithmetic is performed.
func ValidatePayment(info models.PaymentInfo) ValidationErrors {
	errs := ValidationErrors{}
	if !knownPaymentMethod(info.Method) {
		errs["method"] = fmt.Sprintf("unknown payment method %q", info.Method)
		return errs
	}
	if info.Method != PaymentCard {
		return errs
	}
	required(errs, "cardNumber", info.CardNumber, "card number")
	required(errs, "expiryDate", info.ExpiryDate, "expiry date")
	required(errs, "cvv", info.CVV, "CVV")
	required(errs, "cardName", info.CardName, "name on card")
	return errs
}

func knownPaymentMethod(method string) bool {
	for _, o := range PaymentOptions {
		if o.ID == method {
			return true
		}
	}
	return false
}

// cardLast4 returns the last four digits of a card number, ignoring spaces.
func cardLast4(number string) string {
	digits := strings.ReplaceAll(number, " ", "")
	if len(digits) <= 4 {
		return digits
	}
	return digits[len(digits)-4:]
}
