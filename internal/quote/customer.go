package quote

import (
	"strings"

	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/Simplici0/vidrieria/internal/validation"
)

// Customer is the party a quote is addressed to. DNI identifies it.
type Customer struct {
	DNI     string `json:"dni" db:"dni"`
	Name    string `json:"name" db:"name"`
	Email   string `json:"email,omitempty" db:"email"`
	Phone   string `json:"phone,omitempty" db:"phone"`
	Address string `json:"address,omitempty" db:"address"`
	Company string `json:"company,omitempty" db:"company"`
}

// Normalize trims every field.
func (c Customer) Normalize() Customer {
	return Customer{
		DNI:     strings.TrimSpace(c.DNI),
		Name:    strings.TrimSpace(c.Name),
		Email:   strings.TrimSpace(c.Email),
		Phone:   strings.TrimSpace(c.Phone),
		Address: strings.TrimSpace(c.Address),
		Company: strings.TrimSpace(c.Company),
	}
}

// Validate reports every invalid field at once.
func (c Customer) Validate() error {
	c = c.Normalize()

	var v validation.Collector
	v.Check(c.DNI != "", "customer.dni", "is required")
	if c.DNI != "" {
		v.Check(digits(c.DNI) && len(c.DNI) <= 11, "customer.dni", "must be 1 to 11 digits")
	}
	v.Check(c.Name != "", "customer.name", "is required")
	if c.Phone != "" {
		v.Check(digits(c.Phone) && len(c.Phone) == 9, "customer.phone", "must be exactly 9 digits")
	}
	if c.Email != "" {
		v.Check(is.EmailFormat.Validate(c.Email) == nil, "customer.email", "is not a valid address")
	}
	return v.Err()
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
