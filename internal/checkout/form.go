package checkout

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidForm = errors.New("invalid checkout form")

// Form is what the customer types on the checkout page.
type Form struct {
	Name    string
	Email   string
	Phone   string
	Address string
	City    string
	Pincode string
}

func (f Form) Validate() error {
	fields := []struct{ name, value string }{
		{"name", f.Name},
		{"email", f.Email},
		{"phone", f.Phone},
		{"address", f.Address},
		{"city", f.City},
		{"pincode", f.Pincode},
	}
	for _, fld := range fields {
		if strings.TrimSpace(fld.value) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidForm, fld.name)
		}
	}
	if !strings.Contains(f.Email, "@") {
		return fmt.Errorf("%w: email is invalid", ErrInvalidForm)
	}
	return nil
}

// ShippingAddress flattens the address fields into the single line stored on the order.
func (f Form) ShippingAddress() string {
	return fmt.Sprintf("%s, %s - %s", f.Address, f.City, f.Pincode)
}
