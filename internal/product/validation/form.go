// Package validation checks product form submissions before they reach the store.
package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FormValue is a raw form input. It decodes from a JSON string, number or null,
// so clients may send `"price": 12.5` or `"price": "12.5"`.
type FormValue string

// UnmarshalJSON implements json.Unmarshaler.
func (v *FormValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = FormValue(s)
	case len(data) > 0 && (data[0] == '-' || (data[0] >= '0' && data[0] <= '9')):
		*v = FormValue(data)
	default:
		return fmt.Errorf("form value must be a string or a number, got %s", data)
	}
	return nil
}

// Blank reports whether the value is empty after trimming.
func (v FormValue) Blank() bool {
	return strings.TrimSpace(string(v)) == ""
}

// ProductForm is the raw content of the add/edit product form.
type ProductForm struct {
	Name        FormValue `json:"name"`
	Price       FormValue `json:"price"`
	Category    FormValue `json:"category"`
	Stock       FormValue `json:"stock"`
	Description FormValue `json:"description"`
}

// Categories are the options offered by the category selector.
var Categories = []string{"Electronics", "Furniture", "Kitchen", "Sports", "Books", "Clothing"}
