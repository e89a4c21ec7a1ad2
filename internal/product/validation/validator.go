package validation

import (
	"errors"
	"math"
	"reflect"
	"strconv"
	"strings"

	producterrors "github.com/abgdnv/catalog/internal/product/errors"
	"github.com/abgdnv/catalog/internal/product/store"
	"github.com/go-playground/validator/v10"
)

// Messages reported per field when a form is rejected.
const (
	MsgNameRequired     = "Product name is required"
	MsgPriceInvalid     = "Price must be a positive number"
	MsgCategoryRequired = "Category is required"
	MsgStockNegative    = "Stock cannot be negative"
)

// messages maps a form field to the message shown for any rule it fails.
var messages = map[string]string{
	"name":     MsgNameRequired,
	"price":    MsgPriceInvalid,
	"category": MsgCategoryRequired,
	"stock":    MsgStockNegative,
}

// candidate is the trimmed form as seen by the rule engine.
type candidate struct {
	Name     string `json:"name"     validate:"required"`
	Price    string `json:"price"    validate:"required,positive_number"`
	Category string `json:"category" validate:"required"`
	Stock    string `json:"stock"    validate:"omitempty,non_negative_int"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "positive_number", func(fl validator.FieldLevel) bool {
		f, ok := parseNumber(fl.Field().String())
		return ok && f > 0
	})
	mustRegister(v, "non_negative_int", func(fl validator.FieldLevel) bool {
		_, ok := parseStock(fl.Field().String())
		return ok
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic("failed to register validation " + tag + ": " + err.Error())
	}
}

// Validate checks form against the product rules. Every rule is evaluated,
// so the returned *ValidationError lists all rejected fields at once.
// Returns nil if the form can be saved.
func Validate(form ProductForm) error {
	c := candidate{
		Name:     strings.TrimSpace(string(form.Name)),
		Price:    strings.TrimSpace(string(form.Price)),
		Category: strings.TrimSpace(string(form.Category)),
		Stock:    strings.TrimSpace(string(form.Stock)),
	}

	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		// only reachable on a programming error (e.g. a non-struct value)
		panic(err)
	}
	fields := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		fields[fieldErr.Field()] = messages[fieldErr.Field()]
	}
	return producterrors.NewValidationError(fields)
}

// Normalize validates form and converts it into typed store fields.
// A blank stock becomes 0. Name and category are kept as entered.
func Normalize(form ProductForm) (store.Fields, error) {
	if err := Validate(form); err != nil {
		return store.Fields{}, err
	}
	price, _ := parseNumber(string(form.Price))
	stock, _ := parseStock(string(form.Stock))
	return store.Fields{
		Name:        string(form.Name),
		Price:       price,
		Category:    string(form.Category),
		Stock:       stock,
		Description: string(form.Description),
	}, nil
}

// FormFrom builds the prefilled form for editing p.
func FormFrom(p store.Product) ProductForm {
	return ProductForm{
		Name:        FormValue(p.Name),
		Price:       FormValue(strconv.FormatFloat(p.Price, 'f', -1, 64)),
		Category:    FormValue(p.Category),
		Stock:       FormValue(strconv.Itoa(p.Stock)),
		Description: FormValue(p.Description),
	}
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// parseStock accepts a blank value as 0 and otherwise a whole number >= 0.
func parseStock(s string) (int, bool) {
	if strings.TrimSpace(s) == "" {
		return 0, true
	}
	f, ok := parseNumber(s)
	if !ok || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
