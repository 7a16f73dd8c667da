// Package validation collects field-level rule violations reported back to
// API clients as {"field": "rule"} maps.
package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Add records rule for field unless the field already has a violation.
func (v Violations) Add(field, rule string) {
	if _, ok := v[field]; !ok {
		v[field] = rule
	}
}

// Basic validators
func PositiveInt(field string, val int, v Violations) {
	if val <= 0 {
		v.Add(field, "must_be_positive")
	}
}

func PositiveDecimal(field string, val decimal.Decimal, v Violations) {
	if !val.IsPositive() {
		v.Add(field, "must_be_positive")
	}
}

func NonNegativeDecimal(field string, val decimal.Decimal, v Violations) {
	if val.IsNegative() {
		v.Add(field, "must_not_be_negative")
	}
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator. Field names in errors are the JSON
// names of the struct fields.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Struct validates s with its `validate` tags and returns the violations,
// keyed by JSON path (for example "items[0].quantity").
func Struct(s any) Violations {
	v := Violations{}
	err := Validator().Struct(s)
	if err == nil {
		return v
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		v.Add("_", "invalid")
		return v
	}
	for _, fe := range verrs {
		v.Add(fieldPath(fe.Namespace()), ruleFor(fe))
	}
	return v
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func ruleFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without", "required_if":
		return "required"
	case "gt":
		if fe.Param() == "0" {
			return "must_be_positive"
		}
		return "too_small"
	case "gte", "min":
		if fe.Param() == "0" && fe.Tag() == "gte" {
			return "must_not_be_negative"
		}
		return "too_short"
	case "lte", "max":
		return "too_long"
	case "email":
		return "invalid_email"
	case "oneof":
		return "invalid_choice"
	default:
		return "invalid"
	}
}
