package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type lineForm struct {
	Description string `json:"description" validate:"required"`
	Quantity    int    `json:"quantity" validate:"gt=0"`
}

type form struct {
	Name  string     `json:"name" validate:"required,max=10"`
	Email string     `json:"email" validate:"omitempty,email"`
	Age   int        `json:"age" validate:"gte=0"`
	Lines []lineForm `json:"items" validate:"dive"`
}

func TestStruct(t *testing.T) {
	v := Struct(form{
		Name:  "",
		Email: "nope",
		Age:   -1,
		Lines: []lineForm{{Description: "ok", Quantity: 1}, {Quantity: 0}},
	})

	assert.Equal(t, Violations{
		"name":                 "required",
		"email":                "invalid_email",
		"age":                  "must_not_be_negative",
		"items[1].description": "required",
		"items[1].quantity":    "must_be_positive",
	}, v)
}

func TestStruct_Valid(t *testing.T) {
	v := Struct(form{Name: "Ana", Lines: []lineForm{{Description: "x", Quantity: 2}}})
	assert.True(t, v.Empty())
}

func TestBasicValidators(t *testing.T) {
	v := Violations{}
	PositiveInt("quantity", 0, v)
	PositiveDecimal("unitPrice", decimal.Zero, v)
	NonNegativeDecimal("laborCost", decimal.NewFromInt(-1), v)
	NonNegativeDecimal("ok", decimal.Zero, v)

	assert.Equal(t, Violations{
		"quantity":  "must_be_positive",
		"unitPrice": "must_be_positive",
		"laborCost": "must_not_be_negative",
	}, v)
}

func TestViolations_AddKeepsFirst(t *testing.T) {
	v := Violations{}
	v.Add("name", "required")
	v.Add("name", "too_long")
	v.Add("phone", "required")
	assert.Equal(t, Violations{"name": "required", "phone": "required"}, v)
}
