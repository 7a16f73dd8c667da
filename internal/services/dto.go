package services

import (
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/garage-invoices/internal/models"
	"github.com/diewo77/garage-invoices/validation"
	"github.com/shopspring/decimal"
)

// maxMoney is the largest amount a decimal(12,2) column holds.
var maxMoney = decimal.RequireFromString("9999999999.99")

// ClientRequest carries the editable client fields.
type ClientRequest struct {
	Name    string `json:"name" validate:"required,max=255"`
	Phone   string `json:"phone" validate:"required,max=50"`
	TaxID   string `json:"taxId" validate:"max=50"`
	Address string `json:"address" validate:"max=500"`
	Notes   string `json:"notes"`
}

func (r *ClientRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
	r.TaxID = strings.TrimSpace(r.TaxID)
	r.Address = strings.TrimSpace(r.Address)
	r.Notes = strings.TrimSpace(r.Notes)
}

func (r *ClientRequest) validate() error {
	r.normalize()
	if v := validation.Struct(r); !v.Empty() {
		return invalid(v)
	}
	return nil
}

// VehicleDraft describes a vehicle by its fields.
type VehicleDraft struct {
	Plate string `json:"plate" validate:"max=20"`
	Model string `json:"model" validate:"max=100"`
	Brand string `json:"brand" validate:"max=100"`
	Year  string `json:"year" validate:"max=10"`
}

// normalize trims every field. Plates are stored upper-case, so they match
// regardless of the case they were typed in.
func (d *VehicleDraft) normalize() {
	d.Plate = strings.ToUpper(strings.TrimSpace(d.Plate))
	d.Model = strings.TrimSpace(d.Model)
	d.Brand = strings.TrimSpace(d.Brand)
	d.Year = strings.TrimSpace(d.Year)
}

func (d *VehicleDraft) empty() bool {
	return d.Plate == "" && d.Model == "" && d.Brand == "" && d.Year == ""
}

// VehicleRequest is a vehicle owned by a client.
type VehicleRequest struct {
	ClientID uint   `json:"clientId" validate:"required"`
	Plate    string `json:"plate" validate:"max=20"`
	Model    string `json:"model" validate:"max=100"`
	Brand    string `json:"brand" validate:"max=100"`
	Year     string `json:"year" validate:"max=10"`
}

func (r *VehicleRequest) validate() (VehicleDraft, error) {
	d := VehicleDraft{Plate: r.Plate, Model: r.Model, Brand: r.Brand, Year: r.Year}
	d.normalize()
	v := validation.Struct(r)
	if !v.Empty() {
		return d, invalid(v)
	}
	return d, nil
}

// LineItemDraft is one line of an invoice request.
type LineItemDraft struct {
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// InvoiceRequest is the body of invoice create and update. The client is
// given either by ClientID or inline; the vehicle by VehicleID, inline, or
// only through the snapshot fields.
type InvoiceRequest struct {
	ClientID uint           `json:"clientId"`
	Client   *ClientRequest `json:"client"`

	VehicleID    uint          `json:"vehicleId"`
	Vehicle      *VehicleDraft `json:"vehicle"`
	VehiclePlate string        `json:"vehiclePlate" validate:"max=20"`
	VehicleModel string        `json:"vehicleModel" validate:"max=100"`
	VehicleYear  string        `json:"vehicleYear" validate:"max=10"`

	// IssueDate accepts RFC 3339 or YYYY-MM-DD; empty means now.
	IssueDate    string          `json:"issueDate"`
	LaborCost    decimal.Decimal `json:"laborCost"`
	Observations string          `json:"observations"`
	Items        []LineItemDraft `json:"items" validate:"dive"`
}

// validate checks the request and returns the line items with amounts rounded
// to the currency unit, plus the parsed issue date (zero when absent).
func (r *InvoiceRequest) validate() ([]models.LineItem, time.Time, error) {
	if r.Client != nil {
		r.Client.normalize()
	}
	if r.Vehicle != nil {
		r.Vehicle.normalize()
	}
	r.VehiclePlate = strings.ToUpper(strings.TrimSpace(r.VehiclePlate))
	r.VehicleModel = strings.TrimSpace(r.VehicleModel)
	r.VehicleYear = strings.TrimSpace(r.VehicleYear)
	r.Observations = strings.TrimSpace(r.Observations)
	for i := range r.Items {
		r.Items[i].Description = strings.TrimSpace(r.Items[i].Description)
	}

	v := validation.Struct(r)
	if r.ClientID == 0 && r.Client == nil {
		v.Add("clientId", "required")
	}

	labor := models.RoundMoney(r.LaborCost)
	validation.NonNegativeDecimal("laborCost", labor, v)
	if labor.GreaterThan(maxMoney) {
		v.Add("laborCost", "too_large")
	}

	items := make([]models.LineItem, 0, len(r.Items))
	parts := decimal.Zero
	for i, d := range r.Items {
		prefix := "items[" + strconv.Itoa(i) + "]"
		validation.PositiveInt(prefix+".quantity", d.Quantity, v)
		field := prefix + ".unitPrice"
		price := models.RoundMoney(d.UnitPrice)
		validation.PositiveDecimal(field, price, v)
		if price.GreaterThan(maxMoney) {
			v.Add(field, "too_large")
		}
		item := models.LineItem{Description: d.Description, Quantity: d.Quantity, UnitPrice: price}
		item.Subtotal = item.ComputeSubtotal()
		parts = parts.Add(item.Subtotal)
		items = append(items, item)
	}
	if parts.Add(labor).GreaterThan(maxMoney) {
		v.Add("total", "too_large")
	}
	if len(r.Items) == 0 && labor.IsZero() {
		v.Add("items", "no_billable_work")
	}

	issue, err := parseIssueDate(r.IssueDate)
	if err != nil {
		v.Add("issueDate", "invalid_date")
	}

	if !v.Empty() {
		msg := ErrValidation.Error()
		if v["items"] == "no_billable_work" {
			msg = "invoice must have at least one line item or a labor cost"
		}
		return nil, time.Time{}, &ValidationError{Message: msg, Violations: v}
	}
	r.LaborCost = labor
	return items, issue, nil
}

func parseIssueDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation(time.DateOnly, s, time.Local)
}

// RegisterRequest creates a user account.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginRequest authenticates a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// CreateInvoiceResult identifies a newly created invoice.
type CreateInvoiceResult struct {
	ID     uint   `json:"id"`
	Number string `json:"number"`
}
