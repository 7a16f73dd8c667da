package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceStatus represents the status of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusActive    InvoiceStatus = "active"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// ErrInvalidLineItem is returned by the line item hooks when a row would break
// the quantity, price or subtotal rules.
var ErrInvalidLineItem = errors.New("invalid line item")

// Invoice is a service invoice for one client: labor plus the parts listed as
// line items. PartsTotal and Total are derived from the items and are always
// written together with them.
type Invoice struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Invoice identification
	Number string `gorm:"size:20;not null;uniqueIndex" json:"number"`

	// Client relationship. ClientName is only filled by read queries joining clients.
	ClientID   uint    `gorm:"index;not null" json:"clientId"`
	Client     *Client `gorm:"foreignKey:ClientID;constraint:OnDelete:RESTRICT" json:"client,omitempty"`
	ClientName string  `gorm:"->;-:migration" json:"clientName,omitempty"`

	// VehicleID records where the snapshot came from; the snapshot fields are
	// what the invoice shows, even after the vehicle is edited or deleted.
	VehicleID    *uint    `gorm:"index" json:"vehicleId,omitempty"`
	Vehicle      *Vehicle `gorm:"foreignKey:VehicleID;constraint:OnDelete:SET NULL" json:"vehicle,omitempty"`
	VehiclePlate string   `gorm:"size:20" json:"vehiclePlate"`
	VehicleModel string   `gorm:"size:100" json:"vehicleModel"`
	VehicleYear  string   `gorm:"size:10" json:"vehicleYear"`

	IssueDate    time.Time       `gorm:"not null" json:"issueDate"`
	LaborCost    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"laborCost"`
	PartsTotal   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"partsTotal"`
	Total        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	Observations string          `gorm:"type:text" json:"observations"`
	Status       InvoiceStatus   `gorm:"size:20;not null;default:'active'" json:"status"`

	Items []LineItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// IsCancelled returns true if the invoice has been cancelled.
func (i *Invoice) IsCancelled() bool {
	return i.Status == InvoiceStatusCancelled
}

// CanEdit returns true if the invoice can still be edited.
func (i *Invoice) CanEdit() bool {
	return !i.IsCancelled()
}

// ComputeTotals sets each item's subtotal, then PartsTotal and Total from Items
// and LaborCost.
func (i *Invoice) ComputeTotals() {
	parts := decimal.Zero
	for idx := range i.Items {
		i.Items[idx].Subtotal = i.Items[idx].ComputeSubtotal()
		parts = parts.Add(i.Items[idx].Subtotal)
	}
	i.PartsTotal = RoundMoney(parts)
	i.Total = RoundMoney(i.PartsTotal.Add(i.LaborCost))
}

// SnapshotVehicle copies the displayed vehicle fields and records the source id.
func (i *Invoice) SnapshotVehicle(v *Vehicle) {
	if v == nil {
		i.VehicleID = nil
		return
	}
	id := v.ID
	i.VehicleID = &id
	i.VehiclePlate = v.Plate
	i.VehicleModel = v.Model
	i.VehicleYear = v.Year
}

// LineItem is one priced part entry owned by an invoice.
type LineItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	InvoiceID uint `gorm:"index;not null" json:"invoiceId"`

	Description string          `gorm:"size:500;not null" json:"description"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unitPrice"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
}

// ComputeSubtotal returns quantity × unit price rounded to the currency unit.
func (li *LineItem) ComputeSubtotal() decimal.Decimal {
	return RoundMoney(li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity))))
}

// BeforeSave rejects rows that would break the line item rules and keeps the
// stored subtotal equal to quantity × unit price.
func (li *LineItem) BeforeSave(tx *gorm.DB) error {
	if li.Quantity <= 0 || !li.UnitPrice.IsPositive() || li.Description == "" {
		return ErrInvalidLineItem
	}
	li.Subtotal = li.ComputeSubtotal()
	return nil
}
