package models

import (
	"time"

	"gorm.io/gorm"
)

// Client represents a customer of the shop.
// The (Name, Phone) pair is unique.
type Client struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Client information
	Name    string `gorm:"size:255;not null;uniqueIndex:idx_clients_name_phone" json:"name"`
	Phone   string `gorm:"size:50;not null;uniqueIndex:idx_clients_name_phone" json:"phone"`
	TaxID   string `gorm:"size:50" json:"taxId,omitempty"`
	Address string `gorm:"size:500" json:"address,omitempty"`
	Notes   string `gorm:"type:text" json:"notes,omitempty"`

	// SearchName is Name folded for case and accent insensitive search.
	SearchName string `gorm:"size:255;index" json:"-"`

	// Relations
	Vehicles []Vehicle `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE" json:"vehicles,omitempty"`
}

// BeforeSave keeps SearchName in sync with Name.
func (c *Client) BeforeSave(tx *gorm.DB) error {
	c.SearchName = FoldName(c.Name)
	return nil
}

// Vehicle is a car owned by a client.
type Vehicle struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	ClientID uint `gorm:"index;not null" json:"clientId"`

	Plate string `gorm:"size:20" json:"plate"`
	Model string `gorm:"size:100" json:"model"`
	Brand string `gorm:"size:100" json:"brand"`
	Year  string `gorm:"size:10" json:"year"`
}
