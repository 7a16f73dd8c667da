package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/garage-invoices/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvoiceService writes invoices together with their line items. Every write
// runs in one transaction, so the stored totals always match the stored items.
type InvoiceService struct {
	db         *gorm.DB
	nextNumber NumberGenerator
	now        func() time.Time
}

func NewInvoiceService(db *gorm.DB) *InvoiceService {
	return &InvoiceService{db: db, nextNumber: RandomInvoiceNumber, now: time.Now}
}

// WithNumberGenerator replaces the invoice number source.
func (s *InvoiceService) WithNumberGenerator(g NumberGenerator) *InvoiceService {
	s.nextNumber = g
	return s
}

// Create inserts an invoice and its line items, resolving an inline client or
// vehicle in the same transaction.
func (s *InvoiceService) Create(ctx context.Context, req InvoiceRequest) (*CreateInvoiceResult, error) {
	items, issue, err := req.validate()
	if err != nil {
		return nil, err
	}

	var result CreateInvoiceResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv := models.Invoice{Status: models.InvoiceStatusActive, IssueDate: issue}
		if inv.IssueDate.IsZero() {
			inv.IssueDate = s.now()
		}
		if err := s.apply(tx, &inv, &req, items); err != nil {
			return err
		}
		if err := s.insertHeader(tx, &inv); err != nil {
			return err
		}
		if err := insertItems(tx, inv.ID, items); err != nil {
			return err
		}
		result = CreateInvoiceResult{ID: inv.ID, Number: inv.Number}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Update replaces the header fields and the whole line item set of an
// invoice. Cancelled invoices cannot be edited.
func (s *InvoiceService) Update(ctx context.Context, id uint, req InvoiceRequest) error {
	items, issue, err := req.validate()
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		err := tx.First(&inv, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return storageErr("load invoice", err)
		}
		if !inv.CanEdit() {
			return ErrInvoiceCancelled
		}
		if !issue.IsZero() {
			inv.IssueDate = issue
		}
		if err := s.apply(tx, &inv, &req, items); err != nil {
			return err
		}

		res := tx.Model(&inv).
			Select("ClientID", "VehicleID", "VehiclePlate", "VehicleModel", "VehicleYear",
				"IssueDate", "LaborCost", "PartsTotal", "Total", "Observations", "UpdatedAt").
			Omit(clause.Associations).
			Updates(&inv)
		if res.Error != nil {
			return storageErr("update invoice", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		if err := tx.Where("invoice_id = ?", id).Delete(&models.LineItem{}).Error; err != nil {
			return storageErr("delete line items", err)
		}
		return insertItems(tx, id, items)
	})
}

// Delete removes an invoice and its line items. Deleting a missing invoice is
// a no-op.
func (s *InvoiceService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).Delete(&models.LineItem{}).Error; err != nil {
			return storageErr("delete line items", err)
		}
		if err := tx.Delete(&models.Invoice{}, id).Error; err != nil {
			return storageErr("delete invoice", err)
		}
		return nil
	})
}

// Cancel marks an invoice as cancelled. Cancelling twice is a no-op.
func (s *InvoiceService) Cancel(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		err := tx.Select("id", "status").First(&inv, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return storageErr("load invoice", err)
		}
		if inv.IsCancelled() {
			return nil
		}
		if err := tx.Model(&inv).Update("status", models.InvoiceStatusCancelled).Error; err != nil {
			return storageErr("cancel invoice", err)
		}
		return nil
	})
}

// Get returns an invoice with its client, vehicle (while it still exists)
// and line items.
func (s *InvoiceService) Get(ctx context.Context, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.listQuery(ctx).
		Preload("Client").
		Preload("Vehicle").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("line_items.id") }).
		Where("invoices.id = ?", id).
		Take(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get invoice", err)
	}
	if inv.Items == nil {
		inv.Items = []models.LineItem{}
	}
	return &inv, nil
}

// Items returns the line items of an invoice ordered by id. A missing
// invoice has no items.
func (s *InvoiceService) Items(ctx context.Context, id uint) ([]models.LineItem, error) {
	items := []models.LineItem{}
	if err := s.db.WithContext(ctx).Where("invoice_id = ?", id).Order("id").Find(&items).Error; err != nil {
		return nil, storageErr("list line items", err)
	}
	return items, nil
}

// List returns all invoices, newest first, with the client name and without
// line items.
func (s *InvoiceService) List(ctx context.Context) ([]models.Invoice, error) {
	invoices := []models.Invoice{}
	if err := s.listQuery(ctx).Order(listOrder).Find(&invoices).Error; err != nil {
		return nil, storageErr("list invoices", err)
	}
	return invoices, nil
}

// SearchByClientName returns the invoices whose client name contains q,
// ignoring case and accents. Same projection and order as List.
func (s *InvoiceService) SearchByClientName(ctx context.Context, q string) ([]models.Invoice, error) {
	pattern := "%" + escapeLike(models.FoldName(q)) + "%"
	invoices := []models.Invoice{}
	err := s.listQuery(ctx).
		Where(`clients.search_name LIKE ? ESCAPE '\'`, pattern).
		Order(listOrder).
		Find(&invoices).Error
	if err != nil {
		return nil, storageErr("search invoices", err)
	}
	return invoices, nil
}

const listOrder = "invoices.created_at DESC, invoices.id DESC"

func (s *InvoiceService) listQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Select("invoices.*, clients.name AS client_name").
		Joins("LEFT JOIN clients ON clients.id = invoices.client_id")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// apply resolves the client and vehicle of req inside tx and copies the
// request fields and computed totals onto inv.
func (s *InvoiceService) apply(tx *gorm.DB, inv *models.Invoice, req *InvoiceRequest, items []models.LineItem) error {
	clientID := req.ClientID
	if clientID != 0 {
		if err := requireClient(tx, clientID); err != nil {
			return err
		}
	} else {
		id, _, err := findOrCreateClient(tx, *req.Client)
		if err != nil {
			return err
		}
		clientID = id
	}
	inv.ClientID = clientID

	switch {
	case req.VehicleID != 0:
		var v models.Vehicle
		err := tx.First(&v, req.VehicleID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invalidField("vehicleId", "not_found", "vehicle not found")
		}
		if err != nil {
			return storageErr("load vehicle", err)
		}
		if v.ClientID != clientID {
			return invalidField("vehicleId", "wrong_client", "vehicle belongs to another client")
		}
		inv.SnapshotVehicle(&v)
	case req.Vehicle != nil && !req.Vehicle.empty():
		v, _, err := findOrCreateVehicle(tx, clientID, *req.Vehicle)
		if err != nil {
			return err
		}
		inv.SnapshotVehicle(v)
	default:
		inv.VehicleID = nil
		inv.VehiclePlate = req.VehiclePlate
		inv.VehicleModel = req.VehicleModel
		inv.VehicleYear = req.VehicleYear
	}

	inv.LaborCost = req.LaborCost
	inv.Observations = req.Observations
	inv.Items = items
	inv.ComputeTotals()
	inv.Items = nil
	return nil
}

// insertHeader inserts inv with a generated number. Each attempt runs under a
// savepoint; a number collision rolls back to it and retries with a new one.
func (s *InvoiceService) insertHeader(tx *gorm.DB, inv *models.Invoice) error {
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		inv.ID = 0
		inv.Number = s.nextNumber()
		err := tx.Transaction(func(sp *gorm.DB) error {
			return sp.Omit(clause.Associations).Create(inv).Error
		})
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err) {
			return storageErr("insert invoice", err)
		}
	}
	return fmt.Errorf("insert invoice: %w: no free invoice number after %d attempts", ErrStorage, maxNumberAttempts)
}

func insertItems(tx *gorm.DB, invoiceID uint, items []models.LineItem) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]models.LineItem, len(items))
	for i, it := range items {
		it.ID = 0
		it.InvoiceID = invoiceID
		rows[i] = it
	}
	if err := tx.Create(&rows).Error; err != nil {
		if errors.Is(err, models.ErrInvalidLineItem) {
			return invalidField("items", "invalid", err.Error())
		}
		return storageErr("insert line items", err)
	}
	return nil
}
