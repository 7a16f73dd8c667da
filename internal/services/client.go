package services

import (
	"context"
	"errors"

	"github.com/diewo77/garage-invoices/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ClientService resolves and manages clients.
type ClientService struct {
	db *gorm.DB
}

func NewClientService(db *gorm.DB) *ClientService {
	return &ClientService{db: db}
}

// FindOrCreateClient returns the id of the client with the exact (name, phone)
// pair, inserting it when absent. An existing client is returned unchanged.
func (s *ClientService) FindOrCreateClient(ctx context.Context, req ClientRequest) (uint, bool, error) {
	if err := req.validate(); err != nil {
		return 0, false, err
	}
	var (
		id      uint
		created bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		id, created, err = findOrCreateClient(tx, req)
		return err
	})
	return id, created, err
}

// findOrCreateClient runs inside tx. The insert uses a nested transaction so
// that a unique violation only rolls back to the savepoint.
func findOrCreateClient(tx *gorm.DB, req ClientRequest) (uint, bool, error) {
	id, err := lookupClient(tx, req.Name, req.Phone)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return 0, false, err
	}

	c := models.Client{
		Name:    req.Name,
		Phone:   req.Phone,
		TaxID:   req.TaxID,
		Address: req.Address,
		Notes:   req.Notes,
	}
	err = tx.Transaction(func(sp *gorm.DB) error {
		return sp.Omit(clause.Associations).Create(&c).Error
	})
	if err == nil {
		return c.ID, true, nil
	}
	if !isUniqueViolation(err) {
		return 0, false, storageErr("insert client", err)
	}

	// Lost a race with a concurrent insert of the same pair.
	id, err = lookupClient(tx, req.Name, req.Phone)
	if errors.Is(err, ErrNotFound) {
		return 0, false, ErrDuplicateClient
	}
	if err != nil {
		return 0, false, err
	}
	return id, false, nil
}

func lookupClient(tx *gorm.DB, name, phone string) (uint, error) {
	var c models.Client
	err := tx.Select("id").Where("name = ? AND phone = ?", name, phone).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, storageErr("lookup client", err)
	}
	return c.ID, nil
}

// requireClient checks that id names an existing client.
func requireClient(tx *gorm.DB, id uint) error {
	var count int64
	if err := tx.Model(&models.Client{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return storageErr("check client", err)
	}
	if count == 0 {
		return invalidField("clientId", "not_found", "client not found")
	}
	return nil
}

// List returns all clients, newest first.
func (s *ClientService) List(ctx context.Context) ([]models.Client, error) {
	clients := []models.Client{}
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&clients).Error; err != nil {
		return nil, storageErr("list clients", err)
	}
	return clients, nil
}

// Get returns one client.
func (s *ClientService) Get(ctx context.Context, id uint) (*models.Client, error) {
	var c models.Client
	err := s.db.WithContext(ctx).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get client", err)
	}
	return &c, nil
}

// Update replaces the editable fields of a client.
func (s *ClientService) Update(ctx context.Context, id uint, req ClientRequest) error {
	if err := req.validate(); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Client
		err := tx.First(&c, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return storageErr("get client", err)
		}
		c.Name = req.Name
		c.Phone = req.Phone
		c.TaxID = req.TaxID
		c.Address = req.Address
		c.Notes = req.Notes
		err = tx.Omit(clause.Associations).Save(&c).Error
		if isUniqueViolation(err) {
			return ErrDuplicateClient
		}
		return storageErr("update client", err)
	})
}

// Delete removes a client and its vehicles. A client referenced by invoices
// cannot be deleted. Deleting a missing client is a no-op.
func (s *ClientService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invoices int64
		if err := tx.Model(&models.Invoice{}).Where("client_id = ?", id).Count(&invoices).Error; err != nil {
			return storageErr("count client invoices", err)
		}
		if invoices > 0 {
			return ErrClientInUse
		}
		if err := tx.Where("client_id = ?", id).Delete(&models.Vehicle{}).Error; err != nil {
			return storageErr("delete client vehicles", err)
		}
		if err := tx.Delete(&models.Client{}, id).Error; err != nil {
			return storageErr("delete client", err)
		}
		return nil
	})
}

// Vehicles returns the vehicles owned by a client, oldest first.
func (s *ClientService) Vehicles(ctx context.Context, clientID uint) ([]models.Vehicle, error) {
	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.Client{}).Where("id = ?", clientID).Count(&count).Error; err != nil {
		return nil, storageErr("check client", err)
	}
	if count == 0 {
		return nil, ErrNotFound
	}
	vehicles := []models.Vehicle{}
	if err := db.Where("client_id = ?", clientID).Order("id").Find(&vehicles).Error; err != nil {
		return nil, storageErr("list vehicles", err)
	}
	return vehicles, nil
}
