package services

import (
	"context"
	"errors"

	"github.com/diewo77/garage-invoices/internal/models"
	"github.com/diewo77/garage-invoices/validation"
	"gorm.io/gorm"
)

// VehicleService resolves and manages vehicles.
type VehicleService struct {
	db *gorm.DB
}

func NewVehicleService(db *gorm.DB) *VehicleService {
	return &VehicleService{db: db}
}

// FindOrCreateVehicle returns the id of the client's vehicle with the same
// plate and model, inserting it when absent. Empty fields match literally.
func (s *VehicleService) FindOrCreateVehicle(ctx context.Context, req VehicleRequest) (uint, bool, error) {
	draft, err := req.validate()
	if err != nil {
		return 0, false, err
	}
	var (
		id      uint
		created bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireClient(tx, req.ClientID); err != nil {
			return err
		}
		v, isNew, err := findOrCreateVehicle(tx, req.ClientID, draft)
		if err != nil {
			return err
		}
		id, created = v.ID, isNew
		return nil
	})
	return id, created, err
}

// findOrCreateVehicle runs inside tx; the owning client must exist.
func findOrCreateVehicle(tx *gorm.DB, clientID uint, d VehicleDraft) (*models.Vehicle, bool, error) {
	var v models.Vehicle
	err := tx.Where("client_id = ? AND plate = ? AND model = ?", clientID, d.Plate, d.Model).
		Order("id").Take(&v).Error
	if err == nil {
		return &v, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, storageErr("lookup vehicle", err)
	}

	v = models.Vehicle{ClientID: clientID, Plate: d.Plate, Model: d.Model, Brand: d.Brand, Year: d.Year}
	if err := tx.Create(&v).Error; err != nil {
		return nil, false, storageErr("insert vehicle", err)
	}
	return &v, true, nil
}

// Get returns one vehicle.
func (s *VehicleService) Get(ctx context.Context, id uint) (*models.Vehicle, error) {
	var v models.Vehicle
	err := s.db.WithContext(ctx).First(&v, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get vehicle", err)
	}
	return &v, nil
}

// Update replaces the descriptive fields of a vehicle. Invoice snapshots are
// left as they were. The owner cannot be changed.
func (s *VehicleService) Update(ctx context.Context, id uint, d VehicleDraft) error {
	d.normalize()
	if v := validation.Struct(d); !v.Empty() {
		return invalid(v)
	}
	res := s.db.WithContext(ctx).Model(&models.Vehicle{}).Where("id = ?", id).
		Select("plate", "model", "brand", "year", "updated_at").
		Updates(models.Vehicle{Plate: d.Plate, Model: d.Model, Brand: d.Brand, Year: d.Year})
	if res.Error != nil {
		return storageErr("update vehicle", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a vehicle. Invoices that referenced it keep their snapshot
// and lose the reference. Deleting a missing vehicle is a no-op.
func (s *VehicleService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Invoice{}).Where("vehicle_id = ?", id).
			UpdateColumn("vehicle_id", nil).Error; err != nil {
			return storageErr("detach vehicle from invoices", err)
		}
		if err := tx.Delete(&models.Vehicle{}, id).Error; err != nil {
			return storageErr("delete vehicle", err)
		}
		return nil
	})
}
