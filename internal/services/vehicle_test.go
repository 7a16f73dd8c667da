package services

import (
	"context"
	"testing"

	"github.com/diewo77/garage-invoices/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindOrCreateVehicle(t *testing.T) {
	conn := setupTestDB(t)
	clients := NewClientService(conn)
	svc := NewVehicleService(conn)
	ctx := context.Background()

	clientID, _, err := clients.FindOrCreateClient(ctx, ClientRequest{Name: "Ana", Phone: "1"})
	require.NoError(t, err)
	otherID, _, err := clients.FindOrCreateClient(ctx, ClientRequest{Name: "Bia", Phone: "2"})
	require.NoError(t, err)

	id1, created, err := svc.FindOrCreateVehicle(ctx, VehicleRequest{ClientID: clientID, Plate: "abc1d23", Model: "Gol", Year: "2015"})
	require.NoError(t, err)
	assert.True(t, created)

	id2, created, err := svc.FindOrCreateVehicle(ctx, VehicleRequest{ClientID: clientID, Plate: "ABC1D23", Model: "Gol", Brand: "VW"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id1, id2)

	// Same plate and model under another client is another vehicle.
	id3, created, err := svc.FindOrCreateVehicle(ctx, VehicleRequest{ClientID: otherID, Plate: "ABC1D23", Model: "Gol"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, id1, id3)

	// Empty fields match empty fields.
	e1, _, err := svc.FindOrCreateVehicle(ctx, VehicleRequest{ClientID: clientID})
	require.NoError(t, err)
	e2, created, err := svc.FindOrCreateVehicle(ctx, VehicleRequest{ClientID: clientID})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, e1, e2)

	v, err := svc.Get(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, "2015", v.Year)
	assert.Equal(t, "", v.Brand)
}

func TestFindOrCreateVehicle_UnknownClient(t *testing.T) {
	conn := setupTestDB(t)
	svc := NewVehicleService(conn)

	_, _, err := svc.FindOrCreateVehicle(context.Background(), VehicleRequest{ClientID: 42, Plate: "X"})
	require.ErrorIs(t, err, ErrValidation)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "not_found", verr.Violations["clientId"])

	_, _, err = svc.FindOrCreateVehicle(context.Background(), VehicleRequest{Plate: "X"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "required", verr.Violations["clientId"])
}

func TestVehicleService_Update(t *testing.T) {
	conn := setupTestDB(t)
	clients := NewClientService(conn)
	svc := NewVehicleService(conn)
	invoices := NewInvoiceService(conn)
	ctx := context.Background()

	clientID, _, err := clients.FindOrCreateClient(ctx, ClientRequest{Name: "Ana", Phone: "1"})
	require.NoError(t, err)
	vid, _, err := svc.FindOrCreateVehicle(ctx, VehicleRequest{ClientID: clientID, Plate: "AAA1111", Model: "Gol"})
	require.NoError(t, err)
	res, err := invoices.Create(ctx, InvoiceRequest{ClientID: clientID, VehicleID: vid, LaborCost: money("10")})
	require.NoError(t, err)

	require.NoError(t, svc.Update(ctx, vid, VehicleDraft{Plate: "bbb2222", Model: "Gol G5", Year: "2020"}))
	v, err := svc.Get(ctx, vid)
	require.NoError(t, err)
	assert.Equal(t, "BBB2222", v.Plate)
	assert.Equal(t, "Gol G5", v.Model)

	// The invoice keeps what it showed when issued.
	inv, err := invoices.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "AAA1111", inv.VehiclePlate)
	assert.Equal(t, "Gol", inv.VehicleModel)

	assert.ErrorIs(t, svc.Update(ctx, 999, VehicleDraft{Plate: "X"}), ErrNotFound)
}

func TestVehicleService_DeleteKeepsInvoiceSnapshot(t *testing.T) {
	conn := setupTestDB(t)
	clients := NewClientService(conn)
	svc := NewVehicleService(conn)
	invoices := NewInvoiceService(conn)
	ctx := context.Background()

	clientID, _, err := clients.FindOrCreateClient(ctx, ClientRequest{Name: "Ana", Phone: "1"})
	require.NoError(t, err)
	vid, _, err := svc.FindOrCreateVehicle(ctx, VehicleRequest{ClientID: clientID, Plate: "AAA1111", Model: "Gol", Year: "2015"})
	require.NoError(t, err)
	res, err := invoices.Create(ctx, InvoiceRequest{ClientID: clientID, VehicleID: vid, LaborCost: money("10")})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, vid))
	require.NoError(t, svc.Delete(ctx, vid))

	_, err = svc.Get(ctx, vid)
	assert.ErrorIs(t, err, ErrNotFound)

	inv, err := invoices.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Nil(t, inv.VehicleID)
	assert.Nil(t, inv.Vehicle)
	assert.Equal(t, "AAA1111", inv.VehiclePlate)
	assert.Equal(t, "2015", inv.VehicleYear)
	assert.Equal(t, int64(1), countRows(t, conn, &models.Invoice{}))
}

func TestFindOrCreateVehicle_MatchingNormalizesPlateOnly(t *testing.T) {
	conn := setupTestDB(t)
	clientID, _, err := NewClientService(conn).FindOrCreateClient(context.Background(), ClientRequest{Name: "Ana", Phone: "1"})
	require.NoError(t, err)
	svc := NewVehicleService(conn)
	ctx := context.Background()

	id, created, err := svc.FindOrCreateVehicle(ctx, VehicleRequest{ClientID: clientID, Plate: " abc1d23 ", Model: "Gol"})
	require.NoError(t, err)
	require.True(t, created)

	same, created, err := svc.FindOrCreateVehicle(ctx, VehicleRequest{ClientID: clientID, Plate: "ABC1D23", Model: "Gol "})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id, same)

	other, created, err := svc.FindOrCreateVehicle(ctx, VehicleRequest{ClientID: clientID, Plate: "ABC1D23", Model: "gol"})
	require.NoError(t, err)
	assert.True(t, created, "model matches literally")
	assert.NotEqual(t, id, other)

	v, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ABC1D23", v.Plate)
}
