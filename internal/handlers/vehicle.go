package handlers

import (
	"log/slog"
	"net/http"

	"github.com/diewo77/garage-invoices/httpx"
	"github.com/diewo77/garage-invoices/internal/services"
)

type VehicleHandler struct {
	vehicles *services.VehicleService
	log      *slog.Logger
}

func NewVehicleHandler(vehicles *services.VehicleService, log *slog.Logger) *VehicleHandler {
	return &VehicleHandler{vehicles: vehicles, log: log}
}

// Create finds or creates a vehicle for a client.
func (h *VehicleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.VehicleRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	id, created, err := h.vehicles.FindOrCreateVehicle(r.Context(), req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, createdStatus(created), idResponse{ID: id})
}

func (h *VehicleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	v, err := h.vehicles.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *VehicleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	var req services.VehicleDraft
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if err := h.vehicles.Update(r.Context(), id, req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	httpx.OK(w)
}

func (h *VehicleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if err := h.vehicles.Delete(r.Context(), id); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	httpx.OK(w)
}
