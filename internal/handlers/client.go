package handlers

import (
	"log/slog"
	"net/http"

	"github.com/diewo77/garage-invoices/httpx"
	"github.com/diewo77/garage-invoices/internal/services"
)

type ClientHandler struct {
	clients *services.ClientService
	log     *slog.Logger
}

func NewClientHandler(clients *services.ClientService, log *slog.Logger) *ClientHandler {
	return &ClientHandler{clients: clients, log: log}
}

// Create finds or creates a client: 201 when inserted, 200 when reused.
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.ClientRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	id, created, err := h.clients.FindOrCreateClient(r.Context(), req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, createdStatus(created), idResponse{ID: id})
}

func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	clients, err := h.clients.List(r.Context())
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, clients)
}

func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	client, err := h.clients.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	var req services.ClientRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if err := h.clients.Update(r.Context(), id, req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	httpx.OK(w)
}

func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if err := h.clients.Delete(r.Context(), id); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	httpx.OK(w)
}

func (h *ClientHandler) Vehicles(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	vehicles, err := h.clients.Vehicles(r.Context(), id)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, vehicles)
}
