package handlers

import (
	"log/slog"
	"net/http"

	"github.com/diewo77/garage-invoices/httpx"
	"github.com/diewo77/garage-invoices/internal/services"
)

type InvoiceHandler struct {
	invoices *services.InvoiceService
	log      *slog.Logger
}

func NewInvoiceHandler(invoices *services.InvoiceService, log *slog.Logger) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, log: log}
}

func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.InvoiceRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	res, err := h.invoices.Create(r.Context(), req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, res)
}

func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.invoices.List(r.Context())
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoices)
}

func (h *InvoiceHandler) Search(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.invoices.SearchByClientName(r.Context(), textParam(r, "q"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoices)
}

func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	inv, err := h.invoices.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) Items(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	items, err := h.invoices.Items(r.Context(), id)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	var req services.InvoiceRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if err := h.invoices.Update(r.Context(), id, req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	httpx.OK(w)
}

func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if err := h.invoices.Delete(r.Context(), id); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	httpx.OK(w)
}

func (h *InvoiceHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if err := h.invoices.Cancel(r.Context(), id); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	httpx.OK(w)
}
