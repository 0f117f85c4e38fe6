/*
handlers.go - HTTP API handlers for the inventory engine

PURPOSE:
  Exposes the inventory engine via REST. Handles HTTP request/response and
  JSON serialization, delegates everything else to the engine.

ENDPOINTS:
  Stock:
    GET    /api/stock              Snapshot of all stocked items
    GET    /api/stock/{id}         Single item count
    POST   /api/stock/add          Checked batch add (all-or-nothing)
    POST   /api/stock/remove       Checked batch remove (all-or-nothing)
    POST   /api/stock/force        Forced signed batch (no validity check)

  Tags:
    GET    /api/tags               List tag names
    GET    /api/tags/{tag}         Tag members and aggregate stock
    PUT    /api/tags               Replace the key->tag table wholesale

  Admin:
    GET    /api/admin/status       Paused flag, queue depth, item count
    POST   /api/admin/pause        Suspend mutation processing
    POST   /api/admin/resume       Resume mutation processing
    POST   /api/admin/save         Persist a snapshot to the backend
    POST   /api/admin/load         Replace state from the backend

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed body or parameters
  - 404: No save document on load
  - 409: Checked batch rejected (insufficient stock)
  - 503: Engine closed
  - 500: Internal errors

  A rejected checked batch is NOT an HTTP error on mutate endpoints - it is
  a normal {"applied": false} response; 409 is reserved for callers that
  opt into strict mode via ?strict=1.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/inventory-engine/generic"
	"github.com/warp/inventory-engine/items"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Inventory *items.Inventory
	Store     generic.DocumentStore
	Logger    *zap.Logger

	// BackendName is reported in the status view ("file", "sqlite").
	BackendName string
}

// NewHandler creates a handler over the given inventory and save backend.
func NewHandler(inv *items.Inventory, store generic.DocumentStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Inventory: inv,
		Store:     store,
		Logger:    logger.With(zap.String("component", "api")),
	}
}

// =============================================================================
// STOCK HANDLERS
// =============================================================================

// GetStock returns a snapshot of every stocked item, sorted by ID.
func (h *Handler) GetStock(w http.ResponseWriter, r *http.Request) {
	snap := h.Inventory.Snapshot()
	out := make([]StockDTO, 0, len(snap))
	for id, qty := range snap {
		dto := StockDTO{ID: string(id), Qty: int64(qty)}
		if tag, ok := h.Inventory.TagOf(id); ok {
			dto.Tag = tag
		}
		out = append(out, dto)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

// GetItem returns the count of one item. Absent items report zero rather
// than 404: "not stocked" is a value, not an error.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	id := items.ItemID(chi.URLParam(r, "id"))
	dto := StockDTO{ID: string(id), Qty: h.Inventory.Stock(id)}
	if tag, ok := h.Inventory.TagOf(id); ok {
		dto.Tag = tag
	}
	writeJSON(w, http.StatusOK, dto)
}

// AddStock applies a checked batch add.
func (h *Handler) AddStock(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(stacks []items.Stack) (bool, error) {
		return h.Inventory.AddBatch(r.Context(), stacks)
	}, false)
}

// RemoveStock applies a checked batch remove; quantities are positive in
// the request.
func (h *Handler) RemoveStock(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(stacks []items.Stack) (bool, error) {
		return h.Inventory.RemoveBatch(r.Context(), stacks)
	}, false)
}

// ForceStock applies a signed batch without validity checks.
func (h *Handler) ForceStock(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(stacks []items.Stack) (bool, error) {
		return true, h.Inventory.ForceBatch(stacks)
	}, true)
}

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, apply func([]items.Stack) (bool, error), signed bool) {
	var req MutateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Stacks) == 0 {
		writeError(w, http.StatusBadRequest, "stacks must not be empty")
		return
	}
	stacks := make([]items.Stack, len(req.Stacks))
	for i, s := range req.Stacks {
		if !signed && s.Qty <= 0 {
			writeError(w, http.StatusBadRequest, "qty must be positive")
			return
		}
		stacks[i] = items.Stack{ID: items.ItemID(s.ID), Qty: s.Qty}
	}

	applied, err := apply(stacks)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	if !applied && r.URL.Query().Get("strict") == "1" {
		writeError(w, http.StatusConflict, "insufficient stock")
		return
	}
	writeJSON(w, http.StatusOK, MutateResponse{Applied: applied})
}

// =============================================================================
// TAG HANDLERS
// =============================================================================

// ListTags returns all known tag names.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Inventory.TagNames())
}

// GetTag returns one tag's members and aggregate stock.
func (h *Handler) GetTag(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")
	members := h.Inventory.TagMembers(tag)
	dto := TagDTO{Tag: tag, Members: make([]string, 0, len(members))}
	for _, id := range members {
		dto.Members = append(dto.Members, string(id))
		dto.Total += h.Inventory.Stock(id)
	}
	sort.Strings(dto.Members)
	writeJSON(w, http.StatusOK, dto)
}

// SetTags wholesale-replaces the key->tag table.
func (h *Handler) SetTags(w http.ResponseWriter, r *http.Request) {
	var req SetTagsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	table := make(map[items.ItemID]string, len(req.Assignments))
	for id, tag := range req.Assignments {
		table[items.ItemID(id)] = tag
	}
	h.Inventory.SetTagLookUpTable(table)
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// GetStatus reports engine state for operators.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusDTO{
		Paused:         h.Inventory.Paused(),
		PendingChanges: h.Inventory.PendingChanges(),
		Items:          h.Inventory.Len(),
		Backend:        h.BackendName,
	})
}

// Pause suspends mutation processing. Queued work is retained.
func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	h.Inventory.Pause()
	w.WriteHeader(http.StatusNoContent)
}

// Resume continues mutation processing in submission order.
func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	h.Inventory.Resume()
	w.WriteHeader(http.StatusNoContent)
}

// Save persists a snapshot through the configured backend.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	if err := h.Inventory.Save(r.Context(), h.Store); err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Load replaces the inventory from the configured backend. Queued
// changes are discarded by contract.
func (h *Handler) Load(w http.ResponseWriter, r *http.Request) {
	if err := h.Inventory.Load(r.Context(), h.Store); err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Healthz is a liveness endpoint.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	var vErr *generic.UnsupportedVersionError
	switch {
	case errors.Is(err, generic.ErrSaveNotFound):
		writeError(w, http.StatusNotFound, "no save document")
	case errors.Is(err, generic.ErrEngineClosed):
		writeError(w, http.StatusServiceUnavailable, "engine closed")
	case errors.As(err, &vErr):
		writeError(w, http.StatusConflict, vErr.Error())
	default:
		h.Logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorDTO{Error: msg})
}
