// Package api provides the thin HTTP surface over the mapping façade. Route
// strings and transport concerns live here; all behavior is the service's.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/philippfrenzel/msfabric-mapping-etk-sub002/internal/domain"
	"github.com/philippfrenzel/msfabric-mapping-etk-sub002/internal/service"
)

// Handler holds the service dependencies for the REST endpoints.
type Handler struct {
	svc    *service.MappingService
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(svc *service.MappingService, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			h.logger.Error("encode response", "error", err)
		}
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := httpStatusFromDomainError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) listTables(w http.ResponseWriter, r *http.Request) {
	names, err := h.svc.GetAllTableNames(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"tables": names})
}

func (h *Handler) createTable(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateReferenceTableRequest
	if !h.decode(w, r, &req) {
		return
	}
	table, err := h.svc.CreateReferenceTable(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, table)
}

func (h *Handler) getTable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	table, err := h.svc.GetReferenceTable(r.Context(), name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if table == nil {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "reference table " + name + " not found"})
		return
	}
	h.writeJSON(w, http.StatusOK, table)
}

func (h *Handler) deleteTable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	existed, err := h.svc.DeleteReferenceTable(r.Context(), name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !existed {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "reference table " + name + " not found"})
		return
	}
	h.writeJSON(w, http.StatusNoContent, nil)
}

type upsertRowRequest struct {
	Attributes map[string]interface{} `json:"attributes"`
}

func (h *Handler) upsertRow(w http.ResponseWriter, r *http.Request) {
	var req upsertRowRequest
	if !h.decode(w, r, &req) {
		return
	}
	table := chi.URLParam(r, "name")
	key := chi.URLParam(r, "key")
	if err := h.svc.AddOrUpdateRow(r.Context(), table, key, req.Attributes); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"table": table, "key": key})
}

func (h *Handler) classifyRow(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "name")
	key := chi.URLParam(r, "key")
	if err := h.svc.MarkRowClassified(r.Context(), table, key); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"table": table, "key": key})
}

func (h *Handler) readMapping(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	entries, err := h.svc.ReadMapping(r.Context(), name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"table": name, "mapping": entries})
}

type syncRequest struct {
	KeyAttribute string                   `json:"keyAttribute"`
	Records      []map[string]interface{} `json:"records"`
}

func (h *Handler) syncTable(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if !h.decode(w, r, &req) {
		return
	}
	name := chi.URLParam(r, "name")

	data := make([]interface{}, len(req.Records))
	for i, rec := range req.Records {
		data[i] = rec
	}
	added, err := h.svc.SyncMapping(r.Context(), data, req.KeyAttribute, name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"table": name, "newKeysAdded": added})
}

type mapRecordRequest struct {
	Record map[string]interface{} `json:"record"`
}

func (h *Handler) mapRecord(w http.ResponseWriter, r *http.Request) {
	var req mapRecordRequest
	if !h.decode(w, r, &req) {
		return
	}
	name := chi.URLParam(r, "name")
	attrs, err := h.svc.MapRecord(r.Context(), name, req.Record)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"table": name, "attributes": attrs})
}
