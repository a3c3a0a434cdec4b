// Package handler exposes the record engine over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tempora/internal/audit"
	"tempora/internal/record/kinds"
	"tempora/internal/record/models"
	"tempora/internal/record/query"
	id "tempora/pkg/domain"
	dErrors "tempora/pkg/domain-errors"
	"tempora/pkg/platform/httputil"
	"tempora/pkg/requestcontext"
)

// Dispatcher is the command side of the engine.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd models.Command) (models.DispatchResult, error)
	Correct(ctx context.Context, cmd models.Command) (models.DispatchResult, error)
}

// Handler wires record endpoints to the dispatcher and query engine.
type Handler struct {
	dispatcher Dispatcher
	queries    *query.Engine
	catalog    *kinds.Catalog
	journal    audit.Store
	logger     *slog.Logger
}

func New(dispatcher Dispatcher, queries *query.Engine, catalog *kinds.Catalog, journal audit.Store, logger *slog.Logger) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		queries:    queries,
		catalog:    catalog,
		journal:    journal,
		logger:     logger,
	}
}

// Register mounts record endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/actions", h.HandleCatalog)
	r.Route("/v1/employees/{employee_id}", func(r chi.Router) {
		r.Post("/actions", h.HandleDispatch)
		r.Post("/corrections", h.HandleCorrection)
		r.Get("/records/{kind}", h.HandleRecords)
		r.Get("/records/{kind}/as-of", h.HandleAsOf)
		r.Get("/records/{kind}/history", h.HandleHistory)
		r.Get("/timeline", h.HandleTimeline)
	})
}

type actionRequest struct {
	ActionKey   string         `json:"action_key"`
	EffectiveAt string         `json:"effective_at"`
	RequestID   string         `json:"request_id"`
	SlotKey     string         `json:"slot_key,omitempty"`
	Payload     models.Payload `json:"payload"`
}

type actionResponse struct {
	Status    string `json:"status"`
	VersionID string `json:"version_id,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

// HandleDispatch handles POST /v1/employees/{employee_id}/actions.
func (h *Handler) HandleDispatch(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, false)
}

// HandleCorrection handles POST /v1/employees/{employee_id}/corrections.
func (h *Handler) HandleCorrection(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, true)
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request, correction bool) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	ownerID, err := id.ParseEmployeeID(chi.URLParam(r, "employee_id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid employee id"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[actionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	effectiveAt, err := parseDate(req.EffectiveAt)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidEffectiveDate,
			"effective_at must be a YYYY-MM-DD date"))
		return
	}

	cmd := models.Command{
		ActionKey:   req.ActionKey,
		TenantID:    requestcontext.TenantID(ctx),
		OwnerID:     ownerID,
		SlotKey:     req.SlotKey,
		EffectiveAt: effectiveAt,
		RequestID:   req.RequestID,
		Payload:     req.Payload,
	}

	var result models.DispatchResult
	if correction {
		result, err = h.dispatcher.Correct(ctx, cmd)
	} else {
		result, err = h.dispatcher.Dispatch(ctx, cmd)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "dispatch failed",
			"request_id", requestID,
			"action_key", req.ActionKey,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	resp := actionResponse{Status: string(result.Status)}
	if result.Replayed {
		resp.Status = "duplicate"
	}
	status := http.StatusOK
	if result.VersionID != nil {
		resp.VersionID = result.VersionID.String()
	}
	if result.Status == models.StatusError {
		resp.ErrorCode = result.ErrorCode.String()
		status = dErrors.ToHTTPStatus(result.ErrorCode)
	}
	httputil.WriteJSON(w, status, resp)
}

type kindResponse struct {
	Kind       string   `json:"kind"`
	ActionKey  string   `json:"action_key"`
	Label      string   `json:"label"`
	Required   []string `json:"required_fields"`
	Allowed    []string `json:"allowed_fields"`
	Prehistory bool     `json:"prehistory_allowed"`
}

// HandleCatalog handles GET /v1/actions.
func (h *Handler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	descriptors := h.catalog.Descriptors()
	out := make([]kindResponse, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, kindResponse{
			Kind:       d.Kind.String(),
			ActionKey:  d.ActionKey,
			Label:      d.Label,
			Required:   d.Required,
			Allowed:    d.Allowed,
			Prehistory: d.Prehistory,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"actions": out})
}

type versionResponse struct {
	ID            string         `json:"id"`
	EffectiveFrom string         `json:"effective_from"`
	EffectiveTo   *string        `json:"effective_to,omitempty"`
	Payload       models.Payload `json:"payload"`
	Superseded    bool           `json:"superseded,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

type slotResponse struct {
	SlotKey  string            `json:"slot_key"`
	Versions []versionResponse `json:"versions"`
}

// HandleRecords handles GET /v1/employees/{employee_id}/records/{kind},
// optionally range-filtered with from/to query params.
func (h *Handler) HandleRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := requestcontext.TenantID(ctx)
	ownerID, kind, ok := h.pathScope(w, r)
	if !ok {
		return
	}

	var from, to *time.Time
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "from must be a YYYY-MM-DD date"))
			return
		}
		from = &parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "to must be a YYYY-MM-DD date"))
			return
		}
		to = &parsed
	}

	records, err := h.queries.Overlapping(ctx, tenantID, ownerID, kind, from, to)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"slots": toSlotResponses(records)})
}

// HandleAsOf handles GET /v1/employees/{employee_id}/records/{kind}/as-of.
func (h *Handler) HandleAsOf(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := requestcontext.TenantID(ctx)
	ownerID, kind, ok := h.pathScope(w, r)
	if !ok {
		return
	}

	date := requestcontext.Now(ctx)
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "date must be a YYYY-MM-DD date"))
			return
		}
		date = parsed
	}

	records, err := h.queries.AsOf(ctx, tenantID, ownerID, kind, date)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"date":  models.Date(date).Format(time.DateOnly),
		"slots": toSlotResponses(records),
	})
}

// HandleHistory handles GET /v1/employees/{employee_id}/records/{kind}/history,
// returning the full chain of one slot, superseded versions included.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := requestcontext.TenantID(ctx)
	ownerID, kind, ok := h.pathScope(w, r)
	if !ok {
		return
	}

	record, err := h.queries.Timeline(ctx, tenantID, ownerID, kind, r.URL.Query().Get("slot_key"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSlotResponse(record))
}

// HandleTimeline handles GET /v1/employees/{employee_id}/timeline: the
// dispatch journal for one employee, newest first.
func (h *Handler) HandleTimeline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := requestcontext.TenantID(ctx)

	ownerID, err := id.ParseEmployeeID(chi.URLParam(r, "employee_id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid employee id"))
		return
	}

	events, err := h.journal.ListByOwner(ctx, tenantID, ownerID, 100)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *Handler) pathScope(w http.ResponseWriter, r *http.Request) (id.EmployeeID, id.EntityKind, bool) {
	ownerID, err := id.ParseEmployeeID(chi.URLParam(r, "employee_id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid employee id"))
		return id.EmployeeID{}, "", false
	}
	kind, err := id.ParseEntityKind(chi.URLParam(r, "kind"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.EmployeeID{}, "", false
	}
	return ownerID, kind, true
}

func toSlotResponses(records []query.SlotRecord) []slotResponse {
	out := make([]slotResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toSlotResponse(rec))
	}
	return out
}

func toSlotResponse(rec query.SlotRecord) slotResponse {
	versions := make([]versionResponse, 0, len(rec.Versions))
	for _, v := range rec.Versions {
		vr := versionResponse{
			ID:            v.ID.String(),
			EffectiveFrom: v.EffectiveFrom.Format(time.DateOnly),
			Payload:       v.Payload,
			Superseded:    !v.Active(),
			CreatedAt:     v.CreatedAt,
		}
		if v.EffectiveTo != nil {
			to := v.EffectiveTo.Format(time.DateOnly)
			vr.EffectiveTo = &to
		}
		versions = append(versions, vr)
	}
	return slotResponse{SlotKey: rec.Slot.SlotKey, Versions: versions}
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return models.Date(t), nil
}
