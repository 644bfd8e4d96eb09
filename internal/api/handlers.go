package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/LeventeLantos/freesms-notify/internal/events"
	"github.com/LeventeLantos/freesms-notify/internal/flow"
	"github.com/LeventeLantos/freesms-notify/internal/integration"
	"github.com/LeventeLantos/freesms-notify/internal/metrics"
	"github.com/LeventeLantos/freesms-notify/internal/model"
	"github.com/LeventeLantos/freesms-notify/internal/scheduler"
	"github.com/LeventeLantos/freesms-notify/internal/service"
)

type EntryCreator interface {
	Create(ctx context.Context, in flow.Input) (model.Account, error)
}

type Handler struct {
	mgr     *integration.Manager
	flow    EntryCreator
	sync    *scheduler.Scheduler
	hub     *events.Hub
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Deps struct {
	Manager *integration.Manager
	Flow    EntryCreator
	Sync    *scheduler.Scheduler
	Hub     *events.Hub
	Metrics *metrics.Metrics // optional
	Logger  *slog.Logger
}

func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		mgr:     d.Manager,
		flow:    d.Flow,
		sync:    d.Sync,
		hub:     d.Hub,
		metrics: d.Metrics,
		logger:  logger,
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type sensorView struct {
	Name     string `json:"name"`
	UniqueID string `json:"unique_id"`
	model.Status
}

type buttonView struct {
	Icon       string        `json:"icon"`
	LastResult *model.Result `json:"last_result,omitempty"`
}

type entryView struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Username    string       `json:"username"`
	Name        string       `json:"name,omitempty"`
	PhoneNumber string       `json:"phone_number,omitempty"`
	ServiceName string       `json:"service_name"`
	Device      model.Device `json:"device"`
	CreatedAt   time.Time    `json:"created_at"`
	Sensor      sensorView   `json:"sensor"`
	Button      buttonView   `json:"button"`
}

type sendResponse struct {
	Success     bool   `json:"success"`
	Description string `json:"description"`
	model.Result
}

type messageRequest struct {
	Message string `json:"message"`
}

type sendSMSRequest struct {
	Target  string `json:"target"`
	Message string `json:"message"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "entries": len(h.mgr.Entries())})
}

func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var in flow.Input
	if !decodeBody(w, r, &in) {
		return
	}

	acct, err := h.flow.Create(r.Context(), in)
	if err != nil {
		h.writeFlowError(w, err)
		return
	}

	e, err := h.mgr.Setup(r.Context(), acct)
	if err != nil {
		if rmErr := h.mgr.Remove(r.Context(), acct.ID); rmErr != nil && !errors.Is(rmErr, integration.ErrEntryNotFound) {
			h.logger.Error("rollback of stored account failed", "entry_id", acct.ID, "error", rmErr)
		}
		if errors.Is(err, integration.ErrServiceTaken) {
			h.recordCreationError("service_name_taken")
			writeError(w, http.StatusConflict, "service_name_taken", err.Error())
			return
		}
		h.recordCreationError(flow.ReasonInvalidConfig)
		writeError(w, http.StatusInternalServerError, flow.ReasonInvalidConfig, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, viewOf(e))
}

func (h *Handler) writeFlowError(w http.ResponseWriter, err error) {
	var verr *flow.ValidationError

	switch {
	case errors.As(err, &verr):
		h.recordCreationError(flow.ReasonInvalidInput)
		writeError(w, http.StatusUnprocessableEntity, flow.ReasonInvalidInput, verr.Error())
	case errors.Is(err, flow.ErrAlreadyConfigured):
		h.recordCreationError(flow.ReasonAlreadyConfigured)
		writeError(w, http.StatusConflict, flow.ReasonAlreadyConfigured, "this username is already configured")
	case errors.Is(err, flow.ErrInvalidAuth):
		h.recordCreationError(flow.ReasonInvalidAuth)
		writeError(w, http.StatusUnauthorized, flow.ReasonInvalidAuth, model.OutcomeInvalidCredentials.Description())
	case errors.Is(err, flow.ErrCannotConnect):
		h.recordCreationError(flow.ReasonCannotConnect)
		writeError(w, http.StatusBadGateway, flow.ReasonCannotConnect, model.OutcomeTransportError.Description())
	case errors.Is(err, flow.ErrVerificationFailed):
		h.recordCreationError(flow.ReasonVerificationFailed)
		writeError(w, http.StatusBadGateway, flow.ReasonVerificationFailed, "the SMS endpoint rejected the test message")
	default:
		h.logger.Error("configuration error", "error", err)
		h.recordCreationError(flow.ReasonInvalidConfig)
		writeError(w, http.StatusInternalServerError, flow.ReasonInvalidConfig, err.Error())
	}
}

func (h *Handler) recordCreationError(reason string) {
	if h.metrics != nil {
		h.metrics.RecordEntryCreationError(reason)
	}
}

func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries := h.mgr.Entries()
	items := make([]entryView, 0, len(entries))
	for _, e := range entries {
		items = append(items, viewOf(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	e, ok := h.mgr.Entry(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", integration.ErrEntryNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, viewOf(e))
}

func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.mgr.Remove(r.Context(), r.PathValue("id")); err != nil {
		h.writeSendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetSensor(w http.ResponseWriter, r *http.Request) {
	e, ok := h.mgr.Entry(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", integration.ErrEntryNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, sensorOf(e))
}

func (h *Handler) PressButton(w http.ResponseWriter, r *http.Request) {
	res, err := h.mgr.PressButton(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeSendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, responseOf(res))
}

func (h *Handler) Notify(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.mgr.Notify(r.Context(), r.PathValue("service"), req.Message)
	if err != nil {
		h.writeSendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, responseOf(res))
}

func (h *Handler) SendSMS(w http.ResponseWriter, r *http.Request) {
	var req sendSMSRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.mgr.SendSMS(r.Context(), req.Target, req.Message)
	if err != nil {
		h.writeSendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, responseOf(res))
}

func (h *Handler) writeSendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "missing_message", "missing required 'message'")
	case errors.Is(err, integration.ErrMissingTarget):
		writeError(w, http.StatusBadRequest, "missing_target", "missing required 'target'")
	case errors.Is(err, integration.ErrServiceNotFound), errors.Is(err, integration.ErrEntryNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		h.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}

func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sync.Status())
}

func (h *Handler) SyncStart(w http.ResponseWriter, r *http.Request) {
	h.sync.Start()
	writeJSON(w, http.StatusOK, h.sync.Status())
}

func (h *Handler) SyncStop(w http.ResponseWriter, r *http.Request) {
	h.sync.Stop()
	writeJSON(w, http.StatusOK, h.sync.Status())
}

func viewOf(e *integration.Entry) entryView {
	acct := e.Account

	v := entryView{
		ID:          acct.ID,
		Title:       acct.Title(),
		Username:    acct.Username,
		Name:        acct.Name,
		PhoneNumber: acct.PhoneNumber,
		ServiceName: acct.ServiceName(),
		Device:      acct.Device(),
		CreatedAt:   acct.CreatedAt,
		Sensor:      sensorOf(e),
		Button:      buttonView{Icon: e.Button.Icon()},
	}
	if res, ok := e.Button.LastResult(); ok {
		v.Button.LastResult = &res
	}
	return v
}

func sensorOf(e *integration.Entry) sensorView {
	return sensorView{
		Name:     e.Sensor.Name(),
		UniqueID: e.Sensor.UniqueID(),
		Status:   e.Sensor.Snapshot(),
	}
}

func responseOf(res model.Result) sendResponse {
	return sendResponse{
		Success:     res.Outcome.IsSuccess(),
		Description: res.Outcome.Description(),
		Result:      res,
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
