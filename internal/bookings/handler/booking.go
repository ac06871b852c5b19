package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"cardetail/internal/bookings/service"
	apperrors "cardetail/pkg/errors"
	httputil "cardetail/pkg/http"
	"cardetail/pkg/logger"
	"cardetail/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings", h.GetAll)
	router.GET("/api/v1/bookings/:id", h.GetByID)
	router.PATCH("/api/v1/bookings/:id", h.Update)

	router.POST("/api/v1/bookings/:id/accept", h.Accept)
	router.POST("/api/v1/bookings/:id/reject", h.Reject)
	router.POST("/api/v1/bookings/:id/cancel", h.Cancel)
	router.POST("/api/v1/bookings/:id/offer-reschedule", h.OfferReschedule)
	router.POST("/api/v1/bookings/:id/reschedule", h.Reschedule)
	router.POST("/api/v1/bookings/:id/start", h.Start)
	router.POST("/api/v1/bookings/:id/complete", h.Complete)
	router.POST("/api/v1/bookings/:id/no-show", h.MarkNoShow)
	router.POST("/api/v1/bookings/:id/review", h.AddReview)
	router.POST("/api/v1/bookings/:id/notes", h.AddNote)
	router.POST("/api/v1/bookings/:id/payment", h.RecordPayment)

	router.GET("/api/v1/availability", h.AvailableSlots)
	router.GET("/api/v1/availability/grid", h.SlotGrid)
	router.GET("/api/v1/stats/bookings", h.Stats)
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	var req model.CreateBookingRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	booking, err := h.service.Create(r.Context(), &req, actor)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	booking, err := h.service.GetByID(r.Context(), ps.ByName("id"), actor)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	h.writeSuccess(w, "GetByID", booking)
}

// GetAll lists bookings. Query: customer_id, status, from, to, limit, offset.
func (h *BookingHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	query := r.URL.Query()
	filter := model.BookingFilter{
		CustomerID: query.Get("customer_id"),
		Status:     query.Get("status"),
		DateFrom:   query.Get("from"),
		DateTo:     query.Get("to"),
	}

	bookings, total, err := h.service.GetAll(r.Context(), filter, limit, offset, actor)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	var updates model.BookingUpdate
	if err := httputil.DecodeJSON(r, &updates, false); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	booking, err := h.service.Update(r.Context(), ps.ByName("id"), &updates, actor)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	h.writeSuccess(w, "Update", booking)
}

func (h *BookingHandler) Accept(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "Accept", err)
		return
	}

	var req model.AcceptBookingRequest
	if err := httputil.DecodeJSON(r, &req, true); err != nil {
		h.writeError(w, "Accept", err)
		return
	}

	booking, err := h.service.Accept(r.Context(), ps.ByName("id"), &req, actor)
	if err != nil {
		h.writeError(w, "Accept", err)
		return
	}

	h.writeSuccess(w, "Accept", booking)
}

func (h *BookingHandler) Reject(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "Reject", err)
		return
	}

	var req model.CancelBookingRequest
	if err := httputil.DecodeJSON(r, &req, true); err != nil {
		h.writeError(w, "Reject", err)
		return
	}

	booking, err := h.service.Reject(r.Context(), ps.ByName("id"), req.Reason, actor)
	if err != nil {
		h.writeError(w, "Reject", err)
		return
	}

	h.writeSuccess(w, "Reject", booking)
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	var req model.CancelBookingRequest
	if err := httputil.DecodeJSON(r, &req, true); err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	booking, err := h.service.Cancel(r.Context(), ps.ByName("id"), req.Reason, actor)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	h.writeSuccess(w, "Cancel", booking)
}

func (h *BookingHandler) OfferReschedule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "OfferReschedule", err)
		return
	}

	booking, err := h.service.OfferReschedule(r.Context(), ps.ByName("id"), actor)
	if err != nil {
		h.writeError(w, "OfferReschedule", err)
		return
	}

	h.writeSuccess(w, "OfferReschedule", booking)
}

func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "Reschedule", err)
		return
	}

	var req model.RescheduleRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		h.writeError(w, "Reschedule", err)
		return
	}

	booking, err := h.service.Reschedule(r.Context(), ps.ByName("id"), &req, actor)
	if err != nil {
		h.writeError(w, "Reschedule", err)
		return
	}

	h.writeSuccess(w, "Reschedule", booking)
}

func (h *BookingHandler) Start(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "Start", err)
		return
	}

	booking, err := h.service.Start(r.Context(), ps.ByName("id"), actor)
	if err != nil {
		h.writeError(w, "Start", err)
		return
	}

	h.writeSuccess(w, "Start", booking)
}

func (h *BookingHandler) Complete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "Complete", err)
		return
	}

	var req model.CompleteBookingRequest
	if err := httputil.DecodeJSON(r, &req, true); err != nil {
		h.writeError(w, "Complete", err)
		return
	}

	booking, err := h.service.Complete(r.Context(), ps.ByName("id"), &req, actor)
	if err != nil {
		h.writeError(w, "Complete", err)
		return
	}

	h.writeSuccess(w, "Complete", booking)
}

func (h *BookingHandler) MarkNoShow(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "MarkNoShow", err)
		return
	}

	booking, err := h.service.MarkNoShow(r.Context(), ps.ByName("id"), actor)
	if err != nil {
		h.writeError(w, "MarkNoShow", err)
		return
	}

	h.writeSuccess(w, "MarkNoShow", booking)
}

func (h *BookingHandler) AddReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "AddReview", err)
		return
	}

	var req model.ReviewRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		h.writeError(w, "AddReview", err)
		return
	}

	booking, err := h.service.AddReview(r.Context(), ps.ByName("id"), &req, actor)
	if err != nil {
		h.writeError(w, "AddReview", err)
		return
	}

	h.writeSuccess(w, "AddReview", booking)
}

func (h *BookingHandler) AddNote(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "AddNote", err)
		return
	}

	var req model.NoteRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		h.writeError(w, "AddNote", err)
		return
	}

	booking, err := h.service.AddNote(r.Context(), ps.ByName("id"), &req, actor)
	if err != nil {
		h.writeError(w, "AddNote", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "AddNote", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) RecordPayment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "RecordPayment", err)
		return
	}

	var req model.PaymentRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		h.writeError(w, "RecordPayment", err)
		return
	}

	booking, err := h.service.RecordPayment(r.Context(), ps.ByName("id"), &req, actor)
	if err != nil {
		h.writeError(w, "RecordPayment", err)
		return
	}

	h.writeSuccess(w, "RecordPayment", booking)
}

// AvailableSlots is public. Query: date=YYYY-MM-DD, duration=<minutes>.
func (h *BookingHandler) AvailableSlots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	date, duration, err := extractSlotQuery(r)
	if err != nil {
		h.writeError(w, "AvailableSlots", err)
		return
	}

	slots, err := h.service.AvailableSlots(r.Context(), date, duration)
	if err != nil {
		h.writeError(w, "AvailableSlots", err)
		return
	}

	h.writeSuccess(w, "AvailableSlots", map[string]any{
		"date":     date,
		"duration": duration,
		"slots":    slots,
	})
}

// SlotGrid shows every candidate start time to staff. Query adds exclude=<booking id>.
func (h *BookingHandler) SlotGrid(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "SlotGrid", err)
		return
	}

	date, duration, err := extractSlotQuery(r)
	if err != nil {
		h.writeError(w, "SlotGrid", err)
		return
	}

	grid, err := h.service.SlotGrid(r.Context(), date, duration, r.URL.Query().Get("exclude"), actor)
	if err != nil {
		h.writeError(w, "SlotGrid", err)
		return
	}

	h.writeSuccess(w, "SlotGrid", map[string]any{
		"date":     date,
		"duration": duration,
		"slots":    grid,
	})
}

// Stats aggregates bookings by status. Query: from, to.
func (h *BookingHandler) Stats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "Stats", err)
		return
	}

	query := r.URL.Query()
	stats, err := h.service.Stats(r.Context(), query.Get("from"), query.Get("to"), actor)
	if err != nil {
		h.writeError(w, "Stats", err)
		return
	}

	h.writeSuccess(w, "Stats", stats)
}

func extractSlotQuery(r *http.Request) (string, int, error) {
	query := r.URL.Query()
	date := query.Get("date")
	if date == "" {
		return "", 0, apperrors.InvalidInput("date query parameter is required")
	}

	raw := query.Get("duration")
	if raw == "" {
		return "", 0, apperrors.InvalidInput("duration query parameter is required")
	}
	duration, err := strconv.Atoi(raw)
	if err != nil {
		return "", 0, apperrors.InvalidInput(fmt.Sprintf("invalid duration parameter: %s", raw))
	}
	return date, duration, nil
}

func (h *BookingHandler) writeSuccess(w http.ResponseWriter, handler string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}
