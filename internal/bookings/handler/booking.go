package handler

import (
	"encoding/json"
	"net/http"

	"reservo/internal/bookings/service"
	apperrors "reservo/pkg/errors"
	httputil "reservo/pkg/http"
	"reservo/pkg/logger"
	"reservo/pkg/middleware"
	"reservo/pkg/model"

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

// Book returns the full booking, cancellation token included. This is the
// only response besides the emailed link that carries the token.
func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Book", apperrors.InvalidInput("Invalid request body"))
		return
	}

	booking, err := h.service.Book(r.Context(), &req, middleware.IdentityFromContext(r.Context()))
	if err != nil {
		h.writeError(w, "Book", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Book", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking.Redacted()); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) GetByToken(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.GetByToken(r.Context(), ps.ByName("token"))
	if err != nil {
		h.writeError(w, "GetByToken", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByToken", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	page, err := httputil.ParsePage(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	bookings, total, err := h.service.GetAll(r.Context(), page.Limit, page.Offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, redactAll(bookings), total, page.Limit, page.Offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) Mine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	page, err := httputil.ParsePage(r)
	if err != nil {
		h.writeError(w, "Mine", err)
		return
	}

	period, err := model.ParsePeriod(r.URL.Query().Get("when"))
	if err != nil {
		h.writeError(w, "Mine", apperrors.InvalidInput("Invalid when parameter, expected upcoming or history"))
		return
	}

	bookings, total, err := h.service.GetForAccount(r.Context(), middleware.IdentityFromContext(r.Context()), period, page.Limit, page.Offset)
	if err != nil {
		h.writeError(w, "Mine", err)
		return
	}

	if err := httputil.WritePaginated(w, redactAll(bookings), total, page.Limit, page.Offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "Mine", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	cancelled, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}
	if !cancelled {
		h.writeError(w, "Cancel", apperrors.NotFoundWithID("Booking", id))
		return
	}

	httputil.WriteNoContent(w)
}

// CancelByToken serves both GET (the emailed link) and DELETE.
func (h *BookingHandler) CancelByToken(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	cancelled, err := h.service.CancelByToken(r.Context(), ps.ByName("token"))
	if err != nil {
		h.writeError(w, "CancelByToken", err)
		return
	}
	if !cancelled {
		h.writeError(w, "CancelByToken", apperrors.NotFound("Booking").
			WithDetails(map[string]any{"reason": "invalid or already cancelled"}))
		return
	}

	if err := httputil.WriteSuccess(w, map[string]any{
		"cancelled": true,
		"message":   "Your appointment has been cancelled.",
	}); err != nil {
		h.log.Error("failed to write success response", "handler", "CancelByToken", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func redactAll(bookings []*model.Booking) []*model.Booking {
	out := make([]*model.Booking, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, b.Redacted())
	}
	return out
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Book)
	router.GET("/api/v1/bookings", h.GetAll)
	router.GET("/api/v1/bookings/mine", h.Mine)
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.DELETE("/api/v1/bookings/id/:id", h.Cancel)
	router.GET("/api/v1/bookings/token/:token", h.GetByToken)
	router.GET("/api/v1/bookings/cancel/:token", h.CancelByToken)
	router.DELETE("/api/v1/bookings/cancel/:token", h.CancelByToken)
}
