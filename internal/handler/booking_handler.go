package handler

import (
	"net/http"
	"time"

	"github.com/Eursukkul/care-booking-service/internal/dto"
	"github.com/Eursukkul/care-booking-service/internal/middleware"
	"github.com/Eursukkul/care-booking-service/internal/models"
	"github.com/Eursukkul/care-booking-service/internal/service"
	"github.com/labstack/echo/v4"
)

const defaultSlotMinutes = 60

type BookingHandler struct {
	svc   service.BookingService
	slots service.SlotService
}

func NewBookingHandler(svc service.BookingService, slots service.SlotService) *BookingHandler {
	return &BookingHandler{svc: svc, slots: slots}
}

func (h *BookingHandler) RegisterRoutes(g *echo.Group) {
	recipientOnly := middleware.RequireRole(models.RoleCareRecipient)

	bookings := g.Group("/bookings")
	bookings.GET("/slots", h.ListSlots)
	bookings.GET("/slot-availability", h.CheckSlotAvailability)
	bookings.POST("/slot", h.BookSlot, recipientOnly)
	bookings.POST("", h.CreateBooking, recipientOnly)
	bookings.GET("", h.ListBookings)
	bookings.GET("/:id", h.GetBooking)
	bookings.PATCH("/:id/status", h.UpdateStatus)
	bookings.POST("/:id/respond", h.Respond, middleware.RequireRole(models.RoleCaregiver))
	bookings.POST("/:id/complete", h.Complete)
	bookings.POST("/:id/complete-payment", h.CompletePayment, recipientOnly)
	bookings.GET("/:id/history", h.History)
	bookings.POST("/:id/notes", h.AddNote)
	bookings.GET("/:id/notes", h.ListNotes)
}

func (h *BookingHandler) ListSlots(c echo.Context) error {
	q := dto.SlotsQuery{SlotMinutes: defaultSlotMinutes}
	err := echo.QueryParamsBinder(c).
		String("caregiver_id", &q.CaregiverID).
		Time("from", &q.From, time.RFC3339).
		Time("to", &q.To, time.RFC3339).
		Int("slot_minutes", &q.SlotMinutes).
		BindError()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}
	if err := c.Validate(&q); err != nil {
		return err
	}

	slots, err := h.slots.ListSlots(c.Request().Context(), q.CaregiverID, q.From, q.To, q.SlotMinutes)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.ToSlotsResponse(q.CaregiverID, q.SlotMinutes, slots))
}

func (h *BookingHandler) CheckSlotAvailability(c echo.Context) error {
	var q dto.SlotAvailabilityQuery
	err := echo.QueryParamsBinder(c).
		String("caregiver_id", &q.CaregiverID).
		Time("start_time", &q.StartTime, time.RFC3339).
		Time("end_time", &q.EndTime, time.RFC3339).
		BindError()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}
	if err := c.Validate(&q); err != nil {
		return err
	}

	ok, err := h.slots.CheckSlotAvailable(c.Request().Context(), q.CaregiverID, q.StartTime, q.EndTime)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.SlotAvailabilityResponse{
		CaregiverID: q.CaregiverID,
		StartTime:   q.StartTime,
		EndTime:     q.EndTime,
		Available:   ok,
	})
}

func (h *BookingHandler) BookSlot(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.BookSlotRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	booking, err := h.svc.BookSlot(c.Request().Context(), actor, service.BookSlotInput{
		CaregiverID:        req.CaregiverID,
		ServiceType:        models.ServiceType(req.ServiceType),
		ScheduledDate:      req.ScheduledDate,
		DurationHours:      req.DurationHours,
		UrgencyLevel:       models.UrgencyLevel(req.UrgencyLevel),
		IsEmergency:        req.IsEmergency,
		Location:           req.Location,
		SpecificNeeds:      req.SpecificNeeds,
		VideoCallRequestID: req.VideoCallRequestID,
		ChatSessionID:      req.ChatSessionID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) CreateBooking(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateBookingRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	booking, err := h.svc.CreateBooking(c.Request().Context(), actor, service.CreateBookingInput{
		CaregiverID:   req.CaregiverID,
		ServiceType:   models.ServiceType(req.ServiceType),
		ScheduledDate: req.ScheduledDate,
		DurationHours: req.DurationHours,
		UrgencyLevel:  models.UrgencyLevel(req.UrgencyLevel),
		Location:      req.Location,
		SpecificNeeds: req.SpecificNeeds,
		Status:        models.BookingStatus(req.Status),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) ListBookings(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	var status *models.BookingStatus
	if s := c.QueryParam("status"); s != "" {
		bs := models.BookingStatus(s)
		status = &bs
	}

	bookings, err := h.svc.ListBookings(c.Request().Context(), actor, status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponses(bookings))
}

func (h *BookingHandler) GetBooking(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	booking, err := h.svc.GetBooking(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	booking, err := h.svc.Transition(c.Request().Context(), actor, c.Param("id"), models.BookingStatus(req.Status), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) Respond(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.RespondRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	booking, err := h.svc.Respond(c.Request().Context(), actor, c.Param("id"), req.Status, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) Complete(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	booking, err := h.svc.Complete(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) CompletePayment(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	booking, err := h.svc.CompletePayment(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) History(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	entries, err := h.svc.History(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

func (h *BookingHandler) AddNote(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateNoteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	note, err := h.svc.AddNote(c.Request().Context(), actor, c.Param("id"), req.Note, req.IsPrivate)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, note)
}

func (h *BookingHandler) ListNotes(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	notes, err := h.svc.ListNotes(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, notes)
}
