package handler

import (
	"net/http"

	"github.com/Eursukkul/care-booking-service/internal/dto"
	"github.com/Eursukkul/care-booking-service/internal/middleware"
	"github.com/Eursukkul/care-booking-service/internal/models"
	"github.com/Eursukkul/care-booking-service/internal/service"
	"github.com/labstack/echo/v4"
)

type VideoCallHandler struct {
	svc service.VideoCallService
}

func NewVideoCallHandler(svc service.VideoCallService) *VideoCallHandler {
	return &VideoCallHandler{svc: svc}
}

func (h *VideoCallHandler) RegisterRoutes(g *echo.Group) {
	calls := g.Group("/video-calls")
	calls.POST("", h.Create, middleware.RequireRole(models.RoleCareRecipient))
	calls.GET("/:id", h.Get)
	calls.POST("/:id/accept", h.Accept)
	calls.POST("/:id/join", h.Join)
	calls.PATCH("/:id/status", h.UpdateStatus)
	calls.POST("/:id/complete", h.Complete)
}

func (h *VideoCallHandler) Create(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateVideoCallRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	call, err := h.svc.CreateVideoCall(c.Request().Context(), actor, service.CreateVideoCallInput{
		CaregiverID:     req.CaregiverID,
		ScheduledTime:   req.ScheduledTime,
		DurationSeconds: req.DurationSeconds,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, call)
}

func (h *VideoCallHandler) Get(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	call, err := h.svc.GetVideoCall(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, call)
}

func (h *VideoCallHandler) Accept(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.AcceptRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.svc.Accept(c.Request().Context(), actor, c.Param("id"), *req.Accept)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (h *VideoCallHandler) Join(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	call, err := h.svc.Join(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, call)
}

func (h *VideoCallHandler) UpdateStatus(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.UpdateVideoCallStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	call, err := h.svc.UpdateStatus(c.Request().Context(), actor, c.Param("id"), models.VideoCallStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, call)
}

func (h *VideoCallHandler) Complete(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	call, err := h.svc.Complete(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, call)
}
