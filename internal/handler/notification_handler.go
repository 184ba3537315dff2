package handler

import (
	"context"
	"net/http"

	"github.com/Eursukkul/care-booking-service/internal/models"
	"github.com/labstack/echo/v4"
)

type NotificationLister interface {
	ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
}

type NotificationHandler struct {
	notifications NotificationLister
}

func NewNotificationHandler(notifications NotificationLister) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/notifications", h.List)
}

func (h *NotificationHandler) List(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	limit := 50
	if err := echo.QueryParamsBinder(c).Int("limit", &limit).BindError(); err != nil || limit <= 0 || limit > 200 {
		return echo.NewHTTPError(http.StatusBadRequest, "limit must be between 1 and 200")
	}

	list, err := h.notifications.ListForUser(c.Request().Context(), actor.ID, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load notifications")
	}
	return c.JSON(http.StatusOK, list)
}
