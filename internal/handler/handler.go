package handler

import (
	"net/http"

	"github.com/Eursukkul/care-booking-service/internal/middleware"
	"github.com/Eursukkul/care-booking-service/internal/models"
	"github.com/labstack/echo/v4"
)

func currentActor(c echo.Context) (models.Actor, error) {
	actor, ok := middleware.ActorFrom(c)
	if !ok || actor.ID == "" {
		return models.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")
	}
	return actor, nil
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return c.Validate(req)
}
