package handler

import (
	"net/http"

	"github.com/Eursukkul/care-booking-service/internal/dto"
	"github.com/Eursukkul/care-booking-service/internal/service"
	"github.com/labstack/echo/v4"
)

type ChatHandler struct {
	svc service.ChatService
}

func NewChatHandler(svc service.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

func (h *ChatHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/chat-sessions/:id", h.Get)
	g.POST("/chat-sessions/:id/accept", h.Accept)
}

func (h *ChatHandler) Get(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	chat, err := h.svc.GetChat(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chat)
}

func (h *ChatHandler) Accept(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.AcceptRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	chat, err := h.svc.AcceptChat(c.Request().Context(), actor, c.Param("id"), *req.Accept)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chat)
}
