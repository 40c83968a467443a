package handler

import (
	"net/http"

	"github.com/Astemirdum/library-circulation/pkg/auth"
	"github.com/labstack/echo/v4"
)

// GetNotifications godoc
// @Summary List the caller's notifications, newest first
// @Tags notifications
// @Produce json
// @Param page query int false "page"
// @Param size query int false "size"
// @Success 200 {object} model.ListNotifications
// @Security BearerAuth
// @Router /notifications [get]
func (h *Handler) GetNotifications(c echo.Context) error {
	p, err := authorize(c, auth.Authenticated())
	if err != nil {
		return err
	}
	page, size, err := paging(c)
	if err != nil {
		return err
	}
	list, err := h.svc.ListNotifications(c.Request().Context(), p.UserID, page, size)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) GetUnreadCount(c echo.Context) error {
	p, err := authorize(c, auth.Authenticated())
	if err != nil {
		return err
	}
	n, err := h.svc.CountUnread(c.Request().Context(), p.UserID)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"unread": n})
}

func (h *Handler) MarkNotificationRead(c echo.Context) error {
	p, err := authorize(c, auth.Authenticated())
	if err != nil {
		return err
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err = h.svc.MarkRead(c.Request().Context(), p.UserID, id); err != nil {
		return h.httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) MarkAllNotificationsRead(c echo.Context) error {
	p, err := authorize(c, auth.Authenticated())
	if err != nil {
		return err
	}
	marked, err := h.svc.MarkAllRead(c.Request().Context(), p.UserID)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"marked": marked})
}
