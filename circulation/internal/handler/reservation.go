package handler

import (
	"net/http"

	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/Astemirdum/library-circulation/pkg/auth"
	"github.com/labstack/echo/v4"
)

func (h *Handler) CreateReservation(c echo.Context) error {
	p, err := authorize(c, auth.Authenticated())
	if err != nil {
		return err
	}
	bookID, err := paramID(c)
	if err != nil {
		return err
	}
	res, err := h.svc.Reserve(c.Request().Context(), bookID, p.UserID)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetMyReservations(c echo.Context) error {
	p, err := authorize(c, auth.Authenticated())
	if err != nil {
		return err
	}
	items, err := h.svc.ListReservations(c.Request().Context(), p.UserID)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) CancelReservation(c echo.Context) error {
	if _, err := authorize(c, auth.Authenticated()); err != nil {
		return err
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	res, err := h.svc.GetReservation(ctx, id)
	if err != nil {
		return h.httpError(err)
	}
	if _, err = authorize(c, auth.OwnerOrStaff(res.UserID)); err != nil {
		return err
	}
	res, err = h.svc.CancelReservation(ctx, id)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) FulfilReservation(c echo.Context) error {
	if _, err := authorize(c, auth.Staff()); err != nil {
		return err
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req model.FulfilReservationRequest
	if err = bindValid(c, &req); err != nil {
		return err
	}
	due, err := parseDate(req.DueDate)
	if err != nil {
		return err
	}
	loan, err := h.svc.FulfilReservation(c.Request().Context(), id, due)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusCreated, loan)
}
