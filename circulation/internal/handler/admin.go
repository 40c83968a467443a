package handler

import (
	"net/http"
	"time"

	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/Astemirdum/library-circulation/pkg/auth"
	"github.com/labstack/echo/v4"
)

// ApproveLoan godoc
// @Summary Approve a requested loan
// @Tags admin
// @Produce json
// @Param id path int true "loan id"
// @Success 200 {object} model.Loan
// @Failure 403,404,409 {object} errs.ErrorResponse
// @Security BearerAuth
// @Router /admin/loans/{id}/approve [post]
func (h *Handler) ApproveLoan(c echo.Context) error {
	if _, err := authorize(c, auth.Staff()); err != nil {
		return err
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}
	loan, err := h.svc.Approve(c.Request().Context(), id)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, loan)
}

func (h *Handler) RejectLoan(c echo.Context) error {
	if _, err := authorize(c, auth.Staff()); err != nil {
		return err
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}
	loan, err := h.svc.Reject(c.Request().Context(), id)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, loan)
}

func (h *Handler) AdminListLoans(c echo.Context) error {
	if _, err := authorize(c, auth.Staff()); err != nil {
		return err
	}
	page, size, err := paging(c)
	if err != nil {
		return err
	}
	loans, err := h.svc.ListLoans(c.Request().Context(), model.LoanFilter{
		Status: model.LoanStatus(c.QueryParam("status")),
		Page:   page,
		Size:   size,
	})
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, loans)
}

// AdminListFines returns open overdue loans with their projected fines.
func (h *Handler) AdminListFines(c echo.Context) error {
	if _, err := authorize(c, auth.Staff()); err != nil {
		return err
	}
	loans, err := h.svc.ListOverdue(c.Request().Context())
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, loans)
}

type sweepRequest struct {
	Now *time.Time `json:"now"`
}

// RunSweep godoc
// @Summary Run the due-date sweep now
// @Tags admin
// @Accept json
// @Produce json
// @Success 200 {object} model.SweepResult
// @Security BearerAuth
// @Router /admin/sweep [post]
func (h *Handler) RunSweep(c echo.Context) error {
	if _, err := authorize(c, auth.Staff()); err != nil {
		return err
	}
	var req sweepRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	now := time.Now()
	if req.Now != nil {
		now = *req.Now
	}
	res, err := h.svc.RunDueDateSweep(c.Request().Context(), now)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) CreateUser(c echo.Context) error {
	if _, err := authorize(c, auth.Staff()); err != nil {
		return err
	}
	var req model.CreateUserRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	user, err := h.svc.CreateUser(c.Request().Context(), req)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusCreated, user)
}

func (h *Handler) AdminListUsers(c echo.Context) error {
	if _, err := authorize(c, auth.Staff()); err != nil {
		return err
	}
	users, err := h.svc.ListUsers(c.Request().Context())
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, users)
}

// UpdateUser godoc
// @Summary Update a user's email, staff flag or active flag
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "user id"
// @Param user body model.UpdateUserRequest true "fields to change"
// @Success 200 {object} model.User
// @Failure 400,403,404 {object} errs.ErrorResponse
// @Security BearerAuth
// @Router /admin/users/{id} [put]
func (h *Handler) UpdateUser(c echo.Context) error {
	if _, err := authorize(c, auth.Staff()); err != nil {
		return err
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req model.UpdateUserRequest
	if err = bindValid(c, &req); err != nil {
		return err
	}
	user, err := h.svc.UpdateUser(c.Request().Context(), id, req)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *Handler) ToggleUserActive(c echo.Context) error {
	if _, err := authorize(c, auth.Staff()); err != nil {
		return err
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}
	user, err := h.svc.ToggleUserActive(c.Request().Context(), id)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}
