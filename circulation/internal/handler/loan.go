package handler

import (
	"net/http"

	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/Astemirdum/library-circulation/pkg/auth"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// CreateLoan godoc
// @Summary Request a loan
// @Tags loans
// @Accept json
// @Produce json
// @Param request body model.CreateLoanRequest true "book and due date"
// @Success 201 {object} model.Loan
// @Failure 400,404,409 {object} errs.ErrorResponse
// @Security BearerAuth
// @Router /loans [post]
func (h *Handler) CreateLoan(c echo.Context) error {
	p, err := authorize(c, auth.Authenticated())
	if err != nil {
		return err
	}
	var req model.CreateLoanRequest
	if err = bindValid(c, &req); err != nil {
		return err
	}
	due, err := parseDate(req.DueDate)
	if err != nil {
		return err
	}
	loan, err := h.svc.RequestLoan(c.Request().Context(), req.BookID, p.UserID, due)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusCreated, loan)
}

// GetMyLoans godoc
// @Summary List the caller's loans
// @Tags loans
// @Produce json
// @Param status query string false "loan status"
// @Success 200 {array} model.LoanView
// @Security BearerAuth
// @Router /loans [get]
func (h *Handler) GetMyLoans(c echo.Context) error {
	p, err := authorize(c, auth.Authenticated())
	if err != nil {
		return err
	}
	page, size, err := paging(c)
	if err != nil {
		return err
	}
	loans, err := h.svc.ListLoans(c.Request().Context(), model.LoanFilter{
		UserID: p.UserID,
		Status: model.LoanStatus(c.QueryParam("status")),
		Page:   page,
		Size:   size,
	})
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, loans)
}

// loadOwnedLoan fetches the loan and checks that the caller owns it or is staff.
func (h *Handler) loadOwnedLoan(c echo.Context) (model.LoanView, error) {
	id, err := paramID(c)
	if err != nil {
		return model.LoanView{}, err
	}
	if _, err = authorize(c, auth.Authenticated()); err != nil {
		return model.LoanView{}, err
	}
	loan, err := h.svc.GetLoan(c.Request().Context(), id)
	if err != nil {
		return model.LoanView{}, h.httpError(err)
	}
	if _, err = authorize(c, auth.OwnerOrStaff(loan.UserID)); err != nil {
		return model.LoanView{}, err
	}
	return loan, nil
}

// GetLoan godoc
// @Summary Get a loan with its projected fine
// @Tags loans
// @Produce json
// @Param id path int true "loan id"
// @Success 200 {object} model.LoanView
// @Failure 403,404 {object} errs.ErrorResponse
// @Security BearerAuth
// @Router /loans/{id} [get]
func (h *Handler) GetLoan(c echo.Context) error {
	loan, err := h.loadOwnedLoan(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loan)
}

func (h *Handler) RenewLoan(c echo.Context) error {
	loan, err := h.loadOwnedLoan(c)
	if err != nil {
		return err
	}
	renewed, err := h.svc.Renew(c.Request().Context(), loan.ID)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, renewed)
}

// ReturnLoan godoc
// @Summary Return a loan and persist its fine
// @Tags loans
// @Produce json
// @Param id path int true "loan id"
// @Success 200 {object} model.Loan
// @Failure 403,404,409 {object} errs.ErrorResponse
// @Security BearerAuth
// @Router /loans/{id}/return [post]
func (h *Handler) ReturnLoan(c echo.Context) error {
	loan, err := h.loadOwnedLoan(c)
	if err != nil {
		return err
	}
	returned, err := h.svc.ReturnLoan(c.Request().Context(), loan.ID)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, returned)
}

func (h *Handler) GetLoanFine(c echo.Context) error {
	loan, err := h.loadOwnedLoan(c)
	if err != nil {
		return err
	}
	amount, err := h.svc.CalculatedFine(c.Request().Context(), loan.ID)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, struct {
		LoanID int64           `json:"loanId"`
		Fine   decimal.Decimal `json:"fine"`
	}{LoanID: loan.ID, Fine: amount})
}

func (h *Handler) PayFines(c echo.Context) error {
	p, err := authorize(c, auth.Authenticated())
	if err != nil {
		return err
	}
	settled, err := h.svc.PayFines(c.Request().Context(), p.UserID)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"settled": settled})
}

func (h *Handler) GetMySummary(c echo.Context) error {
	p, err := authorize(c, auth.Authenticated())
	if err != nil {
		return err
	}
	summary, err := h.svc.UserSummary(c.Request().Context(), p.UserID)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, summary)
}
