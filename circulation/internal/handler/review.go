package handler

import (
	"net/http"

	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/Astemirdum/library-circulation/pkg/auth"
	"github.com/labstack/echo/v4"
)

// CreateReview godoc
// @Summary Review a book
// @Tags reviews
// @Accept json
// @Produce json
// @Param id path int true "book id"
// @Param review body model.CreateReviewRequest true "rating 1..5 and comment"
// @Success 201 {object} model.Review
// @Failure 400,404,409 {object} errs.ErrorResponse
// @Security BearerAuth
// @Router /books/{id}/reviews [post]
func (h *Handler) CreateReview(c echo.Context) error {
	p, err := authorize(c, auth.Authenticated())
	if err != nil {
		return err
	}
	bookID, err := paramID(c)
	if err != nil {
		return err
	}
	var req model.CreateReviewRequest
	if err = bindValid(c, &req); err != nil {
		return err
	}
	review, err := h.svc.CreateReview(c.Request().Context(), bookID, p.UserID, req)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusCreated, review)
}

func (h *Handler) GetBookReviews(c echo.Context) error {
	if _, err := authorize(c, auth.Authenticated()); err != nil {
		return err
	}
	bookID, err := paramID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListReviews(c.Request().Context(), model.ReviewFilter{BookID: bookID})
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetMyReviews(c echo.Context) error {
	p, err := authorize(c, auth.Authenticated())
	if err != nil {
		return err
	}
	items, err := h.svc.ListReviews(c.Request().Context(), model.ReviewFilter{UserID: p.UserID})
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

// DeleteReview lets the author or staff remove a review.
func (h *Handler) DeleteReview(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	review, err := h.svc.GetReview(ctx, id)
	if err != nil {
		return h.httpError(err)
	}
	if _, err = authorize(c, auth.OwnerOrStaff(review.UserID)); err != nil {
		return err
	}
	if err = h.svc.DeleteReview(ctx, id); err != nil {
		return h.httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
