package handler

import (
	"net/http"
	"strconv"

	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/Astemirdum/library-circulation/pkg/auth"
	"github.com/labstack/echo/v4"
)

// GetBooks godoc
// @Summary List books
// @Tags books
// @Produce json
// @Param q query string false "title, author or ISBN"
// @Param category query int false "category id"
// @Param availability query string false "available or unavailable"
// @Param page query int false "page"
// @Param size query int false "size"
// @Success 200 {object} model.ListBooks
// @Security BearerAuth
// @Router /books [get]
func (h *Handler) GetBooks(c echo.Context) error {
	if _, err := authorize(c, auth.Authenticated()); err != nil {
		return err
	}
	page, size, err := paging(c)
	if err != nil {
		return err
	}
	filter := model.BookFilter{
		Query:        c.QueryParam("q"),
		Availability: model.Availability(c.QueryParam("availability")),
		Page:         page,
		Size:         size,
	}
	switch filter.Availability {
	case model.AvailabilityAny, model.AvailabilityAvailable, model.AvailabilityUnavailable:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "availability is invalid")
	}
	if categoryParam := c.QueryParam("category"); categoryParam != "" {
		if filter.CategoryID, err = strconv.ParseInt(categoryParam, 10, 64); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "category is invalid")
		}
	}
	books, err := h.svc.ListBooks(c.Request().Context(), filter)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, books)
}

func (h *Handler) GetBook(c echo.Context) error {
	if _, err := authorize(c, auth.Authenticated()); err != nil {
		return err
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}
	book, err := h.svc.GetBook(c.Request().Context(), id)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) GetCategories(c echo.Context) error {
	if _, err := authorize(c, auth.Authenticated()); err != nil {
		return err
	}
	categories, err := h.svc.ListCategories(c.Request().Context())
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, categories)
}

func (h *Handler) CreateBook(c echo.Context) error {
	if _, err := authorize(c, auth.Staff()); err != nil {
		return err
	}
	var req model.CreateBookRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	book, err := h.svc.CreateBook(c.Request().Context(), req)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusCreated, book)
}

func (h *Handler) UpdateBook(c echo.Context) error {
	if _, err := authorize(c, auth.Staff()); err != nil {
		return err
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req model.UpdateBookRequest
	if err = bindValid(c, &req); err != nil {
		return err
	}
	book, err := h.svc.UpdateBook(c.Request().Context(), id, req)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) DeleteBook(c echo.Context) error {
	if _, err := authorize(c, auth.Staff()); err != nil {
		return err
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err = h.svc.DeleteBook(c.Request().Context(), id); err != nil {
		return h.httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CreateCategory(c echo.Context) error {
	if _, err := authorize(c, auth.Staff()); err != nil {
		return err
	}
	var req model.Category
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	category, err := h.svc.CreateCategory(c.Request().Context(), req)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusCreated, category)
}

func (h *Handler) UpdateCategory(c echo.Context) error {
	if _, err := authorize(c, auth.Staff()); err != nil {
		return err
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req model.UpdateCategoryRequest
	if err = bindValid(c, &req); err != nil {
		return err
	}
	category, err := h.svc.UpdateCategory(c.Request().Context(), id, req)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, category)
}

// DeleteCategory removes the category; its books stay in the catalog uncategorised.
func (h *Handler) DeleteCategory(c echo.Context) error {
	if _, err := authorize(c, auth.Staff()); err != nil {
		return err
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err = h.svc.DeleteCategory(c.Request().Context(), id); err != nil {
		return h.httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
