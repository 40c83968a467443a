package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Astemirdum/library-circulation/circulation/internal/errs"
	_ "github.com/Astemirdum/library-circulation/docs"
	"github.com/Astemirdum/library-circulation/pkg/auth"
	md "github.com/Astemirdum/library-circulation/pkg/middleware"
	"github.com/Astemirdum/library-circulation/pkg/validate"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"
)

type Handler struct {
	svc     LibraryService
	authCfg auth.Config
	log     *zap.Logger
}

func New(svc LibraryService, authCfg auth.Config, log *zap.Logger) *Handler {
	return &Handler{
		svc:     svc,
		authCfg: authCfg,
		log:     log.Named("handler"),
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", md.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)
	base.GET("/swagger/*", echoSwagger.WrapHandler)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig(h.log)),
		middleware.RequestID(),
		md.NewRateLimiter(apiRPS),
		md.JwtAuthentication(h.authCfg),
	)

	api.POST("/loans", h.CreateLoan)
	api.GET("/loans", h.GetMyLoans)
	api.GET("/loans/:id", h.GetLoan)
	api.POST("/loans/:id/renew", h.RenewLoan)
	api.POST("/loans/:id/return", h.ReturnLoan)
	api.GET("/loans/:id/fine", h.GetLoanFine)
	api.POST("/fines/pay", h.PayFines)
	api.GET("/me/summary", h.GetMySummary)

	api.GET("/books", h.GetBooks)
	api.GET("/books/:id", h.GetBook)
	api.GET("/categories", h.GetCategories)

	api.POST("/books/:id/reviews", h.CreateReview)
	api.GET("/books/:id/reviews", h.GetBookReviews)
	api.GET("/reviews", h.GetMyReviews)
	api.DELETE("/reviews/:id", h.DeleteReview)

	api.POST("/books/:id/reservations", h.CreateReservation)
	api.GET("/reservations", h.GetMyReservations)
	api.POST("/reservations/:id/cancel", h.CancelReservation)

	api.GET("/notifications", h.GetNotifications)
	api.GET("/notifications/unread-count", h.GetUnreadCount)
	api.POST("/notifications/:id/read", h.MarkNotificationRead)
	api.POST("/notifications/read-all", h.MarkAllNotificationsRead)

	admin := api.Group("/admin")
	admin.GET("/loans", h.AdminListLoans)
	admin.POST("/loans/:id/approve", h.ApproveLoan)
	admin.POST("/loans/:id/reject", h.RejectLoan)
	admin.GET("/fines", h.AdminListFines)
	admin.POST("/sweep", h.RunSweep)
	admin.POST("/books", h.CreateBook)
	admin.PUT("/books/:id", h.UpdateBook)
	admin.DELETE("/books/:id", h.DeleteBook)
	admin.POST("/categories", h.CreateCategory)
	admin.PUT("/categories/:id", h.UpdateCategory)
	admin.DELETE("/categories/:id", h.DeleteCategory)
	admin.GET("/users", h.AdminListUsers)
	admin.POST("/users", h.CreateUser)
	admin.PUT("/users/:id", h.UpdateUser)
	admin.POST("/users/:id/toggle-active", h.ToggleUserActive)
	admin.POST("/reservations/:id/fulfil", h.FulfilReservation)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// httpError maps service errors onto status codes.
func (h *Handler) httpError(err error) error {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, errs.ErrInvalidTransition),
		errors.Is(err, errs.ErrInventoryExhausted),
		errors.Is(err, errs.ErrConflict):
		code = http.StatusConflict
	case errors.Is(err, errs.ErrValidation):
		code = http.StatusBadRequest
	case errors.Is(err, errs.ErrForbidden):
		code = http.StatusForbidden
	}
	if code == http.StatusInternalServerError {
		h.log.Error("request failed", zap.Error(err))
	}
	return echo.NewHTTPError(code, err.Error())
}

// authorize runs the requirements against the caller and turns a denial into 401 or 403.
func authorize(c echo.Context, reqs ...auth.Requirement) (auth.Principal, error) {
	ctx := c.Request().Context()
	p, ok := auth.FromContext(ctx)
	if !ok {
		return auth.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	if d := auth.Authorize(ctx, reqs...); !d.Allowed {
		return auth.Principal{}, echo.NewHTTPError(http.StatusForbidden, d.Reason)
	}
	return p, nil
}

func paramID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "id is invalid")
	}
	return id, nil
}

func paging(c echo.Context) (page, size int, err error) {
	if pageParam := c.QueryParam("page"); pageParam != "" {
		if page, err = strconv.Atoi(pageParam); err != nil || page < 0 {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "page is invalid")
		}
	}
	if sizeParam := c.QueryParam("size"); sizeParam != "" {
		if size, err = strconv.Atoi(sizeParam); err != nil || size < 0 {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "size is invalid")
		}
	}
	return page, size, nil
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	return d, nil
}

func bindValid(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
