package handler

import (
	"context"
	"time"

	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/Astemirdum/library-circulation/circulation/internal/service"
	"github.com/shopspring/decimal"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type LibraryService interface {
	RequestLoan(ctx context.Context, bookID, userID int64, dueDate time.Time) (model.Loan, error)
	Approve(ctx context.Context, loanID int64) (model.Loan, error)
	Reject(ctx context.Context, loanID int64) (model.Loan, error)
	Renew(ctx context.Context, loanID int64) (model.Loan, error)
	ReturnLoan(ctx context.Context, loanID int64) (model.Loan, error)
	CalculatedFine(ctx context.Context, loanID int64) (decimal.Decimal, error)
	PayFines(ctx context.Context, userID int64) (int64, error)
	GetLoan(ctx context.Context, loanID int64) (model.LoanView, error)
	ListLoans(ctx context.Context, filter model.LoanFilter) ([]model.LoanView, error)
	ListOverdue(ctx context.Context) ([]model.LoanView, error)
	UserSummary(ctx context.Context, userID int64) (model.UserSummary, error)
	RunDueDateSweep(ctx context.Context, now time.Time) (model.SweepResult, error)

	CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error)
	GetBook(ctx context.Context, id int64) (model.Book, error)
	ListBooks(ctx context.Context, filter model.BookFilter) (model.ListBooks, error)
	UpdateBook(ctx context.Context, id int64, req model.UpdateBookRequest) (model.Book, error)
	DeleteBook(ctx context.Context, id int64) error
	CreateCategory(ctx context.Context, c model.Category) (model.Category, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	UpdateCategory(ctx context.Context, id int64, req model.UpdateCategoryRequest) (model.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	CreateUser(ctx context.Context, req model.CreateUserRequest) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, id int64, req model.UpdateUserRequest) (model.User, error)
	ToggleUserActive(ctx context.Context, id int64) (model.User, error)

	CreateReview(ctx context.Context, bookID, userID int64, req model.CreateReviewRequest) (model.Review, error)
	GetReview(ctx context.Context, id int64) (model.Review, error)
	ListReviews(ctx context.Context, filter model.ReviewFilter) ([]model.Review, error)
	DeleteReview(ctx context.Context, id int64) error

	Reserve(ctx context.Context, bookID, userID int64) (model.Reservation, error)
	GetReservation(ctx context.Context, id int64) (model.Reservation, error)
	ListReservations(ctx context.Context, userID int64) ([]model.Reservation, error)
	CancelReservation(ctx context.Context, id int64) (model.Reservation, error)
	FulfilReservation(ctx context.Context, id int64, dueDate time.Time) (model.Loan, error)

	ListNotifications(ctx context.Context, userID int64, page, size int) (model.ListNotifications, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
	MarkRead(ctx context.Context, userID, id int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
}

var _ LibraryService = (*service.Service)(nil)
