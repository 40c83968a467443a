package repository

import (
	"context"

	"github.com/Astemirdum/library-circulation/circulation/internal/errs"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Store is the set of queries available both on the pool and inside a transaction.
// Lock* methods take a row lock (SELECT ... FOR UPDATE) and are only meaningful inside InTx.
type Store interface {
	GetLoan(ctx context.Context, id int64) (model.LoanDetail, error)
	LockLoan(ctx context.Context, id int64) (model.Loan, error)
	CreateLoan(ctx context.Context, loan model.Loan) (model.Loan, error)
	UpdateLoan(ctx context.Context, loan model.Loan) error
	ListLoans(ctx context.Context, filter model.LoanFilter) ([]model.LoanDetail, error)
	ListOpenLoans(ctx context.Context) ([]model.LoanDetail, error)
	SettleFines(ctx context.Context, userID int64) (int64, error)

	GetBook(ctx context.Context, id int64) (model.Book, error)
	LockBook(ctx context.Context, id int64) (model.Book, error)
	ListBooks(ctx context.Context, filter model.BookFilter) (model.ListBooks, error)
	CreateBook(ctx context.Context, book model.Book) (model.Book, error)
	UpdateBook(ctx context.Context, book model.Book) error
	DeleteBook(ctx context.Context, id int64) error
	AdjustAvailable(ctx context.Context, bookID int64, delta int) error

	CreateCategory(ctx context.Context, c model.Category) (model.Category, error)
	LockCategory(ctx context.Context, id int64) (model.Category, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	UpdateCategory(ctx context.Context, c model.Category) error
	DeleteCategory(ctx context.Context, id int64) error

	CreateUser(ctx context.Context, u model.User) (model.User, error)
	GetUser(ctx context.Context, id int64) (model.User, error)
	LockUser(ctx context.Context, id int64) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, u model.User) error

	// AppendNotification inserts n unless another notification already carries
	// its dedupe key; inserted reports which case happened.
	AppendNotification(ctx context.Context, n model.Notification) (inserted bool, err error)
	ListNotifications(ctx context.Context, userID int64, page, size int) ([]model.Notification, error)
	CountNotifications(ctx context.Context, userID int64) (int, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
	MarkRead(ctx context.Context, userID, id int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)

	CreateReservation(ctx context.Context, r model.Reservation) (model.Reservation, error)
	GetReservation(ctx context.Context, id int64) (model.Reservation, error)
	LockReservation(ctx context.Context, id int64) (model.Reservation, error)
	UpdateReservationStatus(ctx context.Context, id int64, status model.ReservationStatus) error
	ListReservations(ctx context.Context, userID int64) ([]model.Reservation, error)

	CreateReview(ctx context.Context, r model.Review) (model.Review, error)
	GetReview(ctx context.Context, id int64) (model.Review, error)
	ListReviews(ctx context.Context, filter model.ReviewFilter) ([]model.Review, error)
	DeleteReview(ctx context.Context, id int64) error
}

type Repository interface {
	Store
	// InTx runs fn inside one transaction. Any error returned by fn rolls it back.
	InTx(ctx context.Context, fn func(tx Store) error) error
}

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type queries struct {
	db  dbtx
	log *zap.Logger
}

type repository struct {
	*queries
	pool *pgxpool.Pool
}

var _ Repository = (*repository)(nil)

func NewRepository(db *pgxpool.Pool, log *zap.Logger) (*repository, error) {
	log = log.Named("repo")
	return &repository{
		queries: &queries{db: db, log: log},
		pool:    db,
	}, nil
}

func (r *repository) InTx(ctx context.Context, fn func(tx Store) error) error {
	return pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(&queries{db: tx, log: r.log})
	})
}

const (
	usersTableName         = `users`
	categoriesTableName    = `categories`
	booksTableName         = `books`
	loansTableName         = `loans`
	reservationsTableName  = `reservations`
	notificationsTableName = `notifications`
	reviewsTableName       = `reviews`
)

const booksAvailableRange = "books_available_range"

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// mapErr translates driver errors into the errs taxonomy.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return errors.Wrap(errs.ErrConflict, pgErr.ConstraintName)
		case pgerrcode.CheckViolation:
			if pgErr.ConstraintName == booksAvailableRange {
				return errs.ErrInventoryExhausted
			}
			return errors.Wrap(errs.ErrValidation, pgErr.ConstraintName)
		case pgerrcode.ForeignKeyViolation:
			return errors.Wrap(errs.ErrNotFound, pgErr.ConstraintName)
		}
	}
	return err
}

func pageOf(q sq.SelectBuilder, page, size int) sq.SelectBuilder {
	if page != 0 && size != 0 {
		q = q.Limit(uint64(size)).Offset(uint64((page - 1) * size))
	}
	return q
}
