package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	loanColumns = []string{
		"id", "book_id", "user_id", "issue_date", "return_date", "actual_return_date",
		"fine_amount", "payment_status", "status", "notes",
	}
	loanDetailColumns = []string{
		"l.id", "l.book_id", "l.user_id", "l.issue_date", "l.return_date", "l.actual_return_date",
		"l.fine_amount", "l.payment_status", "l.status", "l.notes",
		"b.title as book_title", "u.username", "u.email",
	}
)

func selectLoanDetails() sq.SelectBuilder {
	return qb.Select(loanDetailColumns...).
		From(loansTableName + " l").
		Join(fmt.Sprintf("%s b on b.id = l.book_id", booksTableName)).
		Join(fmt.Sprintf("%s u on u.id = l.user_id", usersTableName))
}

func (r *queries) GetLoan(ctx context.Context, id int64) (model.LoanDetail, error) {
	query, args, err := selectLoanDetails().
		Where(sq.Eq{"l.id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.LoanDetail{}, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return model.LoanDetail{}, err
	}
	defer rows.Close()

	loan, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.LoanDetail])
	if err != nil {
		return model.LoanDetail{}, mapErr(err)
	}
	return loan, nil
}

func (r *queries) LockLoan(ctx context.Context, id int64) (model.Loan, error) {
	query, args, err := qb.Select(loanColumns...).
		From(loansTableName).
		Where(sq.Eq{"id": id}).
		Suffix("for update").
		ToSql()
	if err != nil {
		return model.Loan{}, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return model.Loan{}, err
	}
	defer rows.Close()

	loan, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Loan])
	if err != nil {
		return model.Loan{}, mapErr(err)
	}
	return loan, nil
}

func (r *queries) CreateLoan(ctx context.Context, loan model.Loan) (model.Loan, error) {
	query, args, err := qb.Insert(loansTableName).
		Columns("book_id", "user_id", "issue_date", "return_date", "fine_amount", "payment_status", "status", "notes").
		Values(loan.BookID, loan.UserID, loan.IssueDate, loan.ReturnDate, loan.FineAmount, loan.PaymentStatus, loan.Status, loan.Notes).
		Suffix("returning " + strings.Join(loanColumns, ", ")).
		ToSql()
	if err != nil {
		return model.Loan{}, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return model.Loan{}, mapErr(err)
	}
	defer rows.Close()

	created, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Loan])
	if err != nil {
		r.log.Error("CreateLoan", zap.String("q", query), zap.Any("args", args))
		return model.Loan{}, mapErr(err)
	}
	return created, nil
}

// UpdateLoan writes the mutable loan fields. issue_date, book_id and user_id never change.
func (r *queries) UpdateLoan(ctx context.Context, loan model.Loan) error {
	q := `
update loans
    set return_date = @return_date,
        actual_return_date = @actual_return_date,
        fine_amount = @fine_amount,
        payment_status = @payment_status,
        status = @status,
        notes = @notes
where id = @id`
	args := pgx.NamedArgs{
		"id":                 loan.ID,
		"return_date":        loan.ReturnDate,
		"actual_return_date": loan.ActualReturnDate,
		"fine_amount":        loan.FineAmount,
		"payment_status":     loan.PaymentStatus,
		"status":             loan.Status,
		"notes":              loan.Notes,
	}
	tag, err := r.db.Exec(ctx, q, args)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(mapErr(pgx.ErrNoRows), "loan %d", loan.ID)
	}
	return nil
}

func (r *queries) ListLoans(ctx context.Context, filter model.LoanFilter) ([]model.LoanDetail, error) {
	q := selectLoanDetails().OrderBy("l.issue_date desc", "l.id desc")
	if filter.UserID != 0 {
		q = q.Where(sq.Eq{"l.user_id": filter.UserID})
	}
	if filter.Status != "" {
		q = q.Where(sq.Eq{"l.status": filter.Status})
	}
	query, args, err := pageOf(q, filter.Page, filter.Size).ToSql()
	if err != nil {
		return nil, err
	}
	r.log.Debug("ListLoans", zap.String("query", query), zap.Any("args", args))

	return r.collectLoanDetails(ctx, query, args)
}

// ListOpenLoans returns loans that still hold a copy: approved or active and not returned.
func (r *queries) ListOpenLoans(ctx context.Context) ([]model.LoanDetail, error) {
	query, args, err := selectLoanDetails().
		Where(sq.Eq{"l.actual_return_date": nil}).
		Where(sq.Eq{"l.status": []model.LoanStatus{model.LoanApproved, model.LoanActive}}).
		OrderBy("l.return_date", "l.id").
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.collectLoanDetails(ctx, query, args)
}

func (r *queries) collectLoanDetails(ctx context.Context, query string, args []any) ([]model.LoanDetail, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loans, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.LoanDetail])
	if err != nil {
		return nil, fmt.Errorf("pgx.CollectRows: %w", err)
	}
	return loans, nil
}

// SettleFines marks every fined, unpaid loan of the user as paid.
func (r *queries) SettleFines(ctx context.Context, userID int64) (int64, error) {
	q := `
update loans
    set payment_status = 'paid'
where user_id = @user_id
  and fine_amount > 0
  and payment_status in ('pending', 'overdue')`
	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
