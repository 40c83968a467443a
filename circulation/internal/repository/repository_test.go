package repository

import (
	"context"
	"testing"

	"github.com/Astemirdum/library-circulation/circulation/internal/errs"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMapErr(t *testing.T) {
	t.Parallel()
	plain := errors.New("connection reset")
	tests := []struct {
		name    string
		err     error
		wantErr error
		wantMsg string
	}{
		{name: "nil", err: nil, wantErr: nil},
		{name: "no rows", err: pgx.ErrNoRows, wantErr: errs.ErrNotFound},
		{name: "wrapped no rows", err: errors.Wrap(pgx.ErrNoRows, "scan"), wantErr: errs.ErrNotFound},
		{
			name:    "unique violation",
			err:     &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "reviews_book_user_key"},
			wantErr: errs.ErrConflict,
			wantMsg: "reviews_book_user_key",
		},
		{
			name:    "available out of range",
			err:     &pgconn.PgError{Code: pgerrcode.CheckViolation, ConstraintName: booksAvailableRange},
			wantErr: errs.ErrInventoryExhausted,
		},
		{
			name:    "rating out of range",
			err:     &pgconn.PgError{Code: pgerrcode.CheckViolation, ConstraintName: "reviews_rating_range"},
			wantErr: errs.ErrValidation,
			wantMsg: "reviews_rating_range",
		},
		{
			name:    "foreign key",
			err:     &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: "loans_book_id_fkey"},
			wantErr: errs.ErrNotFound,
			wantMsg: "loans_book_id_fkey",
		},
		{name: "other pg error", err: &pgconn.PgError{Code: pgerrcode.DeadlockDetected}, wantErr: nil},
		{name: "plain error", err: plain, wantErr: plain},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := mapErr(tt.err)
			switch {
			case tt.err == nil:
				require.NoError(t, got)
			case tt.wantErr == nil:
				require.Same(t, tt.err, got)
			default:
				require.ErrorIs(t, got, tt.wantErr)
			}
			if tt.wantMsg != "" {
				require.Contains(t, got.Error(), tt.wantMsg)
			}
		})
	}
}

type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

// fakeDB answers Exec and QueryRow from canned results and records the SQL it saw.
type fakeDB struct {
	tag      pgconn.CommandTag
	execErr  error
	row      func(dest ...any) error
	executed []string
}

func (db *fakeDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	db.executed = append(db.executed, sql)
	return db.tag, db.execErr
}

func (db *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("query is not supported")
}

func (db *fakeDB) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	db.executed = append(db.executed, sql)
	if db.row == nil {
		return fakeRow{scan: func(...any) error { return pgx.ErrNoRows }}
	}
	return fakeRow{scan: db.row}
}

func newQueries(db *fakeDB) *queries {
	return &queries{db: db, log: zap.NewNop()}
}

func scanValue[T any](v T) func(dest ...any) error {
	return func(dest ...any) error {
		*dest[0].(*T) = v
		return nil
	}
}

func TestAdjustAvailable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tests := []struct {
		name    string
		db      *fakeDB
		delta   int
		wantErr error
	}{
		{name: "ok", db: &fakeDB{tag: pgconn.NewCommandTag("UPDATE 1")}, delta: -1},
		{
			name:    "no copies left",
			db:      &fakeDB{tag: pgconn.NewCommandTag("UPDATE 0"), row: scanValue(true)},
			delta:   -1,
			wantErr: errs.ErrInventoryExhausted,
		},
		{
			name:    "above quantity",
			db:      &fakeDB{tag: pgconn.NewCommandTag("UPDATE 0"), row: scanValue(true)},
			delta:   1,
			wantErr: errs.ErrConflict,
		},
		{
			name:    "missing book",
			db:      &fakeDB{tag: pgconn.NewCommandTag("UPDATE 0"), row: scanValue(false)},
			delta:   -1,
			wantErr: errs.ErrNotFound,
		},
		{
			name:    "check constraint",
			db:      &fakeDB{execErr: &pgconn.PgError{Code: pgerrcode.CheckViolation, ConstraintName: booksAvailableRange}},
			delta:   -1,
			wantErr: errs.ErrInventoryExhausted,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := newQueries(tt.db).AdjustAvailable(ctx, 3, tt.delta)
			if tt.wantErr == nil {
				require.NoError(t, err)
				require.Len(t, tt.db.executed, 1)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAppendNotification(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	key := "loan:1:due_in_2:2024-01-13"
	n := model.Notification{UserID: 7, Type: model.NotificationDueSoon, Title: "Reminder", DedupeKey: &key}

	db := &fakeDB{row: scanValue(int64(42))}
	inserted, err := newQueries(db).AppendNotification(ctx, n)
	require.NoError(t, err)
	require.True(t, inserted)
	require.Contains(t, db.executed[0], "on conflict (dedupe_key) do nothing")

	// the conflict clause suppresses the insert, so returning yields no row
	db = &fakeDB{}
	inserted, err = newQueries(db).AppendNotification(ctx, n)
	require.NoError(t, err)
	require.False(t, inserted)

	db = &fakeDB{row: func(...any) error {
		return &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: "notifications_user_id_fkey"}
	}}
	_, err = newQueries(db).AppendNotification(ctx, n)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestCountNotifications(t *testing.T) {
	t.Parallel()
	db := &fakeDB{row: scanValue(5)}
	n, err := newQueries(db).CountNotifications(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Contains(t, db.executed[0], "count(*)")
	require.Contains(t, db.executed[0], "user_id = $1")
}

func TestZeroRowsIsNotFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tests := []struct {
		name string
		run  func(q *queries) error
	}{
		{name: "update user", run: func(q *queries) error { return q.UpdateUser(ctx, model.User{ID: 9}) }},
		{name: "update category", run: func(q *queries) error { return q.UpdateCategory(ctx, model.Category{ID: 9, Name: "x"}) }},
		{name: "delete category", run: func(q *queries) error { return q.DeleteCategory(ctx, 9) }},
		{name: "delete review", run: func(q *queries) error { return q.DeleteReview(ctx, 9) }},
		{name: "delete book", run: func(q *queries) error { return q.DeleteBook(ctx, 9) }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			db := &fakeDB{tag: pgconn.NewCommandTag("UPDATE 0")}
			require.ErrorIs(t, tt.run(newQueries(db)), errs.ErrNotFound)

			db = &fakeDB{tag: pgconn.NewCommandTag("UPDATE 1")}
			require.NoError(t, tt.run(newQueries(db)))
		})
	}
}
