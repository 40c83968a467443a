package repository

import (
	"context"
	"fmt"

	"github.com/Astemirdum/library-circulation/circulation/internal/errs"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

var reservationColumns = []string{"id", "book_id", "user_id", "reservation_date", "status"}

func (r *queries) CreateReservation(ctx context.Context, res model.Reservation) (model.Reservation, error) {
	query, args, err := qb.Insert(reservationsTableName).
		Columns("book_id", "user_id", "reservation_date", "status").
		Values(res.BookID, res.UserID, res.ReservationDate, res.Status).
		Suffix("returning id, book_id, user_id, reservation_date, status").
		ToSql()
	if err != nil {
		return model.Reservation{}, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return model.Reservation{}, mapErr(err)
	}
	defer rows.Close()

	created, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Reservation])
	if err != nil {
		return model.Reservation{}, mapErr(err)
	}
	return created, nil
}

func (r *queries) GetReservation(ctx context.Context, id int64) (model.Reservation, error) {
	return r.getReservation(ctx, id, false)
}

func (r *queries) LockReservation(ctx context.Context, id int64) (model.Reservation, error) {
	return r.getReservation(ctx, id, true)
}

func (r *queries) getReservation(ctx context.Context, id int64, lock bool) (model.Reservation, error) {
	q := qb.Select(reservationColumns...).
		From(reservationsTableName).
		Where(sq.Eq{"id": id})
	if lock {
		q = q.Suffix("for update")
	}
	query, args, err := q.ToSql()
	if err != nil {
		return model.Reservation{}, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return model.Reservation{}, err
	}
	defer rows.Close()

	res, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Reservation])
	if err != nil {
		return model.Reservation{}, mapErr(err)
	}
	return res, nil
}

func (r *queries) UpdateReservationStatus(ctx context.Context, id int64, status model.ReservationStatus) error {
	query, args, err := qb.Update(reservationsTableName).
		Set("status", status).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *queries) ListReservations(ctx context.Context, userID int64) ([]model.Reservation, error) {
	q := qb.Select(reservationColumns...).
		From(reservationsTableName).
		OrderBy("reservation_date desc", "id desc")
	if userID != 0 {
		q = q.Where(sq.Eq{"user_id": userID})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Reservation])
	if err != nil {
		return nil, fmt.Errorf("pgx.CollectRows: %w", err)
	}
	return items, nil
}
