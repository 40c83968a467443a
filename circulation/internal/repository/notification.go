package repository

import (
	"context"
	"fmt"

	"github.com/Astemirdum/library-circulation/circulation/internal/errs"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

func (r *queries) AppendNotification(ctx context.Context, n model.Notification) (bool, error) {
	query, args, err := qb.Insert(notificationsTableName).
		Columns("user_id", "notification_type", "title", "message", "link", "dedupe_key").
		Values(n.UserID, n.Type, n.Title, n.Message, n.Link, n.DedupeKey).
		Suffix("on conflict (dedupe_key) do nothing returning id").
		ToSql()
	if err != nil {
		return false, err
	}
	var id int64
	if err = r.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, mapErr(err)
	}
	return true, nil
}

func (r *queries) ListNotifications(ctx context.Context, userID int64, page, size int) ([]model.Notification, error) {
	q := qb.Select("id", "user_id", "notification_type", "title", "message", "link", "is_read", "created_at", "dedupe_key").
		From(notificationsTableName).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at desc", "id desc")
	query, args, err := pageOf(q, page, size).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Notification])
	if err != nil {
		return nil, fmt.Errorf("pgx.CollectRows: %w", err)
	}
	return items, nil
}

func (r *queries) CountNotifications(ctx context.Context, userID int64) (int, error) {
	query, args, err := qb.Select("count(*)").
		From(notificationsTableName).
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err = r.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *queries) CountUnread(ctx context.Context, userID int64) (int, error) {
	query, args, err := qb.Select("count(*)").
		From(notificationsTableName).
		Where(sq.Eq{"user_id": userID, "is_read": false}).
		ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err = r.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// MarkRead flags one of the user's notifications. Someone else's notification is reported as not found.
func (r *queries) MarkRead(ctx context.Context, userID, id int64) error {
	query, args, err := qb.Update(notificationsTableName).
		Set("is_read", true).
		Where(sq.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *queries) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	query, args, err := qb.Update(notificationsTableName).
		Set("is_read", true).
		Where(sq.Eq{"user_id": userID, "is_read": false}).
		ToSql()
	if err != nil {
		return 0, err
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
