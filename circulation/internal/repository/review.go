package repository

import (
	"context"
	"fmt"

	"github.com/Astemirdum/library-circulation/circulation/internal/errs"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

var reviewColumns = []string{"r.id", "r.book_id", "r.user_id", "u.username", "r.rating", "r.comment", "r.created_at"}

func reviewsFrom() sq.SelectBuilder {
	return qb.Select(reviewColumns...).
		From(reviewsTableName + " r").
		Join(usersTableName + " u on u.id = r.user_id")
}

// CreateReview inserts the review. A second review of the same book by the
// same user violates reviews_book_user_key and comes back as ErrConflict.
func (r *queries) CreateReview(ctx context.Context, rv model.Review) (model.Review, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
insert into reviews (book_id, user_id, rating, comment)
values (@book_id, @user_id, @rating, @comment)
returning id`,
		pgx.NamedArgs{
			"book_id": rv.BookID,
			"user_id": rv.UserID,
			"rating":  rv.Rating,
			"comment": rv.Comment,
		},
	).Scan(&id)
	if err != nil {
		return model.Review{}, mapErr(err)
	}
	return r.GetReview(ctx, id)
}

func (r *queries) GetReview(ctx context.Context, id int64) (model.Review, error) {
	query, args, err := reviewsFrom().Where(sq.Eq{"r.id": id}).ToSql()
	if err != nil {
		return model.Review{}, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return model.Review{}, err
	}
	defer rows.Close()

	review, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Review])
	if err != nil {
		return model.Review{}, mapErr(err)
	}
	return review, nil
}

func (r *queries) ListReviews(ctx context.Context, filter model.ReviewFilter) ([]model.Review, error) {
	q := reviewsFrom().OrderBy("r.created_at desc", "r.id desc")
	if filter.BookID != 0 {
		q = q.Where(sq.Eq{"r.book_id": filter.BookID})
	}
	if filter.UserID != 0 {
		q = q.Where(sq.Eq{"r.user_id": filter.UserID})
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

	reviews, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Review])
	if err != nil {
		return nil, fmt.Errorf("pgx.CollectRows: %w", err)
	}
	return reviews, nil
}

func (r *queries) DeleteReview(ctx context.Context, id int64) error {
	query, args, err := qb.Delete(reviewsTableName).Where(sq.Eq{"id": id}).ToSql()
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
