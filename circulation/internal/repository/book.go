package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/Astemirdum/library-circulation/circulation/internal/errs"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var bookColumns = []string{
	"id", "title", "author", "isbn", "category_id", "quantity", "available",
	"description", "price", "publication_date", "created_at", "updated_at",
}

func (r *queries) GetBook(ctx context.Context, id int64) (model.Book, error) {
	return r.getBook(ctx, id, false)
}

func (r *queries) LockBook(ctx context.Context, id int64) (model.Book, error) {
	return r.getBook(ctx, id, true)
}

func (r *queries) getBook(ctx context.Context, id int64, lock bool) (model.Book, error) {
	q := qb.Select(bookColumns...).
		From(booksTableName).
		Where(sq.Eq{"id": id})
	if lock {
		q = q.Suffix("for update")
	}
	query, args, err := q.ToSql()
	if err != nil {
		return model.Book{}, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return model.Book{}, err
	}
	defer rows.Close()

	book, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Book])
	if err != nil {
		return model.Book{}, mapErr(err)
	}
	return book, nil
}

func bookFilter(q sq.SelectBuilder, filter model.BookFilter) sq.SelectBuilder {
	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		q = q.Where(sq.Or{
			sq.ILike{"title": pattern},
			sq.ILike{"author": pattern},
			sq.ILike{"isbn": pattern},
		})
	}
	if filter.CategoryID != 0 {
		q = q.Where(sq.Eq{"category_id": filter.CategoryID})
	}
	switch filter.Availability {
	case model.AvailabilityAvailable:
		q = q.Where(sq.Gt{"available": 0})
	case model.AvailabilityUnavailable:
		q = q.Where(sq.Eq{"available": 0})
	}
	return q
}

func (r *queries) ListBooks(ctx context.Context, filter model.BookFilter) (model.ListBooks, error) {
	countQuery, countArgs, err := bookFilter(qb.Select("count(*)").From(booksTableName), filter).ToSql()
	if err != nil {
		return model.ListBooks{}, err
	}
	var total int
	if err = r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return model.ListBooks{}, err
	}

	q := bookFilter(qb.Select(bookColumns...).From(booksTableName), filter).OrderBy("title", "id")
	query, args, err := pageOf(q, filter.Page, filter.Size).ToSql()
	if err != nil {
		return model.ListBooks{}, err
	}
	r.log.Debug("ListBooks", zap.String("query", query), zap.Any("args", args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return model.ListBooks{}, err
	}
	defer rows.Close()

	books, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Book])
	if err != nil {
		return model.ListBooks{}, fmt.Errorf("pgx.CollectRows: %w", err)
	}

	return model.ListBooks{
		Paging: model.Paging{
			Page:          filter.Page,
			PageSize:      filter.Size,
			TotalElements: total,
		},
		Items: books,
	}, nil
}

func (r *queries) CreateBook(ctx context.Context, book model.Book) (model.Book, error) {
	query, args, err := qb.Insert(booksTableName).
		Columns("title", "author", "isbn", "category_id", "quantity", "available", "description", "price", "publication_date").
		Values(book.Title, book.Author, book.ISBN, book.CategoryID, book.Quantity, book.Available,
			book.Description, book.Price, book.PublicationDate).
		Suffix("returning " + strings.Join(bookColumns, ", ")).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return model.Book{}, mapErr(err)
	}
	defer rows.Close()

	created, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Book])
	if err != nil {
		return model.Book{}, mapErr(err)
	}
	return created, nil
}

func (r *queries) UpdateBook(ctx context.Context, book model.Book) error {
	q := `
update books
    set title = @title,
        author = @author,
        category_id = @category_id,
        quantity = @quantity,
        available = @available,
        description = @description,
        price = @price,
        updated_at = now()
where id = @id`
	args := pgx.NamedArgs{
		"id":          book.ID,
		"title":       book.Title,
		"author":      book.Author,
		"category_id": book.CategoryID,
		"quantity":    book.Quantity,
		"available":   book.Available,
		"description": book.Description,
		"price":       book.Price,
	}
	tag, err := r.db.Exec(ctx, q, args)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *queries) DeleteBook(ctx context.Context, id int64) error {
	query, args, err := qb.Delete(booksTableName).Where(sq.Eq{"id": id}).ToSql()
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

// AdjustAvailable shifts available by delta, refusing to leave the [0, quantity] range.
func (r *queries) AdjustAvailable(ctx context.Context, bookID int64, delta int) error {
	q := `
update books
    set available = available + @delta,
        updated_at = now()
where id = @id
  and available + @delta between 0 and quantity`
	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": bookID, "delta": delta})
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	if err = r.db.QueryRow(ctx,
		`select exists(select 1 from books where id = @id)`, pgx.NamedArgs{"id": bookID},
	).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return errors.Wrapf(errs.ErrNotFound, "book %d", bookID)
	}
	if delta < 0 {
		return errs.ErrInventoryExhausted
	}
	return errors.Wrapf(errs.ErrConflict, "book %d: available would exceed quantity", bookID)
}
