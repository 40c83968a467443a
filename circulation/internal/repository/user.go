package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/Astemirdum/library-circulation/circulation/internal/errs"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

var userColumns = []string{"id", "username", "email", "is_staff", "is_active", "created_at"}

func (r *queries) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	query, args, err := qb.Insert(usersTableName).
		Columns("username", "email", "is_staff", "is_active").
		Values(u.Username, u.Email, u.IsStaff, u.IsActive).
		Suffix("returning " + strings.Join(userColumns, ", ")).
		ToSql()
	if err != nil {
		return model.User{}, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return model.User{}, mapErr(err)
	}
	defer rows.Close()

	created, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.User])
	if err != nil {
		return model.User{}, mapErr(err)
	}
	return created, nil
}

func (r *queries) GetUser(ctx context.Context, id int64) (model.User, error) {
	return r.getUser(ctx, id, false)
}

func (r *queries) LockUser(ctx context.Context, id int64) (model.User, error) {
	return r.getUser(ctx, id, true)
}

func (r *queries) getUser(ctx context.Context, id int64, lock bool) (model.User, error) {
	q := qb.Select(userColumns...).
		From(usersTableName).
		Where(sq.Eq{"id": id})
	if lock {
		q = q.Suffix("for update")
	}
	query, args, err := q.ToSql()
	if err != nil {
		return model.User{}, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return model.User{}, err
	}
	defer rows.Close()

	user, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.User])
	if err != nil {
		return model.User{}, mapErr(err)
	}
	return user, nil
}

// ListUsers returns users newest first.
func (r *queries) ListUsers(ctx context.Context) ([]model.User, error) {
	query, args, err := qb.Select(userColumns...).
		From(usersTableName).
		OrderBy("created_at desc", "id desc").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.User])
	if err != nil {
		return nil, fmt.Errorf("pgx.CollectRows: %w", err)
	}
	return users, nil
}

func (r *queries) UpdateUser(ctx context.Context, u model.User) error {
	query, args, err := qb.Update(usersTableName).
		SetMap(map[string]any{
			"email":     u.Email,
			"is_staff":  u.IsStaff,
			"is_active": u.IsActive,
		}).
		Where(sq.Eq{"id": u.ID}).
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

func (r *queries) CreateCategory(ctx context.Context, c model.Category) (model.Category, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`insert into categories (name, description) values (@name, @description) returning id`,
		pgx.NamedArgs{"name": c.Name, "description": c.Description},
	).Scan(&id)
	if err != nil {
		return model.Category{}, mapErr(err)
	}
	c.ID = id
	return c, nil
}

func (r *queries) LockCategory(ctx context.Context, id int64) (model.Category, error) {
	var c model.Category
	err := r.db.QueryRow(ctx,
		`select id, name, description from categories where id = @id for update`,
		pgx.NamedArgs{"id": id},
	).Scan(&c.ID, &c.Name, &c.Description)
	if err != nil {
		return model.Category{}, mapErr(err)
	}
	return c, nil
}

func (r *queries) ListCategories(ctx context.Context) ([]model.Category, error) {
	query, args, err := qb.Select("id", "name", "description").
		From(categoriesTableName).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Category])
	if err != nil {
		return nil, fmt.Errorf("pgx.CollectRows: %w", err)
	}
	return categories, nil
}

func (r *queries) UpdateCategory(ctx context.Context, c model.Category) error {
	tag, err := r.db.Exec(ctx,
		`update categories set name = @name, description = @description where id = @id`,
		pgx.NamedArgs{"id": c.ID, "name": c.Name, "description": c.Description},
	)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// DeleteCategory removes the category; its books keep existing with no category.
func (r *queries) DeleteCategory(ctx context.Context, id int64) error {
	query, args, err := qb.Delete(categoriesTableName).Where(sq.Eq{"id": id}).ToSql()
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
