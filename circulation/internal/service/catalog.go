package service

import (
	"context"
	"time"

	"github.com/Astemirdum/library-circulation/circulation/internal/errs"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/Astemirdum/library-circulation/circulation/internal/repository"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func (s *Service) CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error) {
	book := model.Book{
		Title:       req.Title,
		Author:      req.Author,
		ISBN:        req.ISBN,
		CategoryID:  req.CategoryID,
		Quantity:    req.Quantity,
		Available:   req.Quantity,
		Description: req.Description,
		Price:       req.Price,
	}
	if req.PublicationDate != "" {
		published, err := time.Parse(dateLayout, req.PublicationDate)
		if err != nil {
			return model.Book{}, errors.Wrap(errs.ErrValidation, "publication date")
		}
		book.PublicationDate = &published
	}
	created, err := s.repo.CreateBook(ctx, book)
	if err != nil {
		return model.Book{}, errors.Wrapf(err, "create book %s", req.ISBN)
	}
	s.log.Info("book created", zap.Int64("book_id", created.ID), zap.String("book", created.Label()))
	return created, nil
}

func (s *Service) GetBook(ctx context.Context, id int64) (model.Book, error) {
	return s.repo.GetBook(ctx, id)
}

func (s *Service) ListBooks(ctx context.Context, filter model.BookFilter) (model.ListBooks, error) {
	return s.repo.ListBooks(ctx, filter)
}

// UpdateBook applies a partial edit. A quantity change moves available by the
// same delta, so copies out on loan stay accounted for.
func (s *Service) UpdateBook(ctx context.Context, id int64, req model.UpdateBookRequest) (model.Book, error) {
	var book model.Book
	err := s.repo.InTx(ctx, func(tx repository.Store) error {
		var err error
		if book, err = tx.LockBook(ctx, id); err != nil {
			return err
		}
		if req.Title != nil {
			book.Title = *req.Title
		}
		if req.Author != nil {
			book.Author = *req.Author
		}
		if req.CategoryID != nil {
			book.CategoryID = req.CategoryID
		}
		if req.Description != nil {
			book.Description = *req.Description
		}
		if req.Price != nil {
			book.Price = *req.Price
		}
		if req.Quantity != nil {
			delta := *req.Quantity - book.Quantity
			book.Quantity = *req.Quantity
			book.Available += delta
			if book.Available < 0 || book.Available > book.Quantity {
				return errors.Wrapf(errs.ErrValidation,
					"quantity %d is below the %d copies on loan", book.Quantity, book.Quantity-book.Available)
			}
		}
		return tx.UpdateBook(ctx, book)
	})
	if err != nil {
		return model.Book{}, errors.Wrapf(err, "update book %d", id)
	}
	return book, nil
}

// DeleteBook removes the book with its loans and reservations. Deleting a missing book succeeds.
func (s *Service) DeleteBook(ctx context.Context, id int64) error {
	if err := s.repo.DeleteBook(ctx, id); err != nil && !errors.Is(err, errs.ErrNotFound) {
		return errors.Wrapf(err, "delete book %d", id)
	}
	return nil
}

func (s *Service) CreateCategory(ctx context.Context, c model.Category) (model.Category, error) {
	if c.Name == "" {
		return model.Category{}, errors.Wrap(errs.ErrValidation, "category name is required")
	}
	return s.repo.CreateCategory(ctx, c)
}

func (s *Service) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.repo.ListCategories(ctx)
}

// UpdateCategory renames or re-describes a category. An empty name is rejected.
func (s *Service) UpdateCategory(ctx context.Context, id int64, req model.UpdateCategoryRequest) (model.Category, error) {
	var c model.Category
	err := s.repo.InTx(ctx, func(tx repository.Store) error {
		var err error
		if c, err = tx.LockCategory(ctx, id); err != nil {
			return err
		}
		if req.Name != nil {
			if *req.Name == "" {
				return errors.Wrap(errs.ErrValidation, "category name is required")
			}
			c.Name = *req.Name
		}
		if req.Description != nil {
			c.Description = *req.Description
		}
		return tx.UpdateCategory(ctx, c)
	})
	if err != nil {
		return model.Category{}, errors.Wrapf(err, "update category %d", id)
	}
	return c, nil
}

// DeleteCategory removes the category. Its books stay in the catalog uncategorised.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return errors.Wrapf(err, "delete category %d", id)
	}
	s.log.Info("category deleted", zap.Int64("category_id", id))
	return nil
}

func (s *Service) CreateUser(ctx context.Context, req model.CreateUserRequest) (model.User, error) {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	user, err := s.repo.CreateUser(ctx, model.User{
		Username: req.Username,
		Email:    req.Email,
		IsStaff:  req.IsStaff,
		IsActive: active,
	})
	if err != nil {
		return model.User{}, errors.Wrapf(err, "create user %s", req.Username)
	}
	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id int64) (model.User, error) {
	return s.repo.GetUser(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.repo.ListUsers(ctx)
}

// UpdateUser edits the mail address and the staff and active flags.
// An inactive user can neither request loans nor reserve books.
func (s *Service) UpdateUser(ctx context.Context, id int64, req model.UpdateUserRequest) (model.User, error) {
	return s.editUser(ctx, id, func(u *model.User) {
		if req.Email != nil {
			u.Email = *req.Email
		}
		if req.IsStaff != nil {
			u.IsStaff = *req.IsStaff
		}
		if req.IsActive != nil {
			u.IsActive = *req.IsActive
		}
	})
}

// ToggleUserActive flips the active flag.
func (s *Service) ToggleUserActive(ctx context.Context, id int64) (model.User, error) {
	return s.editUser(ctx, id, func(u *model.User) {
		u.IsActive = !u.IsActive
	})
}

func (s *Service) editUser(ctx context.Context, id int64, edit func(u *model.User)) (model.User, error) {
	var user model.User
	err := s.repo.InTx(ctx, func(tx repository.Store) error {
		var err error
		if user, err = tx.LockUser(ctx, id); err != nil {
			return err
		}
		edit(&user)
		return tx.UpdateUser(ctx, user)
	})
	if err != nil {
		return model.User{}, errors.Wrapf(err, "update user %d", id)
	}
	s.log.Info("user updated", zap.Int64("user_id", id), zap.String("user", user.Label()),
		zap.Bool("is_staff", user.IsStaff), zap.Bool("is_active", user.IsActive))
	return user, nil
}
