package service

import (
	"context"

	"github.com/Astemirdum/library-circulation/circulation/internal/errs"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// CreateReview records the user's rating of a book. A second review of the
// same book by the same user is a conflict.
func (s *Service) CreateReview(ctx context.Context, bookID, userID int64, req model.CreateReviewRequest) (model.Review, error) {
	if req.Rating < model.MinRating || req.Rating > model.MaxRating {
		return model.Review{}, errors.Wrapf(errs.ErrValidation,
			"rating must be between %d and %d", model.MinRating, model.MaxRating)
	}
	book, err := s.repo.GetBook(ctx, bookID)
	if err != nil {
		return model.Review{}, errors.Wrapf(err, "review book %d", bookID)
	}
	review, err := s.repo.CreateReview(ctx, model.Review{
		BookID:  bookID,
		UserID:  userID,
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		return model.Review{}, errors.Wrapf(err, "review book %d", bookID)
	}
	s.log.Info("review created", zap.Int64("review_id", review.ID), zap.String("review", review.Label(book)))
	return review, nil
}

func (s *Service) GetReview(ctx context.Context, id int64) (model.Review, error) {
	return s.repo.GetReview(ctx, id)
}

func (s *Service) ListReviews(ctx context.Context, filter model.ReviewFilter) ([]model.Review, error) {
	return s.repo.ListReviews(ctx, filter)
}

func (s *Service) DeleteReview(ctx context.Context, id int64) error {
	if err := s.repo.DeleteReview(ctx, id); err != nil {
		return errors.Wrapf(err, "delete review %d", id)
	}
	return nil
}
