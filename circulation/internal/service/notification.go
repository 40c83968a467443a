package service

import (
	"context"

	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/pkg/errors"
)

func (s *Service) ListNotifications(ctx context.Context, userID int64, page, size int) (model.ListNotifications, error) {
	items, err := s.repo.ListNotifications(ctx, userID, page, size)
	if err != nil {
		return model.ListNotifications{}, errors.Wrap(err, "list notifications")
	}
	total, err := s.repo.CountNotifications(ctx, userID)
	if err != nil {
		return model.ListNotifications{}, errors.Wrap(err, "count notifications")
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return model.ListNotifications{}, errors.Wrap(err, "count unread")
	}
	return model.ListNotifications{
		Paging: model.Paging{
			Page:          page,
			PageSize:      size,
			TotalElements: total,
		},
		Unread: unread,
		Items:  items,
	}, nil
}

func (s *Service) CountUnread(ctx context.Context, userID int64) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, id int64) error {
	return s.repo.MarkRead(ctx, userID, id)
}

func (s *Service) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}
