package notification

import "context"

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type Service interface {
	List(ctx context.Context, userID int, unreadOnly bool, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, userID, id int) error
	MarkAllRead(ctx context.Context, userID int) (int64, error)
	UnreadCount(ctx context.Context, userID int) (int, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) List(ctx context.Context, userID int, unreadOnly bool, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.repo.ListForUser(ctx, userID, unreadOnly, limit)
}

func (s *service) MarkRead(ctx context.Context, userID, id int) error {
	return s.repo.MarkRead(ctx, userID, id)
}

func (s *service) MarkAllRead(ctx context.Context, userID int) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *service) UnreadCount(ctx context.Context, userID int) (int, error) {
	return s.repo.UnreadCount(ctx, userID)
}
