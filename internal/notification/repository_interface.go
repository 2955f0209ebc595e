package notification

import "context"

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	CreateBulk(ctx context.Context, ns []Notification) error
	ListForUser(ctx context.Context, userID int, unreadOnly bool, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, userID, id int) error
	MarkAllRead(ctx context.Context, userID int) (int64, error)
	UnreadCount(ctx context.Context, userID int) (int, error)
}
