package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Eldan-star/ResearchCollab/internal/domain"
	"github.com/Eldan-star/ResearchCollab/internal/pkg/id"
	"github.com/Eldan-star/ResearchCollab/internal/realtime"
)

// Service manages per-user notifications: server-side creation with push and
// realtime fan-out, paged reads, and read-state updates.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*domain.Notification, error)
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) error
}

// CreateRequest carries the fields for a new notification row.
type CreateRequest struct {
	UserID        string
	Type          domain.NotificationType
	Message       string
	Link          *string
	ProjectID     *string
	ApplicationID *string
	MilestoneID   *string
}

type notificationStore interface {
	Put(ctx context.Context, n *domain.Notification) error
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) error
}

type pushPublisher interface {
	PublishNotification(ctx context.Context, n *domain.Notification) error
}

type ServiceDeps struct {
	NotificationRepo notificationStore
	Push             pushPublisher // optional
	Broker           *realtime.Broker
}

type service struct {
	repo   notificationStore
	push   pushPublisher
	broker *realtime.Broker
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.NotificationRepo, push: deps.Push, broker: deps.Broker}
}

// Create persists the notification, then best-effort publishes it to the
// user's realtime topic and the push topic. Fan-out failures are logged, not
// returned; the row is already durable.
func (s *service) Create(ctx context.Context, req CreateRequest) (*domain.Notification, error) {
	now := time.Now().UTC()
	n := &domain.Notification{
		NotificationID: id.New(),
		UserID:         req.UserID,
		Type:           req.Type,
		Message:        req.Message,
		Link:           req.Link,
		ProjectID:      req.ProjectID,
		ApplicationID:  req.ApplicationID,
		MilestoneID:    req.MilestoneID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Put(ctx, n); err != nil {
		return nil, err
	}
	if s.broker != nil {
		s.broker.Publish(realtime.UserNotificationsTopic(n.UserID), realtime.EventInsert, n)
	}
	if s.push != nil {
		if err := s.push.PublishNotification(ctx, n); err != nil {
			slog.Warn("push publish failed", "notification_id", n.NotificationID, "err", err)
		}
	}
	return n, nil
}

func (s *service) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Notification, error) {
	return s.repo.ListPage(ctx, userID, page, pageSize)
}

func (s *service) CountUnread(ctx context.Context, userID string) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead flips a single notification after verifying ownership.
func (s *service) MarkRead(ctx context.Context, userID, notificationID string) error {
	n, err := s.repo.Get(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return fmt.Errorf("notification belongs to another user: %w", domain.ErrForbidden)
	}
	return s.repo.MarkRead(ctx, notificationID)
}

func (s *service) MarkAllRead(ctx context.Context, userID string) error {
	return s.repo.MarkAllRead(ctx, userID)
}
