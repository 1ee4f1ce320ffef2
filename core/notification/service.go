package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core"
)

var (
	// errors
	ErrNotFound = errors.New("notification not found")
)

type (
	// Repository stores the notification feed of every user.
	Repository interface {
		Add(ctx context.Context, n Notification) (Notification, error)
		// List returns the notifications of the user, newest first.
		List(ctx context.Context, userID string, filter ListFilter) ([]Notification, error)
		UnreadCount(ctx context.Context, userID string) (int, error)
		// MarkRead returns ErrNotFound when the notification does not belong to the user.
		MarkRead(ctx context.Context, userID, id string) error
		MarkAllRead(ctx context.Context, userID string) error
		// Trim keeps the max newest notifications of the user and returns how many were removed.
		Trim(ctx context.Context, userID string, max int) (int, error)
		// Users returns the ids of the users having a feed.
		Users(ctx context.Context) ([]string, error)
	}

	Service struct {
		repo       Repository
		logger     core.Logger
		maxPerUser int
	}
)

func NewService(repo Repository, logger core.Logger, conf *core.Config) *Service {
	return &Service{repo: repo, logger: logger, maxPerUser: conf.NotificationsMaxPerUser}
}

// Notify delivers nn to every user. A failed delivery does not prevent the others;
// the first error is returned.
func (svc *Service) Notify(ctx context.Context, nn NewNotification, userIDs ...string) error {
	var firstErr error
	now := time.Now().UTC()
	seen := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		n := Notification{
			UserID:    id,
			Kind:      nn.Kind,
			Title:     nn.Title,
			Message:   nn.Message,
			Link:      nn.Link,
			CreatedAt: now,
		}
		if _, err := svc.repo.Add(ctx, n); err != nil {
			svc.logger.Error(fmt.Sprintf("notifying user %s: %v", id, err), err)
			if firstErr == nil {
				firstErr = errors.Wrapf(err, "notifying user %s", id)
			}
		}
	}
	return firstErr
}

func (svc *Service) List(ctx context.Context, userID string, filter ListFilter) ([]Notification, error) {
	filter.normalize()
	return svc.repo.List(ctx, userID, filter)
}

func (svc *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return svc.repo.UnreadCount(ctx, userID)
}

func (svc *Service) MarkRead(ctx context.Context, userID, id string) error {
	return svc.repo.MarkRead(ctx, userID, id)
}

func (svc *Service) MarkAllRead(ctx context.Context, userID string) error {
	return svc.repo.MarkAllRead(ctx, userID)
}

// TrimAll shrinks every feed to the configured maximum and returns the number of removed notifications.
func (svc *Service) TrimAll(ctx context.Context) (int, error) {
	if svc.maxPerUser <= 0 {
		return 0, nil
	}
	users, err := svc.repo.Users(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "listing notification feeds")
	}
	var removed int
	for _, id := range users {
		n, err := svc.repo.Trim(ctx, id, svc.maxPerUser)
		if err != nil {
			return removed, errors.Wrapf(err, "trimming feed of user %s", id)
		}
		removed += n
	}
	return removed, nil
}
