package dummydb

import (
	"context"
	"sort"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core/notification"
)

type notificationRepository struct {
	db *table[notification.Notification]
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) notification.Repository {
	return &notificationRepository{db: db.notification}
}

func newestFirst(a, b notification.Notification) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func (repo *notificationRepository) Add(_ context.Context, n notification.Notification) (notification.Notification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	n.ID = newID()
	repo.db.rows[n.ID] = n
	return n, nil
}

func (repo *notificationRepository) List(_ context.Context, userID string, filter notification.ListFilter) ([]notification.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	keep := func(n notification.Notification) bool {
		return n.UserID == userID && (!filter.UnreadOnly || !n.Read)
	}
	res := repo.db.all(keep, newestFirst)
	if filter.Limit > 0 && len(res) > filter.Limit {
		res = res[:filter.Limit]
	}
	return res, nil
}

func (repo *notificationRepository) UnreadCount(_ context.Context, userID string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var count int
	for _, n := range repo.db.rows {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (repo *notificationRepository) MarkRead(_ context.Context, userID, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	n, ok := repo.db.rows[id]
	if !ok || n.UserID != userID {
		return notification.ErrNotFound
	}
	n.Read = true
	repo.db.rows[id] = n
	return nil
}

func (repo *notificationRepository) MarkAllRead(_ context.Context, userID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for id, n := range repo.db.rows {
		if n.UserID == userID && !n.Read {
			n.Read = true
			repo.db.rows[id] = n
		}
	}
	return nil
}

func (repo *notificationRepository) Trim(_ context.Context, userID string, max int) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	feed := repo.db.all(func(n notification.Notification) bool { return n.UserID == userID }, newestFirst)
	if len(feed) <= max {
		return 0, nil
	}
	for _, n := range feed[max:] {
		delete(repo.db.rows, n.ID)
	}
	return len(feed) - max, nil
}

func (repo *notificationRepository) Users(_ context.Context) ([]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	seen := make(map[string]bool)
	ids := make([]string, 0)
	for _, n := range repo.db.rows {
		if !seen[n.UserID] {
			seen[n.UserID] = true
			ids = append(ids, n.UserID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
