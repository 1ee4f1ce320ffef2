package redisstore

import (
	"context"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core/notification"
)

const (
	usersKey           = "notifications:users" // Set: ids of the users having a feed
	notificationPrefix = "notification:"       // Hash prefix: notification:{id} -> fields of the notification
	feedPrefix         = "notifications:"      // Sorted set prefix: notifications:{user} -> ids scored by creation time
	unreadSuffix       = ":unread"             // Set suffix: notifications:{user}:unread -> ids not read yet
)

func notificationKey(id string) string {
	return notificationPrefix + id
}

func feedKey(userID string) string {
	return feedPrefix + userID
}

func unreadKey(userID string) string {
	return feedPrefix + userID + unreadSuffix
}

type notificationRepository struct {
	client *redis.Client
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(client *redis.Client) notification.Repository {
	return &notificationRepository{client: client}
}

func toHash(n notification.Notification) map[string]interface{} {
	read := "0"
	if n.Read {
		read = "1"
	}
	return map[string]interface{}{
		"id":         n.ID,
		"user_id":    n.UserID,
		"kind":       string(n.Kind),
		"title":      n.Title,
		"message":    n.Message,
		"link":       n.Link,
		"read":       read,
		"created_at": n.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func fromHash(h map[string]string) (notification.Notification, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, h["created_at"])
	if err != nil {
		return notification.Notification{}, errors.Wrapf(err, "parsing created_at of notification %s", h["id"])
	}
	return notification.Notification{
		ID:        h["id"],
		UserID:    h["user_id"],
		Kind:      notification.Kind(h["kind"]),
		Title:     h["title"],
		Message:   h["message"],
		Link:      h["link"],
		Read:      h["read"] == "1",
		CreatedAt: createdAt.UTC(),
	}, nil
}

func (repo *notificationRepository) Add(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	n.ID = uuid.New().String()
	n.Read = false

	pipe := repo.client.TxPipeline()
	pipe.HSet(ctx, notificationKey(n.ID), toHash(n))
	pipe.ZAdd(ctx, feedKey(n.UserID), &redis.Z{Score: float64(n.CreatedAt.UnixMicro()), Member: n.ID})
	pipe.SAdd(ctx, unreadKey(n.UserID), n.ID)
	pipe.SAdd(ctx, usersKey, n.UserID)
	if _, err := pipe.Exec(ctx); err != nil {
		return notification.Notification{}, errors.Wrap(err, "adding notification")
	}
	return n, nil
}

// load fetches the notifications with the given ids, keeping their order. Missing hashes are skipped.
func (repo *notificationRepository) load(ctx context.Context, ids []string) ([]notification.Notification, error) {
	if len(ids) == 0 {
		return []notification.Notification{}, nil
	}
	pipe := repo.client.Pipeline()
	cmds := make([]*redis.StringStringMapCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, notificationKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, errors.Wrap(err, "loading notifications")
	}

	res := make([]notification.Notification, 0, len(ids))
	for _, cmd := range cmds {
		h := cmd.Val()
		if len(h) == 0 {
			continue
		}
		n, err := fromHash(h)
		if err != nil {
			return nil, err
		}
		res = append(res, n)
	}
	return res, nil
}

func (repo *notificationRepository) List(ctx context.Context, userID string, filter notification.ListFilter) ([]notification.Notification, error) {
	ids, err := repo.client.ZRevRange(ctx, feedKey(userID), 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "listing notification feed")
	}

	if filter.UnreadOnly {
		unread, err := repo.client.SMembers(ctx, unreadKey(userID)).Result()
		if err != nil {
			return nil, errors.Wrap(err, "listing unread notifications")
		}
		isUnread := make(map[string]bool, len(unread))
		for _, id := range unread {
			isUnread[id] = true
		}
		kept := ids[:0]
		for _, id := range ids {
			if isUnread[id] {
				kept = append(kept, id)
			}
		}
		ids = kept
	}
	if filter.Limit > 0 && len(ids) > filter.Limit {
		ids = ids[:filter.Limit]
	}
	return repo.load(ctx, ids)
}

func (repo *notificationRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := repo.client.SCard(ctx, unreadKey(userID)).Result()
	if err != nil {
		return 0, errors.Wrap(err, "counting unread notifications")
	}
	return int(count), nil
}

func (repo *notificationRepository) MarkRead(ctx context.Context, userID, id string) error {
	err := repo.client.ZScore(ctx, feedKey(userID), id).Err()
	if err == redis.Nil {
		return notification.ErrNotFound
	} else if err != nil {
		return errors.Wrap(err, "finding notification")
	}

	pipe := repo.client.TxPipeline()
	pipe.HSet(ctx, notificationKey(id), "read", "1")
	pipe.SRem(ctx, unreadKey(userID), id)
	if _, err = pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "marking notification as read")
	}
	return nil
}

func (repo *notificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	unread, err := repo.client.SMembers(ctx, unreadKey(userID)).Result()
	if err != nil {
		return errors.Wrap(err, "listing unread notifications")
	}
	if len(unread) == 0 {
		return nil
	}

	pipe := repo.client.TxPipeline()
	for _, id := range unread {
		pipe.HSet(ctx, notificationKey(id), "read", "1")
	}
	pipe.Del(ctx, unreadKey(userID))
	if _, err = pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "marking notifications as read")
	}
	return nil
}

func (repo *notificationRepository) Trim(ctx context.Context, userID string, max int) (int, error) {
	if max < 0 {
		max = 0
	}
	// ids past the max newest ones
	stale, err := repo.client.ZRevRange(ctx, feedKey(userID), int64(max), -1).Result()
	if err != nil {
		return 0, errors.Wrap(err, "listing stale notifications")
	}
	if len(stale) == 0 {
		return 0, nil
	}

	members := make([]interface{}, len(stale))
	keys := make([]string, len(stale))
	for i, id := range stale {
		members[i] = id
		keys[i] = notificationKey(id)
	}
	pipe := repo.client.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.ZRem(ctx, feedKey(userID), members...)
	pipe.SRem(ctx, unreadKey(userID), members...)
	if max == 0 {
		pipe.SRem(ctx, usersKey, userID)
	}
	if _, err = pipe.Exec(ctx); err != nil {
		return 0, errors.Wrap(err, "trimming notification feed")
	}
	return len(stale), nil
}

func (repo *notificationRepository) Users(ctx context.Context) ([]string, error) {
	ids, err := repo.client.SMembers(ctx, usersKey).Result()
	if err != nil {
		return nil, errors.Wrap(err, "listing notification feeds")
	}
	sort.Strings(ids)
	return ids, nil
}

