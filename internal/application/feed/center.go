package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/Eldan-star/ResearchCollab/internal/domain"
)

// Snapshot is the read-only view of the notification feed.
type Snapshot struct {
	Items   []domain.Notification
	Unread  int
	Page    int
	HasMore bool
	Loading bool
}

// Observer receives a snapshot after every visible state change.
type Observer func(Snapshot)

type notificationClient interface {
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) error
}

type identitySource interface {
	CurrentUserID() string
}

type CenterDeps struct {
	Notifications notificationClient
	Identity      identitySource
	PageSize      int
}

// Center holds a user's paginated notification feed and live unread count,
// with optimistic read-marking. Page fetches for the same list are never
// issued concurrently; LoadMore is a no-op while a fetch is in flight.
type Center struct {
	client   notificationClient
	identity identitySource
	pageSize int

	mu      sync.Mutex
	items   []domain.Notification
	unread  int
	page    int
	hasMore bool
	loading bool

	obsMu   sync.Mutex
	obs     map[int]Observer
	nextObs int
}

func NewCenter(deps CenterDeps) *Center {
	return &Center{
		client:   deps.Notifications,
		identity: deps.Identity,
		pageSize: deps.PageSize,
		obs:      make(map[int]Observer),
	}
}

func (c *Center) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers an observer and returns its unsubscribe func.
func (c *Center) Subscribe(fn Observer) func() {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	n := c.nextObs
	c.nextObs++
	c.obs[n] = fn
	return func() {
		c.obsMu.Lock()
		defer c.obsMu.Unlock()
		delete(c.obs, n)
	}
}

// FetchPage loads one page, newest first. Page 1 replaces the list; later
// pages append, de-duplicated by id. HasMore is true iff the page came back
// full. The unread count is re-queried from the source of truth after every
// fetch, independent of the page contents.
func (c *Center) FetchPage(ctx context.Context, page int) error {
	userID := c.identity.CurrentUserID()
	if userID == "" {
		return fmt.Errorf("no signed-in user: %w", domain.ErrUnauthorized)
	}
	if page < 1 {
		page = 1
	}

	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return nil
	}
	c.loading = true
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	items, err := c.client.ListPage(ctx, userID, page, c.pageSize)
	if err != nil {
		c.mu.Lock()
		c.loading = false
		snap = c.snapshotLocked()
		c.mu.Unlock()
		c.notify(snap)
		return err
	}
	unread, unreadErr := c.client.CountUnread(ctx, userID)

	c.mu.Lock()
	if page == 1 {
		c.items = items
	} else {
		seen := make(map[string]struct{}, len(c.items))
		for _, n := range c.items {
			seen[n.NotificationID] = struct{}{}
		}
		for _, n := range items {
			if _, dup := seen[n.NotificationID]; dup {
				continue
			}
			c.items = append(c.items, n)
		}
	}
	c.page = page
	c.hasMore = len(items) == c.pageSize
	if unreadErr == nil {
		c.unread = unread
	}
	c.loading = false
	snap = c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
	return unreadErr
}

// LoadMore fetches the next page. No-op while loading or when the last page
// was short.
func (c *Center) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if c.loading || !c.hasMore {
		c.mu.Unlock()
		return nil
	}
	next := c.page + 1
	c.mu.Unlock()
	return c.FetchPage(ctx, next)
}

// MarkAsRead optimistically flips the item and decrements the unread counter
// (floored at zero) before the call resolves; on failure both are restored to
// their exact pre-call values.
func (c *Center) MarkAsRead(ctx context.Context, notificationID string) error {
	userID := c.identity.CurrentUserID()
	if userID == "" {
		return fmt.Errorf("no signed-in user: %w", domain.ErrUnauthorized)
	}

	c.mu.Lock()
	idx := -1
	for i := range c.items {
		if c.items[i].NotificationID == notificationID {
			idx = i
			break
		}
	}
	var prevRead bool
	prevUnread := c.unread
	if idx >= 0 {
		prevRead = c.items[idx].Read
		c.items[idx].Read = true
	}
	if c.unread > 0 {
		c.unread--
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	err := c.client.MarkRead(ctx, userID, notificationID)
	if err != nil {
		c.mu.Lock()
		if idx >= 0 && idx < len(c.items) && c.items[idx].NotificationID == notificationID {
			c.items[idx].Read = prevRead
		}
		c.unread = prevUnread
		snap = c.snapshotLocked()
		c.mu.Unlock()
		c.notify(snap)
	}
	return err
}

// MarkAllAsRead optimistically flips every item and zeroes the counter,
// restoring the entire snapshot on failure.
func (c *Center) MarkAllAsRead(ctx context.Context) error {
	userID := c.identity.CurrentUserID()
	if userID == "" {
		return fmt.Errorf("no signed-in user: %w", domain.ErrUnauthorized)
	}

	c.mu.Lock()
	prevItems := make([]domain.Notification, len(c.items))
	copy(prevItems, c.items)
	prevUnread := c.unread
	for i := range c.items {
		c.items[i].Read = true
	}
	c.unread = 0
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	err := c.client.MarkAllRead(ctx, userID)
	if err != nil {
		c.mu.Lock()
		c.items = prevItems
		c.unread = prevUnread
		snap = c.snapshotLocked()
		c.mu.Unlock()
		c.notify(snap)
	}
	return err
}

// Reset drops all feed state, for use on sign-out so the next session does
// not inherit a previous user's list.
func (c *Center) Reset() {
	c.mu.Lock()
	c.items = nil
	c.unread = 0
	c.page = 0
	c.hasMore = false
	c.loading = false
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

func (c *Center) snapshotLocked() Snapshot {
	items := make([]domain.Notification, len(c.items))
	copy(items, c.items)
	return Snapshot{Items: items, Unread: c.unread, Page: c.page, HasMore: c.hasMore, Loading: c.loading}
}

func (c *Center) notify(snap Snapshot) {
	c.obsMu.Lock()
	obs := make([]Observer, 0, len(c.obs))
	for _, fn := range c.obs {
		obs = append(obs, fn)
	}
	c.obsMu.Unlock()
	for _, fn := range obs {
		fn(snap)
	}
}
