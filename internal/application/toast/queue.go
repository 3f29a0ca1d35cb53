package toast

import (
	"sync"
	"time"

	"github.com/Eldan-star/ResearchCollab/internal/domain"
	"github.com/Eldan-star/ResearchCollab/internal/pkg/id"
)

// Observer receives the current entries, in insertion order, after every change.
type Observer func([]domain.Toast)

// Queue is the process-wide transient-message queue. Entries self-remove
// after their ttl via an independent timer each, or earlier via Dismiss.
// Nothing is persisted.
type Queue struct {
	mu     sync.Mutex
	items  []domain.Toast
	timers map[string]*time.Timer

	obsMu   sync.Mutex
	obs     map[int]Observer
	nextObs int
}

func NewQueue() *Queue {
	return &Queue{
		timers: make(map[string]*time.Timer),
		obs:    make(map[int]Observer),
	}
}

// Add appends an entry with a fresh id and arms its removal timer. A ttl of
// zero or less means the entry stays until dismissed.
func (q *Queue) Add(text string, severity domain.ToastSeverity, ttl time.Duration) string {
	t := domain.Toast{ID: id.New(), Text: text, Severity: severity, TTL: ttl}

	q.mu.Lock()
	q.items = append(q.items, t)
	if ttl > 0 {
		q.timers[t.ID] = time.AfterFunc(ttl, func() { q.Dismiss(t.ID) })
	}
	snap := q.snapshotLocked()
	q.mu.Unlock()
	q.notify(snap)
	return t.ID
}

// Success, Error, Info, and Warning are convenience wrappers used by the
// feature flows to surface results.
func (q *Queue) Success(text string, ttl time.Duration) string {
	return q.Add(text, domain.ToastSuccess, ttl)
}

func (q *Queue) Error(text string, ttl time.Duration) string {
	return q.Add(text, domain.ToastError, ttl)
}

func (q *Queue) Info(text string, ttl time.Duration) string {
	return q.Add(text, domain.ToastInfo, ttl)
}

func (q *Queue) Warning(text string, ttl time.Duration) string {
	return q.Add(text, domain.ToastWarning, ttl)
}

// Dismiss removes an entry early. Unknown ids are ignored, so the ttl timer
// firing after an explicit dismissal is harmless.
func (q *Queue) Dismiss(toastID string) {
	q.mu.Lock()
	idx := -1
	for i := range q.items {
		if q.items[i].ID == toastID {
			idx = i
			break
		}
	}
	if idx < 0 {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items[:idx], q.items[idx+1:]...)
	if t, ok := q.timers[toastID]; ok {
		t.Stop()
		delete(q.timers, toastID)
	}
	snap := q.snapshotLocked()
	q.mu.Unlock()
	q.notify(snap)
}

// Snapshot returns the current entries in insertion order.
func (q *Queue) Snapshot() []domain.Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

// Subscribe registers an observer and returns its unsubscribe func.
func (q *Queue) Subscribe(fn Observer) func() {
	q.obsMu.Lock()
	defer q.obsMu.Unlock()
	n := q.nextObs
	q.nextObs++
	q.obs[n] = fn
	return func() {
		q.obsMu.Lock()
		defer q.obsMu.Unlock()
		delete(q.obs, n)
	}
}

func (q *Queue) snapshotLocked() []domain.Toast {
	out := make([]domain.Toast, len(q.items))
	copy(out, q.items)
	return out
}

func (q *Queue) notify(snap []domain.Toast) {
	q.obsMu.Lock()
	obs := make([]Observer, 0, len(q.obs))
	for _, fn := range q.obs {
		obs = append(obs, fn)
	}
	q.obsMu.Unlock()
	for _, fn := range obs {
		fn(snap)
	}
}
