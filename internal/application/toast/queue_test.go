package toast

import (
	"sync"
	"testing"
	"time"

	"github.com/Eldan-star/ResearchCollab/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texts(items []domain.Toast) []string {
	out := make([]string, len(items))
	for i, t := range items {
		out[i] = t.Text
	}
	return out
}

func TestAdd_InsertionOrderPreserved(t *testing.T) {
	q := NewQueue()

	q.Success("first", 0)
	q.Error("second", 0)
	q.Info("third", 0)

	assert.Equal(t, []string{"first", "second", "third"}, texts(q.Snapshot()))
}

func TestAdd_SeverityWrappers(t *testing.T) {
	q := NewQueue()

	q.Success("a", 0)
	q.Error("b", 0)
	q.Info("c", 0)
	q.Warning("d", 0)

	snap := q.Snapshot()
	require.Len(t, snap, 4)
	assert.Equal(t, domain.ToastSuccess, snap[0].Severity)
	assert.Equal(t, domain.ToastError, snap[1].Severity)
	assert.Equal(t, domain.ToastInfo, snap[2].Severity)
	assert.Equal(t, domain.ToastWarning, snap[3].Severity)
}

func TestAdd_TTLSelfRemoves(t *testing.T) {
	q := NewQueue()
	q.Add("expiring", domain.ToastInfo, 40*time.Millisecond)

	// Present for the whole ttl, gone shortly after.
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, q.Snapshot(), 1, "entry removed before its ttl elapsed")

	assert.Eventually(t, func() bool {
		return len(q.Snapshot()) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestAdd_ZeroTTLStaysUntilDismissed(t *testing.T) {
	q := NewQueue()
	toastID := q.Add("sticky", domain.ToastInfo, 0)

	time.Sleep(30 * time.Millisecond)
	require.Len(t, q.Snapshot(), 1)

	q.Dismiss(toastID)
	assert.Empty(t, q.Snapshot())
}

func TestDismiss_RemovesOnlyTarget(t *testing.T) {
	q := NewQueue()
	q.Add("keep-1", domain.ToastInfo, 0)
	target := q.Add("drop", domain.ToastInfo, 0)
	q.Add("keep-2", domain.ToastInfo, 0)

	q.Dismiss(target)

	assert.Equal(t, []string{"keep-1", "keep-2"}, texts(q.Snapshot()))
}

func TestDismiss_UnknownIDIgnored(t *testing.T) {
	q := NewQueue()
	q.Add("only", domain.ToastInfo, 0)

	q.Dismiss("no-such-id")

	assert.Len(t, q.Snapshot(), 1)
}

func TestDismiss_BeforeTTLStopsTimer(t *testing.T) {
	q := NewQueue()
	toastID := q.Add("early", domain.ToastInfo, 50*time.Millisecond)

	q.Dismiss(toastID)
	assert.Empty(t, q.Snapshot())

	// The armed timer firing later must not disturb new entries.
	q.Add("later", domain.ToastInfo, 0)
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, []string{"later"}, texts(q.Snapshot()))
}

func TestSubscribe_ObserverSeesEveryChange(t *testing.T) {
	q := NewQueue()

	var mu sync.Mutex
	var calls [][]domain.Toast
	unsub := q.Subscribe(func(items []domain.Toast) {
		mu.Lock()
		calls = append(calls, items)
		mu.Unlock()
	})

	toastID := q.Add("hello", domain.ToastInfo, 0)
	q.Dismiss(toastID)

	mu.Lock()
	require.Len(t, calls, 2)
	assert.Len(t, calls[0], 1)
	assert.Empty(t, calls[1])
	mu.Unlock()

	unsub()
	q.Add("unobserved", domain.ToastInfo, 0)
	mu.Lock()
	assert.Len(t, calls, 2)
	mu.Unlock()
}
