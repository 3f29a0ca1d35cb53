package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Eldan-star/ResearchCollab/internal/domain"
	"github.com/Eldan-star/ResearchCollab/internal/realtime"
)

// Observer receives the full ordered message list after every change.
type Observer func([]domain.ChatMessage)

type participantChecker interface {
	IsParticipant(ctx context.Context, userID, projectID string) (bool, error)
}

type historySource interface {
	ListMessages(ctx context.Context, userID, projectID string, limit int32) ([]domain.ChatMessage, error)
}

type profileSource interface {
	GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error)
}

type identitySource interface {
	CurrentUserID() string
}

type ViewDeps struct {
	Broker       *realtime.Broker
	Participants participantChecker
	History      historySource
	Profiles     profileSource
	Identity     identitySource
}

// View reconciles push-delivered chat events into the ordered message list
// for one project. Rows already appended by the sender's own local action are
// recognised by id and not duplicated.
type View struct {
	broker       *realtime.Broker
	participants participantChecker
	history      historySource
	profiles     profileSource
	identity     identitySource

	mu        sync.Mutex
	projectID string
	msgs      []domain.ChatMessage
	ids       map[string]struct{}
	channel   *realtime.Channel

	obsMu   sync.Mutex
	obs     map[int]Observer
	nextObs int
}

func NewView(deps ViewDeps) *View {
	return &View{
		broker:       deps.Broker,
		participants: deps.Participants,
		history:      deps.History,
		profiles:     deps.Profiles,
		identity:     deps.Identity,
		ids:          make(map[string]struct{}),
		obs:          make(map[int]Observer),
	}
}

// Open checks eligibility, loads the project's chat history, and subscribes
// to the project's realtime topic. Eligibility is checked here only: a viewer
// who loses it while the subscription is open keeps receiving events until
// Close is called.
func (v *View) Open(ctx context.Context, projectID string) error {
	userID := v.identity.CurrentUserID()
	if userID == "" {
		return fmt.Errorf("no signed-in user: %w", domain.ErrUnauthorized)
	}
	ok, err := v.participants.IsParticipant(ctx, userID, projectID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("not a project participant: %w", domain.ErrForbidden)
	}

	msgs, err := v.history.ListMessages(ctx, userID, projectID, 0)
	if err != nil {
		return err
	}

	v.mu.Lock()
	v.projectID = projectID
	v.msgs = msgs
	v.ids = make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		v.ids[m.MessageID] = struct{}{}
	}
	v.channel = v.broker.
		Channel(realtime.ProjectMessagesTopic(projectID)).
		On(realtime.EventInsert, v.handleInsert).
		Subscribe()
	snap := v.snapshotLocked()
	v.mu.Unlock()
	v.notify(snap)
	return nil
}

// Close tears down the realtime subscription. Safe to call more than once.
func (v *View) Close() {
	v.mu.Lock()
	ch := v.channel
	v.channel = nil
	v.mu.Unlock()
	if ch != nil {
		v.broker.RemoveChannel(ch)
	}
}

// AppendLocal inserts the sender's own message immediately, so the UI does
// not wait for the echo from the realtime channel. The echoed event is then
// skipped by id.
func (v *View) AppendLocal(m domain.ChatMessage) {
	v.mu.Lock()
	if _, dup := v.ids[m.MessageID]; dup {
		v.mu.Unlock()
		return
	}
	v.ids[m.MessageID] = struct{}{}
	v.msgs = append(v.msgs, m)
	snap := v.snapshotLocked()
	v.mu.Unlock()
	v.notify(snap)
}

// Messages returns a copy of the current ordered message list.
func (v *View) Messages() []domain.ChatMessage {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

// Subscribe registers an observer and returns its unsubscribe func.
func (v *View) Subscribe(fn Observer) func() {
	v.obsMu.Lock()
	defer v.obsMu.Unlock()
	n := v.nextObs
	v.nextObs++
	v.obs[n] = fn
	return func() {
		v.obsMu.Lock()
		defer v.obsMu.Unlock()
		delete(v.obs, n)
	}
}

// handleInsert runs on the channel's delivery goroutine. The push payload
// carries only foreign keys for the sender, so the profile is hydrated by a
// secondary lookup; when that fails the raw record is appended anyway rather
// than dropping the message.
func (v *View) handleInsert(ev realtime.Event) {
	m, ok := ev.Payload.(*domain.ChatMessage)
	if !ok {
		slog.Warn("unexpected chat payload type", "topic", ev.Topic)
		return
	}
	msg := *m

	v.mu.Lock()
	if _, dup := v.ids[msg.MessageID]; dup {
		v.mu.Unlock()
		return
	}
	v.mu.Unlock()

	if msg.Sender == nil {
		sender, err := v.profiles.GetProfile(context.Background(), msg.SenderID)
		if err != nil {
			slog.Warn("sender hydration failed, appending raw record", "message_id", msg.MessageID, "err", err)
		} else {
			msg.Sender = sender
		}
	}

	v.mu.Lock()
	if _, dup := v.ids[msg.MessageID]; dup {
		// The sender's local append won the race during hydration.
		v.mu.Unlock()
		return
	}
	v.ids[msg.MessageID] = struct{}{}
	v.msgs = append(v.msgs, msg)
	snap := v.snapshotLocked()
	v.mu.Unlock()
	v.notify(snap)
}

func (v *View) snapshotLocked() []domain.ChatMessage {
	out := make([]domain.ChatMessage, len(v.msgs))
	copy(out, v.msgs)
	return out
}

func (v *View) notify(msgs []domain.ChatMessage) {
	v.obsMu.Lock()
	obs := make([]Observer, 0, len(v.obs))
	for _, fn := range v.obs {
		obs = append(obs, fn)
	}
	v.obsMu.Unlock()
	for _, fn := range obs {
		fn(msgs)
	}
}
