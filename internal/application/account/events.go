package account

import "github.com/Eldan-star/ResearchCollab/internal/domain"

// EventKind enumerates the auth lifecycle events delivered to subscribers.
type EventKind string

const (
	EventInitialSession   EventKind = "INITIAL_SESSION"
	EventSignedIn         EventKind = "SIGNED_IN"
	EventSignedOut        EventKind = "SIGNED_OUT"
	EventTokenRefreshed   EventKind = "TOKEN_REFRESHED"
	EventPasswordRecovery EventKind = "PASSWORD_RECOVERY"
)

// AuthEvent pairs an event kind with the session that produced it.
// Session is nil for signed-out, password-recovery, and an initial restore
// that found no stored session.
type AuthEvent struct {
	Kind    EventKind
	Session *domain.Session
}

// EventHandler receives auth events in emission order, on the emitting
// goroutine. Handlers that need to do slow work should hand it off.
type EventHandler func(AuthEvent)
