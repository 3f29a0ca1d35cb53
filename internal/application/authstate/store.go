package authstate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Eldan-star/ResearchCollab/internal/application/account"
	"github.com/Eldan-star/ResearchCollab/internal/domain"
)

// Snapshot is the read-only view of the authentication state. Session and
// Profile are replaced wholesale on every transition, never mutated in place.
type Snapshot struct {
	Session *domain.Session
	Profile *domain.UserProfile
	Loading bool
}

// Observer receives a snapshot after every visible state change.
type Observer func(Snapshot)

type authClient interface {
	SignUp(ctx context.Context, req domain.SignUpRequest) (*account.SignUpResult, error)
	SignInWithPassword(ctx context.Context, email, password string) (*account.SignInResult, error)
	SignOut(ctx context.Context, sessionID string) error
	RestoreSession(ctx context.Context, sessionID string)
	ResetPasswordForEmail(ctx context.Context, email string) error
	GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error)
	UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.UserProfile, error)
	Subscribe(fn account.EventHandler) func()
}

type StoreDeps struct {
	Auth authClient
	// AllowedEmailDomains restricts sign-up; empty or containing "*" allows
	// every domain.
	AllowedEmailDomains []string
	// RestoreTimeout bounds how long Loading may stay true when the initial
	// session check never answers.
	RestoreTimeout time.Duration
}

// Store is the single source of truth for "who is signed in" and their
// profile. All transitions are driven by the auth event subscription; the
// explicit calls below only talk to the auth collaborator and let the
// resulting events mutate state.
type Store struct {
	auth           authClient
	allowedDomains []string
	restoreTimeout time.Duration

	mu          sync.Mutex
	session     *domain.Session
	profile     *domain.UserProfile
	loading     bool
	loadingDone bool
	signingOut  bool
	// profile fetch sequencing: results older than the applied one are
	// rejected, so an overlapping stale fetch can never clobber a newer
	// profile.
	issuedSeq  uint64
	appliedSeq uint64

	obsMu   sync.Mutex
	obs     map[int]Observer
	nextObs int

	ctx   context.Context
	unsub func()
}

func NewStore(deps StoreDeps) *Store {
	return &Store{
		auth:           deps.Auth,
		allowedDomains: deps.AllowedEmailDomains,
		restoreTimeout: deps.RestoreTimeout,
		loading:        true,
		obs:            make(map[int]Observer),
	}
}

// Start subscribes to the auth event stream and kicks off restoration of the
// previously stored session (empty id means no stored session). Loading flips
// to false exactly once: after the first event, or after the restore timeout,
// whichever comes first.
func (s *Store) Start(ctx context.Context, storedSessionID string) {
	s.ctx = ctx
	s.unsub = s.auth.Subscribe(s.handleEvent)
	if s.restoreTimeout > 0 {
		time.AfterFunc(s.restoreTimeout, s.finishLoading)
	}
	go s.auth.RestoreSession(ctx, storedSessionID)
}

// Stop tears down the event subscription.
func (s *Store) Stop() {
	if s.unsub != nil {
		s.unsub()
	}
}

// Snapshot returns the current (session, profile, loading) triple.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Session: s.session, Profile: s.profile, Loading: s.loading}
}

// CurrentUserID returns the signed-in user's id, or "" when signed out.
// Identity-scoped components read this instead of holding their own copy.
func (s *Store) CurrentUserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return ""
	}
	return s.session.UserID
}

// Subscribe registers an observer and returns its unsubscribe func.
func (s *Store) Subscribe(fn Observer) func() {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	n := s.nextObs
	s.nextObs++
	s.obs[n] = fn
	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		delete(s.obs, n)
	}
}

// SignUp validates the email domain against the allow-list before delegating
// to the auth collaborator. The collaborator provisions the profile row from
// the request's profile fields.
func (s *Store) SignUp(ctx context.Context, req domain.SignUpRequest) (*account.SignUpResult, error) {
	if !s.domainAllowed(req.Email) {
		return nil, fmt.Errorf("email domain %q not in allow-list: %w", emailDomain(req.Email), domain.ErrDomainNotAllowed)
	}
	return s.auth.SignUp(ctx, req)
}

// SignIn delegates the credential check and returns only its accept/reject
// outcome. Session state is assigned by the signed-in event, not here.
func (s *Store) SignIn(ctx context.Context, email, password string) error {
	_, err := s.auth.SignInWithPassword(ctx, email, password)
	return err
}

// SignOut requests remote termination and then clears local state
// unconditionally, so the caller never observes an authenticated snapshot
// after this returns, even when the remote call failed.
func (s *Store) SignOut(ctx context.Context) error {
	s.mu.Lock()
	s.signingOut = true
	var sessionID string
	if s.session != nil {
		sessionID = s.session.SessionID
	}
	s.mu.Unlock()

	err := s.auth.SignOut(ctx, sessionID)

	s.mu.Lock()
	s.session = nil
	s.profile = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return err
}

func (s *Store) ResetPasswordForEmail(ctx context.Context, email string) error {
	return s.auth.ResetPasswordForEmail(ctx, email)
}

// UpdateProfile persists a partial update. On success the cached profile is
// replaced with the server's returned row; on failure the cache is untouched.
func (s *Store) UpdateProfile(ctx context.Context, req domain.UpdateProfileRequest) (*domain.UserProfile, error) {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("not signed in: %w", domain.ErrUnauthorized)
	}
	userID := s.session.UserID
	s.mu.Unlock()

	p, err := s.auth.UpdateProfile(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	// The returned row is authoritative; advance the sequence so an in-flight
	// stale fetch cannot overwrite it.
	s.issuedSeq++
	s.appliedSeq = s.issuedSeq
	s.profile = p
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return p, nil
}

func (s *Store) handleEvent(ev account.AuthEvent) {
	s.mu.Lock()
	var fetchSeq uint64
	var fetchUser string
	switch ev.Kind {
	case account.EventSignedIn:
		if s.signingOut {
			// Stale sign-in that was in flight when sign-out was requested.
			s.mu.Unlock()
			s.finishLoading()
			return
		}
		fetchSeq, fetchUser = s.applySessionLocked(ev.Session)
	case account.EventInitialSession, account.EventTokenRefreshed:
		fetchSeq, fetchUser = s.applySessionLocked(ev.Session)
	case account.EventSignedOut:
		s.session = nil
		s.profile = nil
		s.signingOut = false
	case account.EventPasswordRecovery:
		// recovery flow carries no session change
	default:
		slog.Warn("unknown auth event kind", "kind", ev.Kind)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.finishLoading()
	s.notify(snap)
	if fetchUser != "" {
		go s.fetchProfile(fetchUser, fetchSeq)
	}
}

// applySessionLocked stores the new raw session and, when it carries an
// identity, schedules an independent profile fetch. Caller holds s.mu.
func (s *Store) applySessionLocked(sess *domain.Session) (seq uint64, userID string) {
	s.session = sess
	if sess == nil || sess.UserID == "" {
		s.profile = nil
		return 0, ""
	}
	s.issuedSeq++
	return s.issuedSeq, sess.UserID
}

// fetchProfile resolves the profile for a session event. Failures degrade to
// a nil profile rather than blocking the session. Results are dropped when a
// newer result has already been applied or the session is gone.
func (s *Store) fetchProfile(userID string, seq uint64) {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	p, err := s.auth.GetProfile(ctx, userID)
	if err != nil {
		slog.Warn("profile fetch failed", "user_id", userID, "err", err)
		p = nil
	}

	s.mu.Lock()
	if seq <= s.appliedSeq || s.session == nil || s.session.UserID != userID {
		s.mu.Unlock()
		return
	}
	s.appliedSeq = seq
	s.profile = p
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// finishLoading flips loading to false exactly once.
func (s *Store) finishLoading() {
	s.mu.Lock()
	if s.loadingDone {
		s.mu.Unlock()
		return
	}
	s.loadingDone = true
	s.loading = false
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{Session: s.session, Profile: s.profile, Loading: s.loading}
}

func (s *Store) notify(snap Snapshot) {
	s.obsMu.Lock()
	obs := make([]Observer, 0, len(s.obs))
	for _, fn := range s.obs {
		obs = append(obs, fn)
	}
	s.obsMu.Unlock()
	for _, fn := range obs {
		fn(snap)
	}
}

func (s *Store) domainAllowed(email string) bool {
	if len(s.allowedDomains) == 0 {
		return true
	}
	d := emailDomain(email)
	for _, allowed := range s.allowedDomains {
		if allowed == "*" || strings.EqualFold(allowed, d) {
			return true
		}
	}
	return false
}

func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}
