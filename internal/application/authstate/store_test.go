package authstate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Eldan-star/ResearchCollab/internal/application/account"
	"github.com/Eldan-star/ResearchCollab/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

// fakeAuth is a scriptable auth collaborator. Tests drive state transitions
// by emitting events on it, the same way the real service does.
type fakeAuth struct {
	mu       sync.Mutex
	handlers []account.EventHandler

	signUpFn        func(ctx context.Context, req domain.SignUpRequest) (*account.SignUpResult, error)
	signInFn        func(ctx context.Context, email, password string) (*account.SignInResult, error)
	signOutFn       func(ctx context.Context, sessionID string) error
	restoreFn       func(ctx context.Context, sessionID string)
	resetFn         func(ctx context.Context, email string) error
	getProfileFn    func(ctx context.Context, userID string) (*domain.UserProfile, error)
	updateProfileFn func(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.UserProfile, error)
}

func (f *fakeAuth) SignUp(ctx context.Context, req domain.SignUpRequest) (*account.SignUpResult, error) {
	if f.signUpFn != nil {
		return f.signUpFn(ctx, req)
	}
	return &account.SignUpResult{}, nil
}
func (f *fakeAuth) SignInWithPassword(ctx context.Context, email, password string) (*account.SignInResult, error) {
	if f.signInFn != nil {
		return f.signInFn(ctx, email, password)
	}
	return &account.SignInResult{}, nil
}
func (f *fakeAuth) SignOut(ctx context.Context, sessionID string) error {
	if f.signOutFn != nil {
		return f.signOutFn(ctx, sessionID)
	}
	return nil
}
func (f *fakeAuth) RestoreSession(ctx context.Context, sessionID string) {
	if f.restoreFn != nil {
		f.restoreFn(ctx, sessionID)
	}
}
func (f *fakeAuth) ResetPasswordForEmail(ctx context.Context, email string) error {
	if f.resetFn != nil {
		return f.resetFn(ctx, email)
	}
	return nil
}
func (f *fakeAuth) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	if f.getProfileFn != nil {
		return f.getProfileFn(ctx, userID)
	}
	return &domain.UserProfile{UserID: userID}, nil
}
func (f *fakeAuth) UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.UserProfile, error) {
	if f.updateProfileFn != nil {
		return f.updateProfileFn(ctx, userID, req)
	}
	return &domain.UserProfile{UserID: userID}, nil
}
func (f *fakeAuth) Subscribe(fn account.EventHandler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, fn)
	return func() {}
}

func (f *fakeAuth) emit(ev account.AuthEvent) {
	f.mu.Lock()
	handlers := make([]account.EventHandler, len(f.handlers))
	copy(handlers, f.handlers)
	f.mu.Unlock()
	for _, fn := range handlers {
		fn(ev)
	}
}

// --- helpers ---

func newStartedStore(t *testing.T, auth *fakeAuth, allowed []string) *Store {
	t.Helper()
	s := NewStore(StoreDeps{Auth: auth, AllowedEmailDomains: allowed})
	s.Start(context.Background(), "")
	t.Cleanup(s.Stop)
	return s
}

func session(userID string) *domain.Session {
	return &domain.Session{SessionID: "sess-" + userID, UserID: userID, Enable: true}
}

func waitForProfile(t *testing.T, s *Store, userID string) {
	t.Helper()
	require.Eventually(t, func() bool {
		p := s.Snapshot().Profile
		return p != nil && p.UserID == userID
	}, time.Second, 5*time.Millisecond)
}

// --- loading tests ---

func TestStart_LoadingFalseAfterFirstEvent(t *testing.T) {
	auth := &fakeAuth{}
	auth.restoreFn = func(ctx context.Context, sessionID string) {
		auth.emit(account.AuthEvent{Kind: account.EventInitialSession})
	}

	s := newStartedStore(t, auth, nil)

	require.Eventually(t, func() bool {
		return !s.Snapshot().Loading
	}, time.Second, 5*time.Millisecond)
	assert.Nil(t, s.Snapshot().Session)
}

func TestStart_LoadingFalseByTimeoutWithoutEvents(t *testing.T) {
	s := NewStore(StoreDeps{Auth: &fakeAuth{}, RestoreTimeout: 30 * time.Millisecond})
	s.Start(context.Background(), "")
	defer s.Stop()

	assert.True(t, s.Snapshot().Loading)
	require.Eventually(t, func() bool {
		return !s.Snapshot().Loading
	}, time.Second, 5*time.Millisecond)
	assert.Nil(t, s.Snapshot().Session)
}

func TestStart_LoadingFlipsExactlyOnce(t *testing.T) {
	auth := &fakeAuth{}
	auth.restoreFn = func(ctx context.Context, sessionID string) {
		auth.emit(account.AuthEvent{Kind: account.EventInitialSession})
	}

	s := NewStore(StoreDeps{Auth: auth, RestoreTimeout: 100 * time.Millisecond})

	var mu sync.Mutex
	var calls int
	s.Subscribe(func(Snapshot) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	s.Start(context.Background(), "")
	defer s.Stop()

	require.Eventually(t, func() bool {
		return !s.Snapshot().Loading
	}, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond) // let the event's trailing notify land

	mu.Lock()
	after := calls
	mu.Unlock()

	// The timer fires later; since loading already flipped it must stay silent.
	time.Sleep(150 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, after, calls)
	mu.Unlock()
}

func TestStart_RestoredSessionHydratesProfile(t *testing.T) {
	auth := &fakeAuth{}
	auth.restoreFn = func(ctx context.Context, sessionID string) {
		auth.emit(account.AuthEvent{Kind: account.EventInitialSession, Session: session("u1")})
	}

	s := newStartedStore(t, auth, nil)

	waitForProfile(t, s, "u1")
	snap := s.Snapshot()
	assert.Equal(t, "u1", snap.Session.UserID)
	assert.False(t, snap.Loading)
}

// --- sign-up tests ---

func TestSignUp_DomainNotInAllowList(t *testing.T) {
	called := false
	auth := &fakeAuth{}
	auth.signUpFn = func(ctx context.Context, req domain.SignUpRequest) (*account.SignUpResult, error) {
		called = true
		return &account.SignUpResult{}, nil
	}

	s := newStartedStore(t, auth, []string{"aau.edu.et"})

	_, err := s.SignUp(context.Background(), domain.SignUpRequest{Email: "alice@gmail.com", Password: "secret123"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDomainNotAllowed))
	assert.False(t, called, "rejected sign-up must never reach the auth collaborator")
}

func TestSignUp_AllowedDomainDelegates(t *testing.T) {
	auth := &fakeAuth{}
	auth.signUpFn = func(ctx context.Context, req domain.SignUpRequest) (*account.SignUpResult, error) {
		return &account.SignUpResult{User: &domain.User{Email: req.Email}, ConfirmationRequired: true}, nil
	}

	s := newStartedStore(t, auth, []string{"aau.edu.et"})

	res, err := s.SignUp(context.Background(), domain.SignUpRequest{Email: "Alice@AAU.edu.et", Password: "secret123"})

	require.NoError(t, err)
	assert.True(t, res.ConfirmationRequired)
}

func TestSignUp_EmptyAllowListAcceptsAnyDomain(t *testing.T) {
	s := newStartedStore(t, &fakeAuth{}, nil)

	_, err := s.SignUp(context.Background(), domain.SignUpRequest{Email: "anyone@example.org", Password: "secret123"})

	require.NoError(t, err)
}

func TestSignUp_WildcardAllowsEverything(t *testing.T) {
	s := newStartedStore(t, &fakeAuth{}, []string{"*"})

	_, err := s.SignUp(context.Background(), domain.SignUpRequest{Email: "anyone@example.org", Password: "secret123"})

	require.NoError(t, err)
}

// --- sign-in tests ---

func TestSignIn_SignedInEventPopulatesSessionAndProfile(t *testing.T) {
	auth := &fakeAuth{}
	auth.signInFn = func(ctx context.Context, email, password string) (*account.SignInResult, error) {
		sess := session("u1")
		auth.emit(account.AuthEvent{Kind: account.EventSignedIn, Session: sess})
		return &account.SignInResult{Session: sess}, nil
	}
	auth.getProfileFn = func(ctx context.Context, userID string) (*domain.UserProfile, error) {
		return &domain.UserProfile{UserID: userID, FullName: "Alice"}, nil
	}

	s := newStartedStore(t, auth, nil)

	require.NoError(t, s.SignIn(context.Background(), "alice@aau.edu.et", "secret123"))

	waitForProfile(t, s, "u1")
	snap := s.Snapshot()
	assert.Equal(t, "u1", snap.Session.UserID)
	assert.Equal(t, "Alice", snap.Profile.FullName)
	assert.False(t, snap.Loading)
	assert.Equal(t, "u1", s.CurrentUserID())
}

func TestSignIn_RejectedCredentialsLeaveStateEmpty(t *testing.T) {
	auth := &fakeAuth{}
	auth.signInFn = func(ctx context.Context, email, password string) (*account.SignInResult, error) {
		return nil, domain.ErrInvalidCredentials
	}

	s := newStartedStore(t, auth, nil)

	err := s.SignIn(context.Background(), "alice@aau.edu.et", "wrong")

	require.Error(t, err)
	assert.Nil(t, s.Snapshot().Session)
	assert.Equal(t, "", s.CurrentUserID())
}

func TestSignIn_ProfileFetchFailureDegradesToNilProfile(t *testing.T) {
	auth := &fakeAuth{}
	auth.getProfileFn = func(ctx context.Context, userID string) (*domain.UserProfile, error) {
		return nil, errors.New("profiles table unavailable")
	}

	s := newStartedStore(t, auth, nil)
	auth.emit(account.AuthEvent{Kind: account.EventSignedIn, Session: session("u1")})

	// The session survives even though the profile could not be resolved.
	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		return snap.Session != nil && !snap.Loading
	}, time.Second, 5*time.Millisecond)
	assert.Nil(t, s.Snapshot().Profile)
}

// --- sign-out tests ---

func TestSignOut_ClearsStateEvenWhenRemoteFails(t *testing.T) {
	auth := &fakeAuth{}
	auth.signOutFn = func(ctx context.Context, sessionID string) error {
		return errors.New("network down")
	}

	s := newStartedStore(t, auth, nil)
	auth.emit(account.AuthEvent{Kind: account.EventSignedIn, Session: session("u1")})
	waitForProfile(t, s, "u1")

	err := s.SignOut(context.Background())

	require.Error(t, err)
	snap := s.Snapshot()
	assert.Nil(t, snap.Session, "session must be cleared before SignOut returns")
	assert.Nil(t, snap.Profile)
}

func TestSignOut_StaleSignedInEventDiscarded(t *testing.T) {
	auth := &fakeAuth{}
	auth.signOutFn = func(ctx context.Context, sessionID string) error {
		// A sign-in that was in flight when the user hit sign-out resolves now.
		auth.emit(account.AuthEvent{Kind: account.EventSignedIn, Session: session("u-stale")})
		return nil
	}

	s := newStartedStore(t, auth, nil)
	auth.emit(account.AuthEvent{Kind: account.EventSignedIn, Session: session("u1")})
	waitForProfile(t, s, "u1")

	require.NoError(t, s.SignOut(context.Background()))

	assert.Nil(t, s.Snapshot().Session, "stale sign-in must not resurrect the session")
	assert.Equal(t, "", s.CurrentUserID())
}

func TestSignOut_SignedOutEventReenablesSignIn(t *testing.T) {
	auth := &fakeAuth{}
	s := newStartedStore(t, auth, nil)

	require.NoError(t, s.SignOut(context.Background()))
	auth.emit(account.AuthEvent{Kind: account.EventSignedOut})

	// The guard is cleared, so the next sign-in applies normally.
	auth.emit(account.AuthEvent{Kind: account.EventSignedIn, Session: session("u2")})
	waitForProfile(t, s, "u2")
	assert.Equal(t, "u2", s.CurrentUserID())
}

// --- profile update tests ---

func TestUpdateProfile_RequiresSession(t *testing.T) {
	s := newStartedStore(t, &fakeAuth{}, nil)

	_, err := s.UpdateProfile(context.Background(), domain.UpdateProfileRequest{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestUpdateProfile_ReplacesCachedProfile(t *testing.T) {
	bio := "Updated bio"
	auth := &fakeAuth{}
	auth.updateProfileFn = func(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.UserProfile, error) {
		return &domain.UserProfile{UserID: userID, Bio: &bio}, nil
	}

	s := newStartedStore(t, auth, nil)
	auth.emit(account.AuthEvent{Kind: account.EventSignedIn, Session: session("u1")})
	waitForProfile(t, s, "u1")

	p, err := s.UpdateProfile(context.Background(), domain.UpdateProfileRequest{Bio: &bio})

	require.NoError(t, err)
	assert.Equal(t, &bio, p.Bio)
	assert.Equal(t, &bio, s.Snapshot().Profile.Bio)
}

func TestUpdateProfile_StaleFetchCannotClobberUpdate(t *testing.T) {
	bio := "Fresh"
	gate := make(chan struct{})
	entered := make(chan struct{}, 1)

	auth := &fakeAuth{}
	auth.getProfileFn = func(ctx context.Context, userID string) (*domain.UserProfile, error) {
		entered <- struct{}{}
		<-gate
		return &domain.UserProfile{UserID: userID, FullName: "Stale"}, nil
	}
	auth.updateProfileFn = func(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.UserProfile, error) {
		return &domain.UserProfile{UserID: userID, FullName: "Fresh", Bio: &bio}, nil
	}

	s := newStartedStore(t, auth, nil)
	auth.emit(account.AuthEvent{Kind: account.EventSignedIn, Session: session("u1")})
	<-entered // the event's profile fetch is now stalled

	p, err := s.UpdateProfile(context.Background(), domain.UpdateProfileRequest{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "Fresh", p.FullName)

	// Release the stalled fetch; its older result must be dropped.
	close(gate)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, "Fresh", s.Snapshot().Profile.FullName)
}

// --- event stream tests ---

func TestHandleEvent_TokenRefreshedReplacesSession(t *testing.T) {
	auth := &fakeAuth{}
	s := newStartedStore(t, auth, nil)

	auth.emit(account.AuthEvent{Kind: account.EventSignedIn, Session: session("u1")})
	waitForProfile(t, s, "u1")

	refreshed := session("u1")
	refreshed.SessionID = "sess-rotated"
	auth.emit(account.AuthEvent{Kind: account.EventTokenRefreshed, Session: refreshed})

	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		return snap.Session != nil && snap.Session.SessionID == "sess-rotated"
	}, time.Second, 5*time.Millisecond)
}

func TestHandleEvent_PasswordRecoveryKeepsState(t *testing.T) {
	auth := &fakeAuth{}
	s := newStartedStore(t, auth, nil)

	auth.emit(account.AuthEvent{Kind: account.EventSignedIn, Session: session("u1")})
	waitForProfile(t, s, "u1")

	auth.emit(account.AuthEvent{Kind: account.EventPasswordRecovery})

	assert.Equal(t, "u1", s.CurrentUserID())
	assert.NotNil(t, s.Snapshot().Profile)
}

func TestHandleEvent_SessionWithoutIdentityClearsProfile(t *testing.T) {
	auth := &fakeAuth{}
	s := newStartedStore(t, auth, nil)

	auth.emit(account.AuthEvent{Kind: account.EventSignedIn, Session: session("u1")})
	waitForProfile(t, s, "u1")

	auth.emit(account.AuthEvent{Kind: account.EventInitialSession, Session: nil})

	snap := s.Snapshot()
	assert.Nil(t, snap.Session)
	assert.Nil(t, snap.Profile)
}
