package dualauth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"

	"github.com/MrEthical07/dualauth/credentials"
	"github.com/MrEthical07/dualauth/jwt"
	"github.com/MrEthical07/dualauth/password"
	"github.com/MrEthical07/dualauth/session"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func testHasher(t *testing.T) *password.Bcrypt {
	t.Helper()
	h, err := password.NewBcrypt(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewBcrypt: %v", err)
	}
	return h
}

func testCredentials(t *testing.T) *credentials.MemoryStore {
	t.Helper()
	h := testHasher(t)
	demo, err := credentials.DemoUser(h)
	if err != nil {
		t.Fatalf("DemoUser: %v", err)
	}
	aliceHash, err := h.Hash("alice-pw")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return credentials.NewMemoryStore(demo, credentials.Record{
		Username:     "alice",
		PasswordHash: aliceHash,
		UserID:       "u-alice",
		Role:         credentials.RoleUser,
	})
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.SigningKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.BcryptCost = bcrypt.MinCost
	return cfg
}

func newTestEngine(t *testing.T, clk *testClock, mutate func(*Builder)) *Engine {
	t.Helper()
	b := New().
		WithConfig(testConfig()).
		WithCredentialStore(testCredentials(t)).
		WithClock(clk.Now)
	if mutate != nil {
		mutate(b)
	}
	e, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func requireKind(t *testing.T, err error, kind Kind, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error %q, got nil", kind, msg)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("kind = %s, want %s (err=%v)", got, kind, err)
	}
	if msg != "" {
		if got := Message(err); got != msg {
			t.Fatalf("message = %q, want %q", got, msg)
		}
	}
}

func TestAuthenticateCookieThenAuthorize(t *testing.T) {
	clk := &testClock{t: t0}
	e := newTestEngine(t, clk, nil)
	ctx := context.Background()

	res, err := e.Authenticate(ctx, "test_user", credentials.DemoPassword, SchemeCookie)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if !res.Success || res.Scheme != SchemeCookie {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.SessionID == "" || res.Token != "" {
		t.Fatalf("cookie scheme must set only SessionID: %+v", res)
	}
	if !res.ExpiresAt.Equal(t0.Add(time.Hour)) {
		t.Fatalf("ExpiresAt = %v", res.ExpiresAt)
	}

	ident, err := e.Authorize(ctx, AuthorizeRequest{Scheme: SchemeCookie, SessionID: res.SessionID})
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if ident.UserID != "123" || ident.Role != credentials.RoleAdmin {
		t.Fatalf("unexpected identity %+v", ident)
	}
	if ident.IssuedAt.Location() != time.UTC || ident.ExpiresAt.Location() != time.UTC {
		t.Fatal("identity timestamps must be UTC")
	}
}

func TestAuthenticateJWTThenAuthorize(t *testing.T) {
	clk := &testClock{t: t0}
	e := newTestEngine(t, clk, nil)
	ctx := context.Background()

	res, err := e.Authenticate(ctx, "test_user", credentials.DemoPassword, SchemeJWT)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if res.Token == "" || res.SessionID != "" {
		t.Fatalf("jwt scheme must set only Token: %+v", res)
	}
	if res.TokenType != "bearer" || res.TTL != time.Hour {
		t.Fatalf("unexpected token metadata %+v", res)
	}

	ident, err := e.Authorize(ctx, AuthorizeRequest{Scheme: SchemeJWT, Token: res.Token, RequiredRoles: []string{"Admin"}})
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if ident.UserID != "123" || ident.Role != "Admin" {
		t.Fatalf("unexpected identity %+v", ident)
	}
	if !ident.IssuedAt.Equal(t0) || !ident.ExpiresAt.Equal(t0.Add(time.Hour)) {
		t.Fatalf("timestamps %v %v", ident.IssuedAt, ident.ExpiresAt)
	}

	clk.Advance(59 * time.Minute)
	if _, err := e.Authorize(ctx, AuthorizeRequest{Scheme: SchemeJWT, Token: res.Token}); err != nil {
		t.Fatalf("token should be valid before expiry: %v", err)
	}

	clk.Advance(2 * time.Minute)
	_, err = e.Authorize(ctx, AuthorizeRequest{Scheme: SchemeJWT, Token: res.Token})
	requireKind(t, err, KindAuthorization, "token expired")
	if !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestExpiryBoundaryMatchesAcrossSchemes(t *testing.T) {
	clk := &testClock{t: t0}
	e := newTestEngine(t, clk, nil)
	ctx := context.Background()

	cookie, err := e.Authenticate(ctx, "test_user", credentials.DemoPassword, SchemeCookie)
	if err != nil {
		t.Fatalf("Authenticate cookie: %v", err)
	}
	token, err := e.Authenticate(ctx, "test_user", credentials.DemoPassword, SchemeJWT)
	if err != nil {
		t.Fatalf("Authenticate jwt: %v", err)
	}
	reqs := map[Scheme]AuthorizeRequest{
		SchemeCookie: {Scheme: SchemeCookie, SessionID: cookie.SessionID},
		SchemeJWT:    {Scheme: SchemeJWT, Token: token.Token},
	}

	clk.Advance(time.Hour)
	for scheme, req := range reqs {
		if _, err := e.Authorize(ctx, req); err != nil {
			t.Fatalf("%s: expected valid at exactly expiry, got %v", scheme, err)
		}
	}

	clk.Advance(time.Second)
	for scheme, req := range reqs {
		_, err := e.Authorize(ctx, req)
		if KindOf(err) != KindAuthorization {
			t.Fatalf("%s: expected AUTHORIZATION after expiry, got %v", scheme, err)
		}
	}
}

func TestJWTClaimsDecodeBackToDemoUser(t *testing.T) {
	clk := &testClock{t: t0}
	e := newTestEngine(t, clk, nil)

	res, err := e.Authenticate(context.Background(), "test_user", "password123", SchemeJWT)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	codec, err := jwt.NewCodec(jwt.Config{Key: testConfig().JWT.SigningKey, TTL: time.Hour, Now: clk.Now})
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	claims, err := codec.Decode(res.Token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claims.UserID != "123" || claims.Role != "Admin" || claims.SessionID == "" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestAuthenticateInvalidCredentialsAreIndistinguishable(t *testing.T) {
	clk := &testClock{t: t0}
	e := newTestEngine(t, clk, nil)
	ctx := context.Background()

	cases := []struct {
		name     string
		username string
		password string
		scheme   Scheme
	}{
		{"wrong password cookie", "test_user", "wrongpass", SchemeCookie},
		{"wrong password jwt", "test_user", "wrongpass", SchemeJWT},
		{"unknown user", "ghost", "x", SchemeCookie},
		{"unknown user bad scheme", "ghost", "x", SchemeUnknown},
		{"empty password", "test_user", "", SchemeJWT},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.Authenticate(ctx, tc.username, tc.password, tc.scheme)
			requireKind(t, err, KindAuthorization, "invalid credentials")
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
			if errors.Is(err, credentials.ErrNotFound) {
				t.Fatal("unknown user must not be distinguishable")
			}
		})
	}
}

func TestAuthenticateUnknownScheme(t *testing.T) {
	clk := &testClock{t: t0}
	e := newTestEngine(t, clk, nil)

	_, err := e.Authenticate(context.Background(), "test_user", "password123", ParseScheme("basic"))
	requireKind(t, err, KindBadRequest, "invalid authentication scheme")
	if !errors.Is(err, ErrInvalidScheme) {
		t.Fatalf("expected ErrInvalidScheme, got %v", err)
	}
}

func TestSessionExpiryScenario(t *testing.T) {
	clk := &testClock{t: t0}
	e := newTestEngine(t, clk, nil)
	ctx := context.Background()

	res, err := e.Authenticate(ctx, "alice", "alice-pw", SchemeCookie)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	clk.Advance(30 * time.Minute)
	ident, err := e.Authorize(ctx, AuthorizeRequest{Scheme: SchemeCookie, SessionID: res.SessionID})
	if err != nil {
		t.Fatalf("Authorize at +30m: %v", err)
	}
	if ident.UserID != "u-alice" || ident.Role != "User" {
		t.Fatalf("unexpected identity %+v", ident)
	}

	clk.Advance(31 * time.Minute)
	_, err = e.Authorize(ctx, AuthorizeRequest{Scheme: SchemeCookie, SessionID: res.SessionID})
	requireKind(t, err, KindAuthorization, "session expired")
	if !errors.Is(err, session.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestAuthorizeRoleDeniedForBothSchemes(t *testing.T) {
	clk := &testClock{t: t0}
	e := newTestEngine(t, clk, nil)
	ctx := context.Background()

	for _, scheme := range []Scheme{SchemeCookie, SchemeJWT} {
		t.Run(scheme.String(), func(t *testing.T) {
			res, err := e.Authenticate(ctx, "alice", "alice-pw", scheme)
			if err != nil {
				t.Fatalf("Authenticate: %v", err)
			}
			req := AuthorizeRequest{Scheme: scheme, Token: res.Token, SessionID: res.SessionID, RequiredRoles: []string{"Admin"}}
			_, err = e.Authorize(ctx, req)
			requireKind(t, err, KindAuthorization, "insufficient role")
			if !errors.Is(err, ErrInsufficientRole) {
				t.Fatalf("expected ErrInsufficientRole, got %v", err)
			}

			req.RequiredRoles = []string{"Admin", "User"}
			if _, err := e.Authorize(ctx, req); err != nil {
				t.Fatalf("role set containing User should pass: %v", err)
			}
		})
	}
}

func TestAuthorizeExpiryPrecedesRoleCheck(t *testing.T) {
	clk := &testClock{t: t0}
	e := newTestEngine(t, clk, nil)
	ctx := context.Background()

	cookie, err := e.Authenticate(ctx, "alice", "alice-pw", SchemeCookie)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	token, err := e.Authenticate(ctx, "alice", "alice-pw", SchemeJWT)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	clk.Advance(2 * time.Hour)

	_, err = e.Authorize(ctx, AuthorizeRequest{Scheme: SchemeCookie, SessionID: cookie.SessionID, RequiredRoles: []string{"Admin"}})
	requireKind(t, err, KindAuthorization, "session expired")
	_, err = e.Authorize(ctx, AuthorizeRequest{Scheme: SchemeJWT, Token: token.Token, RequiredRoles: []string{"Admin"}})
	requireKind(t, err, KindAuthorization, "token expired")
}

func TestAuthorizeMissingCredential(t *testing.T) {
	clk := &testClock{t: t0}
	e := newTestEngine(t, clk, nil)

	cases := []AuthorizeRequest{
		{Scheme: SchemeJWT},
		{Scheme: SchemeCookie},
		{Scheme: SchemeJWT, SessionID: "abc"},
		{Scheme: SchemeCookie, Token: "abc"},
		{Scheme: SchemeUnknown, Token: "abc", SessionID: "abc"},
	}
	for i, req := range cases {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			_, err := e.Authorize(context.Background(), req)
			requireKind(t, err, KindBadRequest, "invalid scheme or missing credential")
		})
	}
}

func TestAuthorizeUnknownSessionAndBadToken(t *testing.T) {
	clk := &testClock{t: t0}
	e := newTestEngine(t, clk, nil)
	ctx := context.Background()

	_, err := e.Authorize(ctx, AuthorizeRequest{Scheme: SchemeCookie, SessionID: "nope"})
	requireKind(t, err, KindAuthorization, "session invalid")

	_, err = e.Authorize(ctx, AuthorizeRequest{Scheme: SchemeJWT, Token: "not.a.token"})
	requireKind(t, err, KindAuthorization, "invalid token")
}

func TestLogoutCookieIsStrict(t *testing.T) {
	clk := &testClock{t: t0}
	e := newTestEngine(t, clk, nil)
	ctx := context.Background()

	res, err := e.Authenticate(ctx, "test_user", "password123", SchemeCookie)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if err := e.Logout(ctx, LogoutRequest{Scheme: SchemeCookie, SessionID: res.SessionID}); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	_, err = e.Authorize(ctx, AuthorizeRequest{Scheme: SchemeCookie, SessionID: res.SessionID})
	requireKind(t, err, KindAuthorization, "session invalid")

	err = e.Logout(ctx, LogoutRequest{Scheme: SchemeCookie, SessionID: res.SessionID})
	requireKind(t, err, KindAuthorization, "session invalid")
	if !errors.Is(err, session.ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid, got %v", err)
	}
}

func TestLogoutJWTVerifiesToken(t *testing.T) {
	clk := &testClock{t: t0}
	e := newTestEngine(t, clk, nil)
	ctx := context.Background()

	res, err := e.Authenticate(ctx, "test_user", "password123", SchemeJWT)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if err := e.Logout(ctx, LogoutRequest{Scheme: SchemeJWT, Token: res.Token}); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	err = e.Logout(ctx, LogoutRequest{Scheme: SchemeJWT, Token: res.Token + "x"})
	requireKind(t, err, KindAuthorization, "invalid token")

	err = e.Logout(ctx, LogoutRequest{Scheme: SchemeUnknown})
	requireKind(t, err, KindBadRequest, "invalid scheme or missing credential")
}

func TestMissingSigningKeyIsInternal(t *testing.T) {
	clk := &testClock{t: t0}
	e := newTestEngine(t, clk, func(b *Builder) {
		cfg := testConfig()
		cfg.JWT.SigningKey = nil
		b.WithConfig(cfg)
	})
	ctx := context.Background()

	_, err := e.Authenticate(ctx, "test_user", "password123", SchemeJWT)
	requireKind(t, err, KindInternal, "failed to generate token")
	if !errors.Is(err, jwt.ErrSigningKeyMissing) || !errors.Is(err, ErrTokenGeneration) {
		t.Fatalf("expected signing key sentinels, got %v", err)
	}

	_, err = e.Authorize(ctx, AuthorizeRequest{Scheme: SchemeJWT, Token: "a.b.c"})
	requireKind(t, err, KindInternal, "")

	// the cookie scheme does not need a key
	if _, err := e.Authenticate(ctx, "test_user", "password123", SchemeCookie); err != nil {
		t.Fatalf("cookie Authenticate: %v", err)
	}
}

type failingSessions struct{ session.Store }

func (failingSessions) Create(context.Context, *session.Session) (string, error) {
	return "", errors.New("disk on fire")
}

func TestSessionCreateFailureIsInternal(t *testing.T) {
	clk := &testClock{t: t0}
	e := newTestEngine(t, clk, func(b *Builder) {
		b.WithSessionStore(failingSessions{})
	})

	_, err := e.Authenticate(context.Background(), "test_user", "password123", SchemeCookie)
	requireKind(t, err, KindInternal, "failed to create session")
	if !errors.Is(err, ErrSessionCreation) {
		t.Fatalf("expected ErrSessionCreation, got %v", err)
	}
	if got := Message(err); got != "failed to create session" {
		t.Fatalf("cause leaked into public message: %q", got)
	}
}

type brokenCredentials struct{}

func (brokenCredentials) LookupCredential(context.Context, string) (credentials.Record, error) {
	return credentials.Record{}, errors.New("connection refused")
}

func TestCredentialLookupFailureIsInternal(t *testing.T) {
	clk := &testClock{t: t0}
	e := newTestEngine(t, clk, func(b *Builder) {
		b.WithCredentialStore(brokenCredentials{})
	})

	_, err := e.Authenticate(context.Background(), "test_user", "password123", SchemeCookie)
	requireKind(t, err, KindInternal, "credential lookup failed")
	if !errors.Is(err, ErrCredentialLookup) {
		t.Fatalf("expected ErrCredentialLookup, got %v", err)
	}
}

type countingVerifier struct {
	mu    sync.Mutex
	calls int
	inner password.Verifier
}

func (v *countingVerifier) Verify(plaintext, hash string) bool {
	v.mu.Lock()
	v.calls++
	v.mu.Unlock()
	return v.inner.Verify(plaintext, hash)
}

func TestUnknownUserStillVerifiesAgainstDummyHash(t *testing.T) {
	clk := &testClock{t: t0}
	v := &countingVerifier{inner: password.NewAuto()}
	e := newTestEngine(t, clk, func(b *Builder) {
		b.WithPasswordVerifier(v)
	})

	_, _ = e.Authenticate(context.Background(), "ghost", "x", SchemeJWT)
	_, _ = e.Authenticate(context.Background(), "test_user", "x", SchemeJWT)
	if v.calls != 2 {
		t.Fatalf("verify calls = %d, want 2", v.calls)
	}
}

func TestRedisSessionBackend(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	clk := &testClock{t: t0}
	e := newTestEngine(t, clk, func(b *Builder) {
		cfg := testConfig()
		cfg.Session.Backend = SessionBackendRedis
		b.WithConfig(cfg).WithRedis(rdb)
	})
	ctx := context.Background()

	res, err := e.Authenticate(ctx, "test_user", "password123", SchemeCookie)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if _, err := e.Authorize(ctx, AuthorizeRequest{Scheme: SchemeCookie, SessionID: res.SessionID}); err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if err := e.Logout(ctx, LogoutRequest{Scheme: SchemeCookie, SessionID: res.SessionID}); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	err = e.Logout(ctx, LogoutRequest{Scheme: SchemeCookie, SessionID: res.SessionID})
	requireKind(t, err, KindAuthorization, "session invalid")
}

func TestBuildValidation(t *testing.T) {
	if _, err := New().Build(); err == nil {
		t.Fatal("expected error without credential store")
	}

	b := New().WithConfig(testConfig()).WithCredentialStore(credentials.NewMemoryStore())
	cfg := testConfig()
	cfg.Session.Backend = SessionBackendRedis
	if _, err := New().WithConfig(cfg).WithCredentialStore(credentials.NewMemoryStore()).Build(); err == nil {
		t.Fatal("expected error for redis backend without client")
	}

	e, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer e.Close()
	if _, err := b.Build(); err == nil {
		t.Fatal("builder must be single-use")
	}
}

func TestNilEngine(t *testing.T) {
	var e *Engine
	_, err := e.Authenticate(context.Background(), "a", "b", SchemeJWT)
	requireKind(t, err, KindInternal, "engine not initialized")
	_, err = e.Authorize(context.Background(), AuthorizeRequest{})
	requireKind(t, err, KindInternal, "")
	if err := e.Logout(context.Background(), LogoutRequest{}); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("Logout on nil engine: %v", err)
	}
	e.Close()
	if e.AuditDropped() != 0 {
		t.Fatal("nil engine has no audit")
	}
}

func TestConcurrentAuthenticateAuthorizeLogout(t *testing.T) {
	clk := &testClock{t: t0}
	e := newTestEngine(t, clk, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			scheme := SchemeCookie
			if i%2 == 0 {
				scheme = SchemeJWT
			}
			res, err := e.Authenticate(ctx, "test_user", "password123", scheme)
			if err != nil {
				errs <- err
				return
			}
			req := AuthorizeRequest{Scheme: scheme, Token: res.Token, SessionID: res.SessionID}
			for j := 0; j < 10; j++ {
				if _, err := e.Authorize(ctx, req); err != nil {
					errs <- err
					return
				}
			}
			if err := e.Logout(ctx, LogoutRequest{Scheme: scheme, Token: res.Token, SessionID: res.SessionID}); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent call failed: %v", err)
	}
}

func TestCloseClearsOwnedSessionsAndStopsAudit(t *testing.T) {
	defer goleak.VerifyNone(t)

	clk := &testClock{t: t0}
	cfg := testConfig()
	cfg.Audit.Enabled = true
	sink := NewChannelSink(16)
	e, err := New().
		WithConfig(cfg).
		WithCredentialStore(testCredentials(t)).
		WithClock(clk.Now).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	res, err := e.Authenticate(context.Background(), "test_user", "password123", SchemeCookie)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if e.ownedSessions.Len() != 1 {
		t.Fatalf("owned sessions = %d", e.ownedSessions.Len())
	}

	e.Close()
	if e.ownedSessions.Len() != 0 {
		t.Fatal("Close must clear the owned session table")
	}
	_, err = e.sessions.Get(context.Background(), res.SessionID)
	requireKind(t, err, KindAuthorization, "session invalid")
}

func TestAuditEvents(t *testing.T) {
	clk := &testClock{t: t0}
	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = false
	sink := NewChannelSink(16)
	e, err := New().
		WithConfig(cfg).
		WithCredentialStore(testCredentials(t)).
		WithClock(clk.Now).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	ctx := WithCorrelationID(WithCaller(context.Background(), "svc-orders"), "corr-1")
	res, err := e.Authenticate(ctx, "test_user", "password123", SchemeCookie)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	_, _ = e.Authenticate(ctx, "ghost", "x", SchemeJWT)
	_, _ = e.Authorize(ctx, AuthorizeRequest{Scheme: SchemeCookie, SessionID: "missing"})
	if err := e.Logout(ctx, LogoutRequest{Scheme: SchemeCookie, SessionID: res.SessionID}); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	e.Close()

	want := []struct {
		eventType string
		success   bool
		kind      string
	}{
		{"login_success", true, ""},
		{"login_failure", false, "AUTHORIZATION"},
		{"authorize_failure", false, "AUTHORIZATION"},
		{"logout", true, ""},
	}
	for i, w := range want {
		var ev AuditEvent
		select {
		case ev = <-sink.Events():
		default:
			t.Fatalf("event %d missing", i)
		}
		if ev.EventType != w.eventType || ev.Success != w.success || ev.ErrorKind != w.kind {
			t.Fatalf("event %d = %+v, want %+v", i, ev, w)
		}
		if ev.ID == "" || ev.Caller != "svc-orders" || ev.CorrelationID != "corr-1" {
			t.Fatalf("event %d missing stamps: %+v", i, ev)
		}
	}
	if n := len(sink.Events()); n != 0 {
		t.Fatalf("%d unexpected extra events", n)
	}
}
