package dualauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/dualauth/autherr"
	"github.com/MrEthical07/dualauth/credentials"
	"github.com/MrEthical07/dualauth/internal/audit"
	"github.com/MrEthical07/dualauth/internal/rate"
	"github.com/MrEthical07/dualauth/jwt"
	"github.com/MrEthical07/dualauth/password"
	"github.com/MrEthical07/dualauth/session"
)

// Engine authenticates and authorizes callers. It holds no per-user state of
// its own and is safe for concurrent use.
type Engine struct {
	config        Config
	credentials   credentials.Store
	sessions      session.Store
	ownedSessions *session.MemoryStore
	codec         *jwt.Codec
	verifier      password.Verifier
	dummyHash     string
	logger        *slog.Logger
	now           func() time.Time
	newID         func() string
	audit         *audit.Dispatcher
	metrics       *Metrics
	limiter       *rate.Limiter
}

// Close stops the audit dispatcher after draining it and clears the session
// table when the engine created it.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	if e.ownedSessions != nil {
		_ = e.ownedSessions.Close()
	}
}

// AuditDropped returns the number of audit events dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the configuration the engine was built with.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// clock returns the engine time in UTC at second precision, the resolution
// of token timestamps.
func (e *Engine) clock() time.Time {
	return e.now().UTC().Truncate(time.Second)
}

// Authenticate verifies username and password and issues the artifact for
// scheme: a session identifier for SchemeCookie, a signed token for
// SchemeJWT.
//
// Unknown usernames and wrong passwords fail identically with AUTHORIZATION
// "invalid credentials". An unknown scheme fails with BADREQUEST once the
// credentials are known to be valid. Issuance failures are INTERNAL.
//
// With throttling enabled, a username over its failure budget fails with
// AUTHORIZATION "too many login attempts" before any password check.
func (e *Engine) Authenticate(ctx context.Context, username, plaintext string, scheme Scheme) (*AuthResult, error) {
	if e == nil || e.codec == nil {
		return nil, engineNotReady()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if e.limiter != nil {
		if err := e.limiter.Check(ctx, username); err != nil {
			return nil, e.throttled(ctx, scheme, err)
		}
	}

	rec, err := e.verifyCredentials(ctx, username, plaintext)
	if err != nil {
		if e.limiter != nil && errors.Is(err, ErrInvalidCredentials) {
			if ferr := e.limiter.Fail(ctx, username); ferr != nil {
				return nil, e.throttled(ctx, scheme, ferr)
			}
		}
		e.metricInc(MetricAuthenticateFailure)
		e.emitAudit(ctx, auditEventLoginFailure, scheme, "", "", err)
		return nil, err
	}
	if e.limiter != nil {
		if err := e.limiter.Reset(ctx, username); err != nil {
			e.logger.Warn("login throttle reset failed", "error", err)
		}
	}

	var result *AuthResult
	switch scheme {
	case SchemeCookie:
		result, err = e.issueSession(ctx, rec)
	case SchemeJWT:
		result, err = e.issueToken(rec)
	default:
		e.metricInc(MetricSchemeRejected)
		err = invalidScheme()
	}
	if err != nil {
		e.metricInc(MetricAuthenticateFailure)
		e.emitAudit(ctx, auditEventLoginFailure, scheme, rec.UserID, "", err)
		return nil, err
	}

	e.metricInc(MetricAuthenticateSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, scheme, rec.UserID, result.SessionID, nil)
	return result, nil
}

// throttled reports a refused login. Limiter backend failures refuse too.
func (e *Engine) throttled(ctx context.Context, scheme Scheme, cause error) error {
	if !errors.Is(cause, rate.ErrRateLimited) {
		e.logger.Error("login throttle unavailable", "error", cause)
	}
	err := loginThrottled()
	e.metricInc(MetricLoginThrottled)
	e.metricInc(MetricAuthenticateFailure)
	e.emitAudit(ctx, auditEventLoginThrottled, scheme, "", "", err)
	return err
}

func (e *Engine) verifyCredentials(ctx context.Context, username, plaintext string) (credentials.Record, error) {
	rec, err := e.credentials.LookupCredential(ctx, username)
	if err != nil {
		if !errors.Is(err, credentials.ErrNotFound) {
			wrapped := autherr.Wrap(autherr.KindInternal, ErrCredentialLookup.Error(), fmt.Errorf("%w: %w", ErrCredentialLookup, err))
			autherr.LogError(e.logger, "credential lookup failed", wrapped)
			return credentials.Record{}, wrapped
		}
		e.verifier.Verify(plaintext, e.dummyHash)
		return credentials.Record{}, invalidCredentials()
	}
	if !e.verifier.Verify(plaintext, rec.PasswordHash) {
		return credentials.Record{}, invalidCredentials()
	}
	return rec, nil
}

func (e *Engine) issueSession(ctx context.Context, rec credentials.Record) (*AuthResult, error) {
	now := e.clock()
	sess := &session.Session{
		SessionID: e.newID(),
		UserID:    rec.UserID,
		Role:      rec.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(e.config.Session.TTL),
	}

	id, err := e.sessions.Create(ctx, sess)
	if err != nil {
		wrapped := autherr.With(autherr.KindInternal, ErrSessionCreation.Error(),
			fmt.Errorf("%w: %w", ErrSessionCreation, err), "user_id", rec.UserID)
		autherr.LogError(e.logger, "session create failed", wrapped)
		return nil, wrapped
	}
	e.metricInc(MetricSessionCreated)

	return &AuthResult{
		Scheme:    SchemeCookie,
		Success:   true,
		UserID:    rec.UserID,
		Role:      rec.Role,
		SessionID: id,
		IssuedAt:  sess.CreatedAt,
		ExpiresAt: sess.ExpiresAt,
		TTL:       e.config.Session.TTL,
	}, nil
}

func (e *Engine) issueToken(rec credentials.Record) (*AuthResult, error) {
	now := e.clock()
	token, err := e.codec.EncodeAt(jwt.Claims{
		SessionID: e.newID(),
		UserID:    rec.UserID,
		Role:      rec.Role,
	}, now)
	if err != nil {
		wrapped := autherr.With(autherr.KindInternal, ErrTokenGeneration.Error(),
			fmt.Errorf("%w: %w", ErrTokenGeneration, err), "user_id", rec.UserID)
		autherr.LogError(e.logger, "token encode failed", wrapped)
		return nil, wrapped
	}
	e.metricInc(MetricTokenIssued)

	ttl := e.codec.TTL()
	return &AuthResult{
		Scheme:    SchemeJWT,
		Success:   true,
		UserID:    rec.UserID,
		Role:      rec.Role,
		Token:     token,
		TokenType: "bearer",
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
		TTL:       ttl,
	}, nil
}

// Authorize resolves the artifact in req to an Identity and checks the role
// requirement. Identity resolution, including the expiry check, always runs
// before the role check, so an expired artifact reports expiry even when its
// role would also be rejected.
//
// Token and session failures are returned unchanged. A request without the
// artifact its scheme needs fails with BADREQUEST.
func (e *Engine) Authorize(ctx context.Context, req AuthorizeRequest) (*Identity, error) {
	if e == nil || e.codec == nil {
		return nil, engineNotReady()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricAuthorizeLatency, time.Since(start)) }()
	}

	ident, err := e.resolve(ctx, req.Scheme, req.Token, req.SessionID)
	if err != nil {
		e.metricInc(MetricAuthorizeFailure)
		e.emitAudit(ctx, auditEventAuthorizeFailure, req.Scheme, "", req.SessionID, err)
		return nil, err
	}

	if !ident.HasRole(req.RequiredRoles...) {
		err = insufficientRole()
		e.metricInc(MetricRoleDenied)
		e.metricInc(MetricAuthorizeFailure)
		e.emitAudit(ctx, auditEventAuthorizeFailure, req.Scheme, ident.UserID, ident.SessionID, err)
		return nil, err
	}

	e.metricInc(MetricAuthorizeSuccess)
	return ident, nil
}

func (e *Engine) resolve(ctx context.Context, scheme Scheme, token, sessionID string) (*Identity, error) {
	switch {
	case scheme == SchemeJWT && token != "":
		claims, err := e.codec.Decode(token)
		if err != nil {
			e.logInternal("token decode failed", err)
			return nil, err
		}
		ident := &Identity{
			Scheme:    SchemeJWT,
			UserID:    claims.UserID,
			Role:      claims.Role,
			SessionID: claims.SessionID,
		}
		if claims.IssuedAt != nil {
			ident.IssuedAt = claims.IssuedAt.Time.UTC()
		}
		if claims.ExpiresAt != nil {
			ident.ExpiresAt = claims.ExpiresAt.Time.UTC()
		}
		return ident, nil

	case scheme == SchemeCookie && sessionID != "":
		sess, err := e.sessions.Get(ctx, sessionID)
		if err != nil {
			e.logInternal("session lookup failed", err)
			return nil, err
		}
		return &Identity{
			Scheme:    SchemeCookie,
			UserID:    sess.UserID,
			Role:      sess.Role,
			SessionID: sess.SessionID,
			IssuedAt:  sess.CreatedAt.UTC(),
			ExpiresAt: sess.ExpiresAt.UTC(),
		}, nil

	default:
		e.metricInc(MetricSchemeRejected)
		return nil, missingCredential()
	}
}

// Logout ends a login. For SchemeCookie the session is deleted strictly: an
// unknown identifier fails with AUTHORIZATION "session invalid" and an
// expired one is removed and reported as "session expired". For SchemeJWT
// the token is verified and nothing is revoked; the caller discards it.
func (e *Engine) Logout(ctx context.Context, req LogoutRequest) error {
	if e == nil || e.codec == nil {
		return engineNotReady()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		userID string
		err    error
	)
	switch {
	case req.Scheme == SchemeJWT && req.Token != "":
		var claims *jwt.Claims
		claims, err = e.codec.Decode(req.Token)
		if err == nil {
			userID = claims.UserID
		}
	case req.Scheme == SchemeCookie && req.SessionID != "":
		err = e.sessions.Delete(ctx, req.SessionID)
		if err == nil {
			e.metricInc(MetricSessionDeleted)
		}
	default:
		e.metricInc(MetricSchemeRejected)
		err = missingCredential()
	}
	if err != nil {
		e.logInternal("logout failed", err)
		e.emitAudit(ctx, auditEventLogout, req.Scheme, userID, req.SessionID, err)
		return err
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, req.Scheme, userID, req.SessionID, nil)
	return nil
}

func (e *Engine) logInternal(msg string, err error) {
	if autherr.Is(err, autherr.KindInternal) {
		autherr.LogError(e.logger, msg, err)
	}
}
