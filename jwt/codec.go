package jwt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/dualauth/autherr"
	"github.com/golang-jwt/jwt/v5"
)

// Algorithm names accepted by Config.Algorithm.
const (
	HS256 = "HS256"
	HS384 = "HS384"
	HS512 = "HS512"
)

const maxLeeway = 2 * time.Minute

var (
	// ErrSigningKeyMissing is matched by errors from a codec with no key.
	ErrSigningKeyMissing = errors.New("token signing key is not configured")
	// ErrTokenExpired is matched by errors for tokens past their exp claim.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is matched by errors for tokens that fail verification.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrClaimsShape is matched by errors for verified tokens missing session claims.
	ErrClaimsShape = errors.New("invalid session information in token")
)

// Config configures a Codec.
type Config struct {
	Key       []byte
	Algorithm string
	TTL       time.Duration
	Issuer    string
	Leeway    time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Claims is the identity carried by a token.
type Claims struct {
	SessionID string `json:"sid"`
	UserID    string `json:"uid"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// Codec signs and verifies tokens. It is safe for concurrent use.
type Codec struct {
	key    []byte
	method jwt.SigningMethod
	ttl    time.Duration
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// NewCodec validates cfg. An empty key is accepted here and reported as an
// INTERNAL failure on every Encode and Decode.
func NewCodec(cfg Config) (*Codec, error) {
	method, err := signingMethod(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("token TTL must be > 0")
	}
	if cfg.Leeway < 0 || cfg.Leeway > maxLeeway {
		return nil, errors.New("token leeway must be between 0 and 2m")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Codec{
		key:    append([]byte(nil), cfg.Key...),
		method: method,
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
		leeway: cfg.Leeway,
		now:    now,
	}, nil
}

// TTL returns the lifetime stamped onto new tokens.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Algorithm returns the JOSE algorithm name in use.
func (c *Codec) Algorithm() string { return c.method.Alg() }

// Encode stamps iat=now and exp=now+TTL onto claims and signs them.
func (c *Codec) Encode(claims Claims) (string, error) {
	return c.EncodeAt(claims, c.now())
}

// EncodeAt is Encode with an explicit issue instant.
func (c *Codec) EncodeAt(claims Claims, issuedAt time.Time) (string, error) {
	if len(c.key) == 0 {
		return "", autherr.Sentinel(autherr.KindInternal, ErrSigningKeyMissing.Error(), ErrSigningKeyMissing)
	}

	issuedAt = issuedAt.UTC()
	claims.IssuedAt = jwt.NewNumericDate(issuedAt)
	claims.ExpiresAt = jwt.NewNumericDate(issuedAt.Add(c.ttl))
	if claims.Subject == "" {
		claims.Subject = claims.UserID
	}
	if c.issuer != "" {
		claims.Issuer = c.issuer
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.key)
	if err != nil {
		return "", autherr.Wrap(autherr.KindInternal, "failed to generate token", err)
	}
	return signed, nil
}

// Decode verifies token and returns its claims.
func (c *Codec) Decode(token string) (*Claims, error) {
	if len(c.key) == 0 {
		return nil, autherr.Sentinel(autherr.KindInternal, ErrSigningKeyMissing.Error(), ErrSigningKeyMissing)
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{c.method.Alg()}), jwt.WithoutClaimsValidation())
	parsed, err := parser.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != c.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return c.key, nil
	})
	if err != nil {
		return nil, classify(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, autherr.Sentinel(autherr.KindAuthorization, ErrTokenInvalid.Error(), ErrTokenInvalid)
	}
	if err := c.validateClaims(claims); err != nil {
		return nil, classify(err)
	}
	if strings.TrimSpace(claims.UserID) == "" || strings.TrimSpace(claims.Role) == "" || strings.TrimSpace(claims.SessionID) == "" {
		return nil, autherr.Sentinel(autherr.KindBadRequest, ErrClaimsShape.Error(), ErrClaimsShape)
	}
	return claims, nil
}

// validateClaims applies the registered-claim checks. A token stays valid
// through its exp second and fails once now is after exp+leeway, the same
// boundary sessions use.
func (c *Codec) validateClaims(claims *Claims) error {
	now := c.now()
	switch {
	case claims.ExpiresAt == nil:
		return fmt.Errorf("%w: exp", jwt.ErrTokenRequiredClaimMissing)
	case now.After(claims.ExpiresAt.Time.Add(c.leeway)):
		return jwt.ErrTokenExpired
	case claims.IssuedAt != nil && now.Add(c.leeway).Before(claims.IssuedAt.Time):
		return jwt.ErrTokenUsedBeforeIssued
	case claims.NotBefore != nil && now.Add(c.leeway).Before(claims.NotBefore.Time):
		return jwt.ErrTokenNotValidYet
	case c.issuer != "" && claims.Issuer != c.issuer:
		return jwt.ErrTokenInvalidIssuer
	}
	return nil
}

func classify(err error) error {
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return autherr.Wrap(autherr.KindAuthorization, ErrTokenExpired.Error(), fmt.Errorf("%w: %w", ErrTokenExpired, err))
	case errors.Is(err, jwt.ErrTokenMalformed) && errors.As(err, &typeErr):
		return autherr.Wrap(autherr.KindBadRequest, ErrClaimsShape.Error(), fmt.Errorf("%w: %w", ErrClaimsShape, err))
	default:
		return autherr.Wrap(autherr.KindAuthorization, ErrTokenInvalid.Error(), fmt.Errorf("%w: %w", ErrTokenInvalid, err))
	}
}

func signingMethod(alg string) (jwt.SigningMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(alg)) {
	case "", HS256:
		return jwt.SigningMethodHS256, nil
	case HS384:
		return jwt.SigningMethodHS384, nil
	case HS512:
		return jwt.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("unsupported token algorithm %q", alg)
	}
}
