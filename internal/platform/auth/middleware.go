package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserRolesKey contextKey = "user_roles"
)

// Roles recognized by this service. Any other role in a token is carried
// through but grants nothing.
const (
	RolePatient  = "patient"
	RoleProvider = "provider"
	RoleAdmin    = "admin"
)

type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string
	// SigningKey enables HMAC verification; used for development/testing only.
	SigningKey []byte
}

const jwksRefreshInterval = 5 * time.Minute

// remoteKeySet lazily mirrors the RSA keys published at a JWKS endpoint and
// refetches them when they go stale or an unknown kid shows up.
type remoteKeySet struct {
	url    string
	ttl    time.Duration
	client *http.Client

	mu      sync.RWMutex
	byKid   map[string]*rsa.PublicKey
	staleAt time.Time
}

func newRemoteKeySet(url string, ttl time.Duration) *remoteKeySet {
	return &remoteKeySet{
		url:    url,
		ttl:    ttl,
		client: &http.Client{Timeout: 10 * time.Second},
		byKid:  make(map[string]*rsa.PublicKey),
	}
}

func (ks *remoteKeySet) key(kid string) (*rsa.PublicKey, error) {
	ks.mu.RLock()
	pub, ok := ks.byKid[kid]
	fresh := time.Now().Before(ks.staleAt)
	ks.mu.RUnlock()

	if ok && fresh {
		return pub, nil
	}

	if err := ks.refresh(); err != nil {
		return nil, fmt.Errorf("refreshing JWKS: %w", err)
	}

	ks.mu.RLock()
	defer ks.mu.RUnlock()
	pub, ok = ks.byKid[kid]
	if !ok {
		return nil, fmt.Errorf("no JWKS key for kid %q", kid)
	}
	return pub, nil
}

func (ks *remoteKeySet) refresh() error {
	resp, err := ks.client.Get(ks.url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	var doc struct {
		Keys []struct {
			Kty string `json:"kty"`
			Kid string `json:"kid"`
			N   string `json:"n"`
			E   string `json:"e"`
		} `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("decode JWKS document: %w", err)
	}

	byKid := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		modulus, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			continue
		}
		expBytes, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			continue
		}
		exp := 0
		for _, b := range expBytes {
			exp = exp<<8 | int(b)
		}
		byKid[k.Kid] = &rsa.PublicKey{N: new(big.Int).SetBytes(modulus), E: exp}
	}

	ks.mu.Lock()
	ks.byKid = byKid
	ks.staleAt = time.Now().Add(ks.ttl)
	ks.mu.Unlock()
	return nil
}

func (ks *remoteKeySet) keyfunc(token *jwt.Token) (interface{}, error) {
	kid, _ := token.Header["kid"].(string)
	if kid == "" {
		return nil, fmt.Errorf("token header missing kid")
	}
	return ks.key(kid)
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
	}
	return token, nil
}

// JWTMiddleware validates bearer tokens and places the caller's identity and
// roles on the request context. Token issuance is an external concern; this
// service only verifies. The JWKS key set, when used, is shared across
// requests and refreshed on demand.
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256", "HS256"}),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	var keyfn jwt.Keyfunc
	if len(cfg.SigningKey) > 0 {
		key := cfg.SigningKey
		keyfn = func(*jwt.Token) (interface{}, error) { return key, nil }
	} else {
		keyfn = newRemoteKeySet(cfg.JWKSURL, jwksRefreshInterval).keyfunc
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := bearerToken(c.Request())
			if err != nil {
				return err
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(raw, claims, keyfn, opts...)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			ctx := context.WithValue(c.Request().Context(), UserIDKey, claims.Subject)
			ctx = context.WithValue(ctx, UserRolesKey, claims.Roles)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// DevAuthMiddleware is a permissive middleware for development that treats
// every unauthenticated request as an admin dev user.
func DevAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, UserIDKey, "dev-user")
			ctx = context.WithValue(ctx, UserRolesKey, []string{RoleAdmin})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(UserRolesKey).([]string)
	return roles
}
