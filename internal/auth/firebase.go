package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// GoogleSecureTokenJWKS publishes the keys that sign Firebase ID tokens.
const GoogleSecureTokenJWKS = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

// Ensure FirebaseVerifier satisfies TokenVerifier
var _ TokenVerifier = (*FirebaseVerifier)(nil)

// FirebaseConfig configures ID token verification.
type FirebaseConfig struct {
	ProjectID string

	// JWKSURL overrides GoogleSecureTokenJWKS.
	JWKSURL string

	// HTTPClient is used to fetch the key set. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// RefreshInterval is the minimum time between key set refreshes.
	RefreshInterval time.Duration
}

// FirebaseVerifier verifies Firebase Authentication ID tokens.
type FirebaseVerifier struct {
	projectID string
	issuer    string
	jwksURL   string
	cache     *jwk.Cache
	parser    *jwt.Parser
}

type firebaseClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// NewFirebaseVerifier registers the key set with a background-refreshing
// cache. The cache lives as long as ctx.
func NewFirebaseVerifier(ctx context.Context, cfg FirebaseConfig) (*FirebaseVerifier, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firebase project ID is required")
	}
	if cfg.JWKSURL == "" {
		cfg.JWKSURL = GoogleSecureTokenJWKS
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = time.Hour
	}

	cache := jwk.NewCache(ctx)
	err := cache.Register(cfg.JWKSURL,
		jwk.WithHTTPClient(cfg.HTTPClient),
		jwk.WithMinRefreshInterval(cfg.RefreshInterval),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register JWKS: %w", err)
	}

	issuer := "https://securetoken.google.com/" + cfg.ProjectID
	return &FirebaseVerifier{
		projectID: cfg.ProjectID,
		issuer:    issuer,
		jwksURL:   cfg.JWKSURL,
		cache:     cache,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithAudience(cfg.ProjectID),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithLeeway(30*time.Second),
		),
	}, nil
}

// Verify implements TokenVerifier.
func (v *FirebaseVerifier) Verify(ctx context.Context, tokenString string) (*Identity, error) {
	claims := &firebaseClaims{}
	_, err := v.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token has no kid header")
		}
		return v.publicKey(ctx, kid)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}

	return &Identity{UID: claims.Subject, Email: claims.Email, Name: claims.Name}, nil
}

func (v *FirebaseVerifier) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	set, err := v.cache.Get(ctx, v.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	key, ok := set.LookupKeyID(kid)
	if !ok {
		return nil, fmt.Errorf("unknown key %q", kid)
	}

	var raw interface{}
	if err := key.Raw(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode key %q: %w", kid, err)
	}
	pub, ok := raw.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("key %q is %T, not RSA", kid, raw)
	}
	return pub, nil
}
