package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProject = "church-board-test"

type jwksFixture struct {
	key    *rsa.PrivateKey
	server *httptest.Server
}

func newJWKSFixture(t *testing.T) *jwksFixture {
	t.Helper()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pub, err := jwk.FromRaw(&priv.PublicKey)
	require.NoError(t, err)
	require.NoError(t, pub.Set(jwk.KeyIDKey, "kid-1"))

	set := jwk.NewSet()
	require.NoError(t, set.AddKey(pub))
	body, err := json.Marshal(set)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}))
	t.Cleanup(srv.Close)

	return &jwksFixture{key: priv, server: srv}
}

func (f *jwksFixture) sign(t *testing.T, kid string, mutate func(c *firebaseClaims)) string {
	t.Helper()
	now := time.Now()
	claims := &firebaseClaims{
		Email: "member@example.com",
		Name:  "Member",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "firebase-uid",
			Issuer:    "https://securetoken.google.com/" + testProject,
			Audience:  jwt.ClaimStrings{testProject},
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	if mutate != nil {
		mutate(claims)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	s, err := token.SignedString(f.key)
	require.NoError(t, err)
	return s
}

func newTestVerifier(t *testing.T, f *jwksFixture) *FirebaseVerifier {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	v, err := NewFirebaseVerifier(ctx, FirebaseConfig{
		ProjectID:  testProject,
		JWKSURL:    f.server.URL,
		HTTPClient: f.server.Client(),
	})
	require.NoError(t, err)
	return v
}

func TestFirebaseVerifier(t *testing.T) {
	f := newJWKSFixture(t)
	v := newTestVerifier(t, f)
	ctx := context.Background()

	t.Run("valid token", func(t *testing.T) {
		id, err := v.Verify(ctx, f.sign(t, "kid-1", nil))
		require.NoError(t, err)
		assert.Equal(t, &Identity{UID: "firebase-uid", Email: "member@example.com", Name: "Member"}, id)
	})

	tests := []struct {
		name   string
		kid    string
		mutate func(c *firebaseClaims)
	}{
		{name: "unknown kid", kid: "kid-2"},
		{name: "missing kid", kid: ""},
		{name: "wrong audience", kid: "kid-1", mutate: func(c *firebaseClaims) {
			c.Audience = jwt.ClaimStrings{"other-project"}
		}},
		{name: "wrong issuer", kid: "kid-1", mutate: func(c *firebaseClaims) {
			c.Issuer = "https://securetoken.google.com/other-project"
		}},
		{name: "expired", kid: "kid-1", mutate: func(c *firebaseClaims) {
			c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
		}},
		{name: "empty subject", kid: "kid-1", mutate: func(c *firebaseClaims) {
			c.Subject = ""
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(ctx, f.sign(t, tt.kid, tt.mutate))
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	t.Run("HS256 token is rejected", func(t *testing.T) {
		token, err := NewJWTManager("secret", time.Hour).Generate(NewUser("u", "u@example.com", "", nil))
		require.NoError(t, err)
		_, err = v.Verify(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestNewFirebaseVerifier_RequiresProject(t *testing.T) {
	_, err := NewFirebaseVerifier(context.Background(), FirebaseConfig{})
	assert.Error(t, err)
}
