package middleware

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hs256(secret string, claims jwt.MapClaims) string {
	signed, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	return signed
}

func TestSharedSecretValidator_Claims(t *testing.T) {
	t.Parallel()

	v := NewSharedSecretValidator("explorer-secret")
	exp := time.Now().Add(time.Hour).Unix()

	claims, err := v.Validate(context.Background(), hs256("explorer-secret", jwt.MapClaims{
		"sub":   "analyst-7",
		"iss":   "https://login.lake.test",
		"email": "analyst@lake.test",
		"name":  "Lake Analyst",
		"aud":   []string{"lake-explorer", "cli"},
		"exp":   exp,
	}))
	require.NoError(t, err)
	assert.Equal(t, "analyst-7", claims.Subject)
	assert.Equal(t, "https://login.lake.test", claims.Issuer)
	assert.Equal(t, []string{"lake-explorer", "cli"}, claims.Audience)
	require.NotNil(t, claims.Email)
	assert.Equal(t, "analyst@lake.test", *claims.Email)
	require.NotNil(t, claims.Name)
	assert.Equal(t, "Lake Analyst", *claims.Name)
	assert.EqualValues(t, exp, claims.Raw["exp"])

	claims, err = v.Validate(context.Background(), hs256("explorer-secret", jwt.MapClaims{"sub": "svc", "aud": "lake-explorer", "exp": exp}))
	require.NoError(t, err)
	assert.Equal(t, []string{"lake-explorer"}, claims.Audience)
	assert.Nil(t, claims.Email)
	assert.Nil(t, claims.Name)
	assert.Empty(t, claims.Issuer)
}

func TestSharedSecretValidator_Rejects(t *testing.T) {
	t.Parallel()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	rs256, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{"sub": "x", "exp": time.Now().Add(time.Hour).Unix()}).SignedString(key)
	require.NoError(t, err)

	tokens := map[string]string{
		"expired":      hs256("explorer-secret", jwt.MapClaims{"sub": "x", "exp": time.Now().Add(-time.Minute).Unix()}),
		"other secret": hs256("not-the-secret", jwt.MapClaims{"sub": "x", "exp": time.Now().Add(time.Hour).Unix()}),
		"rs256":        rs256,
		"garbage":      "a.b.c.d",
		"empty":        "",
	}
	v := NewSharedSecretValidator("explorer-secret")
	for name, tok := range tokens {
		t.Run(name, func(t *testing.T) {
			claims, err := v.Validate(context.Background(), tok)
			assert.ErrorContains(t, err, "jwt parse")
			assert.Nil(t, claims)
		})
	}
}

func TestIssuerSet(t *testing.T) {
	t.Parallel()

	assert.Equal(t, map[string]bool{"https://a": true, "https://b": true}, issuerSet("https://idp", []string{"https://a", "https://b"}))
	assert.Equal(t, map[string]bool{"https://idp": true}, issuerSet("https://idp", nil))
	assert.Equal(t, map[string]bool{}, issuerSet("", nil))
}

// signRS256 signs claims with key for the OIDC validator tests.
func signRS256(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestOIDCValidator_Validate(t *testing.T) {
	t.Parallel()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	const issuer = "https://idp.example.com"
	keys := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{key.Public()}}
	v := NewOIDCValidatorFromKeySet(keys, issuer, "lake-explorer", nil)

	base := func() jwt.MapClaims {
		return jwt.MapClaims{
			"iss":   issuer,
			"sub":   "user-1",
			"aud":   "lake-explorer",
			"email": "user@example.com",
			"exp":   time.Now().Add(time.Hour).Unix(),
			"iat":   time.Now().Unix(),
		}
	}

	claims, err := v.Validate(context.Background(), signRS256(t, key, base()))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, issuer, claims.Issuer)
	assert.Equal(t, []string{"lake-explorer"}, claims.Audience)
	require.NotNil(t, claims.Email)
	assert.Equal(t, "user@example.com", *claims.Email)
	assert.Nil(t, claims.Name)

	tests := []struct {
		name   string
		token  func() string
		errMsg string
	}{
		{"wrong key", func() string { return signRS256(t, other, base()) }, "token verification failed"},
		{"wrong audience", func() string {
			c := base()
			c["aud"] = "someone-else"
			return signRS256(t, key, c)
		}, "token verification failed"},
		{"expired", func() string {
			c := base()
			c["exp"] = time.Now().Add(-time.Hour).Unix()
			return signRS256(t, key, c)
		}, "token verification failed"},
		{"wrong issuer", func() string {
			c := base()
			c["iss"] = "https://evil.example.com"
			return signRS256(t, key, c)
		}, "token verification failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(context.Background(), tt.token())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestOIDCValidator_IssuerAllowList(t *testing.T) {
	t.Parallel()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	const issuer = "https://idp.example.com"
	keys := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{key.Public()}}
	v := NewOIDCValidatorFromKeySet(keys, issuer, "lake-explorer", []string{"https://other.example.com"})

	_, err = v.Validate(context.Background(), signRS256(t, key, jwt.MapClaims{
		"iss": issuer, "sub": "u", "aud": "lake-explorer", "exp": time.Now().Add(time.Hour).Unix(),
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in allowed list")
}
