package services

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/learnproof/learnproof-api/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProjectID = "learnproof-test"

type signingFixture struct {
	key    *rsa.PrivateKey
	server *httptest.Server
	hits   atomic.Int32
}

func newSigningFixture(t *testing.T) *signingFixture {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "securetoken.test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	certPEM := string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))

	f := &signingFixture{key: key}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		body, _ := shared.JSONMarshal(map[string]string{"kid-1": certPEM, "broken": "not a pem"})
		w.Header().Set("Cache-Control", "public, max-age=600")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *signingFixture) sign(t *testing.T, kid string, mutate func(*firebaseClaims)) string {
	t.Helper()

	now := time.Now()
	claims := &firebaseClaims{
		Email: "ada@example.com",
		Name:  "Ada",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "firebase-uid-1",
			Audience:  jwt.ClaimStrings{testProjectID},
			Issuer:    "https://securetoken.google.com/" + testProjectID,
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	if mutate != nil {
		mutate(claims)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(f.key)
	require.NoError(t, err)
	return signed
}

func TestVerifyFirebaseToken(t *testing.T) {
	f := newSigningFixture(t)
	svc := NewFirebaseIdentityService(testProjectID, f.server.URL, nil, nil)
	ctx := context.Background()

	identity, err := svc.Verify(ctx, f.sign(t, "kid-1", nil))
	require.NoError(t, err)
	assert.Equal(t, "firebase-uid-1", identity.Subject)
	assert.Equal(t, "ada@example.com", identity.Email)
	assert.Equal(t, "Ada", identity.Name)

	_, err = svc.Verify(ctx, f.sign(t, "kid-1", func(c *firebaseClaims) { c.Subject = "another" }))
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.hits.Load(), "signing keys are cached")
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	f := newSigningFixture(t)
	svc := NewFirebaseIdentityService(testProjectID, f.server.URL, nil, nil)
	ctx := context.Background()

	cases := map[string]string{
		"empty":        "",
		"garbage":      "not-a-jwt",
		"wrong aud":    f.sign(t, "kid-1", func(c *firebaseClaims) { c.Audience = jwt.ClaimStrings{"other"} }),
		"wrong issuer": f.sign(t, "kid-1", func(c *firebaseClaims) { c.Issuer = "https://evil.example.com" }),
		"expired":      f.sign(t, "kid-1", func(c *firebaseClaims) { c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute)) }),
		"unknown kid":  f.sign(t, "kid-9", nil),
		"no subject":   f.sign(t, "kid-1", func(c *firebaseClaims) { c.Subject = "" }),
	}
	for name, token := range cases {
		_, err := svc.Verify(ctx, token)
		assert.True(t, shared.IsKind(err, shared.KindAuthFailure), "%s: %v", name, err)
	}
}

func TestUnknownKeyIDDoesNotRefetchFreshKeys(t *testing.T) {
	f := newSigningFixture(t)
	svc := NewFirebaseIdentityService(testProjectID, f.server.URL, nil, nil)
	ctx := context.Background()

	_, err := svc.Verify(ctx, f.sign(t, "kid-1", nil))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err = svc.Verify(ctx, f.sign(t, "kid-9", nil))
		assert.True(t, shared.IsKind(err, shared.KindAuthFailure), "%v", err)
	}
	assert.EqualValues(t, 1, f.hits.Load())

	// Once the set expires a miss refreshes it again.
	svc.now = func() time.Time { return time.Now().Add(11 * time.Minute) }
	_, err = svc.Verify(ctx, f.sign(t, "kid-9", nil))
	assert.True(t, shared.IsKind(err, shared.KindAuthFailure), "%v", err)
	assert.EqualValues(t, 2, f.hits.Load())
}

func TestVerifyWhenCertificatesUnavailable(t *testing.T) {
	f := newSigningFixture(t)
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(down.Close)

	svc := NewFirebaseIdentityService(testProjectID, down.URL, nil, nil)
	_, err := svc.Verify(context.Background(), f.sign(t, "kid-1", nil))
	assert.True(t, shared.IsKind(err, shared.KindUpstream), "%v", err)
}

func TestCacheMaxAge(t *testing.T) {
	assert.Equal(t, 600*time.Second, cacheMaxAge("public, max-age=600, must-revalidate"))
	assert.Equal(t, defaultCertMaxAge, cacheMaxAge(""))
	assert.Equal(t, defaultCertMaxAge, cacheMaxAge("max-age=abc"))
}
