package jwt

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	xerrors "jwt-service/internal/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultTestTTL = time.Hour

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
)

func sharedTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	testKeyOnce.Do(func() {
		k, err := rsa.GenerateKey(rand.Reader, RSAKeyBits)
		if err != nil {
			panic(err)
		}
		testKey = k
	})
	return testKey
}

func newTestManager(t *testing.T, issuer string, ttl time.Duration, clock Clock) *Manager {
	t.Helper()
	key := sharedTestKey(t)
	keys := &KeyPair{priv: key, pub: &key.PublicKey}
	return NewManager(keys, issuer, ttl, clock, nil)
}

func TestManager_IssueAndValidate(t *testing.T) {
	mgr := newTestManager(t, "svc", defaultTestTTL, nil)

	token, err := mgr.Issue(NewClaims().Set("client_id", StringClaim("svc-a")), "svc-a")
	require.NoError(t, err)

	assert.True(t, mgr.IsValid(token, "svc-a"))
	assert.False(t, mgr.IsValid(token, "svc-b"))
	assert.False(t, mgr.IsValid(token, "SVC-A"), "subject comparison is case-sensitive")
	assert.False(t, mgr.IsValid(token, "svc-a "))
}

func TestManager_ExtractSubjectRoundTrip(t *testing.T) {
	mgr := newTestManager(t, "svc", defaultTestTTL, nil)

	tests := []struct {
		name   string
		claims *Claims
	}{
		{name: "nil claims", claims: nil},
		{name: "empty claims", claims: NewClaims()},
		{name: "string claim", claims: NewClaims().Set("client_id", StringClaim("account-transfers-ms"))},
		{
			name: "mixed claims",
			claims: NewClaims().
				Set("scope", StringClaim("read write")).
				Set("tier", NumberClaim(3)).
				Set("internal", BoolClaim(true)),
		},
		{name: "claim shadowing sub is ignored", claims: NewClaims().Set("sub", StringClaim("someone-else"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := mgr.Issue(tt.claims, "svc-a")
			require.NoError(t, err)

			subject, err := mgr.ExtractSubject(token)
			require.NoError(t, err)
			assert.Equal(t, "svc-a", subject)

			parsed, err := mgr.ExtractClaims(token)
			require.NoError(t, err)
			assert.Equal(t, "svc", parsed.Issuer)
			for _, key := range tt.claims.Keys() {
				if registeredNames[key] {
					continue
				}
				want, _ := tt.claims.Get(key)
				got, ok := parsed.Custom.Get(key)
				require.True(t, ok, key)
				assert.Equal(t, want, got)
			}
		})
	}
}

func TestManager_ExtractExpiration(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	mgr := newTestManager(t, "svc", 90*time.Second, clock)

	token, err := mgr.Issue(nil, "svc-a")
	require.NoError(t, err)

	exp, err := mgr.ExtractExpiration(token)
	require.NoError(t, err)
	assert.True(t, exp.Equal(time.Unix(1_700_000_090, 0)), "got %s", exp)
}

func TestManager_Expiry(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 500_000_000))
	mgr := newTestManager(t, "svc", 1000*time.Millisecond, clock)

	claims := NewClaims().Set("client_id", StringClaim("account-transfers-ms"))
	token, err := mgr.Issue(claims, "account-transfers-ms")
	require.NoError(t, err)

	assert.True(t, mgr.IsValid(token, "account-transfers-ms"))

	clock.Advance(1100 * time.Millisecond)

	assert.False(t, mgr.IsValid(token, "account-transfers-ms"))

	_, err = mgr.ExtractSubject(token)
	assert.ErrorIs(t, err, xerrors.ErrInvalidToken)
	assert.NotErrorIs(t, err, jwt.ErrTokenExpired, "expiry is not distinguishable from forgery")

	_, err = mgr.ExtractExpiration(token)
	assert.ErrorIs(t, err, xerrors.ErrInvalidToken)
}

func TestManager_TamperedSignature(t *testing.T) {
	mgr := newTestManager(t, "svc", defaultTestTTL, nil)

	token, err := mgr.Issue(NewClaims().Set("client_id", StringClaim("svc-a")), "svc-a")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	require.NoError(t, err)

	for i := range sig {
		tampered := append([]byte(nil), sig...)
		tampered[i] ^= 0x01
		forged := parts[0] + "." + parts[1] + "." + base64.RawURLEncoding.EncodeToString(tampered)

		_, err := mgr.ExtractSubject(forged)
		require.ErrorIs(t, err, xerrors.ErrInvalidToken, "byte %d", i)
		require.False(t, mgr.IsValid(forged, "svc-a"), "byte %d", i)
	}
}

func TestManager_TamperedPayload(t *testing.T) {
	mgr := newTestManager(t, "svc", defaultTestTTL, nil)

	token, err := mgr.Issue(nil, "svc-a")
	require.NoError(t, err)
	parts := strings.Split(token, ".")

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	swapped := strings.Replace(string(payload), `"sub":"svc-a"`, `"sub":"svc-b"`, 1)
	require.NotEqual(t, string(payload), swapped)

	forged := parts[0] + "." + base64.RawURLEncoding.EncodeToString([]byte(swapped)) + "." + parts[2]
	assert.False(t, mgr.IsValid(forged, "svc-b"))
}

func TestManager_RejectsMalformed(t *testing.T) {
	mgr := newTestManager(t, "svc", defaultTestTTL, nil)

	for _, token := range []string{"", "abc", "a.b", "a.b.c", "a.b.c.d"} {
		_, err := mgr.ExtractSubject(token)
		assert.ErrorIs(t, err, xerrors.ErrInvalidToken, token)
		assert.False(t, mgr.IsValid(token, "svc-a"), token)
	}
}

func TestManager_RejectsOtherAlgorithms(t *testing.T) {
	key := sharedTestKey(t)
	mgr := newTestManager(t, "svc", defaultTestTTL, nil)
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	t.Run("HS256 keyed with the public modulus", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "svc-a", ExpiresAt: exp})
		signed, err := tok.SignedString(key.PublicKey.N.Bytes())
		require.NoError(t, err)
		assert.False(t, mgr.IsValid(signed, "svc-a"))
	})

	t.Run("none", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "svc-a", ExpiresAt: exp})
		signed, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		assert.False(t, mgr.IsValid(signed, "svc-a"))
	})

	t.Run("RS512", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodRS512, jwt.RegisteredClaims{Subject: "svc-a", ExpiresAt: exp})
		signed, err := tok.SignedString(key)
		require.NoError(t, err)
		assert.False(t, mgr.IsValid(signed, "svc-a"))
	})
}

func TestManager_RequiresExpiration(t *testing.T) {
	key := sharedTestKey(t)
	mgr := newTestManager(t, "svc", defaultTestTTL, nil)

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{Subject: "svc-a"})
	signed, err := tok.SignedString(key)
	require.NoError(t, err)

	assert.False(t, mgr.IsValid(signed, "svc-a"))
}

// Issued tokens must be byte-for-byte what any RS256 implementation would
// produce for the same header, payload and key.
func TestManager_ReferenceVector(t *testing.T) {
	key := sharedTestKey(t)
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	mgr := newTestManager(t, "svc", 1000*time.Millisecond, clock)

	token, err := mgr.Issue(NewClaims().Set("client_id", StringClaim("account-transfers-ms")), "account-transfers-ms")
	require.NoError(t, err)

	header := `{"alg":"RS256","typ":"JWT"}`
	payload := `{"client_id":"account-transfers-ms","sub":"account-transfers-ms","iss":"svc","iat":1700000000,"exp":1700000001}`
	signingInput := base64.RawURLEncoding.EncodeToString([]byte(header)) + "." +
		base64.RawURLEncoding.EncodeToString([]byte(payload))

	digest := sha256.Sum256([]byte(signingInput))
	sig, err := rsa.SignPKCS1v15(nil, key, crypto.SHA256, digest[:])
	require.NoError(t, err)
	want := signingInput + "." + base64.RawURLEncoding.EncodeToString(sig)

	assert.Equal(t, want, token)
	assert.NotContains(t, token, "=")

	// and a hand-built token verifies
	subject, err := mgr.ExtractSubject(want)
	require.NoError(t, err)
	assert.Equal(t, "account-transfers-ms", subject)
}

func TestManager_HeaderIsStandard(t *testing.T) {
	mgr := newTestManager(t, "svc", defaultTestTTL, nil)
	token, err := mgr.Issue(nil, "svc-a")
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(strings.Split(token, ".")[0])
	require.NoError(t, err)

	var header map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &header))
	assert.Equal(t, "RS256", header["alg"])
	assert.Equal(t, "JWT", header["typ"])
}

func TestManager_ConcurrentUse(t *testing.T) {
	mgr := newTestManager(t, "svc", defaultTestTTL, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := mgr.Issue(NewClaims().Set("n", NumberClaim(1)), "svc-a")
			if err != nil {
				errs <- err
				return
			}
			if !mgr.IsValid(token, "svc-a") {
				errs <- xerrors.ErrInvalidToken
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestGenerator_NilKey(t *testing.T) {
	_, err := NewGenerator(nil, "svc", time.Minute, nil).Issue(nil, "svc-a")
	assert.ErrorIs(t, err, xerrors.ErrKeysNotLoaded)

	_, err = NewVerifier(nil, nil, nil).ExtractSubject("a.b.c")
	assert.ErrorIs(t, err, xerrors.ErrKeysNotLoaded)
}

func TestGenerator_SubSecondTTL(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 200_000_000))
	mgr := newTestManager(t, "svc", 500*time.Millisecond, clock)
	assert.Equal(t, MinTTL, mgr.Generator.Ttl)

	token, err := mgr.Issue(nil, "svc-a")
	require.NoError(t, err)
	assert.True(t, mgr.IsValid(token, "svc-a"))

	exp, err := mgr.ExtractExpiration(token)
	require.NoError(t, err)
	assert.True(t, exp.Equal(time.Unix(1_700_000_001, 0)), "got %s", exp)
}

func TestManager_IssueSkipsUnencodableClaims(t *testing.T) {
	mgr := newTestManager(t, "svc", defaultTestTTL, nil)

	claims := NewClaims().
		Set("nan", NumberClaim(math.NaN())).
		Set("inf", NumberClaim(math.Inf(-1))).
		Set("empty", ClaimValue{}).
		Set("client_id", StringClaim("svc-a"))

	token, err := mgr.Issue(claims, "svc-a")
	require.NoError(t, err)

	parsed, err := mgr.ExtractClaims(token)
	require.NoError(t, err)
	assert.Equal(t, []string{"client_id"}, parsed.Custom.Keys())
}

func TestLoadAndBuild(t *testing.T) {
	privPath, pubPath := keyPaths(t)
	cfg := Config{PrivPath: privPath, PubPath: pubPath, Issuer: "svc", TTL: time.Minute}

	mgr, err := LoadAndBuild(cfg, nil, nil)
	require.NoError(t, err)

	token, err := mgr.Issue(nil, "svc-a")
	require.NoError(t, err)

	again, err := LoadAndBuild(cfg, nil, nil)
	require.NoError(t, err)
	assert.True(t, again.IsValid(token, "svc-a"))
}
