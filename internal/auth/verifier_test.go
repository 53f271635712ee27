package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVerifier(t *testing.T, issuer, audience string) *Verifier {
	t.Helper()
	v, err := NewVerifier("test-secret", issuer, audience)
	require.NoError(t, err)
	return v
}

func TestIssueAndVerify(t *testing.T) {
	v := newVerifier(t, "candle", "app")

	token, err := v.Issue("user-1", time.Hour)
	require.NoError(t, err)

	sub, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub)
}

func TestNoSecret(t *testing.T) {
	_, err := NewVerifier("", "", "")
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestVerifyRejects(t *testing.T) {
	v := newVerifier(t, "candle", "app")
	other, err := NewVerifier("other-secret", "candle", "app")
	require.NoError(t, err)

	expired, err := v.Issue("user-1", -time.Minute)
	require.NoError(t, err)
	wrongKey, err := other.Issue("user-1", time.Hour)
	require.NoError(t, err)
	wrongIssuer, err := newVerifier(t, "someone", "app").Issue("user-1", time.Hour)
	require.NoError(t, err)
	wrongAudience, err := newVerifier(t, "candle", "web").Issue("user-1", time.Hour)
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "user-1", Issuer: "candle", Audience: jwt.ClaimStrings{"app"},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer: "candle", Audience: jwt.ClaimStrings{"app"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject: "user-1", Issuer: "candle", Audience: jwt.ClaimStrings{"app"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":        "not-a-token",
		"expired":        expired,
		"wrong key":      wrongKey,
		"wrong issuer":   wrongIssuer,
		"wrong audience": wrongAudience,
		"no expiry":      noExp,
		"no subject":     noSubject,
		"alg none":       noneAlg,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestVerifyWithoutIssuerOrAudience(t *testing.T) {
	v := newVerifier(t, "", "")
	token, err := newVerifier(t, "anyone", "anything").Issue("user-1", time.Hour)
	require.NoError(t, err)

	sub, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub)
}

func TestExtractBearerToken(t *testing.T) {
	tok, err := ExtractBearerToken("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", tok)

	_, err = ExtractBearerToken("")
	assert.ErrorIs(t, err, ErrMissingToken)

	for _, h := range []string{"Basic abc", "Bearer", "Bearer a b", "bearer abc"} {
		_, err := ExtractBearerToken(h)
		assert.Error(t, err, h)
	}
}

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret()
	require.NoError(t, err)
	b, err := GenerateSecret()
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
