package tokens

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/recitalsite/recital/backend/go-services/internal/config"
)

func testConfig(secret string) *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = secret
	return cfg
}

func TestGenerateIdentityToken_ValidAndClaims(t *testing.T) {
	cfg := testConfig("test-secret-32-bytes-should-be-long-enough")

	tokenStr, err := GenerateIdentityToken(cfg, "visitor-123", "anonymous", 2*time.Minute)
	require.NoError(t, err)

	tok, err := NewHMACVerifier(cfg.JWT.Secret).Verify(context.Background(), tokenStr)
	require.NoError(t, err)

	var claims map[string]interface{}
	require.NoError(t, tok.Claims(&claims))
	require.Equal(t, "visitor-123", claims["sub"])
	require.Equal(t, "anonymous", claims["method"])
	require.NotEmpty(t, claims["jti"])

	rem := Remaining(claims)
	require.Greater(t, rem, time.Minute)
	require.LessOrEqual(t, rem, 2*time.Minute)
}

func TestGenerateIdentityToken_NoSecret(t *testing.T) {
	_, err := GenerateIdentityToken(&config.Config{}, "x", "bearer", time.Minute)
	require.ErrorIs(t, err, ErrNoSecret)
}

func TestVerify_Expired(t *testing.T) {
	cfg := testConfig("another-secret-32-bytes-longgggg")
	tokenStr, err := GenerateIdentityToken(cfg, "u2", "bearer", -time.Minute)
	require.NoError(t, err)

	_, err = NewHMACVerifier(cfg.JWT.Secret).Verify(context.Background(), tokenStr)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestVerify_WrongSecretFails(t *testing.T) {
	cfg := testConfig("secret-one-32-bytes-xxxxxxxxxxxxxxxx")
	tokenStr, err := GenerateIdentityToken(cfg, "u3", "bearer", 2*time.Minute)
	require.NoError(t, err)

	_, err = NewHMACVerifier("different-secret-xxxxxxxxxxxxxxxx").Verify(context.Background(), tokenStr)
	require.Error(t, err)
}

func TestVerify_Malformed(t *testing.T) {
	_, err := NewHMACVerifier("x").Verify(context.Background(), "not.a.jwt")
	require.Error(t, err)
}

// Rejected when alg=none (unsigned token)
func TestVerify_AlgNoneRejected(t *testing.T) {
	headerEnc := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none"}`))
	payloadEnc := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"u-none","exp":9999999999}`))
	_, err := NewHMACVerifier("x").Verify(context.Background(), headerEnc+"."+payloadEnc+".")
	require.Error(t, err)
}

// Tampering with payload must fail signature verification
func TestVerify_TamperedPayload(t *testing.T) {
	cfg := testConfig("tamper-test-secret-32-bytes-xxxxxxx")
	tokenStr, err := GenerateIdentityToken(cfg, "user-t", "bearer", 5*time.Minute)
	require.NoError(t, err)

	parts := strings.Split(tokenStr, ".")
	require.Len(t, parts, 3)
	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(strings.Replace(string(payloadBytes), "user-t", "attacker", 1)))

	_, err = NewHMACVerifier(cfg.JWT.Secret).Verify(context.Background(), strings.Join(parts, "."))
	require.Error(t, err)
}

func TestRemaining_MissingExp(t *testing.T) {
	require.Zero(t, Remaining(map[string]interface{}{"sub": "x"}))
	require.Zero(t, Remaining(map[string]interface{}{"exp": float64(time.Now().Add(-time.Hour).Unix())}))
}

// Re-encoding an untouched payload must leave a valid token, so the
// tampering test above fails only because of the changed claims.
func TestVerify_ReencodedPayloadStillValid(t *testing.T) {
	cfg := testConfig("reencode-test-secret-32-bytes-xxxxx")
	tokenStr, err := GenerateIdentityToken(cfg, "user-r", "bearer", 5*time.Minute)
	require.NoError(t, err)

	parts := strings.Split(tokenStr, ".")
	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	parts[1] = base64.RawURLEncoding.EncodeToString(payloadBytes)

	tok, err := NewHMACVerifier(cfg.JWT.Secret).Verify(context.Background(), strings.Join(parts, "."))
	require.NoError(t, err)
	var claims struct {
		Sub string `json:"sub"`
	}
	require.NoError(t, tok.Claims(&claims))
	require.Equal(t, "user-r", claims.Sub)
}
