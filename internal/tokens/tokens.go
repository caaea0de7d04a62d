package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/recitalsite/recital/backend/go-services/internal/config"
	"github.com/recitalsite/recital/backend/go-services/pkg/middleware"
)

var ErrNoSecret = errors.New("jwt secret not configured")

// GenerateIdentityToken creates a signed HS256 token naming an identity.
// The "method" claim records how the identity was established.
func GenerateIdentityToken(cfg *config.Config, sub, method string, ttl time.Duration) (string, error) {
	if cfg.JWT.Secret == "" {
		return "", ErrNoSecret
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":    sub,
		"method": method,
		"jti":    uuid.NewString(),
		"iat":    now.Unix(),
		"exp":    now.Add(ttl).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(cfg.JWT.Secret))
}

// claimsToken exposes verified JWT claims through middleware.Token.
type claimsToken struct {
	claims jwt.MapClaims
}

func (t *claimsToken) Claims(v interface{}) error {
	b, err := json.Marshal(t.claims)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// HMACVerifier verifies tokens produced by GenerateIdentityToken.
type HMACVerifier struct {
	secret []byte
}

func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

func (v *HMACVerifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	if len(v.secret) == 0 {
		return nil, ErrNoSecret
	}
	parsed, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}
	return &claimsToken{claims: claims}, nil
}

// Remaining returns how long a token with the given claims stays valid,
// zero when expired or when "exp" is absent.
func Remaining(claims map[string]interface{}) time.Duration {
	exp, ok := claims["exp"].(float64)
	if !ok {
		return 0
	}
	d := time.Until(time.Unix(int64(exp), 0))
	if d < 0 {
		return 0
	}
	return d
}
