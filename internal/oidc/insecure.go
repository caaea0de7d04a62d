package oidc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/recitalsite/recital/backend/go-services/pkg/middleware"
)

var (
	errFormat  = errors.New("invalid token format")
	errNoSub   = errors.New("token has no subject")
	errExpired = errors.New("token expired")
)

// insecureToken exposes claims parsed from an unverified JWT payload.
type insecureToken struct {
	claims map[string]interface{}
}

func (t *insecureToken) Claims(v interface{}) error {
	b, err := json.Marshal(t.claims)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// InsecureVerifier reads JWT claims WITHOUT checking the signature. It is
// enabled only by ALLOW_INSECURE_TOKEN for local runs against the emulator.
type InsecureVerifier struct {
	now func() time.Time
}

func NewInsecureVerifier() *InsecureVerifier { return &InsecureVerifier{now: time.Now} }

func (v *InsecureVerifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	parts := strings.Split(raw, ".")
	if len(parts) < 2 {
		return nil, errFormat
	}
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return nil, err
	}
	var claims map[string]interface{}
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, err
	}
	if sub, _ := claims["sub"].(string); sub == "" {
		return nil, errNoSub
	}
	if exp, ok := claims["exp"].(float64); ok && v.now().After(time.Unix(int64(exp), 0)) {
		return nil, errExpired
	}
	return &insecureToken{claims: claims}, nil
}
