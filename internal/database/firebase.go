package database

import (
	"context"
	"encoding/json"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"github.com/recitalsite/recital/backend/go-services/internal/config"
)

// WebConfig is the subset of the Firebase web configuration blob
// (FIREBASE_CONFIG) the server needs.
type WebConfig struct {
	ProjectID     string `json:"projectId"`
	StorageBucket string `json:"storageBucket"`
	AuthDomain    string `json:"authDomain"`
	APIKey        string `json:"apiKey"`
}

// ParseWebConfig decodes the configuration blob. An empty blob yields a zero
// config.
func ParseWebConfig(blob string) (WebConfig, error) {
	var wc WebConfig
	if blob == "" {
		return wc, nil
	}
	if err := json.Unmarshal([]byte(blob), &wc); err != nil {
		return wc, fmt.Errorf("parse FIREBASE_CONFIG: %w", err)
	}
	return wc, nil
}

// NewFirebaseApp initialises the Admin SDK. The explicit project id wins over
// the one in the blob. Without a credentials file the SDK falls back to
// application default credentials (or the emulators when their env vars are
// set).
func NewFirebaseApp(ctx context.Context, cfg config.FirebaseConfig) (*firebase.App, error) {
	wc, err := ParseWebConfig(cfg.ConfigJSON)
	if err != nil {
		return nil, err
	}
	fc := &firebase.Config{ProjectID: wc.ProjectID, StorageBucket: wc.StorageBucket}
	if cfg.ProjectID != "" {
		fc.ProjectID = cfg.ProjectID
	}
	if fc.ProjectID == "" {
		return nil, fmt.Errorf("firebase: no project id in FIREBASE_CONFIG or FIREBASE_PROJECT_ID")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, fc, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase init: %w", err)
	}
	return app, nil
}
