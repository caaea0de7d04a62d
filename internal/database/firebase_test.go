package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/recitalsite/recital/backend/go-services/internal/config"
)

func TestParseWebConfig(t *testing.T) {
	wc, err := ParseWebConfig(`{"apiKey":"k","authDomain":"recital.firebaseapp.com","projectId":"recital-2024","storageBucket":"recital-2024.appspot.com"}`)
	require.NoError(t, err)
	require.Equal(t, "recital-2024", wc.ProjectID)
	require.Equal(t, "recital-2024.appspot.com", wc.StorageBucket)

	wc, err = ParseWebConfig("")
	require.NoError(t, err)
	require.Empty(t, wc.ProjectID)

	_, err = ParseWebConfig("{not json")
	require.Error(t, err)
}

func TestNewFirebaseApp_RequiresProject(t *testing.T) {
	_, err := NewFirebaseApp(context.Background(), config.FirebaseConfig{ConfigJSON: `{"apiKey":"k"}`})
	require.Error(t, err)
}
