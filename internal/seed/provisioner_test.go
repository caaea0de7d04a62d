package seed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/recitalsite/recital/backend/go-services/internal/content"
	"github.com/recitalsite/recital/backend/go-services/internal/identity"
	"github.com/recitalsite/recital/backend/go-services/internal/realtime"
	"github.com/recitalsite/recital/backend/go-services/internal/store"
)

var author = identity.Identity{ID: "author-1", Method: identity.MethodBearer}

func newRepo(t *testing.T, b *store.MemoryBackend) *content.Repository {
	t.Helper()
	reg := realtime.NewRegistry(b)
	t.Cleanup(reg.Close)
	return content.NewRepository(b, reg, store.Paths{AppID: "seed-test"})
}

func commentsOn(t *testing.T, repo *content.Repository, storyID string) []content.Comment {
	t.Helper()
	view, err := repo.SubscribeCommentsForStory(context.Background(), storyID)
	require.NoError(t, err)
	defer view.Cancel()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	got, err := view.Next(ctx)
	require.NoError(t, err)
	return got
}

func TestSeedIfAbsent_SeedsEmptyNamespace(t *testing.T) {
	b := store.NewMemoryBackend()
	repo := newRepo(t, b)
	p := NewProvisioner(repo)

	outcome, err := p.SeedIfAbsent(context.Background(), author)
	require.NoError(t, err)
	require.Equal(t, OutcomeSeeded, outcome)

	require.Equal(t, 3, b.Len(repo.Paths().Stories()))
	require.Equal(t, 3, b.Len(repo.Paths().Feedback()))
	require.Equal(t, 3, b.Len(repo.Paths().Comments()))

	s, err := repo.GetStory(context.Background(), SentinelStoryID)
	require.NoError(t, err)
	require.Equal(t, author.ID, s.AuthorID)
	require.NotNil(t, s.CreatedAt)

	s2, err := repo.GetStory(context.Background(), "sample-story-2")
	require.NoError(t, err)
	require.Equal(t, content.PlaceholderImageURL, s2.ImageURL)

	present, err := p.Check(context.Background())
	require.NoError(t, err)
	require.True(t, present)
}

func TestSeedIfAbsent_TwiceYieldsOneSampleSet(t *testing.T) {
	b := store.NewMemoryBackend()
	repo := newRepo(t, b)

	first, err := NewProvisioner(repo).SeedIfAbsent(context.Background(), author)
	require.NoError(t, err)
	require.Equal(t, OutcomeSeeded, first)

	// a second process against the same namespace
	second, err := NewProvisioner(repo).SeedIfAbsent(context.Background(), author)
	require.NoError(t, err)
	require.Equal(t, OutcomePresent, second)

	require.Equal(t, 3, b.Len(repo.Paths().Stories()))
	require.Len(t, commentsOn(t, repo, SentinelStoryID), 3)
}

func TestSeedIfAbsent_ConcurrentProcesses(t *testing.T) {
	b := store.NewMemoryBackend()
	b.SetLatency(time.Millisecond)
	repo := newRepo(t, b)

	outcomes := make([]Outcome, 4)
	var wg sync.WaitGroup
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], _ = NewProvisioner(repo).SeedIfAbsent(context.Background(), author)
		}(i)
	}
	wg.Wait()

	seeded := 0
	for _, o := range outcomes {
		if o == OutcomeSeeded {
			seeded++
		}
	}
	require.LessOrEqual(t, seeded, 1)

	_, err := repo.GetStory(context.Background(), SentinelStoryID)
	require.NoError(t, err)
	require.Len(t, commentsOn(t, repo, SentinelStoryID), 3)
}

func TestSeedIfAbsent_RunsOncePerProcess(t *testing.T) {
	b := store.NewMemoryBackend()
	repo := newRepo(t, b)
	p := NewProvisioner(repo)

	first, err := p.SeedIfAbsent(context.Background(), author)
	require.NoError(t, err)

	// any further I/O would fail
	b.FailNext(store.OpGet, errors.New("must not probe again"))
	for i := 0; i < 3; i++ {
		again, err := p.SeedIfAbsent(context.Background(), identity.Identity{ID: "someone-else"})
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
	require.Equal(t, 3, b.Len(repo.Paths().Stories()))
}

func TestSeedIfAbsent_ProbeFailureSkips(t *testing.T) {
	b := store.NewMemoryBackend()
	repo := newRepo(t, b)
	b.FailNext(store.OpGet, errors.New("permission denied"))

	outcome, err := NewProvisioner(repo).SeedIfAbsent(context.Background(), author)
	require.Error(t, err)
	require.Equal(t, OutcomeSkipped, outcome)
	require.Zero(t, b.Len(repo.Paths().Stories()))
}

func TestSeedIfAbsent_MidSequenceFailureIsPartial(t *testing.T) {
	b := store.NewMemoryBackend()
	repo := newRepo(t, b)
	boom := errors.New("quota exceeded")
	for i := 0; i < 4; i++ {
		b.FailNext(store.OpCreate, nil)
	}
	b.FailNext(store.OpCreate, boom)

	outcome, err := NewProvisioner(repo).SeedIfAbsent(context.Background(), author)
	require.ErrorIs(t, err, boom)
	require.Equal(t, OutcomePartial, outcome)

	// no rollback
	require.Equal(t, 3, b.Len(repo.Paths().Stories()))
	require.Equal(t, 1, b.Len(repo.Paths().Feedback()))
	require.Zero(t, b.Len(repo.Paths().Comments()))
}
