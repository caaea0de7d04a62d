package seed

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/recitalsite/recital/backend/go-services/internal/content"
	"github.com/recitalsite/recital/backend/go-services/internal/identity"
	"github.com/recitalsite/recital/backend/go-services/internal/store"
	"github.com/recitalsite/recital/backend/go-services/pkg/logger"
	"github.com/recitalsite/recital/backend/go-services/pkg/metrics"
)

// Outcome summarizes one provisioning run.
type Outcome string

const (
	// OutcomePresent means the sentinel story already existed.
	OutcomePresent Outcome = "present"
	OutcomeSeeded  Outcome = "seeded"
	// OutcomePartial means a write failed after some sample data was stored.
	// Nothing is rolled back.
	OutcomePartial Outcome = "partial"
	// OutcomeSkipped means nothing was written because the probe or the
	// first write failed.
	OutcomeSkipped Outcome = "skipped"
)

// Provisioner writes the sample content into an empty namespace. It runs at
// most once per process; later calls return the first result.
type Provisioner struct {
	repo *content.Repository
	log  *zap.SugaredLogger

	once    sync.Once
	outcome Outcome
	err     error
}

func NewProvisioner(repo *content.Repository) *Provisioner {
	return &Provisioner{repo: repo, log: logger.Named("seed")}
}

// SeedIfAbsent seeds the namespace unless the sentinel story exists. Sample
// records are tagged with id.
func (p *Provisioner) SeedIfAbsent(ctx context.Context, id identity.Identity) (Outcome, error) {
	p.once.Do(func() {
		p.outcome, p.err = p.run(ctx, id)
		metrics.SeedRuns.WithLabelValues(string(p.outcome)).Inc()
		if p.err != nil {
			p.log.Errorw("seeding abandoned", "outcome", p.outcome, "error", p.err)
			return
		}
		p.log.Infow("seeding finished", "outcome", p.outcome)
	})
	return p.outcome, p.err
}

// Check reports whether the sentinel story exists. It does not count as a run.
func (p *Provisioner) Check(ctx context.Context) (bool, error) {
	_, err := p.repo.GetStory(ctx, SentinelStoryID)
	if errors.Is(err, content.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provisioner) run(ctx context.Context, id identity.Identity) (Outcome, error) {
	p.log.Debugw("probing sentinel story", "id", SentinelStoryID)
	present, err := p.Check(ctx)
	if err != nil {
		return OutcomeSkipped, fmt.Errorf("probe sentinel: %w", err)
	}
	if present {
		p.log.Infow("sample content already present", "sentinel", SentinelStoryID)
		return OutcomePresent, nil
	}

	p.log.Infow("inserting sample content", "identity", id.ID)
	written := 0
	fail := func(what string, err error) (Outcome, error) {
		if written == 0 {
			return OutcomeSkipped, fmt.Errorf("%s: %w", what, err)
		}
		return OutcomePartial, fmt.Errorf("%s after %d writes: %w", what, written, err)
	}

	for _, s := range sampleStories() {
		s.AuthorID = id.ID
		if _, err := p.repo.CreateStory(ctx, s); err != nil {
			if written == 0 && errors.Is(err, store.ErrAlreadyExists) {
				// another process seeded between our probe and this write
				p.log.Infow("sentinel created concurrently", "sentinel", SentinelStoryID)
				return OutcomePresent, nil
			}
			return fail("create story "+s.ID, err)
		}
		written++
	}
	for _, f := range sampleFeedback() {
		f.UserID = id.ID
		if _, err := p.repo.CreateFeedback(ctx, f); err != nil {
			return fail("create feedback", err)
		}
		written++
	}
	for _, c := range sampleComments() {
		c.UserID = id.ID
		if _, err := p.repo.CreateComment(ctx, c); err != nil {
			return fail("create comment "+c.ID, err)
		}
		written++
	}
	p.log.Infof("seeded %d sample records", written)
	return OutcomeSeeded, nil
}
