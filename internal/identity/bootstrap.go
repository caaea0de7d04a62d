package identity

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/recitalsite/recital/backend/go-services/pkg/logger"
	"github.com/recitalsite/recital/backend/go-services/pkg/metrics"
)

// Bootstrapper resolves the process identity once and publishes the result
// to any number of readers.
type Bootstrapper struct {
	auth        Authenticator
	bearerToken string
	log         *zap.SugaredLogger

	once     sync.Once
	resolved chan struct{}

	mu       sync.Mutex
	state    State
	watchers []chan State
}

// NewBootstrapper prepares a bootstrapper. bearerToken is the optional
// credential supplied by the hosting environment.
func NewBootstrapper(auth Authenticator, bearerToken string) *Bootstrapper {
	return &Bootstrapper{
		auth:        auth,
		bearerToken: strings.TrimSpace(bearerToken),
		log:         logger.Named("bootstrap"),
		resolved:    make(chan struct{}),
	}
}

// Bootstrap starts resolution on first use and returns a stream that
// replays the current state followed by the ready state, then closes.
// Resolution runs with the ctx of the first call; if that ctx ends early the
// sign-in attempts fail and a synthesized identity is used.
func (b *Bootstrapper) Bootstrap(ctx context.Context) <-chan State {
	ch := make(chan State, 2)
	b.mu.Lock()
	ch <- b.state.copy()
	if b.state.Ready {
		close(ch)
	} else {
		b.watchers = append(b.watchers, ch)
	}
	b.mu.Unlock()
	b.start(ctx)
	return ch
}

func (b *Bootstrapper) start(ctx context.Context) {
	b.once.Do(func() { go b.run(ctx) })
}

// Wait starts resolution if needed and blocks until an identity is ready.
func (b *Bootstrapper) Wait(ctx context.Context) (Identity, error) {
	b.start(ctx)
	select {
	case <-b.resolved:
		return b.Identity()
	case <-ctx.Done():
		return Identity{}, ctx.Err()
	}
}

// Current returns the latest state without blocking.
func (b *Bootstrapper) Current() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.copy()
}

// Identity returns the resolved identity or ErrNotReady.
func (b *Bootstrapper) Identity() (Identity, error) {
	st := b.Current()
	if !st.Ready || st.Identity == nil {
		return Identity{}, ErrNotReady
	}
	return *st.Identity, nil
}

func (b *Bootstrapper) run(ctx context.Context) {
	id := b.resolve(ctx)
	metrics.BootstrapResolutions.WithLabelValues(string(id.Method)).Inc()

	b.mu.Lock()
	b.state = State{Identity: &id, Ready: true}
	watchers := b.watchers
	b.watchers = nil
	close(b.resolved)
	for _, ch := range watchers {
		ch <- b.state.copy()
		close(ch)
	}
	b.mu.Unlock()
}

func (b *Bootstrapper) resolve(ctx context.Context) Identity {
	id, err := b.auth.Resume(ctx)
	if err == nil {
		b.log.Infow("resumed previous session", "identity", id.ID)
		return id
	}
	if !errors.Is(err, ErrNoSession) {
		b.log.Warnw("resume failed", "error", err)
	}

	if b.bearerToken != "" {
		id, err = b.auth.SignInWithToken(ctx, b.bearerToken)
		if err == nil {
			b.log.Infow("signed in with bearer credential", "identity", id.ID)
			return id
		}
		b.log.Warnw("bearer sign-in failed", "error", err)
	}

	id, err = b.auth.SignInAnonymously(ctx)
	if err == nil {
		b.log.Infow("signed in anonymously", "identity", id.ID)
		return id
	}
	b.log.Warnw("anonymous sign-in failed", "error", err)

	id = Identity{ID: "local-" + uuid.NewString(), Method: MethodSynthesized}
	b.log.Errorw("using synthesized identity; writes are tagged but not tied to a session", "identity", id.ID)
	return id
}

func (s State) copy() State {
	if s.Identity == nil {
		return s
	}
	id := *s.Identity
	return State{Identity: &id, Ready: s.Ready}
}
