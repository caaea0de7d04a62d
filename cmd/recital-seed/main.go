// Command recital-seed provisions the sample content of an app namespace
// outside the web service.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/recitalsite/recital/backend/go-services/internal/config"
	"github.com/recitalsite/recital/backend/go-services/internal/content"
	"github.com/recitalsite/recital/backend/go-services/internal/database"
	"github.com/recitalsite/recital/backend/go-services/internal/identity"
	"github.com/recitalsite/recital/backend/go-services/internal/realtime"
	"github.com/recitalsite/recital/backend/go-services/internal/seed"
	"github.com/recitalsite/recital/backend/go-services/internal/store"
	"github.com/recitalsite/recital/backend/go-services/internal/tokens"
	"github.com/recitalsite/recital/backend/go-services/pkg/logger"
)

// env is what a subcommand needs: a repository and an authenticator for the
// identity that owns the sample content.
type env struct {
	repo  *content.Repository
	auth  identity.Authenticator
	token string
	close func()
}

type opener func(ctx context.Context, appID string) (*env, error)

func main() {
	if err := newRootCommand(openFromConfig).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand(open opener) *cobra.Command {
	var appID string
	var timeout time.Duration
	root := &cobra.Command{
		Use:           "recital-seed",
		Short:         "Provision sample stories, comments and feedback",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&appID, "app-id", "", "app namespace (defaults to APP_ID)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "overall deadline")

	withEnv := func(fn func(ctx context.Context, e *env, out io.Writer) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			e, err := open(ctx, appID)
			if err != nil {
				return err
			}
			defer e.close()
			return fn(ctx, e, cmd.OutOrStdout())
		}
	}

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Seed the namespace unless the sample story already exists",
		Args:  cobra.NoArgs,
		RunE:  withEnv(runSeed),
	})
	root.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Report whether the namespace has been seeded",
		Args:  cobra.NoArgs,
		RunE:  withEnv(checkSeed),
	})
	return root
}

func runSeed(ctx context.Context, e *env, out io.Writer) error {
	id, err := identity.NewBootstrapper(e.auth, e.token).Wait(ctx)
	if err != nil {
		return err
	}
	outcome, err := seed.NewProvisioner(e.repo).SeedIfAbsent(ctx, id)
	fmt.Fprintf(out, "%s (identity %s via %s)\n", outcome, id.ID, id.Method)
	return err
}

func checkSeed(ctx context.Context, e *env, out io.Writer) error {
	ok, err := seed.NewProvisioner(e.repo).Check(ctx)
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintf(out, "seeded: %s exists\n", seed.SentinelStoryID)
		return nil
	}
	fmt.Fprintln(out, "not seeded")
	return nil
}

func openFromConfig(ctx context.Context, appID string) (*env, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger.Configure(cfg.Log.Level, cfg.Log.Encoding)
	if appID == "" {
		appID = cfg.App.ID
	}
	b, err := database.OpenBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	reg := realtime.NewRegistry(b.Store)

	// Without a session store the bootstrapper falls back to a local identity,
	// which is all the sample content needs.
	var auth identity.Authenticator = identity.NewSessionAuthenticator(nil, tokens.NewHMACVerifier(cfg.JWT.Secret), "", 0)
	if b.Firebase != nil {
		if users, err := b.Firebase.Auth(ctx); err == nil {
			auth = identity.NewFirebaseAuthenticator(users, cfg.App.SessionToken)
		}
	}
	return &env{
		repo:  content.NewRepository(b.Store, reg, store.Paths{AppID: appID}),
		auth:  auth,
		token: cfg.App.InitialAuthToken,
		close: func() {
			reg.Close()
			_ = b.Store.Close(context.Background())
		},
	}, nil
}
