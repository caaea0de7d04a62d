package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/recitalsite/recital/backend/go-services/handlers"
	"github.com/recitalsite/recital/backend/go-services/internal/config"
	"github.com/recitalsite/recital/backend/go-services/internal/content"
	"github.com/recitalsite/recital/backend/go-services/internal/database"
	"github.com/recitalsite/recital/backend/go-services/internal/identity"
	"github.com/recitalsite/recital/backend/go-services/internal/oidc"
	"github.com/recitalsite/recital/backend/go-services/internal/realtime"
	"github.com/recitalsite/recital/backend/go-services/internal/seed"
	"github.com/recitalsite/recital/backend/go-services/internal/sessions"
	"github.com/recitalsite/recital/backend/go-services/internal/storage"
	"github.com/recitalsite/recital/backend/go-services/internal/store"
	"github.com/recitalsite/recital/backend/go-services/internal/tokens"
	"github.com/recitalsite/recital/backend/go-services/pkg/logger"
	"github.com/recitalsite/recital/backend/go-services/pkg/metrics"
	"github.com/recitalsite/recital/backend/go-services/pkg/middleware"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Configure(cfg.Log.Level, cfg.Log.Encoding)
	defer logger.Sync()
	logger.Infof("config loaded: app=%s backend=%s redis=%v keycloak=%v minio=%v",
		cfg.App.ID, cfg.Backend.Kind, cfg.RedisAddr() != "", cfg.Keycloak.URL != "", cfg.MinIO.Endpoint != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := database.OpenBackend(ctx, cfg)
	if err != nil {
		logger.Fatalf("failed to open %s backend: %v", cfg.Backend.Kind, err)
	}

	var rdb *redis.Client
	if addr := cfg.RedisAddr(); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", addr, err)
			_ = rdb.Close()
			rdb = nil
		} else {
			logger.Infof("connected to Redis: %s", addr)
		}
	}

	verifier := buildVerifier(ctx, cfg)
	blacklist := sessions.NewBlacklist(rdb)

	// Redis sessions are preferred; Mongo sessions share the content database.
	var sessionSvc *sessions.Service
	switch {
	case rdb != nil:
		sessionSvc = sessions.NewService(sessions.NewRedisRepository(rdb, "session:"))
	case backend.Mongo != nil:
		sessionSvc = sessions.NewService(sessions.NewMongoRepository(backend.Mongo.Collection("sessions")))
	default:
		logger.Warn("no session store configured; identities will not survive a restart")
	}

	var auth identity.Authenticator = identity.NewSessionAuthenticator(sessionSvc, verifier, cfg.App.SessionToken, cfg.JWT.TokenTTL)
	if backend.Firebase != nil {
		users, err := backend.Firebase.Auth(ctx)
		if err != nil {
			logger.Warnf("firebase auth unavailable, using session identities: %v", err)
		} else {
			auth = identity.NewFirebaseAuthenticator(users, cfg.App.SessionToken)
		}
	}

	registry := realtime.NewRegistry(backend.Store)
	repo := content.NewRepository(backend.Store, registry, store.Paths{AppID: cfg.App.ID})
	boot := identity.NewBootstrapper(auth, cfg.App.InitialAuthToken)

	// resolution runs in the background; handlers answer 503 until it is done
	go func() {
		id, err := boot.Wait(ctx)
		if err != nil {
			return
		}
		logger.Infof("identity ready: id=%s method=%s", id.ID, id.Method)
		if !cfg.App.SeedOnStart {
			return
		}
		outcome, err := seed.NewProvisioner(repo).SeedIfAbsent(ctx, id)
		if err != nil {
			logger.Warnf("sample content %s: %v", outcome, err)
		}
	}()

	var uploader handlers.ImageUploader
	if cfg.MinIO.Endpoint != "" {
		imgs, err := storage.NewImageStore(ctx, cfg.MinIO)
		if err != nil {
			logger.Warnf("image uploads disabled: %v", err)
		} else {
			uploader = imgs
		}
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), cors())

	var writeMW []gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && rdb != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			writeMW = append(writeMW, middleware.RedisRateLimitMiddleware(rdb, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			writeMW = append(writeMW, middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	probes := map[string]handlers.Probe{"backend": backend.Ping}
	if rdb != nil {
		probes["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	handlers.NewHealthHandler(boot, probes).Register(r)
	handlers.RegisterSwagger(r)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1", middleware.OptionalAuth(verifier, blacklist))
	handlers.NewContentHandler(repo, boot).Register(api, writeMW...)
	handlers.RegisterImageRoutes(api, uploader, writeMW...)
	handlers.NewLiveHandler(repo).Register(api)
	handlers.NewSessionHandler(cfg, boot, blacklist, verifier).Register(api)

	srv := &http.Server{
		Addr:        fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:     r,
		ReadTimeout: cfg.Server.ReadTimeout,
		// no WriteTimeout: live sockets set their own write deadlines
	}
	go func() {
		logger.Infof("starting recital service on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	registry.Close()
	if err := backend.Store.Close(shutdownCtx); err != nil {
		logger.Warnf("backend close: %v", err)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}

// buildVerifier chains every configured token verifier: HMAC identity
// tokens, Keycloak OIDC tokens and, in integration mode, unverified tokens.
func buildVerifier(ctx context.Context, cfg *config.Config) middleware.ChainVerifier {
	var chain middleware.ChainVerifier
	if cfg.JWT.Secret != "" {
		chain = append(chain, tokens.NewHMACVerifier(cfg.JWT.Secret))
	}
	if issuer := cfg.KeycloakIssuer(); issuer != "" {
		ver, err := oidc.NewVerifier(ctx, issuer, cfg.Keycloak.ClientID)
		if err != nil {
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
		} else {
			chain = append(chain, ver)
		}
	}
	if cfg.JWT.AllowInsecure {
		logger.Warn("enabling insecure token verifier (integration mode)")
		chain = append(chain, oidc.NewInsecureVerifier())
	}
	return chain
}

// cors is a permissive policy for the single-page frontend.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
