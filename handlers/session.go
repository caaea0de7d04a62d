package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/recitalsite/recital/backend/go-services/internal/config"
	"github.com/recitalsite/recital/backend/go-services/internal/identity"
	"github.com/recitalsite/recital/backend/go-services/internal/sessions"
	"github.com/recitalsite/recital/backend/go-services/internal/tokens"
	"github.com/recitalsite/recital/backend/go-services/pkg/logger"
	"github.com/recitalsite/recital/backend/go-services/pkg/middleware"
)

// SessionHandler reports the bootstrap state and issues visitor tokens.
type SessionHandler struct {
	cfg       *config.Config
	boot      *identity.Bootstrapper
	blacklist *sessions.Blacklist
	verifier  middleware.Verifier
}

func NewSessionHandler(cfg *config.Config, boot *identity.Bootstrapper, bl *sessions.Blacklist, ver middleware.Verifier) *SessionHandler {
	return &SessionHandler{cfg: cfg, boot: boot, blacklist: bl, verifier: ver}
}

// Register routes under /session
func (h *SessionHandler) Register(rg *gin.RouterGroup) {
	s := rg.Group("/session")
	s.GET("", h.Get)
	s.POST("/visitor", h.IssueVisitorToken)
	if h.verifier != nil {
		s.POST("/revoke", middleware.AuthMiddleware(h.verifier, h.blacklist), h.Revoke)
	}
}

// Get returns 503 until bootstrap resolved, then the process identity. When
// the request carries a verified token its subject is reported as caller.
func (h *SessionHandler) Get(c *gin.Context) {
	st := h.boot.Current()
	if !st.Ready || st.Identity == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false})
		return
	}
	caller := st.Identity.ID
	if sub, ok := middleware.Subject(c); ok {
		caller = sub
	}
	c.JSON(http.StatusOK, gin.H{
		"ready":    true,
		"identity": st.Identity,
		"degraded": st.Identity.Degraded(),
		"caller":   caller,
		"isAuthor": h.cfg.App.AuthorID != "" && caller == h.cfg.App.AuthorID,
		"appId":    h.cfg.App.ID,
	})
}

// IssueVisitorToken mints an identity token for a new anonymous visitor.
func (h *SessionHandler) IssueVisitorToken(c *gin.Context) {
	sub := "visitor-" + uuid.NewString()
	tok, err := tokens.GenerateIdentityToken(h.cfg, sub, string(identity.MethodAnonymous), h.cfg.JWT.TokenTTL)
	if errors.Is(err, tokens.ErrNoSecret) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "visitor tokens disabled"})
		return
	}
	if err != nil {
		logger.Errorf("mint visitor token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create token"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": tok, "identity": gin.H{"id": sub, "method": identity.MethodAnonymous}})
}

// Revoke blacklists the presented token for the rest of its lifetime.
func (h *SessionHandler) Revoke(c *gin.Context) {
	if !h.blacklist.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "revocation unavailable"})
		return
	}
	raw := c.GetString(middleware.TokenKey)
	claims, _ := c.Get(middleware.ClaimsKey)
	cm, _ := claims.(map[string]interface{})
	ttl := tokens.Remaining(cm)
	if ttl == 0 {
		ttl = h.cfg.JWT.TokenTTL
	}
	if err := h.blacklist.Revoke(c.Request.Context(), raw, ttl); err != nil {
		logger.Warnf("revoke token: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "revocation unavailable"})
		return
	}
	c.Status(http.StatusNoContent)
}
