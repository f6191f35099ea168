package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ttys3/gitea-sso/internal/auth/credentials"
	"github.com/ttys3/gitea-sso/internal/auth/pipeline"
	"github.com/ttys3/gitea-sso/internal/auth/provider"
	"github.com/ttys3/gitea-sso/internal/auth/resolver"
	"github.com/ttys3/gitea-sso/internal/logger"
	"github.com/ttys3/gitea-sso/internal/session"
)

const sessionTTL = 24 * time.Hour

type Handler struct {
	providers         *provider.Registry
	sessionStore      session.Store
	resolver          resolver.Resolver
	credentialService *credentials.Service

	// publicBaseURL is shown on the config diagnostic endpoint.
	publicBaseURL string
}

func NewHandler(
	registry *provider.Registry,
	sessionStore session.Store,
	resolver resolver.Resolver,
	credentialService *credentials.Service,
	publicBaseURL string,
) *Handler {
	return &Handler{
		providers:         registry,
		sessionStore:      sessionStore,
		resolver:          resolver,
		credentialService: credentialService,
		publicBaseURL:     publicBaseURL,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/oauth/login/:provider", h.login)
	r.GET("/oauth/callback/:provider", h.callback)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/register", h.Register)
	r.POST("/auth/logout", h.Logout)
}

// RegisterAdminRoutes mounts the operator-facing endpoints; the
// caller decides which middleware guards them.
func (h *Handler) RegisterAdminRoutes(g *gin.RouterGroup) {
	g.GET("/providers", h.listProviders)
	g.GET("/auth/config", h.configDiagnostic)
}

func (h *Handler) login(c *gin.Context) {
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unknown oauth provider",
		})
		return
	}

	state := generateState(c)
	c.Redirect(http.StatusFound, p.AuthCodeURL(state))
}

func (h *Handler) callback(c *gin.Context) {
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unknown oauth provider",
		})
		return
	}

	if !validateState(c) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "invalid state",
		})
		return
	}

	// Provider-reported error, e.g. the user denied consent.
	if errParam := c.Query("error"); errParam != "" {
		logger.Warn("oauth callback returned error", map[string]any{
			"provider": providerName,
			"error":    errParam,
			"desc":     c.Query("error_description"),
		})
		c.Redirect(http.StatusFound, "/oauth/login/"+providerName)
		return
	}

	code := c.Query("code")
	if code == "" {
		logger.Error("oauth callback missing code and error", map[string]any{
			"provider": providerName,
		})
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	st := &pipeline.State{
		Provider: providerName,
		Code:     code,
	}

	if msg, ok := pipeline.Run(c.Request.Context(), p.Pipeline(), st); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": msg,
		})
		return
	}

	userID, err := h.resolver.Resolve(c.Request.Context(), st.Identity)
	if err != nil {
		logger.Error("failed to resolve user", map[string]any{
			"provider": providerName,
			"error":    err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to resolve user",
		})
		return
	}

	if err := h.createSession(c, userID, providerName); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to create session",
		})
		return
	}

	logger.Info("login succeeded", map[string]any{
		"provider": providerName,
		"user_id":  userID,
		"ip":       c.ClientIP(),
	})

	c.JSON(http.StatusOK, gin.H{
		"status": "authenticated",
	})
}

func (h *Handler) createSession(c *gin.Context, userID, providerName string) error {
	sessionID, err := session.GenerateID()
	if err != nil {
		return err
	}

	now := time.Now()
	expiresAt := now.Add(sessionTTL)

	sess := session.Session{
		SessionID: sessionID,
		UserID:    userID,
		Provider:  providerName,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}

	if err := h.sessionStore.Create(c.Request.Context(), sess); err != nil {
		return err
	}

	session.SetCookie(c.Writer, sessionID, expiresAt, session.CookieOptions{
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (h *Handler) Logout(c *gin.Context) {
	cookie, err := c.Request.Cookie(session.CookieName)
	if err == nil && cookie.Value != "" {
		// best-effort delete
		_ = h.sessionStore.Delete(c.Request.Context(), cookie.Value)
		logger.Info("logout", map[string]any{
			"ip": c.ClientIP(),
		})
	}

	session.ClearCookie(c.Writer, session.CookieOptions{
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	c.Status(http.StatusNoContent)
}
