package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// listProviders returns the registered auth providers and their
// public configuration, the shape integrations enumerate when
// offering login choices.
func (h *Handler) listProviders(c *gin.Context) {
	type providerInfo struct {
		ID     string         `json:"id"`
		Config map[string]any `json:"config"`
	}

	var out []providerInfo
	for _, p := range h.providers.All() {
		out = append(out, providerInfo{
			ID:     p.Name(),
			Config: p.PublicConfig(),
		})
	}

	c.JSON(http.StatusOK, gin.H{"providers": out})
}

// configDiagnostic is the read-only operator view: it renders each
// provider's resolved configuration plus this service's own public
// URL so an operator can confirm what is actually active.
func (h *Handler) configDiagnostic(c *gin.Context) {
	cfg := gin.H{
		"public_base_url": h.publicBaseURL,
	}
	for _, p := range h.providers.All() {
		cfg[p.Name()] = p.PublicConfig()
	}
	c.JSON(http.StatusOK, cfg)
}
