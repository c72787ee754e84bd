package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListModels returns the catalog of models across configured
// providers.
func (h *Handler) ListModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": h.catalog.List()})
}
