package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/caldew/workdesk/internal/domain"
)

// UploadFile stores a multipart "file" under the caller's prefix.
func (h *Handler) UploadFile(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload file"})
		return
	}
	defer f.Close()

	file, err := h.fileService.Upload(c.Request.Context(), userID(c), fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		h.fileError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": file})
}

func (h *Handler) ListFiles(c *gin.Context) {
	limit := intQuery(c, "limit", 0)
	offset := intQuery(c, "offset", 0)

	list, err := h.fileService.List(c.Request.Context(), userID(c), limit, offset)
	if err != nil {
		h.fileError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": list})
}

func (h *Handler) RenameFile(c *gin.Context) {
	var req struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == "" || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File id and name are required"})
		return
	}

	file, err := h.fileService.Rename(c.Request.Context(), userID(c), req.ID, req.Name)
	if err != nil {
		h.fileError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": file})
}

func (h *Handler) DeleteFile(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File id is required"})
		return
	}
	if err := h.fileService.Delete(c.Request.Context(), userID(c), id); err != nil {
		h.fileError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) DownloadFile(c *gin.Context) {
	rc, file, err := h.fileService.Download(c.Request.Context(), userID(c), c.Query("id"))
	if err != nil {
		h.fileError(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	c.Header("Content-Type", file.MimeType)
	io.Copy(c.Writer, rc)
}

func (h *Handler) ThumbnailURL(c *gin.Context) {
	url, err := h.fileService.ThumbnailURL(c.Request.Context(), userID(c), c.Query("id"))
	if err != nil {
		h.fileError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"url": url}})
}

func (h *Handler) PreviewURL(c *gin.Context) {
	url, err := h.fileService.PreviewURL(c.Request.Context(), userID(c), c.Query("id"))
	if err != nil {
		h.fileError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"url": url}})
}

// ServeSignedFile redeems a signed link; the token alone authorizes
// the read.
func (h *Handler) ServeSignedFile(c *gin.Context) {
	rc, contentType, err := h.fileService.ServeSigned(c.Request.Context(), c.Query("token"))
	if errors.Is(err, domain.ErrLinkExpired) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Link is invalid or expired"})
		return
	}
	if err != nil {
		h.fileError(c, err)
		return
	}
	defer rc.Close()

	if contentType != "" {
		c.Header("Content-Type", contentType)
	}
	io.Copy(c.Writer, rc)
}

func (h *Handler) fileError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrFileNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
	case errors.Is(err, domain.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	case errors.Is(err, domain.ErrNoFile):
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "File operation failed"})
	}
}

func intQuery(c *gin.Context, name string, fallback int) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
