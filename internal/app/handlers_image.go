package app

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Royleong31/Blog-APIs/internal/sdk/middleware"
	"github.com/Royleong31/Blog-APIs/internal/services/blob"
	"github.com/Royleong31/Blog-APIs/internal/services/sentry"
	"github.com/gin-gonic/gin"
)

// HandlePostImage stores an image ahead of a post mutation. Replaced images
// are removed by the mutation itself once it commits.
func (a *App) HandlePostImage(c *gin.Context) {
	up, err := readUpload(c)
	if err != nil {
		writeError(c, err)
		return
	}

	key, err := a.feed.UploadImage(c.Request.Context(), middleware.GetIdentity(c), up)
	if err != nil {
		writeError(c, err)
		return
	}
	if key == "" {
		c.JSON(http.StatusOK, ImageResponse{Message: "No file provided"})
		return
	}

	c.JSON(http.StatusCreated, ImageResponse{Message: "File stored.", FilePath: key})
}

func (a *App) HandleServeImage(c *gin.Context) {
	key := blob.Prefix + "/" + strings.TrimPrefix(c.Param("key"), "/")
	if !blob.ValidKey(key) {
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Image not found"})
		return
	}

	rc, contentType, err := a.blobs.Open(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Message: "Image not found"})
			return
		}
		a.toSentry(c, "serve_image", "blob", sentry.LevelError, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "An error occurred"})
		return
	}
	defer rc.Close()

	c.Header("Cache-Control", "public, max-age=86400")
	c.DataFromReader(http.StatusOK, -1, contentType, rc, nil)
}
