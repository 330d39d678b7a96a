package app

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Royleong31/Blog-APIs/internal/feed"
	"github.com/Royleong31/Blog-APIs/internal/sdk/errs"
	"github.com/Royleong31/Blog-APIs/internal/services/blob"
	"github.com/gin-gonic/gin"
)

const (
	maxUploadSize = 10 << 20 // 10 MB
	imageField    = "image"
)

func badBody(err error) error {
	return errs.Wrap(errs.Validation, errBadRequestBody, err)
}

// bindJSON decodes a JSON body into dst.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return badBody(err)
	}
	return nil
}

func isJSON(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), gin.MIMEJSON)
}

// readPostInput accepts either a JSON body or a form with an optional
// "image" file. "image" as a plain form value is treated like imageUrl.
func readPostInput(c *gin.Context) (feed.PostInput, error) {
	if isJSON(c) {
		var req PostRequest
		if err := bindJSON(c, &req); err != nil {
			return feed.PostInput{}, err
		}
		return feed.PostInput{Title: req.Title, Content: req.Content, ImageURL: req.ImageURL}, nil
	}

	up, err := readUpload(c)
	if err != nil {
		return feed.PostInput{}, err
	}

	imageURL := c.PostForm("imageUrl")
	if imageURL == "" {
		imageURL = c.PostForm(imageField)
	}

	return feed.PostInput{
		Title:    c.PostForm("title"),
		Content:  c.PostForm("content"),
		ImageURL: imageURL,
		Image:    up,
	}, nil
}

// readUpload returns the "image" file of a multipart request, or nil when
// none was sent.
func readUpload(c *gin.Context) (*blob.Upload, error) {
	fh, err := c.FormFile(imageField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, badBody(err)
	}

	if fh.Size > maxUploadSize {
		return nil, errs.Invalid("Validation failed, entered data is incorrect", []errs.FieldError{
			{Field: imageField, Message: fmt.Sprintf("Image must be at most %d MB", maxUploadSize>>20)},
		})
	}

	f, err := fh.Open()
	if err != nil {
		return nil, badBody(err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadSize))
	if err != nil {
		return nil, badBody(err)
	}

	return &blob.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// pageParam reads ?page=N, defaulting to the first page.
func pageParam(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
