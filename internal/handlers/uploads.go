package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"launchpad/api/internal/service"
)

const uploadField = "images"

func (h HandlerSet) UploadImages(c *gin.Context) {
	maxFiles := h.cfg.Storage.MaxFiles
	if h.cfg.Storage.MaxFileBytes > 0 && maxFiles > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.Storage.MaxFileBytes*int64(maxFiles)+1<<20)
	}

	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, errors.New("multipart form with images is required"))
		return
	}
	defer func() { _ = form.RemoveAll() }()

	headers := form.File[uploadField]
	if len(headers) == 0 {
		badRequest(c, errors.New("no files uploaded"))
		return
	}
	if maxFiles > 0 && len(headers) > maxFiles {
		badRequest(c, fmt.Errorf("at most %d files per request", maxFiles))
		return
	}

	files := make([]service.FileInput, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()

	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			badRequest(c, errors.New("invalid file payload"))
			return
		}
		opened = append(opened, f)
		files = append(files, service.FileInput{Name: header.Filename, Size: header.Size, Content: f})
	}

	urls, err := h.uploads.UploadImages(c.Request.Context(), files)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	respond(c, http.StatusOK, "Images uploaded successfully", gin.H{"urls": urls})
}

type deleteImageRequest struct {
	URL string `json:"url" binding:"required,url"`
}

// DeleteImage removes an uploaded image. Uploads carry no owner, so only
// administrators may delete.
func (h HandlerSet) DeleteImage(c *gin.Context) {
	var req deleteImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.uploads.Remove(c.Request.Context(), req.URL); err != nil {
		writeError(c, h.log, err)
		return
	}

	respond(c, http.StatusOK, "Image deleted successfully", nil)
}
