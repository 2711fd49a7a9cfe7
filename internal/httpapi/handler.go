package httpapi

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ironsheep/mask-regions/internal/cache"
	"github.com/ironsheep/mask-regions/internal/config"
	"github.com/ironsheep/mask-regions/internal/fault"
	"github.com/ironsheep/mask-regions/internal/pipeline"
	"github.com/ironsheep/mask-regions/internal/result"
)

// MD5Header carries the digest of an uploaded image on segment responses.
const MD5Header = "X-Image-MD5"

var md5Pattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// Handler implements the API routes.
type Handler struct {
	cfg     config.HTTPConfig
	factory *pipeline.Factory
	cache   pipeline.Cache
	log     *zap.Logger
}

// badRequest answers with a failure-shaped result for errors caught before
// the pipeline runs.
func badRequest(c *gin.Context, status int, err, msg string) {
	c.JSON(status, &result.Result{Success: false, Error: err, Message: msg})
}

// Segment accepts an uploaded image and runs it through the pipeline.
func (h *Handler) Segment(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		h.log.Warn("failed to get uploaded file", zap.Error(err))
		badRequest(c, http.StatusBadRequest, err.Error(), "Upload the image in the multipart field \"image\".")
		return
	}

	if h.cfg.MaxUploadSize > 0 && file.Size > h.cfg.MaxUploadSize {
		badRequest(c, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file is %d bytes", file.Size),
			fmt.Sprintf("Files are limited to %d MB.", h.cfg.MaxUploadSize/(1024*1024)))
		return
	}

	contentType := file.Header.Get("Content-Type")
	if !h.isAllowedType(contentType) {
		badRequest(c, http.StatusUnsupportedMediaType,
			fmt.Sprintf("unsupported content type %q", contentType),
			fault.ImageDecodeFailure.Hint())
		return
	}

	p, err := h.factory.Get(c.PostForm("source"))
	if err != nil {
		badRequest(c, http.StatusBadRequest, err.Error(), "Use source sam, mock or threshold.")
		return
	}

	dir := h.cfg.UploadDir
	if dir == "" {
		dir = os.TempDir()
	}
	savePath := filepath.Join(dir, uuid.NewString()+strings.ToLower(filepath.Ext(file.Filename)))
	if err := c.SaveUploadedFile(file, savePath); err != nil {
		h.log.Error("failed to save file", zap.Error(err))
		badRequest(c, http.StatusInternalServerError, err.Error(), "The upload could not be stored.")
		return
	}
	defer func() {
		if err := os.Remove(savePath); err != nil {
			h.log.Warn("failed to delete temp file", zap.String("file", savePath), zap.Error(err))
		}
	}()

	if sum, err := cache.FileMD5(savePath); err == nil {
		c.Header(MD5Header, sum)
	}

	h.log.Info("file uploaded",
		zap.String("filename", file.Filename),
		zap.Int64("size", file.Size),
		zap.String("source", p.Source().Name()))

	res := p.Run(c.Request.Context(), pipeline.Request{
		ImagePath:   savePath,
		DisplayPath: file.Filename,
	})
	c.JSON(statusFor(res), res)
}

// GetByMD5 returns a cached result for an image digest and the requested
// (or default) source.
func (h *Handler) GetByMD5(c *gin.Context) {
	sum := strings.ToLower(c.Param("md5"))
	if !md5Pattern.MatchString(sum) {
		badRequest(c, http.StatusBadRequest, fmt.Sprintf("invalid md5 %q", c.Param("md5")), "Pass the 32-character hex digest of the image.")
		return
	}
	if h.cache == nil {
		badRequest(c, http.StatusNotFound, "result cache is disabled", "Enable cache in the configuration.")
		return
	}

	p, err := h.factory.Get(c.Query("source"))
	if err != nil {
		badRequest(c, http.StatusBadRequest, err.Error(), "Use source sam, mock or threshold.")
		return
	}

	res, err := h.cache.Get(c.Request.Context(), p.CacheKey(sum, ""))
	if err != nil {
		h.log.Warn("failed to get cache", zap.Error(err))
	}
	if res == nil {
		badRequest(c, http.StatusNotFound, "no cached result for "+sum, "Upload the image to POST /api/v1/segment first.")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) isAllowedType(contentType string) bool {
	if len(h.cfg.AllowedTypes) == 0 {
		return strings.HasPrefix(contentType, "image/")
	}
	for _, t := range h.cfg.AllowedTypes {
		if strings.EqualFold(t, contentType) {
			return true
		}
	}
	return false
}

// statusFor maps a result to an HTTP status by its failure kind.
func statusFor(r *result.Result) int {
	if r.Success {
		return http.StatusOK
	}
	switch r.Message {
	case fault.ImageDecodeFailure.Hint():
		return http.StatusUnprocessableEntity
	case fault.MissingDependency.Hint(), fault.ModelArtifactNotFound.Hint():
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
