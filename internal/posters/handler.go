package posters

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/expo-venue/backend/internal/middleware"
	"github.com/expo-venue/backend/internal/models"
	"github.com/expo-venue/backend/pkg/response"
	"github.com/expo-venue/backend/pkg/storage"
)

// MemberChecker answers whether a user belongs to a project. Implemented by
// the rooms repository, which owns project membership.
type MemberChecker interface {
	IsProjectMember(ctx context.Context, userID uuid.UUID, projectID int64) (bool, error)
}

// Handler handles poster upload/download HTTP endpoints.
type Handler struct {
	repo    *Repository
	members MemberChecker
	s3      *storage.S3
	logger  *zap.Logger
}

// NewHandler creates a posters handler. s3 may be nil when storage is not
// configured; upload and download then answer 503.
func NewHandler(repo *Repository, members MemberChecker, s3 *storage.S3, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, members: members, s3: s3, logger: logger}
}

func (h *Handler) authorize(c *gin.Context, projectID int64) bool {
	role, _ := c.MustGet(middleware.ContextUserRole).(string)
	if models.ParseRole(role) == models.RoleAdmin {
		return true
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	ok, err := h.members.IsProjectMember(c.Request.Context(), userID, projectID)
	if err != nil || !ok {
		response.Forbidden(c, "only project members can manage posters")
		return false
	}
	return true
}

// Upload handles POST /projects/:id/posters (multipart form, field "file").
func (h *Handler) Upload(c *gin.Context) {
	if h.s3 == nil {
		response.ServiceUnavailable(c, "poster storage not configured")
		return
	}
	projectID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}
	if !h.authorize(c, projectID) {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file")
		return
	}
	if fileHeader.Size > storage.MaxPosterFileSize {
		response.BadRequest(c, "file too large (max 25MB)")
		return
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if !storage.ValidatePosterFileType(contentType, fileHeader.Filename) {
		response.BadRequest(c, "unsupported file type (want pdf, jpg or png)")
		return
	}
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(fileHeader.Filename)
	}

	f, err := fileHeader.Open()
	if err != nil {
		response.Internal(c, "failed to read file")
		return
	}
	defer f.Close()

	key := storage.PosterKey(strconv.FormatInt(projectID, 10), fileHeader.Filename)
	if _, err := h.s3.Upload(c.Request.Context(), h.s3.PostersBucket(), key, contentType, f, fileHeader.Size); err != nil {
		h.logger.Error("poster upload failed", zap.String("key", key), zap.Error(err))
		response.Internal(c, "failed to upload poster")
		return
	}

	p := &models.Poster{
		ProjectID:   projectID,
		S3Key:       key,
		ContentType: contentType,
		SizeBytes:   fileHeader.Size,
		UploadedBy:  userID,
	}
	if err := h.repo.Create(c.Request.Context(), p); err != nil {
		// keep the bucket consistent with the database
		_ = h.s3.DeleteObject(c.Request.Context(), h.s3.PostersBucket(), key)
		response.Internal(c, "failed to record poster")
		return
	}
	response.Created(c, p)
}

// ListByProject handles GET /projects/:id/posters.
func (h *Handler) ListByProject(c *gin.Context) {
	projectID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}
	list, err := h.repo.ListByProject(c.Request.Context(), projectID)
	if err != nil {
		response.Internal(c, "failed to list posters")
		return
	}
	response.OK(c, gin.H{"posters": list})
}

// DownloadURL handles GET /posters/:id/download-url: returns a short-lived
// pre-signed S3 URL instead of proxying the object.
func (h *Handler) DownloadURL(c *gin.Context) {
	if h.s3 == nil {
		response.ServiceUnavailable(c, "poster storage not configured")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid poster id")
		return
	}
	p, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "poster not found")
		return
	}
	url, err := h.s3.GeneratePresignedDownloadURL(c.Request.Context(), h.s3.PostersBucket(), p.S3Key, h.s3.PresignExpire())
	if err != nil {
		h.logger.Error("presign poster failed", zap.String("key", p.S3Key), zap.Error(err))
		response.Internal(c, "failed to generate download url")
		return
	}
	response.OK(c, gin.H{"url": url, "expires_in_seconds": int(h.s3.PresignExpire().Seconds())})
}

// Delete handles DELETE /posters/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid poster id")
		return
	}
	p, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "poster not found")
		return
	}
	if !h.authorize(c, p.ProjectID) {
		return
	}
	if h.s3 != nil {
		if err := h.s3.DeleteObject(c.Request.Context(), h.s3.PostersBucket(), p.S3Key); err != nil {
			h.logger.Warn("poster object delete failed", zap.String("key", p.S3Key), zap.Error(err))
		}
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		response.Internal(c, "failed to delete poster")
		return
	}
	response.NoContent(c)
}
