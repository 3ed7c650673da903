package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"storybook-server/internal/messaging"
	"storybook-server/internal/model"
	"storybook-server/internal/repository"
	"storybook-server/internal/service"
	"storybook-server/pkg/codec"
)

// Handler serves the owner-facing story API. Generation itself runs in the
// worker; the API only validates, enqueues tasks and reads persisted state.
type Handler struct {
	tasks  messaging.TaskPublisher
	repo   repository.StoryRepository
	ai     service.AIClient
	logger *zap.Logger
}

// NewHandler creates the API handler.
func NewHandler(tasks messaging.TaskPublisher, repo repository.StoryRepository, ai service.AIClient, logger *zap.Logger) *Handler {
	return &Handler{
		tasks:  tasks,
		repo:   repo,
		ai:     ai,
		logger: logger.Named("APIHandler"),
	}
}

// CreateStory validates the request and enqueues a start task.
// POST /api/stories
func (h *Handler) CreateStory(c *gin.Context) {
	ownerID := ownerFromContext(c)

	var params model.StoryParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if err := validateParams(params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task := messaging.StoryTaskPayload{
		TaskID:  uuid.NewString(),
		Type:    messaging.TaskTypeStart,
		OwnerID: ownerID,
		Params:  &params,
	}
	if err := h.tasks.Publish(c.Request.Context(), task); err != nil {
		h.logger.Error("Failed to enqueue start task", zap.String("ownerId", ownerID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not enqueue story generation"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"taskId": task.TaskID})
}

func validateParams(params model.StoryParams) error {
	switch {
	case params.MainCharacterID == "":
		return errors.New("mainCharacterId is required")
	case params.Location == "":
		return errors.New("location is required")
	case params.Theme == "":
		return errors.New("theme is required")
	case params.StyleID == "":
		return errors.New("styleId is required")
	case params.Language == "":
		return errors.New("language is required")
	case params.Voice != model.VoiceMale && params.Voice != model.VoiceFemale:
		return errors.New("voice must be Male or Female")
	}
	return nil
}

// ResumeStory enqueues a resume task for an interrupted story.
// POST /api/stories/:id/resume
func (h *Handler) ResumeStory(c *gin.Context) {
	h.enqueueResume(c, false)
}

// ForegroundStory handles the app coming back to the foreground: if the
// owner's story is unfinished and no run holds the lock, the worker resumes
// it; otherwise the task is a no-op. Safe to call liberally.
// POST /api/stories/:id/foreground
func (h *Handler) ForegroundStory(c *gin.Context) {
	h.enqueueResume(c, true)
}

func (h *Handler) enqueueResume(c *gin.Context, allowComplete bool) {
	ownerID := ownerFromContext(c)
	storyID := c.Param("id")

	story, err := h.repo.GetByID(c.Request.Context(), storyID)
	if err != nil {
		if errors.Is(err, model.ErrStoryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": model.ErrStoryNotFound.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": model.ErrInternalServer.Error()})
		return
	}
	if story.OwnerID != ownerID {
		c.JSON(http.StatusForbidden, gin.H{"error": model.ErrForbidden.Error()})
		return
	}
	if story.IsComplete {
		if allowComplete {
			c.JSON(http.StatusOK, gin.H{"status": "complete"})
		} else {
			c.JSON(http.StatusConflict, gin.H{"error": model.ErrStoryAlreadyComplete.Error()})
		}
		return
	}

	task := messaging.StoryTaskPayload{
		TaskID:  uuid.NewString(),
		Type:    messaging.TaskTypeResume,
		OwnerID: ownerID,
		StoryID: storyID,
	}
	if err := h.tasks.Publish(c.Request.Context(), task); err != nil {
		h.logger.Error("Failed to enqueue resume task", zap.String("storyId", storyID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not enqueue story resume"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"taskId": task.TaskID})
}

// GetStory returns the current persisted state of a story.
// GET /api/stories/:id
func (h *Handler) GetStory(c *gin.Context) {
	ownerID := ownerFromContext(c)

	story, err := h.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, model.ErrStoryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": model.ErrStoryNotFound.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": model.ErrInternalServer.Error()})
		return
	}
	if story.OwnerID != ownerID {
		c.JSON(http.StatusForbidden, gin.H{"error": model.ErrForbidden.Error()})
		return
	}

	c.JSON(http.StatusOK, story)
}

// ListStories returns the owner's stories, newest first.
// GET /api/stories
func (h *Handler) ListStories(c *gin.Context) {
	ownerID := ownerFromContext(c)

	stories, err := h.repo.ListByOwner(c.Request.Context(), ownerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": model.ErrInternalServer.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"stories": stories})
}

// CompletedCount returns how many finished storybooks the owner has.
// GET /api/completed-count
func (h *Handler) CompletedCount(c *gin.Context) {
	ownerID := ownerFromContext(c)

	count, err := h.repo.CompletedCount(c.Request.Context(), ownerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": model.ErrInternalServer.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

type analyzePhotoRequest struct {
	ImageBase64 string `json:"imageBase64" binding:"required"`
	MimeType    string `json:"mimeType"`
}

// AnalyzePhoto turns a child's photo into a reusable character description
// for the "star in your own story" flow.
// POST /api/characters/analyze-photo
func (h *Handler) AnalyzePhoto(c *gin.Context) {
	var req analyzePhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.MimeType == "" {
		req.MimeType = "image/jpeg"
	}

	imageData, err := codec.DecodeBase64(req.ImageBase64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "imageBase64 is not valid base64"})
		return
	}

	description, err := h.ai.AnalyzePhoto(c.Request.Context(), imageData, req.MimeType)
	if err != nil {
		h.logger.Error("Photo analysis failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "photo analysis failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"characterVisualDescription": description})
}
