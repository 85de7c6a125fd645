package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/feedthegoat/content-service/internal/api/dto"
	"github.com/feedthegoat/content-service/internal/auth"
	"github.com/feedthegoat/content-service/internal/domain"
	"github.com/feedthegoat/content-service/internal/service"
	apperrors "github.com/feedthegoat/content-service/pkg/util/errorutil"
)

// PodcastsHandler exposes podcast CRUD endpoints.
type PodcastsHandler struct {
	content *service.ContentService
}

// NewPodcastsHandler constructs handler.
func NewPodcastsHandler(contentService *service.ContentService) *PodcastsHandler {
	return &PodcastsHandler{content: contentService}
}

// List handles GET /podcasts.
func (h *PodcastsHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	items, err := h.content.ListPodcasts(c.Context(), limit, offset)
	if err != nil {
		return apperrors.MapError(err)
	}

	out := make([]dto.PodcastResponse, 0, len(items))
	for _, p := range items {
		out = append(out, podcastResponse(&p))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Get handles GET /podcasts/:id.
func (h *PodcastsHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.content.GetPodcast(c.Context(), id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("podcast", nil)
		}
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": podcastResponse(p)})
}

// Create handles POST /podcasts.
func (h *PodcastsHandler) Create(c *fiber.Ctx) error {
	var req dto.PodcastRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Title == "" {
		return fiber.NewError(http.StatusBadRequest, "title required")
	}

	p := &domain.Podcast{
		Title:       req.Title,
		Description: req.Description,
		AudioURL:    req.AudioURL,
		Published:   req.Published,
	}
	if err := h.content.CreatePodcast(c.Context(), callerID(c), p); err != nil {
		return apperrors.MapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": podcastResponse(p)})
}

// Update handles PUT /podcasts/:id.
func (h *PodcastsHandler) Update(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.PodcastRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	p := &domain.Podcast{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		AudioURL:    req.AudioURL,
		Published:   req.Published,
	}
	if err := h.content.UpdatePodcast(c.Context(), callerID(c), p); err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("podcast", nil)
		}
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": podcastResponse(p)})
}

// Delete handles DELETE /podcasts/:id.
func (h *PodcastsHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.content.DeletePodcast(c.Context(), id); err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("podcast", nil)
		}
		return apperrors.MapError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

func podcastResponse(p *domain.Podcast) dto.PodcastResponse {
	return dto.PodcastResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		AudioURL:    p.AudioURL,
		Published:   p.Published,
		CreatedAt:   p.CreatedAt,
	}
}

func parseID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// callerID is only called behind the gate; the zero fallback covers tests
// that mount handlers without it.
func callerID(c *fiber.Ctx) int64 {
	if caller, ok := auth.CallerFromContext(c); ok {
		return caller.UserID
	}
	return 0
}
