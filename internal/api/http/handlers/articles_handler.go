package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/feedthegoat/content-service/internal/api/dto"
	"github.com/feedthegoat/content-service/internal/domain"
	"github.com/feedthegoat/content-service/internal/service"
	apperrors "github.com/feedthegoat/content-service/pkg/util/errorutil"
)

// ArticlesHandler exposes article CRUD endpoints.
type ArticlesHandler struct {
	content *service.ContentService
}

// NewArticlesHandler constructs handler.
func NewArticlesHandler(contentService *service.ContentService) *ArticlesHandler {
	return &ArticlesHandler{content: contentService}
}

// List handles GET /articles.
func (h *ArticlesHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	items, err := h.content.ListArticles(c.Context(), limit, offset)
	if err != nil {
		return apperrors.MapError(err)
	}

	out := make([]dto.ArticleResponse, 0, len(items))
	for _, a := range items {
		out = append(out, articleResponse(&a))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Get handles GET /articles/:id.
func (h *ArticlesHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	a, err := h.content.GetArticle(c.Context(), id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("article", nil)
		}
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": articleResponse(a)})
}

// Create handles POST /articles.
func (h *ArticlesHandler) Create(c *fiber.Ctx) error {
	var req dto.ArticleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Title == "" {
		return fiber.NewError(http.StatusBadRequest, "title required")
	}

	a := &domain.Article{
		Title:     req.Title,
		Body:      req.Body,
		Published: req.Published,
	}
	if err := h.content.CreateArticle(c.Context(), callerID(c), a); err != nil {
		return apperrors.MapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": articleResponse(a)})
}

// Update handles PUT /articles/:id.
func (h *ArticlesHandler) Update(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.ArticleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	a := &domain.Article{
		ID:        id,
		Title:     req.Title,
		Body:      req.Body,
		Published: req.Published,
	}
	if err := h.content.UpdateArticle(c.Context(), callerID(c), a); err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("article", nil)
		}
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": articleResponse(a)})
}

// Delete handles DELETE /articles/:id.
func (h *ArticlesHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.content.DeleteArticle(c.Context(), id); err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("article", nil)
		}
		return apperrors.MapError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

func articleResponse(a *domain.Article) dto.ArticleResponse {
	return dto.ArticleResponse{
		ID:        a.ID,
		Title:     a.Title,
		Body:      a.Body,
		Published: a.Published,
		CreatedAt: a.CreatedAt,
	}
}
