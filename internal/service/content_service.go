package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/feedthegoat/content-service/internal/domain"
	"github.com/feedthegoat/content-service/internal/events"
	"github.com/feedthegoat/content-service/internal/repository"
)

// ContentService manages podcasts and articles and announces publications.
type ContentService struct {
	podcasts   repository.PodcastRepository
	articles   repository.ArticleRepository
	dispatcher events.Dispatcher
}

// NewContentService builds the service.
func NewContentService(podcasts repository.PodcastRepository, articles repository.ArticleRepository, dispatcher events.Dispatcher) *ContentService {
	return &ContentService{podcasts: podcasts, articles: articles, dispatcher: dispatcher}
}

// CreatePodcast stores a new episode.
func (s *ContentService) CreatePodcast(ctx context.Context, actorID int64, p *domain.Podcast) error {
	if err := s.podcasts.Create(ctx, p); err != nil {
		return err
	}
	if p.Published {
		s.announce(ctx, actorID, "podcast", p.ID, p.Title)
	}
	return nil
}

// UpdatePodcast persists changes to an episode.
func (s *ContentService) UpdatePodcast(ctx context.Context, actorID int64, p *domain.Podcast) error {
	existing, err := s.podcasts.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	if err := s.podcasts.Update(ctx, p); err != nil {
		return err
	}
	if !existing.Published && p.Published {
		s.announce(ctx, actorID, "podcast", p.ID, p.Title)
	}
	return nil
}

// DeletePodcast removes an episode.
func (s *ContentService) DeletePodcast(ctx context.Context, id int64) error {
	return s.podcasts.Delete(ctx, id)
}

// GetPodcast loads one episode.
func (s *ContentService) GetPodcast(ctx context.Context, id int64) (*domain.Podcast, error) {
	return s.podcasts.GetByID(ctx, id)
}

// ListPodcasts returns published episodes, newest first.
func (s *ContentService) ListPodcasts(ctx context.Context, limit, offset int) ([]domain.Podcast, error) {
	return s.podcasts.ListPublished(ctx, clampLimit(limit), offset)
}

// CreateArticle stores a new article.
func (s *ContentService) CreateArticle(ctx context.Context, actorID int64, a *domain.Article) error {
	if err := s.articles.Create(ctx, a); err != nil {
		return err
	}
	if a.Published {
		s.announce(ctx, actorID, "article", a.ID, a.Title)
	}
	return nil
}

// UpdateArticle persists changes to an article.
func (s *ContentService) UpdateArticle(ctx context.Context, actorID int64, a *domain.Article) error {
	existing, err := s.articles.GetByID(ctx, a.ID)
	if err != nil {
		return err
	}
	if err := s.articles.Update(ctx, a); err != nil {
		return err
	}
	if !existing.Published && a.Published {
		s.announce(ctx, actorID, "article", a.ID, a.Title)
	}
	return nil
}

// DeleteArticle removes an article.
func (s *ContentService) DeleteArticle(ctx context.Context, id int64) error {
	return s.articles.Delete(ctx, id)
}

// GetArticle loads one article.
func (s *ContentService) GetArticle(ctx context.Context, id int64) (*domain.Article, error) {
	return s.articles.GetByID(ctx, id)
}

// ListArticles returns published articles, newest first.
func (s *ContentService) ListArticles(ctx context.Context, limit, offset int) ([]domain.Article, error) {
	return s.articles.ListPublished(ctx, clampLimit(limit), offset)
}

func (s *ContentService) announce(ctx context.Context, actorID int64, kind string, contentID int64, title string) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventContentPublished,
		ActorID:   &actorID,
		Timestamp: time.Now(),
		Payload:   events.ContentPublishedPayload{Kind: kind, ContentID: contentID, Title: title},
	})
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 20
	}
	return limit
}
