package dto

import "time"

// PodcastRequest payload for creating or updating an episode.
type PodcastRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	AudioURL    string `json:"audioUrl"`
	Published   bool   `json:"published"`
}

// ArticleRequest payload for creating or updating an article.
type ArticleRequest struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	Published bool   `json:"published"`
}

// PodcastResponse is the public view of an episode.
type PodcastResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	AudioURL    string    `json:"audioUrl"`
	Published   bool      `json:"published"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ArticleResponse is the public view of an article.
type ArticleResponse struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"createdAt"`
}
