package domain

import "time"

// Podcast is an audio episode served to subscribers.
type Podcast struct {
	ID          int64
	Title       string
	Description string
	AudioURL    string
	Published   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Article is a written piece served to subscribers.
type Article struct {
	ID        int64
	Title     string
	Body      string
	Published bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
