package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/feedthegoat/content-service/internal/domain"
)

// PodcastRepository defines persistence access for podcast episodes.
type PodcastRepository interface {
	Create(ctx context.Context, p *domain.Podcast) error
	Update(ctx context.Context, p *domain.Podcast) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Podcast, error)
	ListPublished(ctx context.Context, limit, offset int) ([]domain.Podcast, error)
}

type podcastRepository struct {
	pool *pgxpool.Pool
}

// NewPodcastRepository returns a Postgres-backed implementation.
func NewPodcastRepository(pool *pgxpool.Pool) PodcastRepository {
	return &podcastRepository{pool: pool}
}

func (r *podcastRepository) Create(ctx context.Context, p *domain.Podcast) error {
	const query = `
        INSERT INTO podcasts (title, description, audio_url, published)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		p.Title,
		p.Description,
		p.AudioURL,
		p.Published,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *podcastRepository) Update(ctx context.Context, p *domain.Podcast) error {
	const query = `
        UPDATE podcasts SET title=$1, description=$2, audio_url=$3, published=$4, updated_at=NOW()
        WHERE id=$5`

	cmd, err := r.pool.Exec(ctx, query, p.Title, p.Description, p.AudioURL, p.Published, p.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *podcastRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM podcasts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *podcastRepository) GetByID(ctx context.Context, id int64) (*domain.Podcast, error) {
	const query = `
        SELECT id, title, description, audio_url, published, created_at, updated_at
        FROM podcasts WHERE id=$1`

	var p domain.Podcast
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Title,
		&p.Description,
		&p.AudioURL,
		&p.Published,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *podcastRepository) ListPublished(ctx context.Context, limit, offset int) ([]domain.Podcast, error) {
	const query = `
        SELECT id, title, description, audio_url, published, created_at, updated_at
        FROM podcasts WHERE published = TRUE
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Podcast
	for rows.Next() {
		var p domain.Podcast
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.AudioURL, &p.Published, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}
