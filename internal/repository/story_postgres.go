package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storybook-server/internal/model"
)

// StoryRepository persists story checkpoints. Upsert replaces the whole row,
// so a checkpoint is always the latest consistent snapshot of the run.
type StoryRepository interface {
	Upsert(ctx context.Context, story *model.Story) error
	GetByID(ctx context.Context, storyID string) (*model.Story, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Story, error)
	CompletedCount(ctx context.Context, ownerID string) (int, error)
}

type pgStoryRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPgStoryRepository creates a PostgreSQL-backed story repository.
func NewPgStoryRepository(pool *pgxpool.Pool, logger *zap.Logger) StoryRepository {
	return &pgStoryRepository{
		pool:   pool,
		logger: logger.Named("PgStoryRepository"),
	}
}

// storyScan is the flat scan target; params and pages live in jsonb columns.
type storyScan struct {
	ID                             string    `db:"id"`
	OwnerID                        string    `db:"owner_id"`
	Title                          string    `db:"title"`
	CoverImage                     string    `db:"cover_image"`
	Params                         []byte    `db:"params"`
	Pages                          []byte    `db:"pages"`
	CreatedAt                      time.Time `db:"created_at"`
	IsComplete                     bool      `db:"is_complete"`
	NarrationEnabled               bool      `db:"narration_enabled"`
	CharacterVisualDescription     string    `db:"character_visual_description"`
	SideCharacterVisualDescription string    `db:"side_character_visual_description"`
}

func (s *storyScan) toModel() (*model.Story, error) {
	story := &model.Story{
		ID:                             s.ID,
		OwnerID:                        s.OwnerID,
		Title:                          s.Title,
		CoverImageURL:                  s.CoverImage,
		CreatedAt:                      s.CreatedAt,
		IsComplete:                     s.IsComplete,
		NarrationEnabled:               s.NarrationEnabled,
		CharacterVisualDescription:     s.CharacterVisualDescription,
		SideCharacterVisualDescription: s.SideCharacterVisualDescription,
	}
	if err := json.Unmarshal(s.Params, &story.Params); err != nil {
		return nil, fmt.Errorf("failed to unmarshal params of story %s: %w", s.ID, err)
	}
	if err := json.Unmarshal(s.Pages, &story.Pages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pages of story %s: %w", s.ID, err)
	}
	return story, nil
}

func (r *pgStoryRepository) Upsert(ctx context.Context, story *model.Story) error {
	paramsJSON, err := json.Marshal(story.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal story params: %w", err)
	}
	pagesJSON, err := json.Marshal(story.Pages)
	if err != nil {
		return fmt.Errorf("failed to marshal story pages: %w", err)
	}

	query := `
		INSERT INTO stories (
			id, owner_id, title, cover_image, params, pages, created_at,
			is_complete, narration_enabled,
			character_visual_description, side_character_visual_description
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			cover_image = EXCLUDED.cover_image,
			params = EXCLUDED.params,
			pages = EXCLUDED.pages,
			is_complete = EXCLUDED.is_complete,
			narration_enabled = EXCLUDED.narration_enabled,
			character_visual_description = EXCLUDED.character_visual_description,
			side_character_visual_description = EXCLUDED.side_character_visual_description,
			updated_at = NOW()`

	_, err = r.pool.Exec(ctx, query,
		story.ID,
		story.OwnerID,
		story.Title,
		story.CoverImageURL,
		paramsJSON,
		pagesJSON,
		story.CreatedAt,
		story.IsComplete,
		story.NarrationEnabled,
		story.CharacterVisualDescription,
		story.SideCharacterVisualDescription,
	)
	if err != nil {
		r.logger.Error("Failed to upsert story",
			zap.String("storyId", story.ID),
			zap.String("ownerId", story.OwnerID),
			zap.Error(err))
		return fmt.Errorf("failed to upsert story %s: %w", story.ID, err)
	}
	return nil
}

const storySelectColumns = `
	id, owner_id, title, cover_image, params, pages, created_at,
	is_complete, narration_enabled,
	character_visual_description, side_character_visual_description`

func (r *pgStoryRepository) GetByID(ctx context.Context, storyID string) (*model.Story, error) {
	query := `SELECT` + storySelectColumns + ` FROM stories WHERE id = $1`

	var row storyScan
	err := pgxscan.Get(ctx, r.pool, &row, query, storyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrStoryNotFound
		}
		r.logger.Error("Failed to get story", zap.String("storyId", storyID), zap.Error(err))
		return nil, fmt.Errorf("failed to get story %s: %w", storyID, err)
	}
	return row.toModel()
}

func (r *pgStoryRepository) ListByOwner(ctx context.Context, ownerID string) ([]*model.Story, error) {
	query := `SELECT` + storySelectColumns + ` FROM stories WHERE owner_id = $1 ORDER BY created_at DESC`

	var rows []storyScan
	if err := pgxscan.Select(ctx, r.pool, &rows, query, ownerID); err != nil {
		r.logger.Error("Failed to list stories", zap.String("ownerId", ownerID), zap.Error(err))
		return nil, fmt.Errorf("failed to list stories for owner %s: %w", ownerID, err)
	}

	stories := make([]*model.Story, 0, len(rows))
	for i := range rows {
		story, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		stories = append(stories, story)
	}
	return stories, nil
}

func (r *pgStoryRepository) CompletedCount(ctx context.Context, ownerID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM stories WHERE owner_id = $1 AND is_complete = TRUE`
	if err := r.pool.QueryRow(ctx, query, ownerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count completed stories for owner %s: %w", ownerID, err)
	}
	return count, nil
}
