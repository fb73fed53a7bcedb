package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/khoahotran/stdtrack/internal/domain/profile"
	"github.com/khoahotran/stdtrack/pkg/apperror"
	"github.com/khoahotran/stdtrack/pkg/logger"
)

type postgresProfileRepo struct {
	db     *pgxpool.Pool
	logger logger.Logger
}

func NewPostgresProfileRepo(db *pgxpool.Pool, logger logger.Logger) profile.Repository {
	return &postgresProfileRepo{db: db, logger: logger}
}

func (r *postgresProfileRepo) GetByUserID(ctx context.Context, ownerID uuid.UUID) (*profile.UserProfile, error) {
	query := `SELECT data FROM profiles WHERE owner_id = $1`

	var data []byte
	if err := r.db.QueryRow(ctx, query, ownerID).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, profile.ErrProfileNotFound
		}
		return nil, apperror.NewInternal("failed to query profile", err)
	}

	p := &profile.UserProfile{}
	if err := json.Unmarshal(data, p); err != nil {
		r.logger.Warn("Failed to unmarshal profile data", zap.String("owner_id", ownerID.String()), zap.Error(err))
		return &profile.UserProfile{}, nil
	}
	return p, nil
}

// Merge relies on jsonb || so keys absent from the patch keep their stored
// value while keys it sets, empty ones included, replace it.
func (r *postgresProfileRepo) Merge(ctx context.Context, ownerID uuid.UUID, pt profile.Patch) (*profile.UserProfile, error) {
	doc := pt.Document()
	doc["updatedAt"] = time.Now().UTC()
	patch, err := json.Marshal(doc)
	if err != nil {
		return nil, apperror.NewInternal("failed to marshal profile", err)
	}

	query := `
		INSERT INTO profiles (owner_id, data, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (owner_id) DO UPDATE SET
			data = profiles.data || EXCLUDED.data,
			updated_at = NOW()
		RETURNING data
	`
	var merged []byte
	if err := r.db.QueryRow(ctx, query, ownerID, patch).Scan(&merged); err != nil {
		return nil, apperror.NewInternal("failed to upsert profile", err)
	}

	out := &profile.UserProfile{}
	if err := json.Unmarshal(merged, out); err != nil {
		return nil, apperror.NewInternal("failed to unmarshal merged profile", err)
	}
	return out, nil
}
