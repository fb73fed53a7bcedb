package persistence

import (
	"context"
	"encoding/json"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/khoahotran/stdtrack/internal/domain/roadmap"
	"github.com/khoahotran/stdtrack/pkg/apperror"
	"github.com/khoahotran/stdtrack/pkg/logger"
)

type postgresRoadmapRepo struct {
	db     *pgxpool.Pool
	logger logger.Logger
}

func NewPostgresRoadmapRepo(db *pgxpool.Pool, logger logger.Logger) roadmap.Repository {
	return &postgresRoadmapRepo{db: db, logger: logger}
}

func scanRoadmap(row pgx.Row, ownerID uuid.UUID, l logger.Logger) (*roadmap.AIResult, error) {
	var data []byte
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, roadmap.ErrRoadmapNotFound
		}
		return nil, apperror.NewInternal("failed to scan roadmap row", err)
	}
	r := &roadmap.AIResult{}
	if err := json.Unmarshal(data, r); err != nil {
		l.Warn("Failed to unmarshal roadmap data", zap.String("owner_id", ownerID.String()), zap.Error(err))
		return nil, apperror.NewInternal("corrupt roadmap record", err)
	}
	r.OwnerID = ownerID
	return r, nil
}

func (r *postgresRoadmapRepo) Save(ctx context.Context, res *roadmap.AIResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return apperror.NewInternal("failed to marshal roadmap", err)
	}
	query := `
		INSERT INTO roadmaps (id, owner_id, mode, title, data, created_at)
		VALUES ($1, $2, $3, $4, $5, to_timestamp($6::double precision / 1000))
	`
	_, err = r.db.Exec(ctx, query, res.ID, res.OwnerID, string(res.Mode), res.Title, data, res.Timestamp)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperror.NewConflict("roadmap", "id", res.ID)
		}
		return apperror.NewInternal("failed to save roadmap", err)
	}
	return nil
}

func (r *postgresRoadmapRepo) FindByID(ctx context.Context, id string, ownerID uuid.UUID) (*roadmap.AIResult, error) {
	query := `SELECT data FROM roadmaps WHERE id = $1 AND owner_id = $2`
	return scanRoadmap(r.db.QueryRow(ctx, query, id, ownerID), ownerID, r.logger)
}

func (r *postgresRoadmapRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*roadmap.AIResult, error) {
	sql, args, err := psql.Select("data").
		From("roadmaps").
		Where(sq.Eq{"owner_id": ownerID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, apperror.NewInternal("failed to build list roadmaps query", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperror.NewInternal("failed to query roadmaps by owner", err)
	}
	defer rows.Close()

	out := make([]*roadmap.AIResult, 0)
	for rows.Next() {
		res, err := scanRoadmap(rows, ownerID, r.logger)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewInternal("error iterating roadmap rows", err)
	}
	return out, nil
}

func (r *postgresRoadmapRepo) Rename(ctx context.Context, id string, ownerID uuid.UUID, title string) error {
	query := `
		UPDATE roadmaps SET
			title = $3,
			data = jsonb_set(data, '{title}', to_jsonb($3::text))
		WHERE id = $1 AND owner_id = $2
	`
	return r.execOne(ctx, "rename roadmap", id, query, id, ownerID, title)
}

func (r *postgresRoadmapRepo) AppendLog(ctx context.Context, id string, ownerID uuid.UUID, log roadmap.DailyLog) error {
	entry, err := json.Marshal([]roadmap.DailyLog{log})
	if err != nil {
		return apperror.NewInternal("failed to marshal roadmap log", err)
	}
	query := `
		UPDATE roadmaps SET
			data = jsonb_set(data, '{logs}', COALESCE(data->'logs', '[]'::jsonb) || $3::jsonb)
		WHERE id = $1 AND owner_id = $2
	`
	return r.execOne(ctx, "append roadmap log", id, query, id, ownerID, entry)
}

func (r *postgresRoadmapRepo) Delete(ctx context.Context, id string, ownerID uuid.UUID) error {
	return r.execOne(ctx, "delete roadmap", id, `DELETE FROM roadmaps WHERE id = $1 AND owner_id = $2`, id, ownerID)
}

func (r *postgresRoadmapRepo) execOne(ctx context.Context, op, id, query string, args ...any) error {
	cmdTag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return apperror.NewInternal("failed to "+op, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperror.NewNotFound("roadmap", id)
	}
	return nil
}
