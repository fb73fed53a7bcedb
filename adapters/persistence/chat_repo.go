package persistence

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khoahotran/stdtrack/internal/domain/chat"
	"github.com/khoahotran/stdtrack/pkg/apperror"
	"github.com/khoahotran/stdtrack/pkg/logger"
)

type postgresChatRepo struct {
	db     *pgxpool.Pool
	logger logger.Logger
}

// NewPostgresChatRepo stores messages only; wrap it with a realtime hub for
// subscriptions.
func NewPostgresChatRepo(db *pgxpool.Pool, logger logger.Logger) chat.Store {
	return &postgresChatRepo{db: db, logger: logger}
}

func (r *postgresChatRepo) Append(ctx context.Context, key chat.ThreadKey, msg chat.Message) (*chat.Message, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperror.NewInternal("failed to generate message id", err)
	}
	msg.ID = id

	query := `
		INSERT INTO chat_messages (id, owner_id, thread_id, result_id, item, role, text, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.db.Exec(ctx, query,
		msg.ID, key.OwnerID, key.ID(), key.ResultID, key.Item, string(msg.Role), msg.Text, msg.Timestamp,
	)
	if err != nil {
		return nil, apperror.NewInternal("failed to append chat message", err)
	}
	return &msg, nil
}

func (r *postgresChatRepo) Delete(ctx context.Context, key chat.ThreadKey, messageID uuid.UUID) error {
	query := `DELETE FROM chat_messages WHERE id = $1 AND owner_id = $2 AND thread_id = $3`
	cmdTag, err := r.db.Exec(ctx, query, messageID, key.OwnerID, key.ID())
	if err != nil {
		return apperror.NewInternal("failed to delete chat message", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperror.NewNotFound("chat message", messageID.String())
	}
	return nil
}

func (r *postgresChatRepo) Clear(ctx context.Context, key chat.ThreadKey) error {
	query := `DELETE FROM chat_messages WHERE owner_id = $1 AND thread_id = $2`
	if _, err := r.db.Exec(ctx, query, key.OwnerID, key.ID()); err != nil {
		return apperror.NewInternal("failed to clear chat thread", err)
	}
	return nil
}

func (r *postgresChatRepo) ClearResult(ctx context.Context, ownerID uuid.UUID, resultID string) ([]string, error) {
	query := `DELETE FROM chat_messages WHERE owner_id = $1 AND result_id = $2 RETURNING thread_id`
	rows, err := r.db.Query(ctx, query, ownerID, resultID)
	if err != nil {
		return nil, apperror.NewInternal("failed to clear roadmap threads", err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	threads := make([]string, 0)
	for rows.Next() {
		var threadID string
		if err := rows.Scan(&threadID); err != nil {
			return nil, apperror.NewInternal("failed to scan cleared thread id", err)
		}
		if _, ok := seen[threadID]; !ok {
			seen[threadID] = struct{}{}
			threads = append(threads, threadID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewInternal("error iterating cleared threads", err)
	}
	return threads, nil
}

func (r *postgresChatRepo) List(ctx context.Context, key chat.ThreadKey) ([]chat.Message, error) {
	sql, args, err := psql.Select("id", "role", "text", "ts").
		From("chat_messages").
		Where(sq.Eq{"owner_id": key.OwnerID, "thread_id": key.ID()}).
		OrderBy("ts ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, apperror.NewInternal("failed to build list chat query", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperror.NewInternal("failed to query chat messages", err)
	}
	defer rows.Close()

	msgs := make([]chat.Message, 0)
	for rows.Next() {
		var m chat.Message
		var role string
		if err := rows.Scan(&m.ID, &role, &m.Text, &m.Timestamp); err != nil {
			return nil, apperror.NewInternal("failed to scan chat message", err)
		}
		m.Role = chat.Role(role)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewInternal("error iterating chat rows", err)
	}
	return msgs, nil
}
