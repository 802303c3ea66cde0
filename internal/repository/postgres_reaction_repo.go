package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/beefboard/internal/model"
)

// PostgresReactionRepo はPostgreSQLを使用したリアクションリポジトリ。
type PostgresReactionRepo struct {
	db *sql.DB
}

// NewPostgresReactionRepo はPostgresReactionRepoを生成する。
func NewPostgresReactionRepo(db *sql.DB) *PostgresReactionRepo {
	return &PostgresReactionRepo{db: db}
}

// Insert はリアクションを記録する。同一種別の重複はWriteConflictを返す。
func (r *PostgresReactionRepo) Insert(ctx context.Context, reaction *model.Reaction) (WriteResult, error) {
	if reaction.ID == "" {
		reaction.ID = uuid.New().String()
	}
	if reaction.CreatedAt.IsZero() {
		reaction.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO reactions (id, argument_id, fingerprint, reaction_type, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (argument_id, fingerprint, reaction_type) DO NOTHING`,
		reaction.ID, reaction.ArgumentID, reaction.Fingerprint, string(reaction.ReactionType), reaction.CreatedAt,
	)
	if err != nil {
		return WriteConflict, wrapStoreError("リアクションの記録に失敗しました", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return WriteConflict, wrapStoreError("リアクションの記録結果の取得に失敗しました", err)
	}
	return rowsToWriteResult(affected), nil
}

// compile-time interface check
var _ ReactionRepository = (*PostgresReactionRepo)(nil)
