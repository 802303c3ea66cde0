package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/beefboard/internal/model"
)

// PostgresVoteRepo はPostgreSQLを使用した投票リポジトリ。
type PostgresVoteRepo struct {
	db *sql.DB
}

// NewPostgresVoteRepo はPostgresVoteRepoを生成する。
func NewPostgresVoteRepo(db *sql.DB) *PostgresVoteRepo {
	return &PostgresVoteRepo{db: db}
}

// Insert は投票を記録する。
// UNIQUE(argument_id, fingerprint) に衝突した場合は行が挿入されず、WriteConflictを返す。
func (r *PostgresVoteRepo) Insert(ctx context.Context, vote *model.Vote) (WriteResult, error) {
	if vote.ID == "" {
		vote.ID = uuid.New().String()
	}
	if vote.CreatedAt.IsZero() {
		vote.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO votes (id, argument_id, fingerprint, voted_for, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (argument_id, fingerprint) DO NOTHING`,
		vote.ID, vote.ArgumentID, vote.Fingerprint, string(vote.VotedFor), vote.CreatedAt,
	)
	if err != nil {
		return WriteConflict, wrapStoreError("投票の記録に失敗しました", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return WriteConflict, wrapStoreError("投票の記録結果の取得に失敗しました", err)
	}
	return rowsToWriteResult(affected), nil
}

// compile-time interface check
var _ VoteRepository = (*PostgresVoteRepo)(nil)
