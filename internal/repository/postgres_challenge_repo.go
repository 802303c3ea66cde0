package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/beefboard/internal/model"
)

const challengeColumns = `id, challenge_code, argument_id, challenger_fingerprint, challenger_vote,
	challengee_fingerprint, challengee_vote, status, created_at, completed_at`

// PostgresChallengeRepo はPostgreSQLを使用したチャレンジリポジトリ。
type PostgresChallengeRepo struct {
	db *sql.DB
}

// NewPostgresChallengeRepo はPostgresChallengeRepoを生成する。
func NewPostgresChallengeRepo(db *sql.DB) *PostgresChallengeRepo {
	return &PostgresChallengeRepo{db: db}
}

func scanChallenge(row rowScanner) (*model.Challenge, error) {
	c := &model.Challenge{}
	var (
		challengerVote, status string
		challengeeFP           sql.NullString
		challengeeVote         sql.NullString
		completedAt            sql.NullTime
	)
	err := row.Scan(
		&c.ID, &c.Code, &c.ArgumentID, &c.ChallengerFingerprint, &challengerVote,
		&challengeeFP, &challengeeVote, &status, &c.CreatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	c.ChallengerVote = model.Side(challengerVote)
	c.Status = model.ChallengeStatus(status)
	c.ChallengeeFingerprint = nullStringPtr(challengeeFP)
	if challengeeVote.Valid {
		v := model.Side(challengeeVote.String)
		c.ChallengeeVote = &v
	}
	if completedAt.Valid {
		t := completedAt.Time
		c.CompletedAt = &t
	}
	return c, nil
}

// Insert はチャレンジを作成する。challenge_codeの衝突はWriteConflictを返す。
func (r *PostgresChallengeRepo) Insert(ctx context.Context, c *model.Challenge) (WriteResult, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.Status = model.ChallengeStatusPending

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO challenges (id, challenge_code, argument_id, challenger_fingerprint, challenger_vote, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (challenge_code) DO NOTHING`,
		c.ID, c.Code, c.ArgumentID, c.ChallengerFingerprint, string(c.ChallengerVote), string(c.Status), c.CreatedAt,
	)
	if err != nil {
		return WriteConflict, wrapStoreError("チャレンジの作成に失敗しました", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return WriteConflict, wrapStoreError("チャレンジの作成結果の取得に失敗しました", err)
	}
	return rowsToWriteResult(affected), nil
}

// FindByCode はコードでチャレンジを取得する。見つからない場合はnilを返す。
func (r *PostgresChallengeRepo) FindByCode(ctx context.Context, code string) (*model.Challenge, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+challengeColumns+` FROM challenges WHERE challenge_code = $1`,
		code,
	)
	c, err := scanChallenge(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStoreError("チャレンジの取得に失敗しました", err)
	}
	return c, nil
}

// Complete は回答待ちのチャレンジを完了状態に遷移させる。
// status = 'pending' を条件に含めるため、同時回答のうち反映されるのは1件だけになる。
func (r *PostgresChallengeRepo) Complete(ctx context.Context, code string, vote model.Side, fingerprint string, completedAt time.Time) (*model.Challenge, WriteResult, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE challenges
		 SET challengee_vote = $2, challengee_fingerprint = $3, status = 'completed', completed_at = $4
		 WHERE challenge_code = $1 AND status = 'pending'
		 RETURNING `+challengeColumns,
		code, string(vote), fingerprint, completedAt,
	)
	c, err := scanChallenge(row)
	if err == sql.ErrNoRows {
		return nil, WriteConflict, nil
	}
	if err != nil {
		return nil, WriteConflict, wrapStoreError("チャレンジの回答に失敗しました", err)
	}
	return c, WriteApplied, nil
}

// compile-time interface check
var _ ChallengeRepository = (*PostgresChallengeRepo)(nil)
