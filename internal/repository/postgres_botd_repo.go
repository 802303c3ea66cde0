package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/beefboard/internal/model"
)

// PostgresBOTDRepo はPostgreSQLを使用した今日のビーフリポジトリ。
type PostgresBOTDRepo struct {
	db *sql.DB
}

// NewPostgresBOTDRepo はPostgresBOTDRepoを生成する。
func NewPostgresBOTDRepo(db *sql.DB) *PostgresBOTDRepo {
	return &PostgresBOTDRepo{db: db}
}

// FindByDate は指定日の今日のビーフを取得する。見つからない場合はnilを返す。
func (r *PostgresBOTDRepo) FindByDate(ctx context.Context, date string) (*model.BeefOfTheDay, error) {
	b := &model.BeefOfTheDay{}
	var (
		finalA, finalB sql.NullInt64
		finalVerdict   sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, argument_id, to_char(date, 'YYYY-MM-DD'), final_votes_a, final_votes_b, final_verdict, created_at
		 FROM beef_of_the_day WHERE date = $1::date`,
		date,
	).Scan(&b.ID, &b.ArgumentID, &b.Date, &finalA, &finalB, &finalVerdict, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStoreError("今日のビーフの取得に失敗しました", err)
	}

	if finalA.Valid {
		v := int(finalA.Int64)
		b.FinalVotesA = &v
	}
	if finalB.Valid {
		v := int(finalB.Int64)
		b.FinalVotesB = &v
	}
	b.FinalVerdict = nullStringPtr(finalVerdict)
	return b, nil
}

// SelectCandidate は直近exclusionDays日間に選出されていない公開済み議論から
// エンタメスコアが最も高いものを選ぶ。同点はビーフ番号の小さいものを優先する。
func (r *PostgresBOTDRepo) SelectCandidate(ctx context.Context, today string, exclusionDays int) (*model.Argument, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+argumentColumns+` FROM arguments a
		 WHERE a.status = 'approved'
		   AND NOT EXISTS (
		       SELECT 1 FROM beef_of_the_day b
		       WHERE b.argument_id = a.id
		         AND b.date > $1::date - $2::int
		   )
		 ORDER BY a.entertainment_score DESC NULLS LAST, a.beef_number ASC
		 LIMIT 1`,
		today, exclusionDays,
	)
	a, err := scanArgument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStoreError("今日のビーフ候補の選出に失敗しました", err)
	}
	return a, nil
}

// Insert は今日のビーフを作成する。UNIQUE(date) に衝突した場合はWriteConflictを返す。
func (r *PostgresBOTDRepo) Insert(ctx context.Context, b *model.BeefOfTheDay) (WriteResult, error) {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO beef_of_the_day (id, argument_id, date, created_at)
		 VALUES ($1, $2, $3::date, $4)
		 ON CONFLICT (date) DO NOTHING`,
		b.ID, b.ArgumentID, b.Date, b.CreatedAt,
	)
	if err != nil {
		return WriteConflict, wrapStoreError("今日のビーフの作成に失敗しました", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return WriteConflict, wrapStoreError("今日のビーフの作成結果の取得に失敗しました", err)
	}
	return rowsToWriteResult(affected), nil
}

// Finalize は未確定の今日のビーフに確定スナップショットを書き込む。
func (r *PostgresBOTDRepo) Finalize(ctx context.Context, date string, finalVotesA, finalVotesB int, finalVerdict string) (WriteResult, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE beef_of_the_day
		 SET final_votes_a = $2, final_votes_b = $3, final_verdict = $4
		 WHERE date = $1::date AND final_verdict IS NULL`,
		date, finalVotesA, finalVotesB, finalVerdict,
	)
	if err != nil {
		return WriteConflict, wrapStoreError("今日のビーフの確定に失敗しました", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return WriteConflict, wrapStoreError("今日のビーフの確定結果の取得に失敗しました", err)
	}
	return rowsToWriteResult(affected), nil
}

// compile-time interface check
var _ BOTDRepository = (*PostgresBOTDRepo)(nil)
