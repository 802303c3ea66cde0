package repository

import (
	"context"
	"database/sql"
)

// zeroReactionsJSON は6種すべてを0としたリアクション集計。集計結果とマージして欠損キーを補う。
const zeroReactionsJSON = `'{"dead":0,"both_wrong":0,"actually":0,"peak_internet":0,"spicier":0,"hof_material":0}'::jsonb`

// PostgresLedgerRepo はPostgreSQLを使用したカウンタ整合性リポジトリ。
type PostgresLedgerRepo struct {
	db *sql.DB
}

// NewPostgresLedgerRepo はPostgresLedgerRepoを生成する。
func NewPostgresLedgerRepo(db *sql.DB) *PostgresLedgerRepo {
	return &PostgresLedgerRepo{db: db}
}

// FindCounterDrift はカウンタが記録テーブルの集計と一致しない議論を返す。
func (r *PostgresLedgerRepo) FindCounterDrift(ctx context.Context) ([]CounterDrift, error) {
	rows, err := r.db.QueryContext(ctx,
		`WITH v AS (
		     SELECT argument_id,
		            COUNT(*) AS total,
		            COUNT(*) FILTER (WHERE voted_for = 'a') AS a,
		            COUNT(*) FILTER (WHERE voted_for = 'b') AS b
		     FROM votes GROUP BY argument_id
		 ), rc AS (
		     SELECT argument_id, jsonb_object_agg(reaction_type, n) AS counts
		     FROM (
		         SELECT argument_id, reaction_type, COUNT(*) AS n
		         FROM reactions GROUP BY argument_id, reaction_type
		     ) x
		     GROUP BY argument_id
		 ), ledger AS (
		     SELECT a.id, a.beef_number, a.total_votes, a.votes_a, a.votes_b, a.reactions,
		            COALESCE(v.total, 0) AS l_total,
		            COALESCE(v.a, 0) AS l_a,
		            COALESCE(v.b, 0) AS l_b,
		            `+zeroReactionsJSON+` || COALESCE(rc.counts, '{}'::jsonb) AS l_reactions
		     FROM arguments a
		     LEFT JOIN v ON v.argument_id = a.id
		     LEFT JOIN rc ON rc.argument_id = a.id
		 )
		 SELECT id, beef_number, total_votes, votes_a, votes_b, reactions,
		        l_total, l_a, l_b, l_reactions
		 FROM ledger
		 WHERE total_votes <> l_total OR votes_a <> l_a OR votes_b <> l_b
		    OR (`+zeroReactionsJSON+` || reactions) <> l_reactions
		 ORDER BY beef_number`,
	)
	if err != nil {
		return nil, wrapStoreError("カウンタ差分の検出に失敗しました", err)
	}
	defer rows.Close()

	var drifts []CounterDrift
	for rows.Next() {
		var (
			d                    CounterDrift
			cachedRaw, ledgerRaw []byte
		)
		if err := rows.Scan(
			&d.ArgumentID, &d.BeefNumber,
			&d.Cached.TotalVotes, &d.Cached.VotesA, &d.Cached.VotesB, &cachedRaw,
			&d.Ledger.TotalVotes, &d.Ledger.VotesA, &d.Ledger.VotesB, &ledgerRaw,
		); err != nil {
			return nil, wrapStoreError("カウンタ差分の読み取りに失敗しました", err)
		}
		if d.CachedReactions, err = decodeReactions(cachedRaw); err != nil {
			return nil, err
		}
		if d.LedgerReactions, err = decodeReactions(ledgerRaw); err != nil {
			return nil, err
		}
		drifts = append(drifts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError("カウンタ差分の読み取りに失敗しました", err)
	}
	return drifts, nil
}

// RepairCounters は指定議論のカウンタを記録テーブルの集計値で上書きする。
func (r *PostgresLedgerRepo) RepairCounters(ctx context.Context, argumentID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE arguments SET
		     total_votes = (SELECT COUNT(*) FROM votes WHERE argument_id = $1),
		     votes_a = (SELECT COUNT(*) FROM votes WHERE argument_id = $1 AND voted_for = 'a'),
		     votes_b = (SELECT COUNT(*) FROM votes WHERE argument_id = $1 AND voted_for = 'b'),
		     reactions = `+zeroReactionsJSON+` || COALESCE((
		         SELECT jsonb_object_agg(reaction_type, n) FROM (
		             SELECT reaction_type, COUNT(*) AS n
		             FROM reactions WHERE argument_id = $1 GROUP BY reaction_type
		         ) x
		     ), '{}'::jsonb),
		     updated_at = now()
		 WHERE id = $1`,
		argumentID,
	)
	if err != nil {
		return wrapStoreError("カウンタの修復に失敗しました", err)
	}
	return nil
}

// compile-time interface check
var _ LedgerRepository = (*PostgresLedgerRepo)(nil)
