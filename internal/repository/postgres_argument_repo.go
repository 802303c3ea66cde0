package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/beefboard/internal/model"
	"github.com/lib/pq"
)

// argumentColumns はargumentsテーブルのSELECT対象カラム。scanArgumentの順序と一致させること。
const argumentColumns = `id, beef_number, platform, platform_source, original_url, title,
	context_blurb, topic_drift, category, heat_rating,
	user_a_display_name, user_b_display_name, user_a_zinger, user_b_zinger,
	messages, entertainment_score, status,
	total_votes, votes_a, votes_b, reactions, view_count, share_count,
	created_at, updated_at`

// PostgresArgumentRepo はPostgreSQLを使用した議論リポジトリ。
type PostgresArgumentRepo struct {
	db *sql.DB
}

// NewPostgresArgumentRepo はPostgresArgumentRepoを生成する。
func NewPostgresArgumentRepo(db *sql.DB) *PostgresArgumentRepo {
	return &PostgresArgumentRepo{db: db}
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanArgument は1行をmodel.Argumentに変換する。
func scanArgument(row rowScanner) (*model.Argument, error) {
	a := &model.Argument{}
	var (
		originalURL, contextBlurb, topicDrift sql.NullString
		zingerA, zingerB                      sql.NullString
		score                                 sql.NullFloat64
		messagesJSON, reactionsJSON           []byte
		status                                string
	)

	err := row.Scan(
		&a.ID, &a.BeefNumber, &a.Platform, &a.PlatformSource, &originalURL, &a.Title,
		&contextBlurb, &topicDrift, &a.Category, &a.HeatRating,
		&a.UserADisplayName, &a.UserBDisplayName, &zingerA, &zingerB,
		&messagesJSON, &score, &status,
		&a.TotalVotes, &a.VotesA, &a.VotesB, &reactionsJSON, &a.ViewCount, &a.ShareCount,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Status = model.ArgumentStatus(status)
	a.OriginalURL = originalURL.String
	a.ContextBlurb = nullStringPtr(contextBlurb)
	a.TopicDrift = nullStringPtr(topicDrift)
	a.UserAZinger = nullStringPtr(zingerA)
	a.UserBZinger = nullStringPtr(zingerB)
	if score.Valid {
		a.EntertainmentScore = &score.Float64
	}

	if err := json.Unmarshal(messagesJSON, &a.Messages); err != nil {
		return nil, fmt.Errorf("messagesのデコードに失敗しました: %w", err)
	}
	reactions, err := decodeReactions(reactionsJSON)
	if err != nil {
		return nil, err
	}
	a.Reactions = reactions

	return a, nil
}

func decodeReactions(raw []byte) (model.ReactionCounts, error) {
	counts := model.ReactionCounts{}
	if err := json.Unmarshal(raw, &counts); err != nil {
		return nil, fmt.Errorf("reactionsのデコードに失敗しました: %w", err)
	}
	return counts.Normalize(), nil
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func (r *PostgresArgumentRepo) findOne(ctx context.Context, op, where string, args ...any) (*model.Argument, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+argumentColumns+` FROM arguments WHERE `+where+` LIMIT 1`,
		args...,
	)
	a, err := scanArgument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStoreError(op, err)
	}
	return a, nil
}

// FindApprovedByBeefNumber は公開済みの議論をビーフ番号で取得する。
func (r *PostgresArgumentRepo) FindApprovedByBeefNumber(ctx context.Context, beefNumber int) (*model.Argument, error) {
	return r.findOne(ctx, "議論の取得に失敗しました",
		`beef_number = $1 AND status = 'approved'`, beefNumber)
}

// FindByID は指定IDの議論を取得する。
func (r *PostgresArgumentRepo) FindByID(ctx context.Context, id string) (*model.Argument, error) {
	return r.findOne(ctx, "議論の取得に失敗しました", `id = $1`, id)
}

// FindRandomApproved は公開済みの議論をランダムに1件取得する。
func (r *PostgresArgumentRepo) FindRandomApproved(ctx context.Context, category string, exclude []int) (*model.Argument, error) {
	conditions := []string{`status = 'approved'`}
	var args []any

	if category != "" {
		args = append(args, category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if len(exclude) > 0 {
		args = append(args, pq.Array(toInt64s(exclude)))
		conditions = append(conditions, fmt.Sprintf("NOT (beef_number = ANY($%d))", len(args)))
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT `+argumentColumns+` FROM arguments
		 WHERE `+strings.Join(conditions, " AND ")+`
		 ORDER BY random() LIMIT 1`,
		args...,
	)
	a, err := scanArgument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStoreError("ランダムな議論の取得に失敗しました", err)
	}
	return a, nil
}

// Create は議論を作成し、採番されたビーフ番号を設定する。
// カウンタはすべて0で作成する。
func (r *PostgresArgumentRepo) Create(ctx context.Context, a *model.Argument) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Status == "" {
		a.Status = model.ArgumentStatusPendingReview
	}

	messages := a.Messages
	if messages == nil {
		messages = []model.Message{}
	}
	messagesJSON, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("messagesのエンコードに失敗しました: %w", err)
	}
	reactionsJSON, err := json.Marshal(model.NewReactionCounts())
	if err != nil {
		return fmt.Errorf("reactionsのエンコードに失敗しました: %w", err)
	}

	var originalURL sql.NullString
	if a.OriginalURL != "" {
		originalURL = sql.NullString{String: a.OriginalURL, Valid: true}
	}

	now := time.Now().UTC()
	err = r.db.QueryRowContext(ctx,
		`INSERT INTO arguments (
		     id, platform, platform_source, original_url, title, context_blurb, topic_drift,
		     category, heat_rating, user_a_display_name, user_b_display_name,
		     user_a_zinger, user_b_zinger, messages, entertainment_score, status,
		     reactions, created_at, updated_at
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $18)
		 RETURNING beef_number`,
		a.ID, a.Platform, a.PlatformSource, originalURL, a.Title, a.ContextBlurb, a.TopicDrift,
		a.Category, a.HeatRating, a.UserADisplayName, a.UserBDisplayName,
		a.UserAZinger, a.UserBZinger, messagesJSON, a.EntertainmentScore, string(a.Status),
		reactionsJSON, now,
	).Scan(&a.BeefNumber)
	if err != nil {
		return wrapStoreError("議論の作成に失敗しました", err)
	}

	a.Reactions = model.NewReactionCounts()
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

// IncrementVotes は総投票数と指定側の投票数を相対加算する。
// UPDATE ... SET col = col + 1 はPostgreSQLの行ロックで直列化されるため、同時投票でも更新が失われない。
func (r *PostgresArgumentRepo) IncrementVotes(ctx context.Context, argumentID string, side model.Side) (VoteCounts, error) {
	var query string
	switch side {
	case model.SideA:
		query = `UPDATE arguments
		         SET total_votes = total_votes + 1, votes_a = votes_a + 1, updated_at = now()
		         WHERE id = $1
		         RETURNING total_votes, votes_a, votes_b`
	case model.SideB:
		query = `UPDATE arguments
		         SET total_votes = total_votes + 1, votes_b = votes_b + 1, updated_at = now()
		         WHERE id = $1
		         RETURNING total_votes, votes_a, votes_b`
	default:
		return VoteCounts{}, fmt.Errorf("不正な投票サイドです: %q", side)
	}

	var c VoteCounts
	err := r.db.QueryRowContext(ctx, query, argumentID).Scan(&c.TotalVotes, &c.VotesA, &c.VotesB)
	if err != nil {
		return VoteCounts{}, wrapStoreError("投票数の更新に失敗しました", err)
	}
	return c, nil
}

// IncrementReaction は指定種別のリアクション数をJSONB上で相対加算する。
func (r *PostgresArgumentRepo) IncrementReaction(ctx context.Context, argumentID string, reactionType model.ReactionType) (model.ReactionCounts, error) {
	if !reactionType.Valid() {
		return nil, fmt.Errorf("不正なリアクション種別です: %q", reactionType)
	}

	var raw []byte
	err := r.db.QueryRowContext(ctx,
		`UPDATE arguments
		 SET reactions = jsonb_set(
		         reactions,
		         ARRAY[$2::text],
		         to_jsonb(COALESCE((reactions->>$2::text)::int, 0) + 1)
		     ),
		     updated_at = now()
		 WHERE id = $1
		 RETURNING reactions`,
		argumentID, string(reactionType),
	).Scan(&raw)
	if err != nil {
		return nil, wrapStoreError("リアクション数の更新に失敗しました", err)
	}
	return decodeReactions(raw)
}

// IncrementViewCount は閲覧数を相対加算する。
func (r *PostgresArgumentRepo) IncrementViewCount(ctx context.Context, argumentID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE arguments SET view_count = view_count + 1 WHERE id = $1`,
		argumentID,
	)
	if err != nil {
		return wrapStoreError("閲覧数の更新に失敗しました", err)
	}
	return nil
}

// IncrementShareCount は共有数を相対加算し、加算後の値を返す。
func (r *PostgresArgumentRepo) IncrementShareCount(ctx context.Context, argumentID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`UPDATE arguments SET share_count = share_count + 1 WHERE id = $1 RETURNING share_count`,
		argumentID,
	).Scan(&count)
	if err != nil {
		return 0, wrapStoreError("共有数の更新に失敗しました", err)
	}
	return count, nil
}

// hallOfFameQuery は並び順ごとの絞り込み条件と並び替え式。
type hallOfFameQuery struct {
	where   string
	orderBy string
}

const reactionTotalExpr = `(SELECT COALESCE(SUM(value::int), 0) FROM jsonb_each_text(reactions))`

func buildHallOfFameQuery(sort model.HallOfFameSort) (hallOfFameQuery, error) {
	approved := `status = 'approved'`
	switch sort {
	case model.HallOfFameMostVoted:
		return hallOfFameQuery{
			where:   approved,
			orderBy: `total_votes DESC, beef_number ASC`,
		}, nil
	case model.HallOfFameBiggestBeatdown:
		return hallOfFameQuery{
			where: fmt.Sprintf(`%s AND total_votes >= %d
			    AND GREATEST(votes_a, votes_b)::float / total_votes > %g`,
				approved, model.RankingMinVotes, model.BeatdownMinShare),
			orderBy: `GREATEST(votes_a, votes_b)::float / total_votes DESC, beef_number ASC`,
		}, nil
	case model.HallOfFameMostControversial:
		return hallOfFameQuery{
			where:   fmt.Sprintf(`%s AND total_votes >= %d`, approved, model.RankingMinVotes),
			orderBy: `ABS(votes_a - votes_b) ASC, total_votes DESC, beef_number ASC`,
		}, nil
	case model.HallOfFameMostReacted:
		return hallOfFameQuery{
			where:   approved,
			orderBy: reactionTotalExpr + ` DESC, beef_number ASC`,
		}, nil
	case model.HallOfFameStaffPicks:
		return hallOfFameQuery{
			where:   fmt.Sprintf(`%s AND entertainment_score >= %g`, approved, model.StaffPickMinScore),
			orderBy: `entertainment_score DESC, beef_number ASC`,
		}, nil
	case model.HallOfFameRising:
		return hallOfFameQuery{
			where: fmt.Sprintf(`%s AND created_at > now() - interval '%d days'`,
				approved, model.RisingWindowDays),
			orderBy: `total_votes DESC, beef_number ASC`,
		}, nil
	default:
		return hallOfFameQuery{}, fmt.Errorf("不正な並び順です: %q", sort)
	}
}

// ListHallOfFame は殿堂入り一覧を返す。
func (r *PostgresArgumentRepo) ListHallOfFame(ctx context.Context, sort model.HallOfFameSort, limit, offset int) ([]*model.Argument, int, error) {
	q, err := buildHallOfFameQuery(sort)
	if err != nil {
		return nil, 0, err
	}
	return r.listPage(ctx, "殿堂入り一覧の取得に失敗しました", q.where, q.orderBy, nil, limit, offset)
}

// ListApprovedByCategory はカテゴリの公開済み議論を総投票数の降順で返す。
func (r *PostgresArgumentRepo) ListApprovedByCategory(ctx context.Context, category string, limit, offset int) ([]*model.Argument, int, error) {
	return r.listPage(ctx, "カテゴリ別一覧の取得に失敗しました",
		`status = 'approved' AND category = $1`,
		`total_votes DESC, beef_number ASC`,
		[]any{category}, limit, offset,
	)
}

// listPage は件数取得とページ取得を行う共通処理。
func (r *PostgresArgumentRepo) listPage(ctx context.Context, op, where, orderBy string, args []any, limit, offset int) ([]*model.Argument, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM arguments WHERE `+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, wrapStoreError(op, err)
	}

	n := len(args)
	pageArgs := append(append([]any{}, args...), limit, offset)
	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM arguments WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
			argumentColumns, where, orderBy, n+1, n+2),
		pageArgs...,
	)
	if err != nil {
		return nil, 0, wrapStoreError(op, err)
	}
	defer rows.Close()

	var result []*model.Argument
	for rows.Next() {
		a, err := scanArgument(rows)
		if err != nil {
			return nil, 0, wrapStoreError(op, err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, wrapStoreError(op, err)
	}

	return result, total, nil
}

// CountApprovedByCategory はカテゴリごとの公開済み議論数を返す。
func (r *PostgresArgumentRepo) CountApprovedByCategory(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, COUNT(*) FROM arguments WHERE status = 'approved' GROUP BY category`,
	)
	if err != nil {
		return nil, wrapStoreError("カテゴリ別件数の取得に失敗しました", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, wrapStoreError("カテゴリ別件数の取得に失敗しました", err)
		}
		counts[category] = count
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError("カテゴリ別件数の取得に失敗しました", err)
	}
	return counts, nil
}

func toInt64s(in []int) []int64 {
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}

// compile-time interface check
var _ ArgumentRepository = (*PostgresArgumentRepo)(nil)
