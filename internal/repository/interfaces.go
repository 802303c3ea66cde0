// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/beefboard/internal/model"
)

// WriteResult は一意制約・条件付き更新を伴う書き込みの結果を表す。
// 重複キーや条件不一致は例外ではなく型付きの結果として返す。
type WriteResult int

const (
	// WriteApplied は書き込みが反映されたことを示す。
	WriteApplied WriteResult = iota
	// WriteConflict は一意制約または条件によって書き込みが拒否されたことを示す。
	WriteConflict
)

// String はログ出力用の文字列表現を返す。
func (r WriteResult) String() string {
	if r == WriteApplied {
		return "applied"
	}
	return "conflict"
}

// VoteCounts はargumentsテーブルの投票カウンタのスナップショット。
type VoteCounts struct {
	TotalVotes int
	VotesA     int
	VotesB     int
}

// ArgumentRepository は議論（ビーフ）と集計カウンタの永続化インターフェース。
// カウンタの更新はすべて相対更新（現在値 + 1）で行い、読み取り→書き込みを行わない。
type ArgumentRepository interface {
	// FindApprovedByBeefNumber は公開済みの議論をビーフ番号で取得する。
	// 存在しない、または公開状態でない場合はnilを返す。
	FindApprovedByBeefNumber(ctx context.Context, beefNumber int) (*model.Argument, error)

	// FindByID は指定IDの議論を状態に関係なく取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Argument, error)

	// FindRandomApproved は公開済みの議論をランダムに1件取得する。
	// categoryが空の場合はカテゴリで絞り込まない。excludeに含まれるビーフ番号は除外する。
	FindRandomApproved(ctx context.Context, category string, exclude []int) (*model.Argument, error)

	// Create は議論を作成し、採番されたIDとビーフ番号を設定する。
	Create(ctx context.Context, argument *model.Argument) error

	// IncrementVotes は総投票数と指定側の投票数を1ずつ相対加算し、加算後の値を返す。
	IncrementVotes(ctx context.Context, argumentID string, side model.Side) (VoteCounts, error)

	// IncrementReaction は指定種別のリアクション数を1相対加算し、加算後の全6種の件数を返す。
	IncrementReaction(ctx context.Context, argumentID string, reactionType model.ReactionType) (model.ReactionCounts, error)

	// IncrementViewCount は閲覧数を1相対加算する。重複排除は行わない。
	IncrementViewCount(ctx context.Context, argumentID string) error

	// IncrementShareCount は共有数を1相対加算し、加算後の値を返す。重複排除は行わない。
	IncrementShareCount(ctx context.Context, argumentID string) (int, error)

	// ListHallOfFame は殿堂入り一覧を指定の並び順で返す。totalは条件に一致する総件数。
	ListHallOfFame(ctx context.Context, sort model.HallOfFameSort, limit, offset int) (arguments []*model.Argument, total int, err error)

	// ListApprovedByCategory はカテゴリの公開済み議論を総投票数の降順で返す。
	ListApprovedByCategory(ctx context.Context, category string, limit, offset int) (arguments []*model.Argument, total int, err error)

	// CountApprovedByCategory はカテゴリごとの公開済み議論数を返す。
	CountApprovedByCategory(ctx context.Context) (map[string]int, error)
}

// VoteRepository は投票記録の永続化インターフェース。
type VoteRepository interface {
	// Insert は投票を記録する。(argument_id, fingerprint) が既に存在する場合はWriteConflictを返す。
	Insert(ctx context.Context, vote *model.Vote) (WriteResult, error)
}

// ReactionRepository はリアクション記録の永続化インターフェース。
type ReactionRepository interface {
	// Insert はリアクションを記録する。
	// (argument_id, fingerprint, reaction_type) が既に存在する場合はWriteConflictを返す。
	Insert(ctx context.Context, reaction *model.Reaction) (WriteResult, error)
}

// ChallengeRepository はチャレンジの永続化インターフェース。
type ChallengeRepository interface {
	// Insert はチャレンジを作成する。challenge_codeが衝突した場合はWriteConflictを返す。
	Insert(ctx context.Context, challenge *model.Challenge) (WriteResult, error)

	// FindByCode はコードでチャレンジを取得する。見つからない場合はnilを返す。
	FindByCode(ctx context.Context, code string) (*model.Challenge, error)

	// Complete は status = 'pending' の場合に限りチャレンジを完了状態へ遷移させる。
	// 条件付き更新が0件の場合（未存在または回答済み）はnilとWriteConflictを返す。
	Complete(ctx context.Context, code string, vote model.Side, fingerprint string, completedAt time.Time) (*model.Challenge, WriteResult, error)
}

// BOTDRepository は今日のビーフの永続化インターフェース。
type BOTDRepository interface {
	// FindByDate は指定日（YYYY-MM-DD）の今日のビーフを取得する。見つからない場合はnilを返す。
	FindByDate(ctx context.Context, date string) (*model.BeefOfTheDay, error)

	// SelectCandidate は今日のビーフ候補を1件選ぶ。
	// 公開済みで、date > today - exclusionDays の期間に選出されていない議論のうち、
	// entertainment_scoreが最も高いもの（同点はbeef_number昇順）を返す。候補がなければnilを返す。
	SelectCandidate(ctx context.Context, today string, exclusionDays int) (*model.Argument, error)

	// Insert は今日のビーフを作成する。同じ日付が既に存在する場合はWriteConflictを返す。
	Insert(ctx context.Context, botd *model.BeefOfTheDay) (WriteResult, error)

	// Finalize は確定スナップショットを書き込む。
	// 未確定（final_verdict IS NULL）の場合に限り更新し、確定済みの場合はWriteConflictを返す。
	Finalize(ctx context.Context, date string, finalVotesA, finalVotesB int, finalVerdict string) (WriteResult, error)
}

// CounterDrift はargumentsのキャッシュ済みカウンタと投票・リアクション記録との差分。
type CounterDrift struct {
	ArgumentID      string
	BeefNumber      int
	Cached          VoteCounts
	Ledger          VoteCounts
	CachedReactions model.ReactionCounts
	LedgerReactions model.ReactionCounts
}

// LedgerRepository は記録テーブルとカウンタの整合性検査・修復のインターフェース。
type LedgerRepository interface {
	// FindCounterDrift はカウンタが記録テーブルの集計と一致しない議論を返す。
	FindCounterDrift(ctx context.Context) ([]CounterDrift, error)

	// RepairCounters は指定議論のカウンタを記録テーブルの集計値で上書きする。
	RepairCounters(ctx context.Context, argumentID string) error
}
