// Package model はドメインモデルを定義する。
package model

import "time"

// ArgumentStatus は議論（ビーフ）の公開状態を表す。
type ArgumentStatus string

const (
	// ArgumentStatusPendingReview はレビュー待ちの状態。
	ArgumentStatusPendingReview ArgumentStatus = "pending_review"
	// ArgumentStatusApproved は公開済みの状態。投票・リアクション・チャレンジはこの状態のみ受け付ける。
	ArgumentStatusApproved ArgumentStatus = "approved"
	// ArgumentStatusRejected は却下された状態。
	ArgumentStatusRejected ArgumentStatus = "rejected"
	// ArgumentStatusReported は通報により非公開となった状態。
	ArgumentStatusReported ArgumentStatus = "reported"
	// ArgumentStatusArchived はアーカイブ済みの状態。
	ArgumentStatusArchived ArgumentStatus = "archived"
)

// Argument は2者間の議論（ビーフ）を表す。
// コンテンツ部分はイミュータブルで、投票数などのエンゲージメントカウンタのみが変化する。
type Argument struct {
	ID                 string
	BeefNumber         int
	Platform           string
	PlatformSource     string
	OriginalURL        string // 内部参照用。APIレスポンスには含めない
	Title              string
	ContextBlurb       *string
	TopicDrift         *string
	Category           string
	HeatRating         int
	UserADisplayName   string
	UserBDisplayName   string
	UserAZinger        *string
	UserBZinger        *string
	Messages           []Message
	EntertainmentScore *float64
	Status             ArgumentStatus

	// エンゲージメントカウンタ。TotalVotes = VotesA + VotesB を常に満たす。
	TotalVotes int
	VotesA     int
	VotesB     int
	Reactions  ReactionCounts
	ViewCount  int
	ShareCount int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message は議論を構成する1件の発言を表す。
type Message struct {
	Author     Side    `json:"author"`
	Body       string  `json:"body"`
	Timestamp  string  `json:"timestamp"`
	Score      *int    `json:"score"`
	QuotedText *string `json:"quoted_text"`
}

// IsApproved は議論が公開済みかどうかを返す。
func (a *Argument) IsApproved() bool {
	return a.Status == ArgumentStatusApproved
}
