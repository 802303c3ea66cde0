package model

import (
	"time"
	"unicode/utf8"
)

// Side は議論のどちら側かを表す。
type Side string

const (
	// SideA はユーザーA側。
	SideA Side = "a"
	// SideB はユーザーB側。
	SideB Side = "b"
)

// Valid はSideが a または b であるかを返す。
func (s Side) Valid() bool {
	return s == SideA || s == SideB
}

// ReactionType はリアクションの種別を表す。
type ReactionType string

const (
	ReactionDead         ReactionType = "dead"
	ReactionBothWrong    ReactionType = "both_wrong"
	ReactionActually     ReactionType = "actually"
	ReactionPeakInternet ReactionType = "peak_internet"
	ReactionSpicier      ReactionType = "spicier"
	ReactionHOFMaterial  ReactionType = "hof_material"
)

// ReactionTypes は全リアクション種別を表示順で返す。
func ReactionTypes() []ReactionType {
	return []ReactionType{
		ReactionDead,
		ReactionBothWrong,
		ReactionActually,
		ReactionPeakInternet,
		ReactionSpicier,
		ReactionHOFMaterial,
	}
}

// Valid はリアクション種別が定義済みの6種のいずれかであるかを返す。
func (t ReactionType) Valid() bool {
	for _, known := range ReactionTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// ReactionCounts はリアクション種別ごとの件数。
// JSONカラムにそのまま保存されるため、キーは常に6種すべてを含む。
type ReactionCounts map[ReactionType]int

// NewReactionCounts は全種別を0で初期化したReactionCountsを返す。
func NewReactionCounts() ReactionCounts {
	counts := make(ReactionCounts, len(ReactionTypes()))
	for _, t := range ReactionTypes() {
		counts[t] = 0
	}
	return counts
}

// Normalize は欠けている種別を0で補完した新しいマップを返す。
func (c ReactionCounts) Normalize() ReactionCounts {
	out := NewReactionCounts()
	for _, t := range ReactionTypes() {
		out[t] = c[t]
	}
	return out
}

// Total は全リアクション数の合計を返す。
func (c ReactionCounts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Vote は1フィンガープリントにつき1件の投票記録。
// (ArgumentID, Fingerprint) はストア側のUNIQUE制約で一意性を保証する。
type Vote struct {
	ID          string
	ArgumentID  string
	Fingerprint string
	VotedFor    Side
	CreatedAt   time.Time
}

// Reaction は (ArgumentID, Fingerprint, ReactionType) で一意なリアクション記録。
type Reaction struct {
	ID           string
	ArgumentID   string
	Fingerprint  string
	ReactionType ReactionType
	CreatedAt    time.Time
}

// ChallengeStatus はチャレンジの状態を表す。
type ChallengeStatus string

const (
	// ChallengeStatusPending は回答待ち。
	ChallengeStatusPending ChallengeStatus = "pending"
	// ChallengeStatusCompleted は回答済み（終端状態）。
	ChallengeStatusCompleted ChallengeStatus = "completed"
)

// Challenge は友人に同じ議論の判定を依頼する共有可能な招待。
// ChallengeeVote は Status が completed のときのみ非nilとなる。
type Challenge struct {
	ID                    string
	Code                  string
	ArgumentID            string
	ChallengerFingerprint string
	ChallengerVote        Side
	ChallengeeFingerprint *string
	ChallengeeVote        *Side
	Status                ChallengeStatus
	CreatedAt             time.Time
	CompletedAt           *time.Time
}

// Agreed は両者の投票が一致したかを返す。未回答の場合はfalse。
func (c *Challenge) Agreed() bool {
	return c.ChallengeeVote != nil && *c.ChallengeeVote == c.ChallengerVote
}

// BeefOfTheDay は1暦日（America/New_York）につき1件の「今日のビーフ」。
// 確定スナップショット（FinalVotesA, FinalVotesB, FinalVerdict）は翌日のローテーションで一度だけ書き込まれる。
type BeefOfTheDay struct {
	ID           string
	ArgumentID   string
	Date         string // YYYY-MM-DD
	FinalVotesA  *int
	FinalVotesB  *int
	FinalVerdict *string
	CreatedAt    time.Time
}

// Finalized は確定スナップショットが書き込み済みかを返す。
func (b *BeefOfTheDay) Finalized() bool {
	return b.FinalVerdict != nil
}

// maxFingerprintLength はフィンガープリントとして受け付ける最大文字数。
const maxFingerprintLength = 256

// ValidateFingerprint はクライアントから渡されたフィンガープリントを検証する。
// フィンガープリントは不透明な文字列として扱い、内容の解釈は行わない。
func ValidateFingerprint(fingerprint string) error {
	if fingerprint == "" {
		return NewValidationError("fingerprint is required")
	}
	if utf8.RuneCountInString(fingerprint) > maxFingerprintLength {
		return NewValidationError("fingerprint is too long")
	}
	return nil
}
