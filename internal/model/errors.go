// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, beef, challenge, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest            = "INVALID_REQUEST"
	ErrCodeBeefNotFound              = "BEEF_NOT_FOUND"
	ErrCodeAlreadyVoted              = "ALREADY_VOTED"
	ErrCodeAlreadyReacted            = "ALREADY_REACTED"
	ErrCodeChallengeNotFound         = "CHALLENGE_NOT_FOUND"
	ErrCodeChallengeAlreadyCompleted = "CHALLENGE_ALREADY_COMPLETED"
	ErrCodeCodeGenerationFailed      = "CODE_GENERATION_FAILED"
	ErrCodeNoBOTDToday               = "NO_BOTD_TODAY"
	ErrCodeUnknownCategory           = "UNKNOWN_CATEGORY"
	ErrCodeStoreUnavailable          = "STORE_UNAVAILABLE"
)

// ErrStoreUnavailable はストアの接続断・タイムアウトなど、一意制約以外の永続化エラーを表す。
// リポジトリ層はこのエラーでラップして返す。リトライは呼び出し側の責務。
var ErrStoreUnavailable = errors.New("store unavailable")

// IsConflict はエラーが通常の競合（409相当）であるかを返す。
// 競合はバグではなく想定内の結果のため、エラーログには出さない。
func IsConflict(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case ErrCodeAlreadyVoted, ErrCodeAlreadyReacted, ErrCodeChallengeAlreadyCompleted:
		return true
	}
	return false
}

// NewValidationError は入力値の検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("Invalid request: %s", reason),
		Category: "validation",
		Action:   "Check the request body and try again.",
	}
}

// NewBeefNotFoundError はビーフ未検出エラーを生成する。
// 存在しない場合と公開状態でない場合を区別しない。
func NewBeefNotFoundError(beefNumber int) *APIError {
	return &APIError{
		Code:     ErrCodeBeefNotFound,
		Message:  fmt.Sprintf("Beef not found: #%05d", beefNumber),
		Category: "beef",
		Action:   "Check the beef number or pick another beef.",
	}
}

// NewNoBeefFoundError はランダム取得で条件に合う議論がない場合のエラーを生成する。
func NewNoBeefFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeBeefNotFound,
		Message:  "No beef found.",
		Category: "beef",
		Action:   "Try another category or clear the exclude list.",
	}
}

// NewAlreadyVotedError は同一フィンガープリントによる二重投票エラーを生成する。
func NewAlreadyVotedError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyVoted,
		Message:  "Already voted on this beef.",
		Category: "beef",
		Action:   "Fetch the current results instead.",
	}
}

// NewAlreadyReactedError は同一種別のリアクション重複エラーを生成する。
func NewAlreadyReactedError(reactionType ReactionType) *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyReacted,
		Message:  fmt.Sprintf("Already reacted with this type: %s", reactionType),
		Category: "beef",
		Action:   "Each reaction can be used once per beef.",
	}
}

// NewChallengeNotFoundError はチャレンジコード未検出エラーを生成する。
func NewChallengeNotFoundError(code string) *APIError {
	return &APIError{
		Code:     ErrCodeChallengeNotFound,
		Message:  fmt.Sprintf("Challenge not found: %s", code),
		Category: "challenge",
		Action:   "Check the challenge link.",
	}
}

// NewChallengeAlreadyCompletedError は回答済みチャレンジへの再回答エラーを生成する。
func NewChallengeAlreadyCompletedError() *APIError {
	return &APIError{
		Code:     ErrCodeChallengeAlreadyCompleted,
		Message:  "Challenge already completed.",
		Category: "challenge",
		Action:   "Ask your friend to send a new challenge.",
	}
}

// NewCodeGenerationFailedError はチャレンジコード生成のリトライ枯渇エラーを生成する。
func NewCodeGenerationFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeCodeGenerationFailed,
		Message:  "Failed to generate unique challenge code.",
		Category: "system",
		Action:   "Please try again.",
	}
}

// NewNoBOTDTodayError は本日のビーフが未選出の場合のエラーを生成する。
func NewNoBOTDTodayError() *APIError {
	return &APIError{
		Code:     ErrCodeNoBOTDToday,
		Message:  "No Beef of the Day for today.",
		Category: "beef",
		Action:   "Check back later.",
	}
}

// NewUnknownCategoryError は未知のカテゴリ指定エラーを生成する。
func NewUnknownCategoryError(slug string) *APIError {
	return &APIError{
		Code:     ErrCodeUnknownCategory,
		Message:  fmt.Sprintf("Unknown category: %s", slug),
		Category: "beef",
		Action:   "Pick a category from the category list.",
	}
}

// NewStoreUnavailableError はストア障害時のエラーを生成する。
func NewStoreUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeStoreUnavailable,
		Message:  "The service is temporarily unavailable.",
		Category: "system",
		Action:   "Please wait a moment and try again.",
	}
}
