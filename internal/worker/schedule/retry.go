package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/beefboard/internal/model"
)

const (
	// initialBackoff は指数バックオフの初回遅延（15秒）。
	initialBackoff = 15 * time.Second
	// maxBackoff は指数バックオフの最大遅延（10分）。
	maxBackoff = 10 * time.Minute
)

// CalculateBackoff は連続エラー回数に基づいて指数バックオフ遅延を計算する。
// 初回15秒、2倍ずつ増加、最大10分。
func CalculateBackoff(consecutiveErrors int) time.Duration {
	delay := initialBackoff
	for i := 1; i < consecutiveErrors; i++ {
		delay *= 2
		if delay > maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// IsRetryable はエラーが時間をおいて再試行すべきものかを返す。
// ストア障害とタイムアウトのみ再試行対象とする。
func IsRetryable(err error) bool {
	return errors.Is(err, model.ErrStoreUnavailable) || errors.Is(err, context.DeadlineExceeded)
}
