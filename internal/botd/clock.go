package botd

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// DefaultTimezone は今日のビーフの日付境界に使うタイムゾーン。
const DefaultTimezone = "America/New_York"

// Clock は指定タイムゾーンの暦日を計算する。
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock はClockを生成する。nowがnilの場合はtime.Nowを使う。
func NewClock(timezone string, now func() time.Time) (*Clock, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("タイムゾーンの読み込みに失敗しました: %w", err)
	}
	if now == nil {
		now = time.Now
	}
	return &Clock{loc: loc, now: now}, nil
}

// Location はClockのタイムゾーンを返す。
func (c *Clock) Location() *time.Location {
	return c.loc
}

// Today は現在の暦日をYYYY-MM-DD形式で返す。
func (c *Clock) Today() string {
	return c.now().In(c.loc).Format(time.DateOnly)
}

// Yesterday は前日の暦日をYYYY-MM-DD形式で返す。
// 24時間前ではなく暦日で1日戻すため、夏時間の切り替え日も正しく扱える。
func (c *Clock) Yesterday() string {
	y, m, d := c.now().In(c.loc).Date()
	return time.Date(y, m, d-1, 12, 0, 0, 0, c.loc).Format(time.DateOnly)
}

// UntilNextRotation は次の0時（Clockのタイムゾーン）までの残り時間を返す。
func (c *Clock) UntilNextRotation() time.Duration {
	now := c.now().In(c.loc)
	y, m, d := now.Date()
	midnight := time.Date(y, m, d+1, 0, 0, 0, 0, c.loc)
	if remaining := midnight.Sub(now); remaining > 0 {
		return remaining
	}
	return 0
}

// SecondsUntilNextRotation は次の0時までの残り秒数（切り捨て）を返す。
func (c *Clock) SecondsUntilNextRotation() int64 {
	return int64(c.UntilNextRotation() / time.Second)
}
