// Package verdict は投票率から判定ラベルを導出する分類器を提供する。
// 投票結果のレスポンス、今日のビーフの確定処理、殿堂入りランキングで共通に使用する。
package verdict

import "math"

// Verdict は判定帯を表す。
type Verdict struct {
	Label      string
	Emoji      string
	MinPercent int // 勝者側の最小得票率（この値を含む）
}

// bands は最も一方的なものから順に並べた判定帯。最初に一致したものを採用する。
var bands = []Verdict{
	{Label: "UNANIMOUS BEATDOWN", Emoji: "💀", MinPercent: 95},
	{Label: "FLAWLESS VICTORY", Emoji: "🏆", MinPercent: 85},
	{Label: "CLEAR WINNER", Emoji: "✅", MinPercent: 70},
	{Label: "SPLIT DECISION", Emoji: "⚖️", MinPercent: 55},
	{Label: "CONTROVERSIAL BEEF", Emoji: "🔥", MinPercent: 0},
}

// Bands は判定帯の一覧を返す。
func Bands() []Verdict {
	out := make([]Verdict, len(bands))
	copy(out, bands)
	return out
}

// Classify は両側の得票率から判定を返す。
// 入力は0〜100で合計100の整数であることを前提とする（Percentsで算出した値を渡す）。
// 50/50の場合は常に CONTROVERSIAL BEEF となる。
func Classify(percentA, percentB int) Verdict {
	_, v := classify(percentA, percentB)
	return v
}

// BandIndex は判定帯のインデックスを返す。0が最も一方的。
func BandIndex(percentA, percentB int) int {
	i, _ := classify(percentA, percentB)
	return i
}

func classify(percentA, percentB int) (int, Verdict) {
	winning := max(percentA, percentB)
	for i, b := range bands {
		if winning >= b.MinPercent {
			return i, b
		}
	}
	last := len(bands) - 1
	return last, bands[last]
}

// Percents は得票数から両側の得票率を算出する。
// 総数0の場合は50/50を返す。A側を四捨五入し、B側は100から引いて合計を100に保つ。
func Percents(votesA, votesB int) (int, int) {
	total := votesA + votesB
	if total <= 0 {
		return 50, 50
	}
	a := int(math.Floor(float64(votesA)*100/float64(total) + 0.5))
	return a, 100 - a
}

// Result は集計済みの投票結果。
type Result struct {
	TotalVotes int
	VotesA     int
	VotesB     int
	PercentA   int
	PercentB   int
	Verdict    Verdict
}

// FromCounts は得票数から投票結果を組み立てる。
func FromCounts(votesA, votesB int) Result {
	pa, pb := Percents(votesA, votesB)
	return Result{
		TotalVotes: votesA + votesB,
		VotesA:     votesA,
		VotesB:     votesB,
		PercentA:   pa,
		PercentB:   pb,
		Verdict:    Classify(pa, pb),
	}
}
