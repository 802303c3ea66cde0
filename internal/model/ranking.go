package model

// HallOfFameSort は殿堂入り一覧の並び順を表す。
type HallOfFameSort string

const (
	// HallOfFameMostVoted は総投票数の降順。
	HallOfFameMostVoted HallOfFameSort = "most_voted"
	// HallOfFameBiggestBeatdown は勝者側の得票率が85%を超えるものを得票率の降順で並べる。
	HallOfFameBiggestBeatdown HallOfFameSort = "biggest_beatdown"
	// HallOfFameMostControversial は得票差の小さい順。
	HallOfFameMostControversial HallOfFameSort = "most_controversial"
	// HallOfFameMostReacted はリアクション総数の降順。
	HallOfFameMostReacted HallOfFameSort = "most_reacted"
	// HallOfFameStaffPicks はエンタメスコア9.0以上をスコア降順で並べる。
	HallOfFameStaffPicks HallOfFameSort = "staff_picks"
	// HallOfFameRising は直近7日間に作成されたものを総投票数の降順で並べる。
	HallOfFameRising HallOfFameSort = "rising"
)

// ランキング条件の閾値
const (
	// RankingMinVotes はbiggest_beatdownとmost_controversialの対象となる最小投票数。
	RankingMinVotes = 50
	// BeatdownMinShare はbiggest_beatdownの対象となる勝者側得票率（この値を超える）。
	BeatdownMinShare = 0.85
	// StaffPickMinScore はstaff_picksの対象となる最小エンタメスコア。
	StaffPickMinScore = 9.0
	// RisingWindowDays はrisingの対象期間（日）。
	RisingWindowDays = 7
)

// Valid は並び順が定義済みのものかを返す。
func (s HallOfFameSort) Valid() bool {
	switch s {
	case HallOfFameMostVoted, HallOfFameBiggestBeatdown, HallOfFameMostControversial,
		HallOfFameMostReacted, HallOfFameStaffPicks, HallOfFameRising:
		return true
	}
	return false
}
