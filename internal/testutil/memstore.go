// Package testutil はテスト用のインメモリストアを提供する。
// PostgreSQLと同じ一意キー・条件付き更新の意味論をミューテックス下で再現する。
package testutil

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/beefboard/internal/model"
	"github.com/hitoshi/beefboard/internal/repository"
)

// MemStore はすべてのリポジトリインターフェースのインメモリ実装を束ねる。
// 各リポジトリはArguments()などのアクセサで取得する。
type MemStore struct {
	mu sync.Mutex

	arguments  map[string]*model.Argument
	byNumber   map[int]string
	nextNumber int

	votes      map[voteKey]*model.Vote
	reactions  map[reactionKey]*model.Reaction
	challenges map[string]*model.Challenge
	botd       map[string]*model.BeefOfTheDay

	// failErr が設定されている間、すべての操作はErrStoreUnavailableでラップしたエラーを返す。
	failErr error
	now     func() time.Time
}

type voteKey struct {
	argumentID  string
	fingerprint string
}

type reactionKey struct {
	argumentID   string
	fingerprint  string
	reactionType model.ReactionType
}

// NewMemStore は空のMemStoreを生成する。
func NewMemStore() *MemStore {
	return &MemStore{
		arguments:  make(map[string]*model.Argument),
		byNumber:   make(map[int]string),
		nextNumber: 1,
		votes:      make(map[voteKey]*model.Vote),
		reactions:  make(map[reactionKey]*model.Reaction),
		challenges: make(map[string]*model.Challenge),
		botd:       make(map[string]*model.BeefOfTheDay),
		now:        time.Now,
	}
}

// SetFailure はストア障害を模擬する。nilを渡すと解除する。
func (s *MemStore) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

// SetNow は作成日時などに使う時刻関数を差し替える。
func (s *MemStore) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemStore) checkFailure(op string) error {
	if s.failErr != nil {
		return fmt.Errorf("%s: %w: %w", op, model.ErrStoreUnavailable, s.failErr)
	}
	return nil
}

// Arguments はArgumentRepositoryを返す。
func (s *MemStore) Arguments() *MemArgumentRepo { return &MemArgumentRepo{s: s} }

// Votes はVoteRepositoryを返す。
func (s *MemStore) Votes() *MemVoteRepo { return &MemVoteRepo{s: s} }

// Reactions はReactionRepositoryを返す。
func (s *MemStore) Reactions() *MemReactionRepo { return &MemReactionRepo{s: s} }

// Challenges はChallengeRepositoryを返す。
func (s *MemStore) Challenges() *MemChallengeRepo { return &MemChallengeRepo{s: s} }

// BOTD はBOTDRepositoryを返す。
func (s *MemStore) BOTD() *MemBOTDRepo { return &MemBOTDRepo{s: s} }

// Ledger はLedgerRepositoryを返す。
func (s *MemStore) Ledger() *MemLedgerRepo { return &MemLedgerRepo{s: s} }

// SeedArgument は公開済みの議論を1件追加して返す。optsで任意のフィールドを上書きできる。
func (s *MemStore) SeedArgument(opts ...func(*model.Argument)) *model.Argument {
	score := 5.0
	a := &model.Argument{
		Platform:         "reddit",
		PlatformSource:   "r/unpopularopinion",
		Title:            "Is cereal a soup?",
		Category:         "food_takes",
		HeatRating:       3,
		UserADisplayName: "SoupTheory",
		UserBDisplayName: "DryCerealOnly",
		Messages: []model.Message{
			{Author: model.SideA, Body: "Cereal is a cold soup.", Timestamp: "2024-01-01T00:00:00Z"},
			{Author: model.SideB, Body: "Absolutely not.", Timestamp: "2024-01-01T00:01:00Z"},
		},
		EntertainmentScore: &score,
		Status:             model.ArgumentStatusApproved,
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := s.Arguments().Create(context.Background(), a); err != nil {
		panic(err)
	}
	return a
}

// Argument は指定IDの議論のスナップショットを返す。
func (s *MemStore) Argument(id string) *model.Argument {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.arguments[id]
	if !ok {
		return nil
	}
	return cloneArgument(a)
}

// SetCounters は指定議論のカウンタを直接書き換える。差分検出のテストに使う。
func (s *MemStore) SetCounters(id string, counts repository.VoteCounts, reactions model.ReactionCounts) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.arguments[id]
	a.TotalVotes, a.VotesA, a.VotesB = counts.TotalVotes, counts.VotesA, counts.VotesB
	if reactions != nil {
		a.Reactions = reactions.Normalize()
	}
}

// VoteCount は記録済みの投票件数を返す。
func (s *MemStore) VoteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.votes)
}

// BOTDRows は今日のビーフの全行を日付順で返す。
func (s *MemStore) BOTDRows() []*model.BeefOfTheDay {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]*model.BeefOfTheDay, 0, len(s.botd))
	for _, b := range s.botd {
		c := *b
		rows = append(rows, &c)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })
	return rows
}

func cloneArgument(a *model.Argument) *model.Argument {
	c := *a
	c.Messages = append([]model.Message(nil), a.Messages...)
	c.Reactions = a.Reactions.Normalize()
	return &c
}

// --- ArgumentRepository ---

// MemArgumentRepo はArgumentRepositoryのインメモリ実装。
type MemArgumentRepo struct{ s *MemStore }

func (r *MemArgumentRepo) FindApprovedByBeefNumber(ctx context.Context, beefNumber int) (*model.Argument, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkFailure("find argument"); err != nil {
		return nil, err
	}
	id, ok := r.s.byNumber[beefNumber]
	if !ok {
		return nil, nil
	}
	a := r.s.arguments[id]
	if !a.IsApproved() {
		return nil, nil
	}
	return cloneArgument(a), nil
}

func (r *MemArgumentRepo) FindByID(ctx context.Context, id string) (*model.Argument, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkFailure("find argument"); err != nil {
		return nil, err
	}
	a, ok := r.s.arguments[id]
	if !ok {
		return nil, nil
	}
	return cloneArgument(a), nil
}

func (r *MemArgumentRepo) FindRandomApproved(ctx context.Context, category string, exclude []int) (*model.Argument, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkFailure("find random argument"); err != nil {
		return nil, err
	}
	excluded := make(map[int]bool, len(exclude))
	for _, n := range exclude {
		excluded[n] = true
	}
	var candidates []*model.Argument
	for _, a := range r.s.arguments {
		if !a.IsApproved() || excluded[a.BeefNumber] {
			continue
		}
		if category != "" && a.Category != category {
			continue
		}
		candidates = append(candidates, a)
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	return cloneArgument(candidates[rand.Intn(len(candidates))]), nil
}

func (r *MemArgumentRepo) Create(ctx context.Context, a *model.Argument) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkFailure("create argument"); err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Status == "" {
		a.Status = model.ArgumentStatusPendingReview
	}
	a.BeefNumber = r.s.nextNumber
	r.s.nextNumber++
	a.TotalVotes, a.VotesA, a.VotesB, a.ViewCount, a.ShareCount = 0, 0, 0, 0, 0
	a.Reactions = model.NewReactionCounts()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = r.s.now()
	}
	a.UpdatedAt = a.CreatedAt

	r.s.arguments[a.ID] = cloneArgument(a)
	r.s.byNumber[a.BeefNumber] = a.ID
	return nil
}

func (r *MemArgumentRepo) IncrementVotes(ctx context.Context, argumentID string, side model.Side) (repository.VoteCounts, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkFailure("increment votes"); err != nil {
		return repository.VoteCounts{}, err
	}
	a, ok := r.s.arguments[argumentID]
	if !ok {
		return repository.VoteCounts{}, fmt.Errorf("increment votes: %w: argument %s not found", model.ErrStoreUnavailable, argumentID)
	}
	switch side {
	case model.SideA:
		a.VotesA++
	case model.SideB:
		a.VotesB++
	default:
		return repository.VoteCounts{}, fmt.Errorf("invalid side %q", side)
	}
	a.TotalVotes++
	return repository.VoteCounts{TotalVotes: a.TotalVotes, VotesA: a.VotesA, VotesB: a.VotesB}, nil
}

func (r *MemArgumentRepo) IncrementReaction(ctx context.Context, argumentID string, reactionType model.ReactionType) (model.ReactionCounts, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkFailure("increment reaction"); err != nil {
		return nil, err
	}
	a, ok := r.s.arguments[argumentID]
	if !ok {
		return nil, fmt.Errorf("increment reaction: %w: argument %s not found", model.ErrStoreUnavailable, argumentID)
	}
	a.Reactions[reactionType]++
	return a.Reactions.Normalize(), nil
}

func (r *MemArgumentRepo) IncrementViewCount(ctx context.Context, argumentID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkFailure("increment view count"); err != nil {
		return err
	}
	if a, ok := r.s.arguments[argumentID]; ok {
		a.ViewCount++
	}
	return nil
}

func (r *MemArgumentRepo) IncrementShareCount(ctx context.Context, argumentID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkFailure("increment share count"); err != nil {
		return 0, err
	}
	a, ok := r.s.arguments[argumentID]
	if !ok {
		return 0, fmt.Errorf("increment share count: %w: argument %s not found", model.ErrStoreUnavailable, argumentID)
	}
	a.ShareCount++
	return a.ShareCount, nil
}

func (r *MemArgumentRepo) ListHallOfFame(ctx context.Context, sortBy model.HallOfFameSort, limit, offset int) ([]*model.Argument, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkFailure("list hall of fame"); err != nil {
		return nil, 0, err
	}

	now := r.s.now()
	filter, less, err := hallOfFameRule(sortBy, now)
	if err != nil {
		return nil, 0, err
	}

	var matched []*model.Argument
	for _, a := range r.s.arguments {
		if a.IsApproved() && filter(a) {
			matched = append(matched, a)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if less(matched[i], matched[j]) {
			return true
		}
		if less(matched[j], matched[i]) {
			return false
		}
		return matched[i].BeefNumber < matched[j].BeefNumber
	})
	return page(matched, limit, offset), len(matched), nil
}

func winnerShare(a *model.Argument) float64 {
	if a.TotalVotes == 0 {
		return 0
	}
	return float64(max(a.VotesA, a.VotesB)) / float64(a.TotalVotes)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func hallOfFameRule(sortBy model.HallOfFameSort, now time.Time) (func(*model.Argument) bool, func(x, y *model.Argument) bool, error) {
	all := func(*model.Argument) bool { return true }
	byVotes := func(x, y *model.Argument) bool { return x.TotalVotes > y.TotalVotes }

	switch sortBy {
	case model.HallOfFameMostVoted:
		return all, byVotes, nil
	case model.HallOfFameBiggestBeatdown:
		return func(a *model.Argument) bool {
				return a.TotalVotes >= model.RankingMinVotes && winnerShare(a) > model.BeatdownMinShare
			}, func(x, y *model.Argument) bool {
				return winnerShare(x) > winnerShare(y)
			}, nil
	case model.HallOfFameMostControversial:
		return func(a *model.Argument) bool {
				return a.TotalVotes >= model.RankingMinVotes
			}, func(x, y *model.Argument) bool {
				dx, dy := abs(x.VotesA-x.VotesB), abs(y.VotesA-y.VotesB)
				if dx != dy {
					return dx < dy
				}
				return x.TotalVotes > y.TotalVotes
			}, nil
	case model.HallOfFameMostReacted:
		return all, func(x, y *model.Argument) bool {
			return x.Reactions.Total() > y.Reactions.Total()
		}, nil
	case model.HallOfFameStaffPicks:
		return func(a *model.Argument) bool {
				return a.EntertainmentScore != nil && *a.EntertainmentScore >= model.StaffPickMinScore
			}, func(x, y *model.Argument) bool {
				return *x.EntertainmentScore > *y.EntertainmentScore
			}, nil
	case model.HallOfFameRising:
		since := now.AddDate(0, 0, -model.RisingWindowDays)
		return func(a *model.Argument) bool {
			return a.CreatedAt.After(since)
		}, byVotes, nil
	default:
		return nil, nil, fmt.Errorf("invalid sort %q", sortBy)
	}
}

func page(args []*model.Argument, limit, offset int) []*model.Argument {
	if offset >= len(args) {
		return nil
	}
	end := len(args)
	if limit >= 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]*model.Argument, 0, end-offset)
	for _, a := range args[offset:end] {
		out = append(out, cloneArgument(a))
	}
	return out
}

func (r *MemArgumentRepo) ListApprovedByCategory(ctx context.Context, category string, limit, offset int) ([]*model.Argument, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkFailure("list by category"); err != nil {
		return nil, 0, err
	}
	var matched []*model.Argument
	for _, a := range r.s.arguments {
		if a.IsApproved() && a.Category == category {
			matched = append(matched, a)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].TotalVotes != matched[j].TotalVotes {
			return matched[i].TotalVotes > matched[j].TotalVotes
		}
		return matched[i].BeefNumber < matched[j].BeefNumber
	})
	return page(matched, limit, offset), len(matched), nil
}

func (r *MemArgumentRepo) CountApprovedByCategory(ctx context.Context) (map[string]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkFailure("count by category"); err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, a := range r.s.arguments {
		if a.IsApproved() {
			counts[a.Category]++
		}
	}
	return counts, nil
}

// --- VoteRepository ---

// MemVoteRepo はVoteRepositoryのインメモリ実装。
type MemVoteRepo struct{ s *MemStore }

func (r *MemVoteRepo) Insert(ctx context.Context, v *model.Vote) (repository.WriteResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkFailure("insert vote"); err != nil {
		return repository.WriteConflict, err
	}
	key := voteKey{argumentID: v.ArgumentID, fingerprint: v.Fingerprint}
	if _, exists := r.s.votes[key]; exists {
		return repository.WriteConflict, nil
	}
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = r.s.now()
	}
	c := *v
	r.s.votes[key] = &c
	return repository.WriteApplied, nil
}

// --- ReactionRepository ---

// MemReactionRepo はReactionRepositoryのインメモリ実装。
type MemReactionRepo struct{ s *MemStore }

func (r *MemReactionRepo) Insert(ctx context.Context, re *model.Reaction) (repository.WriteResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkFailure("insert reaction"); err != nil {
		return repository.WriteConflict, err
	}
	key := reactionKey{argumentID: re.ArgumentID, fingerprint: re.Fingerprint, reactionType: re.ReactionType}
	if _, exists := r.s.reactions[key]; exists {
		return repository.WriteConflict, nil
	}
	if re.ID == "" {
		re.ID = uuid.New().String()
	}
	if re.CreatedAt.IsZero() {
		re.CreatedAt = r.s.now()
	}
	c := *re
	r.s.reactions[key] = &c
	return repository.WriteApplied, nil
}

// --- ChallengeRepository ---

// MemChallengeRepo はChallengeRepositoryのインメモリ実装。
type MemChallengeRepo struct{ s *MemStore }

func cloneChallenge(c *model.Challenge) *model.Challenge {
	out := *c
	if c.ChallengeeVote != nil {
		v := *c.ChallengeeVote
		out.ChallengeeVote = &v
	}
	if c.ChallengeeFingerprint != nil {
		fp := *c.ChallengeeFingerprint
		out.ChallengeeFingerprint = &fp
	}
	if c.CompletedAt != nil {
		t := *c.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

func (r *MemChallengeRepo) Insert(ctx context.Context, c *model.Challenge) (repository.WriteResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkFailure("insert challenge"); err != nil {
		return repository.WriteConflict, err
	}
	if _, exists := r.s.challenges[c.Code]; exists {
		return repository.WriteConflict, nil
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = r.s.now()
	}
	c.Status = model.ChallengeStatusPending
	r.s.challenges[c.Code] = cloneChallenge(c)
	return repository.WriteApplied, nil
}

func (r *MemChallengeRepo) FindByCode(ctx context.Context, code string) (*model.Challenge, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkFailure("find challenge"); err != nil {
		return nil, err
	}
	c, ok := r.s.challenges[code]
	if !ok {
		return nil, nil
	}
	return cloneChallenge(c), nil
}

func (r *MemChallengeRepo) Complete(ctx context.Context, code string, vote model.Side, fingerprint string, completedAt time.Time) (*model.Challenge, repository.WriteResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkFailure("complete challenge"); err != nil {
		return nil, repository.WriteConflict, err
	}
	c, ok := r.s.challenges[code]
	if !ok || c.Status != model.ChallengeStatusPending {
		return nil, repository.WriteConflict, nil
	}
	v := vote
	fp := fingerprint
	t := completedAt
	c.ChallengeeVote = &v
	c.ChallengeeFingerprint = &fp
	c.CompletedAt = &t
	c.Status = model.ChallengeStatusCompleted
	return cloneChallenge(c), repository.WriteApplied, nil
}

// --- BOTDRepository ---

// MemBOTDRepo はBOTDRepositoryのインメモリ実装。
type MemBOTDRepo struct{ s *MemStore }

func (r *MemBOTDRepo) FindByDate(ctx context.Context, date string) (*model.BeefOfTheDay, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkFailure("find botd"); err != nil {
		return nil, err
	}
	b, ok := r.s.botd[date]
	if !ok {
		return nil, nil
	}
	c := *b
	return &c, nil
}

func (r *MemBOTDRepo) SelectCandidate(ctx context.Context, today string, exclusionDays int) (*model.Argument, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkFailure("select botd candidate"); err != nil {
		return nil, err
	}
	day, err := time.Parse(time.DateOnly, today)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", today, err)
	}
	cutoff := day.AddDate(0, 0, -exclusionDays).Format(time.DateOnly)

	recent := make(map[string]bool)
	for date, b := range r.s.botd {
		if date > cutoff {
			recent[b.ArgumentID] = true
		}
	}

	var best *model.Argument
	for _, a := range r.s.arguments {
		if !a.IsApproved() || recent[a.ID] {
			continue
		}
		if best == nil || betterCandidate(a, best) {
			best = a
		}
	}
	if best == nil {
		return nil, nil
	}
	return cloneArgument(best), nil
}

// betterCandidate はスコア降順（NULLは最後）、同点はビーフ番号昇順で比較する。
func betterCandidate(x, y *model.Argument) bool {
	switch {
	case x.EntertainmentScore != nil && y.EntertainmentScore == nil:
		return true
	case x.EntertainmentScore == nil && y.EntertainmentScore != nil:
		return false
	case x.EntertainmentScore != nil && *x.EntertainmentScore != *y.EntertainmentScore:
		return *x.EntertainmentScore > *y.EntertainmentScore
	}
	return x.BeefNumber < y.BeefNumber
}

func (r *MemBOTDRepo) Insert(ctx context.Context, b *model.BeefOfTheDay) (repository.WriteResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkFailure("insert botd"); err != nil {
		return repository.WriteConflict, err
	}
	if _, exists := r.s.botd[b.Date]; exists {
		return repository.WriteConflict, nil
	}
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = r.s.now()
	}
	c := *b
	r.s.botd[b.Date] = &c
	return repository.WriteApplied, nil
}

func (r *MemBOTDRepo) Finalize(ctx context.Context, date string, finalVotesA, finalVotesB int, finalVerdict string) (repository.WriteResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkFailure("finalize botd"); err != nil {
		return repository.WriteConflict, err
	}
	b, ok := r.s.botd[date]
	if !ok || b.Finalized() {
		return repository.WriteConflict, nil
	}
	a, v, verdict := finalVotesA, finalVotesB, finalVerdict
	b.FinalVotesA, b.FinalVotesB, b.FinalVerdict = &a, &v, &verdict
	return repository.WriteApplied, nil
}

// --- LedgerRepository ---

// MemLedgerRepo はLedgerRepositoryのインメモリ実装。
type MemLedgerRepo struct{ s *MemStore }

func (r *MemLedgerRepo) ledgerFor(argumentID string) (repository.VoteCounts, model.ReactionCounts) {
	var counts repository.VoteCounts
	for k, v := range r.s.votes {
		if k.argumentID != argumentID {
			continue
		}
		counts.TotalVotes++
		if v.VotedFor == model.SideA {
			counts.VotesA++
		} else {
			counts.VotesB++
		}
	}
	reactions := model.NewReactionCounts()
	for k := range r.s.reactions {
		if k.argumentID == argumentID {
			reactions[k.reactionType]++
		}
	}
	return counts, reactions
}

func sameReactions(x, y model.ReactionCounts) bool {
	for _, t := range model.ReactionTypes() {
		if x[t] != y[t] {
			return false
		}
	}
	return true
}

func (r *MemLedgerRepo) FindCounterDrift(ctx context.Context) ([]repository.CounterDrift, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkFailure("find counter drift"); err != nil {
		return nil, err
	}
	var drifts []repository.CounterDrift
	for _, a := range r.s.arguments {
		cached := repository.VoteCounts{TotalVotes: a.TotalVotes, VotesA: a.VotesA, VotesB: a.VotesB}
		ledger, reactions := r.ledgerFor(a.ID)
		if cached == ledger && sameReactions(a.Reactions, reactions) {
			continue
		}
		drifts = append(drifts, repository.CounterDrift{
			ArgumentID:      a.ID,
			BeefNumber:      a.BeefNumber,
			Cached:          cached,
			Ledger:          ledger,
			CachedReactions: a.Reactions.Normalize(),
			LedgerReactions: reactions,
		})
	}
	sort.Slice(drifts, func(i, j int) bool { return drifts[i].BeefNumber < drifts[j].BeefNumber })
	return drifts, nil
}

func (r *MemLedgerRepo) RepairCounters(ctx context.Context, argumentID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkFailure("repair counters"); err != nil {
		return err
	}
	a, ok := r.s.arguments[argumentID]
	if !ok {
		return nil
	}
	ledger, reactions := r.ledgerFor(argumentID)
	a.TotalVotes, a.VotesA, a.VotesB = ledger.TotalVotes, ledger.VotesA, ledger.VotesB
	a.Reactions = reactions
	return nil
}

// compile-time interface checks
var (
	_ repository.ArgumentRepository  = (*MemArgumentRepo)(nil)
	_ repository.VoteRepository      = (*MemVoteRepo)(nil)
	_ repository.ReactionRepository  = (*MemReactionRepo)(nil)
	_ repository.ChallengeRepository = (*MemChallengeRepo)(nil)
	_ repository.BOTDRepository      = (*MemBOTDRepo)(nil)
	_ repository.LedgerRepository    = (*MemLedgerRepo)(nil)
)
