package botd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/beefboard/internal/model"
	"github.com/hitoshi/beefboard/internal/repository"
	"github.com/hitoshi/beefboard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mutableClock はテスト中に時刻を進められるClockを返す。
type mutableClock struct {
	mu  sync.Mutex
	now time.Time
}

func (m *mutableClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *mutableClock) AddDays(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.AddDate(0, 0, n)
}

func newRotatorFixture(t *testing.T, startUTC string) (*Rotator, *testutil.MemStore, *mutableClock) {
	t.Helper()
	start, err := time.Parse(time.RFC3339, startUTC)
	require.NoError(t, err)
	mc := &mutableClock{now: start}
	clock, err := NewClock(DefaultTimezone, mc.Now)
	require.NoError(t, err)

	store := testutil.NewMemStore()
	r := NewRotator(store.BOTD(), store.Arguments(), clock, DefaultExclusionDays, nil, nil)
	return r, store, mc
}

func score(v float64) func(*model.Argument) {
	return func(a *model.Argument) { a.EntertainmentScore = &v }
}

func TestRunOnce_SelectsHighestScore(t *testing.T) {
	r, store, _ := newRotatorFixture(t, "2025-05-01T16:00:00Z")
	store.SeedArgument(score(6))
	best := store.SeedArgument(score(9.5))
	store.SeedArgument(score(8))

	res, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SelectionSelected, res.Selection)
	assert.Equal(t, best.BeefNumber, res.BeefNumber)
	assert.Equal(t, "2025-05-01", res.Today)
}

// 2回実行しても同じ日の行は1件だけであることを検証
func TestRunOnce_Idempotent(t *testing.T) {
	r, store, _ := newRotatorFixture(t, "2025-05-01T16:00:00Z")
	store.SeedArgument(score(7))
	store.SeedArgument(score(9))

	first, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	second, err := r.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, SelectionSelected, first.Selection)
	assert.Equal(t, SelectionExists, second.Selection)
	assert.Len(t, store.BOTDRows(), 1)
}

func TestRunOnce_ConcurrentRunsCreateOneRow(t *testing.T) {
	r, store, _ := newRotatorFixture(t, "2025-05-01T16:00:00Z")
	for i := 0; i < 5; i++ {
		store.SeedArgument(score(float64(i)))
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.RunOnce(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, store.BOTDRows(), 1)
}

func TestRunOnce_TieBreakOnBeefNumber(t *testing.T) {
	r, store, _ := newRotatorFixture(t, "2025-05-01T16:00:00Z")
	first := store.SeedArgument(score(8))
	store.SeedArgument(score(8))

	res, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.BeefNumber, res.BeefNumber)
}

func TestRunOnce_NullScoresSortLast(t *testing.T) {
	r, store, _ := newRotatorFixture(t, "2025-05-01T16:00:00Z")
	store.SeedArgument(func(a *model.Argument) { a.EntertainmentScore = nil })
	scored := store.SeedArgument(score(1))

	res, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, scored.BeefNumber, res.BeefNumber)
}

func TestRunOnce_SkipsUnapproved(t *testing.T) {
	r, store, _ := newRotatorFixture(t, "2025-05-01T16:00:00Z")
	store.SeedArgument(score(10), func(a *model.Argument) { a.Status = model.ArgumentStatusReported })
	approved := store.SeedArgument(score(2))

	res, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, approved.BeefNumber, res.BeefNumber)
}

func TestRunOnce_NoCandidatesIsNoop(t *testing.T) {
	r, store, _ := newRotatorFixture(t, "2025-05-01T16:00:00Z")

	res, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SelectionNoneLeft, res.Selection)
	assert.Empty(t, store.BOTDRows())
}

// 30日間は同じ議論が再選出されないことを検証
func TestRunOnce_ExclusionWindow(t *testing.T) {
	r, store, mc := newRotatorFixture(t, "2025-05-01T16:00:00Z")
	for i := 0; i < 3; i++ {
		store.SeedArgument(score(float64(10 - i)))
	}

	seen := make(map[int]string)
	for day := 0; day < 3; day++ {
		res, err := r.RunOnce(context.Background())
		require.NoError(t, err)
		require.Equal(t, SelectionSelected, res.Selection, "day %d", day)
		_, dup := seen[res.BeefNumber]
		assert.False(t, dup, "beef #%d selected twice", res.BeefNumber)
		seen[res.BeefNumber] = res.Today
		mc.AddDays(1)
	}

	// 4日目は全件が除外期間内のため候補なし
	res, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SelectionNoneLeft, res.Selection)

	// 最初の選出から30日経過すると再び候補になる
	mc.AddDays(DefaultExclusionDays - 3)
	res, err = r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SelectionSelected, res.Selection)
	assert.Equal(t, 1, res.BeefNumber)
}

func TestRunOnce_FinalizesYesterdayOnce(t *testing.T) {
	r, store, mc := newRotatorFixture(t, "2025-05-01T16:00:00Z")
	featured := store.SeedArgument(score(10))
	store.SeedArgument(score(5))
	ctx := context.Background()

	_, err := r.RunOnce(ctx)
	require.NoError(t, err)

	store.SetCounters(featured.ID, repository.VoteCounts{TotalVotes: 100, VotesA: 90, VotesB: 10}, nil)
	mc.AddDays(1)

	res, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, FinalizationFinalized, res.Finalization)
	assert.Equal(t, "FLAWLESS VICTORY", res.FinalVerdict)

	// 確定後にカウンタが変わってもスナップショットは書き換わらない
	store.SetCounters(featured.ID, repository.VoteCounts{TotalVotes: 200, VotesA: 100, VotesB: 100}, nil)
	res, err = r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, FinalizationAlready, res.Finalization)

	rows := store.BOTDRows()
	require.Len(t, rows, 2)
	prev := rows[0]
	assert.Equal(t, "2025-05-01", prev.Date)
	require.True(t, prev.Finalized())
	assert.Equal(t, 90, *prev.FinalVotesA)
	assert.Equal(t, 10, *prev.FinalVotesB)
	assert.Equal(t, "FLAWLESS VICTORY", *prev.FinalVerdict)
}

func TestRunOnce_FinalizesEvenWhenTodayExists(t *testing.T) {
	r, store, mc := newRotatorFixture(t, "2025-05-01T16:00:00Z")
	store.SeedArgument(score(10))
	store.SeedArgument(score(9))
	ctx := context.Background()

	_, err := r.RunOnce(ctx)
	require.NoError(t, err)
	mc.AddDays(1)

	// 今日分を別経路で先に作成しておく
	_, err = store.BOTD().Insert(ctx, &model.BeefOfTheDay{ArgumentID: "other", Date: "2025-05-02"})
	require.NoError(t, err)

	res, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, SelectionExists, res.Selection)
	assert.Equal(t, FinalizationFinalized, res.Finalization)
	assert.Equal(t, "CONTROVERSIAL BEEF", res.FinalVerdict)
}

func TestRunOnce_StoreFailure(t *testing.T) {
	r, store, _ := newRotatorFixture(t, "2025-05-01T16:00:00Z")
	store.SetFailure(errors.New("db down"))

	_, err := r.RunOnce(context.Background())
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
}

func TestToday_ReturnsArgumentAndCountdown(t *testing.T) {
	r, store, _ := newRotatorFixture(t, "2025-05-02T03:00:00Z") // 2025-05-01 23:00 EDT
	arg := store.SeedArgument(score(9))

	_, err := r.RunOnce(context.Background())
	require.NoError(t, err)

	svc := NewService(store.BOTD(), store.Arguments(), r.clock)
	today, err := svc.Today(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2025-05-01", today.Date)
	assert.Equal(t, arg.ID, today.Argument.ID)
	assert.Equal(t, int64(3600), today.SecondsUntilNextRotation)
}

func TestToday_NoBOTD(t *testing.T) {
	r, store, _ := newRotatorFixture(t, "2025-05-01T16:00:00Z")
	svc := NewService(store.BOTD(), store.Arguments(), r.clock)

	_, err := svc.Today(context.Background())
	var apiErr *model.APIError
	require.True(t, errors.As(err, &apiErr), fmt.Sprint(err))
	assert.Equal(t, model.ErrCodeNoBOTDToday, apiErr.Code)
}
