package vote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/hitoshi/beefboard/internal/model"
	"github.com/hitoshi/beefboard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *testutil.MemStore) {
	t.Helper()
	store := testutil.NewMemStore()
	return NewService(store.Arguments(), store.Votes(), nil, nil), store
}

func requireAPIErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	assert.Equal(t, code, apiErr.Code)
}

func TestCast_FirstVoteIncrementsCounters(t *testing.T) {
	svc, store := newTestService(t)
	arg := store.SeedArgument()

	res, err := svc.Cast(context.Background(), arg.BeefNumber, model.SideA, "fp-1")
	require.NoError(t, err)

	assert.Equal(t, 1, res.TotalVotes)
	assert.Equal(t, 1, res.VotesA)
	assert.Equal(t, 0, res.VotesB)
	assert.Equal(t, 100, res.PercentA)
	assert.Equal(t, 0, res.PercentB)
	assert.Equal(t, "UNANIMOUS BEATDOWN", res.Verdict.Label)
}

func TestCast_SecondVoteSameFingerprintRejected(t *testing.T) {
	svc, store := newTestService(t)
	arg := store.SeedArgument()
	ctx := context.Background()

	_, err := svc.Cast(ctx, arg.BeefNumber, model.SideA, "fp-1")
	require.NoError(t, err)

	_, err = svc.Cast(ctx, arg.BeefNumber, model.SideB, "fp-1")
	requireAPIErrorCode(t, err, model.ErrCodeAlreadyVoted)

	got := store.Argument(arg.ID)
	assert.Equal(t, 1, got.TotalVotes)
	assert.Equal(t, 1, got.VotesA)
	assert.Equal(t, 0, got.VotesB)
}

func TestCast_SameFingerprintDifferentArgumentsAllowed(t *testing.T) {
	svc, store := newTestService(t)
	a1 := store.SeedArgument()
	a2 := store.SeedArgument()
	ctx := context.Background()

	_, err := svc.Cast(ctx, a1.BeefNumber, model.SideA, "fp-1")
	require.NoError(t, err)
	_, err = svc.Cast(ctx, a2.BeefNumber, model.SideB, "fp-1")
	require.NoError(t, err)
}

func TestCast_Validation(t *testing.T) {
	svc, store := newTestService(t)
	arg := store.SeedArgument()

	tests := []struct {
		name        string
		side        model.Side
		fingerprint string
	}{
		{name: "invalid side", side: "c", fingerprint: "fp"},
		{name: "empty side", side: "", fingerprint: "fp"},
		{name: "empty fingerprint", side: model.SideA, fingerprint: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Cast(context.Background(), arg.BeefNumber, tt.side, tt.fingerprint)
			requireAPIErrorCode(t, err, model.ErrCodeInvalidRequest)
		})
	}
	assert.Equal(t, 0, store.VoteCount())
}

func TestCast_UnknownOrUnapprovedArgument(t *testing.T) {
	svc, store := newTestService(t)
	pending := store.SeedArgument(func(a *model.Argument) { a.Status = model.ArgumentStatusPendingReview })

	_, err := svc.Cast(context.Background(), 99999, model.SideA, "fp")
	requireAPIErrorCode(t, err, model.ErrCodeBeefNotFound)

	_, err = svc.Cast(context.Background(), pending.BeefNumber, model.SideA, "fp")
	requireAPIErrorCode(t, err, model.ErrCodeBeefNotFound)
}

func TestCast_StoreUnavailable(t *testing.T) {
	svc, store := newTestService(t)
	arg := store.SeedArgument()
	store.SetFailure(errors.New("connection refused"))

	_, err := svc.Cast(context.Background(), arg.BeefNumber, model.SideA, "fp")
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
}

// 同一フィンガープリントの同時投票は1件だけ反映されることを検証
func TestCast_ConcurrentSameFingerprint(t *testing.T) {
	svc, store := newTestService(t)
	arg := store.SeedArgument()

	const n = 50
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Cast(context.Background(), arg.BeefNumber, model.SideB, "same-fp")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if model.IsConflict(err) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)
	got := store.Argument(arg.ID)
	assert.Equal(t, 1, got.TotalVotes)
	assert.Equal(t, 1, got.VotesB)
}

// 異なるフィンガープリントの同時投票で更新が失われないことを検証
func TestCast_ConcurrentDistinctFingerprints(t *testing.T) {
	svc, store := newTestService(t)
	arg := store.SeedArgument()

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			side := model.SideA
			if i%4 == 0 {
				side = model.SideB
			}
			_, err := svc.Cast(context.Background(), arg.BeefNumber, side, fmt.Sprintf("fp-%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got := store.Argument(arg.ID)
	assert.Equal(t, n, got.TotalVotes)
	assert.Equal(t, 75, got.VotesA)
	assert.Equal(t, 25, got.VotesB)
	assert.Equal(t, got.TotalVotes, got.VotesA+got.VotesB)
	assert.Equal(t, n, store.VoteCount())
}

func TestResults_ReflectsCurrentCounts(t *testing.T) {
	svc, store := newTestService(t)
	arg := store.SeedArgument()
	ctx := context.Background()

	res, err := svc.Results(ctx, arg.BeefNumber)
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalVotes)
	assert.Equal(t, 50, res.PercentA)
	assert.Equal(t, 50, res.PercentB)
	assert.Equal(t, "CONTROVERSIAL BEEF", res.Verdict.Label)

	for i, side := range []model.Side{model.SideA, model.SideA, model.SideB} {
		_, err := svc.Cast(ctx, arg.BeefNumber, side, fmt.Sprintf("fp-%d", i))
		require.NoError(t, err)
	}

	res, err = svc.Results(ctx, arg.BeefNumber)
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalVotes)
	assert.Equal(t, 67, res.PercentA)
	assert.Equal(t, 33, res.PercentB)
	assert.Equal(t, "SPLIT DECISION", res.Verdict.Label)
}

func TestResults_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Results(context.Background(), 42)
	requireAPIErrorCode(t, err, model.ErrCodeBeefNotFound)
}
