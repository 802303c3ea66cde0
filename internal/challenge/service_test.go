package challenge

import (
	"context"
	"errors"
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
	return NewService(store.Arguments(), store.Challenges(), "https://beef.example/", nil, nil), store
}

// sequenceGenerator は指定した順にコードを返すジェネレータ。
func sequenceGenerator(codes ...string) CodeGenerator {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		code := codes[i%len(codes)]
		i++
		return code, nil
	}
}

func apiErrorCode(t *testing.T, err error) string {
	t.Helper()
	var apiErr *model.APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	return apiErr.Code
}

func TestCreate_ReturnsCodeAndShareURL(t *testing.T) {
	svc, store := newTestService(t)
	arg := store.SeedArgument()
	svc.generateCode = sequenceGenerator("Abc123")

	created, err := svc.Create(context.Background(), arg.BeefNumber, model.SideA, "fp-1")
	require.NoError(t, err)
	assert.Equal(t, "Abc123", created.Code)
	assert.Equal(t, "https://beef.example/challenge/Abc123", created.ShareURL)
}

func TestCreate_RetriesOnCollision(t *testing.T) {
	svc, store := newTestService(t)
	arg := store.SeedArgument()
	ctx := context.Background()

	svc.generateCode = sequenceGenerator("AAAAAA")
	_, err := svc.Create(ctx, arg.BeefNumber, model.SideA, "fp-1")
	require.NoError(t, err)

	svc.generateCode = sequenceGenerator("AAAAAA", "AAAAAA", "BBBBBB")
	created, err := svc.Create(ctx, arg.BeefNumber, model.SideB, "fp-2")
	require.NoError(t, err)
	assert.Equal(t, "BBBBBB", created.Code)
}

func TestCreate_ExhaustedAttemptsFails(t *testing.T) {
	svc, store := newTestService(t)
	arg := store.SeedArgument()
	ctx := context.Background()

	svc.generateCode = sequenceGenerator("AAAAAA")
	_, err := svc.Create(ctx, arg.BeefNumber, model.SideA, "fp-1")
	require.NoError(t, err)

	_, err = svc.Create(ctx, arg.BeefNumber, model.SideA, "fp-2")
	assert.Equal(t, model.ErrCodeCodeGenerationFailed, apiErrorCode(t, err))
}

func TestCreate_Validation(t *testing.T) {
	svc, store := newTestService(t)
	arg := store.SeedArgument()

	_, err := svc.Create(context.Background(), arg.BeefNumber, "x", "fp")
	assert.Equal(t, model.ErrCodeInvalidRequest, apiErrorCode(t, err))

	_, err = svc.Create(context.Background(), 404, model.SideA, "fp")
	assert.Equal(t, model.ErrCodeBeefNotFound, apiErrorCode(t, err))
}

func TestGet_PendingHidesChallengerVote(t *testing.T) {
	svc, store := newTestService(t)
	arg := store.SeedArgument()
	svc.generateCode = sequenceGenerator("Pend01")

	_, err := svc.Create(context.Background(), arg.BeefNumber, model.SideA, "fp-1")
	require.NoError(t, err)

	view, err := svc.Get(context.Background(), "Pend01")
	require.NoError(t, err)
	assert.Equal(t, model.ChallengeStatusPending, view.Status)
	assert.Equal(t, arg.BeefNumber, view.Argument.BeefNumber)
	assert.Nil(t, view.ChallengerVote)
	assert.Nil(t, view.ChallengeeVote)
	assert.Nil(t, view.Agreed)
}

func TestGet_CompletedRevealsBothVotes(t *testing.T) {
	svc, store := newTestService(t)
	arg := store.SeedArgument()
	svc.generateCode = sequenceGenerator("Done01")
	ctx := context.Background()

	_, err := svc.Create(ctx, arg.BeefNumber, model.SideA, "fp-1")
	require.NoError(t, err)
	_, err = svc.Respond(ctx, "Done01", model.SideB, "fp-2")
	require.NoError(t, err)

	view, err := svc.Get(ctx, "Done01")
	require.NoError(t, err)
	assert.Equal(t, model.ChallengeStatusCompleted, view.Status)
	require.NotNil(t, view.ChallengerVote)
	require.NotNil(t, view.ChallengeeVote)
	require.NotNil(t, view.Agreed)
	assert.Equal(t, model.SideA, *view.ChallengerVote)
	assert.Equal(t, model.SideB, *view.ChallengeeVote)
	assert.False(t, *view.Agreed)
}

func TestGet_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Get(context.Background(), "Nope00")
	assert.Equal(t, model.ErrCodeChallengeNotFound, apiErrorCode(t, err))

	_, err = svc.Get(context.Background(), "bad code!")
	assert.Equal(t, model.ErrCodeChallengeNotFound, apiErrorCode(t, err))
}

func TestRespond_AgreementAndSecondResponseRejected(t *testing.T) {
	svc, store := newTestService(t)
	arg := store.SeedArgument()
	svc.generateCode = sequenceGenerator("Agree1")
	ctx := context.Background()

	_, err := svc.Create(ctx, arg.BeefNumber, model.SideB, "fp-1")
	require.NoError(t, err)

	out, err := svc.Respond(ctx, "Agree1", model.SideB, "fp-2")
	require.NoError(t, err)
	assert.Equal(t, model.SideB, out.ChallengerVote)
	assert.Equal(t, model.SideB, out.ChallengeeVote)
	assert.True(t, out.Agreed)

	_, err = svc.Respond(ctx, "Agree1", model.SideA, "fp-3")
	assert.Equal(t, model.ErrCodeChallengeAlreadyCompleted, apiErrorCode(t, err))
}

func TestRespond_UnknownCode(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Respond(context.Background(), "Ghost1", model.SideA, "fp")
	assert.Equal(t, model.ErrCodeChallengeNotFound, apiErrorCode(t, err))
}

// 同時回答のうち成功するのは1件だけであることを検証
func TestRespond_ConcurrentOnlyOneWins(t *testing.T) {
	svc, store := newTestService(t)
	arg := store.SeedArgument()
	svc.generateCode = sequenceGenerator("Race01")
	ctx := context.Background()

	_, err := svc.Create(ctx, arg.BeefNumber, model.SideA, "fp-1")
	require.NoError(t, err)

	const n = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rejected  int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Respond(ctx, "Race01", model.SideB, "fp-x")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if model.IsConflict(err) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, rejected)
}
