package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hitoshi/beefboard/internal/metrics"
	"github.com/hitoshi/beefboard/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	Metrics           metrics.MetricsCollector
	MetricsHandler    http.Handler // nilの場合は/metricsを公開しない
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// ヘルスチェック
	Store Pinger

	// ビーフ
	VoteService     VoteServiceInterface
	ReactionService ReactionServiceInterface
	ArgumentService ArgumentServiceInterface
	TodayService    TodayServiceInterface

	// チャレンジ
	ChallengeService ChallengeServiceInterface

	// 殿堂入り・カテゴリ
	RankingService RankingServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP → RequestID → Recovery → Logging → SecurityHeaders → CORS → RateLimit(General)
//
// 書き込み系ルートにはさらにRateLimit(Write)を適用する。
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger, metrics.OrNop(deps.Metrics)))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	beefHandler := NewBeefHandler(deps.VoteService, deps.ReactionService, deps.ArgumentService, deps.TodayService)
	challengeHandler := NewChallengeHandler(deps.ChallengeService)
	rankingHandler := NewRankingHandler(deps.RankingService)
	healthHandler := NewHealthHandler(deps.Store)

	// --- レート制限対象外 ---
	r.Get("/health", healthHandler.Health)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 公開API ---
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())
		write := deps.RateLimiter.WriteMiddleware()

		r.Route("/api/beef", func(r chi.Router) {
			// 固定パスは {beefNumber} より先に解決される
			r.Get("/today", beefHandler.Today)
			r.Get("/random", beefHandler.RandomBeef)

			r.Route("/{beefNumber}", func(r chi.Router) {
				r.Get("/", beefHandler.GetBeef)
				r.Get("/results", beefHandler.GetResults)
				r.With(write).Post("/vote", beefHandler.CastVote)
				r.With(write).Post("/react", beefHandler.React)
				r.With(write).Post("/share", beefHandler.Share)
			})
		})

		r.Route("/api/challenge", func(r chi.Router) {
			r.With(write).Post("/create", challengeHandler.Create)
			r.Get("/{code}", challengeHandler.Get)
			r.With(write).Post("/{code}/respond", challengeHandler.Respond)
		})

		r.Get("/api/hall-of-fame", rankingHandler.HallOfFame)

		r.Route("/api/categories", func(r chi.Router) {
			r.Get("/", rankingHandler.ListCategories)
			r.Get("/{slug}", rankingHandler.GetCategory)
		})
	})

	return r
}
