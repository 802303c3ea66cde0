package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/beefboard/internal/beef"
	"github.com/hitoshi/beefboard/internal/botd"
	"github.com/hitoshi/beefboard/internal/challenge"
	"github.com/hitoshi/beefboard/internal/config"
	"github.com/hitoshi/beefboard/internal/handler"
	"github.com/hitoshi/beefboard/internal/metrics"
	"github.com/hitoshi/beefboard/internal/middleware"
	"github.com/hitoshi/beefboard/internal/reaction"
	"github.com/hitoshi/beefboard/internal/vote"
)

// shutdownTimeout はグレースフルシャットダウンの待ち時間。
const shutdownTimeout = 30 * time.Second

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	// 1. DB接続
	db, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	// 2. メトリクス
	collector, reg := newMetrics(cfg.MetricsEnabled)

	// 3. ルーターの構築
	limiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitWrite))
	defer limiter.Stop()

	deps, err := newRouterDeps(cfg, newPostgresRepositories(db), collector, slog.Default())
	if err != nil {
		return err
	}
	deps.RateLimiter = limiter
	deps.Store = db
	if reg != nil {
		deps.MetricsHandler = metrics.Handler(reg)
	}

	// 4. HTTPサーバーの起動
	server := newHTTPServer(cfg.ServerPort, handler.NewRouter(deps))
	return serveUntilDone(ctx, server)
}

// newRouterDeps はリポジトリからサービスを組み立て、ルーターの依存関係を返す。
// RateLimiter・Store・MetricsHandlerは呼び出し側で設定する。
func newRouterDeps(cfg *config.Config, repos repositories, collector metrics.MetricsCollector, log *slog.Logger) (*handler.RouterDeps, error) {
	clock, err := botd.NewClock(cfg.BOTDTimezone, nil)
	if err != nil {
		return nil, err
	}

	beefService := beef.NewService(repos.arguments, log)

	return &handler.RouterDeps{
		Logger:            log,
		Metrics:           collector,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,

		VoteService:     vote.NewService(repos.arguments, repos.votes, collector, log),
		ReactionService: reaction.NewService(repos.arguments, repos.reactions, collector, log),
		ArgumentService: beefService,
		TodayService:    botd.NewService(repos.botd, repos.arguments, clock),

		ChallengeService: challenge.NewService(repos.arguments, repos.challenges, cfg.BaseURL, collector, log),

		RankingService: beefService,
	}, nil
}

func newHTTPServer(port string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// serveUntilDone はサーバーを起動し、ctxがキャンセルされたらシャットダウンする。
// 起動に失敗した場合はそのエラーを返す。
func serveUntilDone(ctx context.Context, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down HTTP server...", slog.String("addr", server.Addr))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("HTTP server stopped gracefully", slog.String("addr", server.Addr))
	return nil
}
