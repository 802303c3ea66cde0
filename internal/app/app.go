// Package app はbeefboardのコマンドと依存関係の組み立てを提供する。
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hitoshi/beefboard/internal/botd"
	"github.com/hitoshi/beefboard/internal/config"
	"github.com/hitoshi/beefboard/internal/database"
	"github.com/hitoshi/beefboard/internal/logger"
	"github.com/hitoshi/beefboard/internal/metrics"
	"github.com/hitoshi/beefboard/internal/repository"
	"github.com/hitoshi/beefboard/internal/worker/reconcile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// dbPingTimeout は起動時のDB疎通確認のタイムアウト。
const dbPingTimeout = 5 * time.Second

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップしてから環境変数（と.env）の設定を読み込み、ログレベルを反映する。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to set log level: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。SIGINTまたはSIGTERMでコマンドのコンテキストがキャンセルされる。
func Run(w io.Writer, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCommand(w)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// repositories はサービス層が使うリポジトリ一式。
type repositories struct {
	arguments  repository.ArgumentRepository
	votes      repository.VoteRepository
	reactions  repository.ReactionRepository
	challenges repository.ChallengeRepository
	botd       repository.BOTDRepository
	ledger     repository.LedgerRepository
}

// newPostgresRepositories はPostgreSQL実装のリポジトリ一式を生成する。
func newPostgresRepositories(db *sql.DB) repositories {
	return repositories{
		arguments:  repository.NewPostgresArgumentRepo(db),
		votes:      repository.NewPostgresVoteRepo(db),
		reactions:  repository.NewPostgresReactionRepo(db),
		challenges: repository.NewPostgresChallengeRepo(db),
		botd:       repository.NewPostgresBOTDRepo(db),
		ledger:     repository.NewPostgresLedgerRepo(db),
	}
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := database.Open(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := database.Ping(ctx, db, dbPingTimeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established",
		slog.String("database_url", maskDatabaseURL(databaseURL)),
	)
	return db, nil
}

// newMetrics はメトリクスコレクタとスクレイプ用レジストリを生成する。
// 無効の場合はNopとnilを返す。
func newMetrics(enabled bool) (metrics.MetricsCollector, *prometheus.Registry) {
	if !enabled {
		return metrics.Nop{}, nil
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return metrics.NewCollector(reg), reg
}

// newRotator は設定からローテーターを生成する。
func newRotator(cfg *config.Config, repos repositories, collector metrics.MetricsCollector, log *slog.Logger) (*botd.Rotator, error) {
	clock, err := botd.NewClock(cfg.BOTDTimezone, nil)
	if err != nil {
		return nil, err
	}
	return botd.NewRotator(repos.botd, repos.arguments, clock, cfg.BOTDExclusionDays, collector, log), nil
}

// newReconcileJob は整合性検査ジョブを生成する。
func newReconcileJob(repos repositories, collector metrics.MetricsCollector, log *slog.Logger, repair bool) *reconcile.Job {
	job := reconcile.NewJob(repos.ledger, collector, log)
	job.Repair = repair
	return job
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}

// envOr は環境変数の値を返す。未設定の場合はdefを返す。
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
