package seed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// resetTables は初期化対象のテーブル。依存される側を最後に並べる。
var resetTables = []string{"beef_of_the_day", "challenges", "reactions", "votes", "arguments"}

// Reset は議論と全記録を削除し、ビーフ番号の採番を1に戻す。
// ローカル開発でシードを入れ直すためのもので、1文のTRUNCATEで実行する。
func Reset(ctx context.Context, db Executor, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	query := "TRUNCATE " + strings.Join(resetTables, ", ") + " RESTART IDENTITY"
	if _, err := db.ExecContext(ctx, query); err != nil {
		logger.Error("シードデータの初期化に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("シードデータの初期化に失敗: %w", err)
	}

	logger.Info("シードデータを初期化しました",
		slog.Int("table_count", len(resetTables)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}
