// Package seed はYAMLファイルから議論を一括投入する。
// ローカル開発・検証環境でコンテンツ取り込みパイプラインの代わりに使用する。
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hitoshi/beefboard/internal/model"
	"github.com/hitoshi/beefboard/internal/repository"
	"github.com/hitoshi/beefboard/internal/security"
	"gopkg.in/yaml.v3"
)

// File はシードファイルのトップレベル構造。
type File struct {
	Arguments []Fixture `yaml:"arguments"`
}

// Fixture は投入する議論1件。
type Fixture struct {
	Platform           string           `yaml:"platform"`
	PlatformSource     string           `yaml:"platform_source"`
	OriginalURL        string           `yaml:"original_url"`
	Title              string           `yaml:"title"`
	ContextBlurb       string           `yaml:"context_blurb,omitempty"`
	TopicDrift         string           `yaml:"topic_drift,omitempty"`
	Category           string           `yaml:"category"`
	HeatRating         int              `yaml:"heat_rating"`
	UserA              string           `yaml:"user_a"`
	UserB              string           `yaml:"user_b"`
	UserAZinger        string           `yaml:"user_a_zinger,omitempty"`
	UserBZinger        string           `yaml:"user_b_zinger,omitempty"`
	EntertainmentScore *float64         `yaml:"entertainment_score,omitempty"`
	Status             string           `yaml:"status,omitempty"`
	Messages           []FixtureMessage `yaml:"messages"`
}

// FixtureMessage は議論を構成する発言1件。
type FixtureMessage struct {
	Author     string `yaml:"author"`
	Body       string `yaml:"body"`
	Timestamp  string `yaml:"timestamp,omitempty"`
	Score      *int   `yaml:"score,omitempty"`
	QuotedText string `yaml:"quoted_text,omitempty"`
}

// LoadFile はシードファイルを読み込み、検証済みのFileを返す。
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("シードファイルの読み込みに失敗しました: %w", err)
	}
	return Parse(data)
}

// Parse はYAMLを解析し、全件を検証する。
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("シードファイルのYAML解析に失敗しました: %w", err)
	}
	if len(f.Arguments) == 0 {
		return nil, fmt.Errorf("arguments is required and must be non-empty")
	}
	for i := range f.Arguments {
		if err := f.Arguments[i].Validate(); err != nil {
			return nil, fmt.Errorf("arguments[%d]: %w", i, err)
		}
	}
	return &f, nil
}

// Validate は必須項目と値の範囲を検証する。
func (f *Fixture) Validate() error {
	switch {
	case f.Title == "":
		return fmt.Errorf("title is required")
	case f.Platform == "":
		return fmt.Errorf("platform is required")
	case f.Category == "":
		return fmt.Errorf("category is required")
	case f.UserA == "" || f.UserB == "":
		return fmt.Errorf("user_a and user_b are required")
	case f.HeatRating < 1 || f.HeatRating > 5:
		return fmt.Errorf("heat_rating must be between 1 and 5, got %d", f.HeatRating)
	case len(f.Messages) == 0:
		return fmt.Errorf("messages list is required and must be non-empty")
	}
	if s := f.EntertainmentScore; s != nil && (*s < 0 || *s > 10) {
		return fmt.Errorf("entertainment_score must be between 0 and 10, got %v", *s)
	}
	if f.Status != "" && !validStatus(model.ArgumentStatus(f.Status)) {
		return fmt.Errorf("unknown status %q", f.Status)
	}
	if err := security.ValidateSourceURL(f.OriginalURL); err != nil {
		return err
	}
	for i, m := range f.Messages {
		if !model.Side(m.Author).Valid() {
			return fmt.Errorf("messages[%d]: author must be \"a\" or \"b\", got %q", i, m.Author)
		}
		if m.Body == "" {
			return fmt.Errorf("messages[%d]: body is required", i)
		}
	}
	return nil
}

func validStatus(s model.ArgumentStatus) bool {
	switch s {
	case model.ArgumentStatusPendingReview, model.ArgumentStatusApproved, model.ArgumentStatusRejected,
		model.ArgumentStatusReported, model.ArgumentStatusArchived:
		return true
	}
	return false
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// toArgument はFixtureをドメインモデルに変換する。statusの既定値はapproved。
func (f *Fixture) toArgument() *model.Argument {
	status := model.ArgumentStatusApproved
	if f.Status != "" {
		status = model.ArgumentStatus(f.Status)
	}
	messages := make([]model.Message, len(f.Messages))
	for i, m := range f.Messages {
		messages[i] = model.Message{
			Author:     model.Side(m.Author),
			Body:       m.Body,
			Timestamp:  m.Timestamp,
			Score:      m.Score,
			QuotedText: optional(m.QuotedText),
		}
	}
	return &model.Argument{
		Platform:           f.Platform,
		PlatformSource:     f.PlatformSource,
		OriginalURL:        f.OriginalURL,
		Title:              f.Title,
		ContextBlurb:       optional(f.ContextBlurb),
		TopicDrift:         optional(f.TopicDrift),
		Category:           f.Category,
		HeatRating:         f.HeatRating,
		UserADisplayName:   f.UserA,
		UserBDisplayName:   f.UserB,
		UserAZinger:        optional(f.UserAZinger),
		UserBZinger:        optional(f.UserBZinger),
		Messages:           messages,
		EntertainmentScore: f.EntertainmentScore,
		Status:             status,
	}
}

// Importer はシードの議論をサニタイズしてストアへ書き込む。
type Importer struct {
	argRepo   repository.ArgumentRepository
	sanitizer security.ArgumentSanitizer
	logger    *slog.Logger
}

// NewImporter はImporterの新しいインスタンスを生成する。
func NewImporter(argRepo repository.ArgumentRepository, sanitizer security.ArgumentSanitizer, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{argRepo: argRepo, sanitizer: sanitizer, logger: logger}
}

// Import は全件を順に作成し、採番されたビーフ番号を返す。
// 途中で失敗した場合はそれまでに作成した番号とエラーを返す。
func (im *Importer) Import(ctx context.Context, f *File) ([]int, error) {
	start := time.Now()
	numbers := make([]int, 0, len(f.Arguments))

	for i := range f.Arguments {
		arg := f.Arguments[i].toArgument()
		im.sanitizer.SanitizeArgument(arg)
		if arg.Title == "" {
			return numbers, fmt.Errorf("arguments[%d]: title is empty after sanitizing", i)
		}
		if err := im.argRepo.Create(ctx, arg); err != nil {
			return numbers, fmt.Errorf("arguments[%d]: 議論の作成に失敗しました: %w", i, err)
		}
		numbers = append(numbers, arg.BeefNumber)
		im.logger.Debug("議論を投入しました",
			slog.Int("beef_number", arg.BeefNumber),
			slog.String("category", arg.Category),
		)
	}

	im.logger.Info("シード投入が完了しました",
		slog.Int("created_count", len(numbers)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return numbers, nil
}
