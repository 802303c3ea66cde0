// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ArgumentSanitizer は取り込む議論のテキストからHTMLを除去する。
// 議論はすべてプレーンテキストとして配信するため、
// bluemondayのStrictPolicyでタグと属性を一切通過させない。
package security

import (
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/hitoshi/beefboard/internal/model"
	"github.com/microcosm-cc/bluemonday"
)

// ArgumentSanitizer は議論テキストのサニタイズ機能のインターフェースを定義する。
// シード投入など、議論をストアへ書き込む前に使用される。
type ArgumentSanitizer interface {
	// SanitizeText はHTMLタグを除去し、前後の空白を取り除いたプレーンテキストを返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(raw string) string

	// SanitizeArgument は議論の表示用テキストフィールドをすべてサニタイズする。
	SanitizeArgument(a *model.Argument)
}

// argumentSanitizer はArgumentSanitizerの実装。
// bluemondayのポリシーはスレッドセーフに共有できる。
type argumentSanitizer struct {
	policy *bluemonday.Policy
}

// NewArgumentSanitizer はArgumentSanitizerの新しいインスタンスを生成する。
func NewArgumentSanitizer() *argumentSanitizer {
	return &argumentSanitizer{policy: bluemonday.StrictPolicy()}
}

// SanitizeText はHTMLタグを除去したプレーンテキストを返す。
// StrictPolicyはエンティティをエスケープして返すため、元の文字に戻す。
func (s *argumentSanitizer) SanitizeText(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}

func (s *argumentSanitizer) sanitizePtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := s.SanitizeText(*p)
	if v == "" {
		return nil
	}
	return &v
}

// SanitizeArgument は議論の表示用テキストフィールドをサニタイズする。
func (s *argumentSanitizer) SanitizeArgument(a *model.Argument) {
	a.Title = s.SanitizeText(a.Title)
	a.PlatformSource = s.SanitizeText(a.PlatformSource)
	a.UserADisplayName = s.SanitizeText(a.UserADisplayName)
	a.UserBDisplayName = s.SanitizeText(a.UserBDisplayName)
	a.ContextBlurb = s.sanitizePtr(a.ContextBlurb)
	a.TopicDrift = s.sanitizePtr(a.TopicDrift)
	a.UserAZinger = s.sanitizePtr(a.UserAZinger)
	a.UserBZinger = s.sanitizePtr(a.UserBZinger)
	for i := range a.Messages {
		a.Messages[i].Body = s.SanitizeText(a.Messages[i].Body)
		a.Messages[i].QuotedText = s.sanitizePtr(a.Messages[i].QuotedText)
	}
}

// ValidateSourceURL は議論の出典URLがhttp/httpsの絶対URLであることを検証する。
// 出典URLは内部参照用でAPIには含めないが、javascript:などのスキームは取り込まない。
func ValidateSourceURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("出典URLの解析に失敗しました: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("出典URLのスキームが不正です: %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("出典URLにホストがありません: %q", raw)
	}
	return nil
}

var _ ArgumentSanitizer = (*argumentSanitizer)(nil)
