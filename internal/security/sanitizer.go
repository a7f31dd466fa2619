// Package security は入力サニタイズと認証周りの補助機能を提供する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer は自由入力テキストからHTMLタグを除去する。
// 名前・住所・説明文など、レスポンスにそのまま載るフィールドに適用する。
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer はタグを一切許可しないポリシーのSanitizerを生成する。
func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Clean は入力からHTMLタグを除去し、前後の空白を削る。
func (s *Sanitizer) Clean(input string) string {
	return strings.TrimSpace(s.policy.Sanitize(input))
}

// CleanPtr はnilを透過しつつポインタ先をサニタイズした新しい文字列を返す。
func (s *Sanitizer) CleanPtr(input *string) *string {
	if input == nil {
		return nil
	}
	cleaned := s.Clean(*input)
	return &cleaned
}
