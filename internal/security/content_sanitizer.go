// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService は寄付フォームの自由入力テキストをサニタイズし、
// 閲覧者（ボランティアや管理者）をXSS攻撃から保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// タグを一切通過させないプレーンテキストポリシーを適用する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService は入力テキストのサニタイズ機能のインターフェースを定義する。
// 寄付の説明文・受け渡し場所・連絡先などの保存前に使用される。
type ContentSanitizerService interface {
	// Sanitize は入力テキストからHTMLタグを全て除去して返す。
	// 寄付フォームの入力はプレーンテキストとして扱うため、
	// script等の危険なタグだけでなく全てのマークアップを除去する。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// bluemondayのStrictPolicy（全タグ除去）を使用する。
// on*イベント属性やjavascript:スキームを含む入力も、
// タグごと除去されるため出力には残らない。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力テキストからHTMLタグを全て除去して返す。
// 前後の空白も除去する。
func (s *contentSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}
