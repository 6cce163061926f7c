// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TitleSanitizer はユーザー入力のToDoタイトルからHTMLタグを除去する。
// タイトルはプレーンテキストのみを想定しており、保存前にタグを
// 取り除くことでAPIレスポンス経由のXSSを防ぐ。
package security

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// TitleSanitizer はToDoタイトルのサニタイズ機能のインターフェースを定義する。
type TitleSanitizer interface {
	// Sanitize はタイトルからすべてのHTMLタグを除去したプレーンテキストを返す。
	// HTMLエンティティはデコードされる（"&amp;" → "&"）。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// titleSanitizer はTitleSanitizerの実装。
// bluemondayのStrictPolicy（全タグ除去）を保持し、スレッドセーフに動作する。
type titleSanitizer struct {
	policy *bluemonday.Policy
}

// NewTitleSanitizer はTitleSanitizerの新しいインスタンスを生成する。
func NewTitleSanitizer() *titleSanitizer {
	return &titleSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はタイトルからHTMLタグを除去したプレーンテキストを返す。
// StrictPolicyはタグ除去後にエンティティをエスケープするため、
// プレーンテキストとして保存する前にデコードし直す。
func (s *titleSanitizer) Sanitize(raw string) string {
	return html.UnescapeString(s.policy.Sanitize(raw))
}
