// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は管理画面から入力されたカテゴリ名や説明文から
// マークアップを取り除き、プレーンテキストとして保存できる形にする。
// bluemondayのStrictPolicyを使い、すべてのタグと属性を除去する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// maxSanitizePasses はエスケープされたマークアップを再度除去する最大回数。
const maxSanitizePasses = 3

// TextSanitizer はプレーンテキスト化のインターフェースを定義する。
type TextSanitizer interface {
	// Sanitize は入力からすべてのタグを除去し、文字参照をデコードしたテキストを返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemondayのポリシーはスレッドセーフに利用できる。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はタグを除去したプレーンテキストを返す。
// "&lt;b&gt;" のようにエスケープされたタグはデコード後に再度除去する。
func (s *textSanitizer) Sanitize(raw string) string {
	text := raw
	for range maxSanitizePasses {
		next := html.UnescapeString(s.policy.Sanitize(text))
		if next == text {
			break
		}
		text = next
	}
	if strings.ContainsAny(text, "<>") {
		text = strings.NewReplacer("<", "", ">", "").Replace(text)
	}
	return text
}
