package security

import "github.com/microcosm-cc/bluemonday"

// ContentSanitizer はイベント説明文のHTMLサニタイズ機能のインターフェースを定義する。
// 詳細画面向けのリッチ表示用HTML（Event.SummaryHTML）の生成に使用される。
// プレーンテキストのサマリーはStripTagsが生成するため、ここでは許可リストに
// 基づく安全なHTMLを返す。
type ContentSanitizer interface {
	// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
	// 許可タグ（p, br, ul, ol, li, blockquote, strong, em, b, i, a）のみを通過させ、
	// script, iframe, styleタグおよびon*イベント属性を除去する。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(rawHTML string) string
}

// descriptionSanitizer はContentSanitizerの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type descriptionSanitizer struct {
	policy *bluemonday.Policy
}

// NewDescriptionSanitizer はContentSanitizerの新しいインスタンスを生成する。
// イベント説明文に現れる整形タグのみを許可するポリシーを構築する。
// aタグにはtarget="_blank"とrel="noopener noreferrer"が強制付与され、
// 相対URLは許可されない。
func NewDescriptionSanitizer() *descriptionSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "strong", "em", "b", "i",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowStandardURLs()
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	return &descriptionSanitizer{
		policy: p,
	}
}

// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
func (s *descriptionSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}
