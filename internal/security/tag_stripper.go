// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TagStripper はイベント説明文からマークアップタグを除去したプレーンテキストを生成し、
// ContentSanitizer は詳細表示用の安全なHTMLを生成する。
// OutboundGuard は外部APIへのリクエストをSSRFから保護する。
package security

import "regexp"

// tagPattern は汎用の山括弧タグパターン。
// `<` に `>` 以外の文字が0個以上続き `>` で閉じる部分文字列にマッチする。
// 左から右へ貪欲・非重複でマッチし、エスケープではなく除去する。
// 非損失なHTMLパースではなくベストエフォートの変換であり、この挙動は仕様。
var tagPattern = regexp.MustCompile(`<[^>]*>`)

// StripTags は文字列からタグパターンにマッチする部分文字列をすべて除去する。
// 除去後の文字列に新たなマッチは生まれないため、この変換は冪等である
// （2回適用しても1回と同じ結果になる）。
func StripTags(s string) string {
	return tagPattern.ReplaceAllString(s, "")
}
