// Package model はドメインモデルを定義する。
package model

// Event はイベントのドメインエンティティを表す。
// リモートAPIのネストされたワイヤ形式をフラットに展開した形で保持する。
// 同一性はIDのみで判定する（Equalを参照）。
type Event struct {
	ID      int64
	Title   string
	Summary string

	// SummaryHTML はサニタイズ済みのリッチHTML説明文。
	// 詳細画面での表示専用であり、ワイヤ形式へのエンコード対象外。
	SummaryHTML string

	// StartDate / EndDate はワイヤ形式の日付文字列をそのまま保持する。
	// タイムゾーン正規化やパースは行わない（表示整形はUI層の責務）。
	StartDate string
	EndDate   string

	// VenueAddress / Location はワイヤ形式のvenueオブジェクト由来。
	// venueが存在しない場合は両方nil。
	VenueAddress *string
	Location     *string

	// Duration はイベントの所要時間（分）。
	Duration int

	// ImageURL はワイヤ形式のimage.url由来。imageが存在しない場合はnil。
	ImageURL *string

	// Price は価格。未設定は「無料または価格未定」を意味し、0にデフォルトしない。
	Price *float64

	// Stock は在庫数。ワイヤ形式では必須フィールド。
	Stock int

	Category *string

	// IsFavorite はローカル専用のお気に入りフラグ。
	// ネットワークからデコードされたエンティティでは常にfalse。
	IsFavorite bool
}

// Equal はイベントの同一性を判定する。
// 他のフィールドが異なっていてもIDが一致すれば同一とみなす。
// セットやリスト差分のキーとしての利用を想定している。
func (e Event) Equal(other Event) bool {
	return e.ID == other.ID
}
