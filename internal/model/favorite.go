package model

import "time"

// FavoriteRecord はお気に入り登録時点のイベントのスナップショットを表す。
// イベントIDをキーとしてローカルストレージに永続化される。
// リモート側のイベントが後から変更されてもこの記録には反映されない。
// レコードは作成と削除のみで、インプレース更新は行わない。
type FavoriteRecord struct {
	EventID      int64
	Title        string
	Summary      string
	StartDate    string
	EndDate      string
	VenueAddress *string
	Location     *string
	Duration     int
	ImageURL     *string
	Price        *float64
	Stock        int
	Category     *string
	CreatedAt    time.Time
}

// NewFavoriteRecord はイベントの現時点のスナップショットからFavoriteRecordを生成する。
func NewFavoriteRecord(e Event, now time.Time) *FavoriteRecord {
	return &FavoriteRecord{
		EventID:      e.ID,
		Title:        e.Title,
		Summary:      e.Summary,
		StartDate:    e.StartDate,
		EndDate:      e.EndDate,
		VenueAddress: e.VenueAddress,
		Location:     e.Location,
		Duration:     e.Duration,
		ImageURL:     e.ImageURL,
		Price:        e.Price,
		Stock:        e.Stock,
		Category:     e.Category,
		CreatedAt:    now,
	}
}

// Event はスナップショットからEventを復元する。
// IsFavoriteは常にtrue。Stockは記録に残っていない場合0となる
// （お気に入り復元時のデフォルトであり、ワイヤデコードでは適用されない）。
func (r *FavoriteRecord) Event() Event {
	return Event{
		ID:           r.EventID,
		Title:        r.Title,
		Summary:      r.Summary,
		StartDate:    r.StartDate,
		EndDate:      r.EndDate,
		VenueAddress: r.VenueAddress,
		Location:     r.Location,
		Duration:     r.Duration,
		ImageURL:     r.ImageURL,
		Price:        r.Price,
		Stock:        r.Stock,
		Category:     r.Category,
		IsFavorite:   true,
	}
}
