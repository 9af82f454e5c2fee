// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/eventman/internal/model"
)

// FavoriteRepository はお気に入りスナップショットの永続化インターフェース。
// レコードはイベントIDで一意であり、作成と削除のみを行う（更新はしない）。
type FavoriteRepository interface {
	// FindByEventID は指定イベントIDのお気に入り記録を取得する。
	// 見つからない場合はnilを返す。
	FindByEventID(ctx context.Context, eventID int64) (*model.FavoriteRecord, error)

	// Put はお気に入り記録を保存する。
	// 同一イベントIDの記録が既に存在する場合は重複を作らず上書きする
	// （event_idの主キー制約により一意性が保証される）。
	Put(ctx context.Context, record *model.FavoriteRecord) error

	// DeleteByEventID は指定イベントIDのお気に入り記録を削除する。
	// 記録が存在しない場合もエラーにはならない。
	DeleteByEventID(ctx context.Context, eventID int64) error

	// ListAll は全お気に入り記録を登録日時の降順で返す。
	ListAll(ctx context.Context) ([]*model.FavoriteRecord, error)
}
