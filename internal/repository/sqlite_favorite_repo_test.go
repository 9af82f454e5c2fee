package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/hitoshi/eventman/internal/database"
	"github.com/hitoshi/eventman/internal/model"
)

// newTestDB はマイグレーション適用済みの一時SQLiteデータベースを開く。
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "favorites_test.db")
	if err := database.RunMigrations(path); err != nil {
		t.Fatalf("マイグレーションに失敗: %v", err)
	}

	db, err := database.Open(path)
	if err != nil {
		t.Fatalf("データベースのオープンに失敗: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func strPtr(s string) *string    { return &s }
func floatPtr(f float64) *float64 { return &f }

func sampleRecord(eventID int64) *model.FavoriteRecord {
	return &model.FavoriteRecord{
		EventID:      eventID,
		Title:        "Jazz Night",
		Summary:      "Live jazz",
		StartDate:    "2025-05-01",
		EndDate:      "2025-05-01",
		VenueAddress: strPtr("Main St 1"),
		Location:     strPtr("Amsterdam"),
		Duration:     90,
		ImageURL:     nil,
		Price:        floatPtr(19.5),
		Stock:        50,
		Category:     strPtr("music"),
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
}

func TestSQLiteFavoriteRepo_PutAndFind(t *testing.T) {
	repo := NewSQLiteFavoriteRepo(newTestDB(t))
	ctx := context.Background()

	want := sampleRecord(7)
	if err := repo.Put(ctx, want); err != nil {
		t.Fatalf("Put がエラーを返した: %v", err)
	}

	got, err := repo.FindByEventID(ctx, 7)
	if err != nil {
		t.Fatalf("FindByEventID がエラーを返した: %v", err)
	}
	if got == nil {
		t.Fatal("保存した記録が見つからない")
	}

	if got.EventID != want.EventID || got.Title != want.Title || got.Summary != want.Summary {
		t.Errorf("取得結果が保存内容と異なる:\ngot:  %+v\nwant: %+v", got, want)
	}
	if got.VenueAddress == nil || *got.VenueAddress != "Main St 1" {
		t.Errorf("VenueAddress = %v, want Main St 1", got.VenueAddress)
	}
	if got.Price == nil || *got.Price != 19.5 {
		t.Errorf("Price = %v, want 19.5", got.Price)
	}
	if got.ImageURL != nil {
		t.Errorf("ImageURL = %v, want nil", *got.ImageURL)
	}
	if got.Stock != 50 {
		t.Errorf("Stock = %d, want 50", got.Stock)
	}
}

func TestSQLiteFavoriteRepo_FindMissing_ReturnsNil(t *testing.T) {
	repo := NewSQLiteFavoriteRepo(newTestDB(t))

	got, err := repo.FindByEventID(context.Background(), 12345)
	if err != nil {
		t.Fatalf("FindByEventID がエラーを返した: %v", err)
	}
	if got != nil {
		t.Errorf("存在しないIDで記録が返った: %+v", got)
	}
}

// TestSQLiteFavoriteRepo_PutDuplicate_NoDuplicateRows は同一イベントIDの
// 二重Putが重複レコードを作らないことを検証する（一意性の不変条件）。
func TestSQLiteFavoriteRepo_PutDuplicate_NoDuplicateRows(t *testing.T) {
	repo := NewSQLiteFavoriteRepo(newTestDB(t))
	ctx := context.Background()

	if err := repo.Put(ctx, sampleRecord(7)); err != nil {
		t.Fatalf("1回目のPutがエラーを返した: %v", err)
	}
	if err := repo.Put(ctx, sampleRecord(7)); err != nil {
		t.Fatalf("2回目のPutがエラーを返した: %v", err)
	}

	records, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll がエラーを返した: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("レコード数 = %d, want 1", len(records))
	}
}

func TestSQLiteFavoriteRepo_Delete(t *testing.T) {
	repo := NewSQLiteFavoriteRepo(newTestDB(t))
	ctx := context.Background()

	if err := repo.Put(ctx, sampleRecord(7)); err != nil {
		t.Fatalf("Put がエラーを返した: %v", err)
	}
	if err := repo.DeleteByEventID(ctx, 7); err != nil {
		t.Fatalf("DeleteByEventID がエラーを返した: %v", err)
	}

	got, err := repo.FindByEventID(ctx, 7)
	if err != nil {
		t.Fatalf("FindByEventID がエラーを返した: %v", err)
	}
	if got != nil {
		t.Errorf("削除後も記録が残っている: %+v", got)
	}

	// 存在しないIDの削除もエラーにならない
	if err := repo.DeleteByEventID(ctx, 999); err != nil {
		t.Errorf("存在しないIDの削除がエラーを返した: %v", err)
	}
}

func TestSQLiteFavoriteRepo_ListAll_Order(t *testing.T) {
	repo := NewSQLiteFavoriteRepo(newTestDB(t))
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i, eventID := range []int64{1, 2, 3} {
		record := sampleRecord(eventID)
		record.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := repo.Put(ctx, record); err != nil {
			t.Fatalf("Put がエラーを返した: %v", err)
		}
	}

	records, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll がエラーを返した: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("レコード数 = %d, want 3", len(records))
	}

	// 登録日時の降順
	wantIDs := []int64{3, 2, 1}
	for i, want := range wantIDs {
		if records[i].EventID != want {
			t.Errorf("records[%d].EventID = %d, want %d", i, records[i].EventID, want)
		}
	}
}
