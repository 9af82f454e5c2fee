package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/eventman/internal/model"
)

// SQLiteFavoriteRepo はSQLiteを使用したお気に入りリポジトリ。
type SQLiteFavoriteRepo struct {
	db *sql.DB
}

// NewSQLiteFavoriteRepo はSQLiteFavoriteRepoを生成する。
func NewSQLiteFavoriteRepo(db *sql.DB) *SQLiteFavoriteRepo {
	return &SQLiteFavoriteRepo{db: db}
}

// FindByEventID は指定イベントIDのお気に入り記録を取得する。見つからない場合はnilを返す。
func (r *SQLiteFavoriteRepo) FindByEventID(ctx context.Context, eventID int64) (*model.FavoriteRecord, error) {
	record := &model.FavoriteRecord{}
	var venueAddress, location, imageURL, category sql.NullString
	var price sql.NullFloat64

	err := r.db.QueryRowContext(ctx,
		`SELECT event_id, title, summary, start_date, end_date, venue_address,
		        location, duration_minutes, image_url, price, stock, category, created_at
		 FROM favorites WHERE event_id = ?`,
		eventID,
	).Scan(
		&record.EventID, &record.Title, &record.Summary,
		&record.StartDate, &record.EndDate, &venueAddress,
		&location, &record.Duration, &imageURL,
		&price, &record.Stock, &category, &record.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("お気に入り記録の取得に失敗しました: %w", err)
	}

	record.VenueAddress = nullStringPointer(venueAddress)
	record.Location = nullStringPointer(location)
	record.ImageURL = nullStringPointer(imageURL)
	record.Category = nullStringPointer(category)
	record.Price = nullFloatPointer(price)

	return record, nil
}

// Put はお気に入り記録を保存する。
func (r *SQLiteFavoriteRepo) Put(ctx context.Context, record *model.FavoriteRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO favorites (event_id, title, summary, start_date, end_date,
		                        venue_address, location, duration_minutes,
		                        image_url, price, stock, category, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(event_id) DO NOTHING`,
		record.EventID, record.Title, record.Summary,
		record.StartDate, record.EndDate,
		nullString(record.VenueAddress), nullString(record.Location), record.Duration,
		nullString(record.ImageURL), nullFloat(record.Price), record.Stock,
		nullString(record.Category), record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("お気に入り記録の保存に失敗しました: %w", err)
	}
	return nil
}

// DeleteByEventID は指定イベントIDのお気に入り記録を削除する。
func (r *SQLiteFavoriteRepo) DeleteByEventID(ctx context.Context, eventID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE event_id = ?`, eventID)
	if err != nil {
		return fmt.Errorf("お気に入り記録の削除に失敗しました: %w", err)
	}
	return nil
}

// ListAll は全お気に入り記録を登録日時の降順で返す。
func (r *SQLiteFavoriteRepo) ListAll(ctx context.Context) ([]*model.FavoriteRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT event_id, title, summary, start_date, end_date, venue_address,
		        location, duration_minutes, image_url, price, stock, category, created_at
		 FROM favorites ORDER BY created_at DESC, event_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("お気に入り一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var records []*model.FavoriteRecord
	for rows.Next() {
		record := &model.FavoriteRecord{}
		var venueAddress, location, imageURL, category sql.NullString
		var price sql.NullFloat64

		if err := rows.Scan(
			&record.EventID, &record.Title, &record.Summary,
			&record.StartDate, &record.EndDate, &venueAddress,
			&location, &record.Duration, &imageURL,
			&price, &record.Stock, &category, &record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("お気に入り記録の読み取りに失敗しました: %w", err)
		}

		record.VenueAddress = nullStringPointer(venueAddress)
		record.Location = nullStringPointer(location)
		record.ImageURL = nullStringPointer(imageURL)
		record.Category = nullStringPointer(category)
		record.Price = nullFloatPointer(price)

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("お気に入り一覧の走査に失敗しました: %w", err)
	}

	return records, nil
}

// nullString は*stringをsql.NullStringに変換する。
func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullStringPointer はsql.NullStringを*stringに変換する。
func nullStringPointer(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// nullFloat は*float64をsql.NullFloat64に変換する。
func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// nullFloatPointer はsql.NullFloat64を*float64に変換する。
func nullFloatPointer(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}
