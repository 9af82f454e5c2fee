// Package events はリモートイベントAPIとの連携機能を提供する。
// ワイヤ形式のコーデック、ファセットからのクエリ構築、HTTPクライアントを含む。
package events

import (
	"encoding/json"

	"github.com/hitoshi/eventman/internal/model"
	"github.com/hitoshi/eventman/internal/security"
)

// wireVenue はワイヤ形式のvenueオブジェクト。
type wireVenue struct {
	Address *string `json:"address,omitempty"`
	City    *string `json:"city,omitempty"`
}

// wireImage はワイヤ形式のimageオブジェクト。
type wireImage struct {
	URL *string `json:"url,omitempty"`
}

// wireEvent はリモートAPIのワイヤ形式を表す。
// 必須フィールドの欠落検知のため、トップレベルはすべてポインタで受ける。
// venueとimageはオプショングループとしてjson.RawMessageで受け、
// 欠落・不正を個別に退化させる（decodeOptionalGroupを参照）。
type wireEvent struct {
	ID              *int64          `json:"id"`
	Title           *string         `json:"title"`
	Description     *string         `json:"description"`
	StartDate       *string         `json:"start_date"`
	EndDate         *string         `json:"end_date"`
	Stock           *int            `json:"stock"`
	DurationMinutes *int            `json:"duration_minutes"`
	Price           *float64        `json:"price,omitempty"`
	Category        *string         `json:"category,omitempty"`
	Venue           json.RawMessage `json:"venue,omitempty"`
	Image           json.RawMessage `json:"image,omitempty"`
}

// Codec はワイヤ形式とドメインモデルの双方向変換を行う。
// sanitizerが設定されている場合、詳細表示用のSummaryHTMLを生成する。
type Codec struct {
	sanitizer security.ContentSanitizer
}

// NewCodec はCodecの新しいインスタンスを生成する。
// sanitizerにはnilを渡してもよい（SummaryHTMLが空になるのみ）。
func NewCodec(sanitizer security.ContentSanitizer) *Codec {
	return &Codec{sanitizer: sanitizer}
}

// DecodeEvent は単一のワイヤオブジェクトをEventにデコードする。
// 必須トップレベルフィールド（id, title, description, start_date, end_date,
// stock, duration_minutes）の欠落はmodel.DecodeErrorとなる。
// オプションフィールド（price, category）の欠落はnilになる。
func (c *Codec) DecodeEvent(data []byte) (model.Event, error) {
	var we wireEvent
	if err := json.Unmarshal(data, &we); err != nil {
		return model.Event{}, err
	}
	return c.fromWire(we)
}

// DecodeEvents はワイヤオブジェクトの配列をEventのスライスにデコードする。
// 配列の順序は保持される。いずれかの要素が必須フィールドを欠く場合は
// 全体がエラーとなる。
func (c *Codec) DecodeEvents(data []byte) ([]model.Event, error) {
	var wires []wireEvent
	if err := json.Unmarshal(data, &wires); err != nil {
		return nil, err
	}

	events := make([]model.Event, 0, len(wires))
	for _, we := range wires {
		e, err := c.fromWire(we)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

// EncodeEvent はEventをワイヤ形式にエンコードする。
// venue/imageコンテナはフラットなフィールドから再構築し、
// 全フィールドがnilのコンテナは出力しない（nullも出力しない）。
// descriptionにはストリップ済みのSummaryを書き出すため、
// デコード済みイベントのラウンドトリップでは再ストリップが無変換になる。
func (c *Codec) EncodeEvent(e model.Event) ([]byte, error) {
	we := wireEvent{
		ID:              &e.ID,
		Title:           &e.Title,
		Description:     &e.Summary,
		StartDate:       &e.StartDate,
		EndDate:         &e.EndDate,
		Stock:           &e.Stock,
		DurationMinutes: &e.Duration,
		Price:           e.Price,
		Category:        e.Category,
	}

	if e.VenueAddress != nil || e.Location != nil {
		raw, err := json.Marshal(wireVenue{Address: e.VenueAddress, City: e.Location})
		if err != nil {
			return nil, err
		}
		we.Venue = raw
	}

	if e.ImageURL != nil {
		raw, err := json.Marshal(wireImage{URL: e.ImageURL})
		if err != nil {
			return nil, err
		}
		we.Image = raw
	}

	return json.Marshal(we)
}

// fromWire はwireEventをEventに変換する。
func (c *Codec) fromWire(we wireEvent) (model.Event, error) {
	switch {
	case we.ID == nil:
		return model.Event{}, model.NewMissingFieldError("id")
	case we.Title == nil:
		return model.Event{}, model.NewMissingFieldError("title")
	case we.Description == nil:
		return model.Event{}, model.NewMissingFieldError("description")
	case we.StartDate == nil:
		return model.Event{}, model.NewMissingFieldError("start_date")
	case we.EndDate == nil:
		return model.Event{}, model.NewMissingFieldError("end_date")
	case we.Stock == nil:
		return model.Event{}, model.NewMissingFieldError("stock")
	case we.DurationMinutes == nil:
		return model.Event{}, model.NewMissingFieldError("duration_minutes")
	}

	e := model.Event{
		ID:        *we.ID,
		Title:     *we.Title,
		Summary:   security.StripTags(*we.Description),
		StartDate: *we.StartDate,
		EndDate:   *we.EndDate,
		Stock:     *we.Stock,
		Duration:  *we.DurationMinutes,
		Price:     we.Price,
		Category:  we.Category,
	}

	if c.sanitizer != nil {
		e.SummaryHTML = c.sanitizer.Sanitize(*we.Description)
	}

	var venue wireVenue
	if decodeOptionalGroup(we.Venue, &venue) {
		e.VenueAddress = venue.Address
		e.Location = venue.City
	}

	var image wireImage
	if decodeOptionalGroup(we.Image, &image) {
		e.ImageURL = image.URL
	}

	return e, nil
}

// decodeOptionalGroup はネストされたオプショングループをデコードする。
// グループの欠落・null・不正な形式はすべて「グループなし」として扱い、
// 決してエラーを伝播しない。この寛容さはワイヤ仕様の意図的なポリシーであり、
// venue/imageが欠けたイベントもエラーなくデコードされる。
func decodeOptionalGroup(raw json.RawMessage, v any) bool {
	if len(raw) == 0 || string(raw) == "null" {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false
	}
	return true
}
