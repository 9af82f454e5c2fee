package events

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/hitoshi/eventman/internal/model"
)

// 「フィルタなし」を表すセンチネル値。
// 空文字列と同様にクエリパラメータから除外される。
const (
	// LocationAnywhere は場所フィルタの「どこでも」を表す。
	LocationAnywhere = "Anywhere"
	// DateAnytime は日付フィルタの「いつでも」を表す。
	DateAnytime = "Anytime"
)

// SortOption は一覧の並び替えオプションの閉じた列挙。
type SortOption int

const (
	// SortNone は並び替えなし（パラメータを送信しない）。
	SortNone SortOption = iota
	// SortPriceAscending は価格の安い順。
	SortPriceAscending
	// SortPriceDescending は価格の高い順。
	SortPriceDescending
	// SortDateAscending は開催日の早い順。
	SortDateAscending
	// SortDateDescending は開催日の遅い順。
	SortDateDescending
)

// WireToken は並び替えオプションに対応するワイヤトークンを返す。
// SortNoneは空文字列を返す。列挙外の値はプログラミングエラーであり、
// ユーザー向けエラーではなくpanicする。
func (s SortOption) WireToken() string {
	switch s {
	case SortNone:
		return ""
	case SortPriceAscending:
		return "price_asc"
	case SortPriceDescending:
		return "price_desc"
	case SortDateAscending:
		return "date_asc"
	case SortDateDescending:
		return "date_desc"
	default:
		panic(fmt.Sprintf("unknown sort option: %d", int(s)))
	}
}

// SortOptionFromToken はワイヤトークンをSortOptionに変換する。
// 空文字列はSortNoneとなる。未知のトークンの場合は第2戻り値がfalse。
func SortOptionFromToken(token string) (SortOption, bool) {
	switch token {
	case "":
		return SortNone, true
	case "price_asc":
		return SortPriceAscending, true
	case "price_desc":
		return SortPriceDescending, true
	case "date_asc":
		return SortDateAscending, true
	case "date_desc":
		return SortDateDescending, true
	default:
		return SortNone, false
	}
}

// Query はイベント一覧取得のファセット状態を表す。
// 各ファセットは未設定（空またはセンチネル値）の場合、
// クエリパラメータに含まれない。
type Query struct {
	// Location は開催都市のフィルタ。空または"Anywhere"で無効。
	Location string
	// Date は開催日のフィルタ。空または"Anytime"で無効。
	Date string
	// Sort は並び替えオプション。SortNoneで無効。
	Sort SortOption
	// Categories はカテゴリタグのフィルタ。空スライスで無効。
	// 順序は保持され、カンマ区切りの単一パラメータとして直列化される。
	Categories []string
}

// Values はファセット状態をクエリパラメータに変換する。
// 未設定のファセットは空値パラメータとして送信されるのではなく省略される。
func (q Query) Values() url.Values {
	values := url.Values{}

	if q.Location != "" && q.Location != LocationAnywhere {
		values.Set("venueCity", q.Location)
	}
	if q.Date != "" && q.Date != DateAnytime {
		values.Set("date", q.Date)
	}
	if token := q.Sort.WireToken(); token != "" {
		values.Set("sort", token)
	}
	if len(q.Categories) > 0 {
		values.Set("category", strings.Join(q.Categories, ","))
	}

	return values
}

// BuildEventsURL はコレクションエンドポイントとファセット状態から
// リクエストURLを構築する。すべてのファセットが未設定の場合、
// クエリ文字列なしの素のコレクションアドレスを返す。
// endpointが不正な場合はInvalidRequestErrorを返す
// （固定のベースアドレスでは実質的に到達しない。アサーションとして扱う）。
func BuildEventsURL(endpoint string, q Query) (*url.URL, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, &model.InvalidRequestError{Reason: err.Error()}
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, &model.InvalidRequestError{Reason: fmt.Sprintf("base address is not absolute: %s", endpoint)}
	}

	u.RawQuery = q.Values().Encode()
	return u, nil
}
