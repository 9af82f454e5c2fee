package events

import (
	"strings"
	"testing"

	"github.com/hitoshi/eventman/internal/model"
)

func TestSortOption_WireToken(t *testing.T) {
	tests := []struct {
		sort SortOption
		want string
	}{
		{SortNone, ""},
		{SortPriceAscending, "price_asc"},
		{SortPriceDescending, "price_desc"},
		{SortDateAscending, "date_asc"},
		{SortDateDescending, "date_desc"},
	}

	for _, tt := range tests {
		if got := tt.sort.WireToken(); got != tt.want {
			t.Errorf("WireToken(%d) = %q, want %q", int(tt.sort), got, tt.want)
		}
	}
}

func TestSortOption_WireToken_UnknownPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("列挙外の並び替え値でpanicしなかった")
		}
	}()
	_ = SortOption(99).WireToken()
}

func TestSortOptionFromToken(t *testing.T) {
	tests := []struct {
		token  string
		want   SortOption
		wantOK bool
	}{
		{"", SortNone, true},
		{"price_asc", SortPriceAscending, true},
		{"price_desc", SortPriceDescending, true},
		{"date_asc", SortDateAscending, true},
		{"date_desc", SortDateDescending, true},
		{"bogus", SortNone, false},
	}

	for _, tt := range tests {
		got, ok := SortOptionFromToken(tt.token)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("SortOptionFromToken(%q) = (%v, %v), want (%v, %v)", tt.token, got, ok, tt.want, tt.wantOK)
		}
	}
}

// TestQuery_Values_AllUnset はすべてのファセットが未設定の場合に
// クエリパラメータが1つも生成されないことを検証する。
func TestQuery_Values_AllUnset(t *testing.T) {
	queries := []Query{
		{},
		{Location: "", Date: "", Sort: SortNone, Categories: nil},
		{Location: LocationAnywhere, Date: DateAnytime, Sort: SortNone, Categories: []string{}},
	}

	for _, q := range queries {
		values := q.Values()
		if len(values) != 0 {
			t.Errorf("Query %+v が空でないパラメータを生成した: %v", q, values)
		}
	}
}

func TestQuery_Values_IndividualFacets(t *testing.T) {
	tests := []struct {
		name      string
		query     Query
		wantKey   string
		wantValue string
	}{
		{
			name:      "場所フィルタ",
			query:     Query{Location: "Amsterdam"},
			wantKey:   "venueCity",
			wantValue: "Amsterdam",
		},
		{
			name:      "日付フィルタ",
			query:     Query{Date: "2025-05-01"},
			wantKey:   "date",
			wantValue: "2025-05-01",
		},
		{
			name:      "並び替え",
			query:     Query{Sort: SortDateAscending},
			wantKey:   "sort",
			wantValue: "date_asc",
		},
		{
			name:      "カテゴリ",
			query:     Query{Categories: []string{"music"}},
			wantKey:   "category",
			wantValue: "music",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := tt.query.Values()
			if len(values) != 1 {
				t.Fatalf("パラメータ数 = %d, want 1: %v", len(values), values)
			}
			if got := values.Get(tt.wantKey); got != tt.wantValue {
				t.Errorf("%s = %q, want %q", tt.wantKey, got, tt.wantValue)
			}
		})
	}
}

// TestQuery_Values_CategorySerialization はN個のカテゴリが
// 重複なくちょうどN個のカンマ区切りトークンになることを検証する。
func TestQuery_Values_CategorySerialization(t *testing.T) {
	selected := []string{"music", "art", "food"}
	q := Query{Categories: selected}

	raw := q.Values().Get("category")
	tokens := strings.Split(raw, ",")

	if len(tokens) != len(selected) {
		t.Fatalf("トークン数 = %d, want %d: %q", len(tokens), len(selected), raw)
	}

	seen := make(map[string]bool)
	for i, token := range tokens {
		if token != selected[i] {
			t.Errorf("tokens[%d] = %q, want %q（呼び出し元の順序を保持）", i, token, selected[i])
		}
		if seen[token] {
			t.Errorf("トークンが重複している: %q", token)
		}
		seen[token] = true
	}
}

func TestBuildEventsURL_NoFacets_BareAddress(t *testing.T) {
	u, err := BuildEventsURL("https://api.example.com/tickets/tickets", Query{})
	if err != nil {
		t.Fatalf("BuildEventsURL がエラーを返した: %v", err)
	}

	if u.RawQuery != "" {
		t.Errorf("RawQuery = %q, want 空（素のコレクションアドレス）", u.RawQuery)
	}
	if u.String() != "https://api.example.com/tickets/tickets" {
		t.Errorf("URL = %q, want https://api.example.com/tickets/tickets", u.String())
	}
}

func TestBuildEventsURL_AllFacets(t *testing.T) {
	q := Query{
		Location:   "Amsterdam",
		Date:       "2025-05-01",
		Sort:       SortPriceAscending,
		Categories: []string{"music", "art"},
	}

	u, err := BuildEventsURL("https://api.example.com/tickets/tickets", q)
	if err != nil {
		t.Fatalf("BuildEventsURL がエラーを返した: %v", err)
	}

	values := u.Query()
	if got := values.Get("venueCity"); got != "Amsterdam" {
		t.Errorf("venueCity = %q, want Amsterdam", got)
	}
	if got := values.Get("date"); got != "2025-05-01" {
		t.Errorf("date = %q, want 2025-05-01", got)
	}
	if got := values.Get("sort"); got != "price_asc" {
		t.Errorf("sort = %q, want price_asc", got)
	}
	if got := values.Get("category"); got != "music,art" {
		t.Errorf("category = %q, want music,art", got)
	}
}

func TestBuildEventsURL_MalformedBase(t *testing.T) {
	tests := []string{
		"://missing-scheme",
		"relative/path",
		"",
	}

	for _, base := range tests {
		_, err := BuildEventsURL(base, Query{})
		if err == nil {
			t.Errorf("BuildEventsURL(%q) = nil, want InvalidRequestError", base)
			continue
		}
		if _, ok := err.(*model.InvalidRequestError); !ok {
			t.Errorf("エラー型 = %T, want *model.InvalidRequestError", err)
		}
	}
}
