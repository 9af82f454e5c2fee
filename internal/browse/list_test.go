package browse

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/eventman/internal/events"
	"github.com/hitoshi/eventman/internal/model"
)

// fetchCall は1回のFetchEvents呼び出しを表す。
// resultへの送信で呼び出しが完了する。
type fetchCall struct {
	query  events.Query
	result chan fetchResult
}

type fetchResult struct {
	events []model.Event
	err    error
}

// fakeFetcher は呼び出しをチャネルへ引き渡し、テスト側が
// 完了タイミングを制御できるフェッチャー。
type fakeFetcher struct {
	calls chan *fetchCall
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{calls: make(chan *fetchCall, 16)}
}

func (f *fakeFetcher) FetchEvents(_ context.Context, query events.Query) ([]model.Event, error) {
	call := &fetchCall{query: query, result: make(chan fetchResult)}
	f.calls <- call
	r := <-call.result
	return r.events, r.err
}

func (f *fakeFetcher) FetchEvent(_ context.Context, eventID int64) (*model.Event, error) {
	call := &fetchCall{result: make(chan fetchResult)}
	f.calls <- call
	r := <-call.result
	if r.err != nil {
		return nil, r.err
	}
	if len(r.events) == 0 {
		return nil, nil
	}
	event := r.events[0]
	return &event, nil
}

func (f *fakeFetcher) nextCall(t *testing.T) *fetchCall {
	t.Helper()
	select {
	case call := <-f.calls:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("フェッチが発行されなかった")
		return nil
	}
}

// fakeFavorites はメモリ上のお気に入りサービス。
type fakeFavorites struct {
	mu  sync.Mutex
	ids map[int64]bool
}

func newFakeFavorites() *fakeFavorites {
	return &fakeFavorites{ids: map[int64]bool{}}
}

func (f *fakeFavorites) Toggle(_ context.Context, event model.Event) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ids[event.ID] {
		delete(f.ids, event.ID)
		return false, nil
	}
	f.ids[event.ID] = true
	return true, nil
}

func (f *fakeFavorites) IsFavorite(_ context.Context, eventID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ids[eventID], nil
}

func (f *fakeFavorites) List(_ context.Context) []model.Event {
	return []model.Event{}
}

func (f *fakeFavorites) MarkFavorites(_ context.Context, evs []model.Event) []model.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	marked := make([]model.Event, len(evs))
	for i, event := range evs {
		event.IsFavorite = f.ids[event.ID]
		marked[i] = event
	}
	return marked
}

// stateRecorder は通知された状態を順番に記録する。
type stateRecorder struct {
	ch chan ListState
}

func newStateRecorder() *stateRecorder {
	return &stateRecorder{ch: make(chan ListState, 16)}
}

func (r *stateRecorder) record(state ListState) {
	r.ch <- state
}

func (r *stateRecorder) next(t *testing.T) ListState {
	t.Helper()
	select {
	case state := <-r.ch:
		return state
	case <-time.After(2 * time.Second):
		t.Fatal("状態の通知がなかった")
		return ListState{}
	}
}

func newTestListViewModel(fetcher *fakeFetcher, favs *fakeFavorites) (*ListViewModel, *stateRecorder) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	vm := NewListViewModel(fetcher, favs, logger, SyncDispatcher)
	recorder := newStateRecorder()
	vm.SetObserver(recorder.record)
	return vm, recorder
}

func listEvent(id int64, title string) model.Event {
	return model.Event{ID: id, Title: title, Summary: "summary",
		StartDate: "2025-05-01", EndDate: "2025-05-01", Duration: 60, Stock: 10}
}

func TestListViewModel_Refresh_Success(t *testing.T) {
	fetcher := newFakeFetcher()
	vm, recorder := newTestListViewModel(fetcher, newFakeFavorites())

	vm.Refresh(context.Background())

	loading := recorder.next(t)
	if !loading.IsLoading {
		t.Error("フェッチ開始直後の IsLoading = false, want true")
	}
	if loading.ErrorMessage != "" {
		t.Errorf("フェッチ開始直後の ErrorMessage = %q, want 空", loading.ErrorMessage)
	}

	call := fetcher.nextCall(t)
	call.result <- fetchResult{events: []model.Event{listEvent(1, "A"), listEvent(2, "B")}}

	loaded := recorder.next(t)
	if loaded.IsLoading {
		t.Error("完了後の IsLoading = true, want false")
	}
	if len(loaded.Events) != 2 {
		t.Fatalf("イベント数 = %d, want 2", len(loaded.Events))
	}
	if loaded.Events[0].ID != 1 || loaded.Events[1].ID != 2 {
		t.Errorf("イベントの順序が入力と異なる: %+v", loaded.Events)
	}
}

func TestListViewModel_Refresh_Failure_ClearsList(t *testing.T) {
	fetcher := newFakeFetcher()
	vm, recorder := newTestListViewModel(fetcher, newFakeFavorites())
	ctx := context.Background()

	// 先に一覧を読み込んでおく
	vm.Refresh(ctx)
	recorder.next(t)
	fetcher.nextCall(t).result <- fetchResult{events: []model.Event{listEvent(1, "A")}}
	recorder.next(t)

	// 次のフェッチが失敗する
	vm.Refresh(ctx)
	recorder.next(t)
	fetcher.nextCall(t).result <- fetchResult{err: model.NewInvalidResponseError(500)}

	failed := recorder.next(t)
	if failed.IsLoading {
		t.Error("失敗後の IsLoading = true, want false")
	}
	if len(failed.Events) != 0 {
		t.Errorf("失敗後もイベントが残っている: %+v", failed.Events)
	}
	if failed.ErrorMessage == "" {
		t.Error("失敗後の ErrorMessage が空")
	}
}

// TestListViewModel_Refresh_Reentrant はFailedからLoadingへの再遷移で
// エラーメッセージがクリアされることを検証する。
func TestListViewModel_Refresh_Reentrant(t *testing.T) {
	fetcher := newFakeFetcher()
	vm, recorder := newTestListViewModel(fetcher, newFakeFavorites())
	ctx := context.Background()

	vm.Refresh(ctx)
	recorder.next(t)
	fetcher.nextCall(t).result <- fetchResult{err: model.NewInvalidDataError()}
	recorder.next(t)

	vm.Refresh(ctx)
	loading := recorder.next(t)
	if loading.ErrorMessage != "" {
		t.Errorf("再フェッチ開始時の ErrorMessage = %q, want 空", loading.ErrorMessage)
	}
	if !loading.IsLoading {
		t.Error("再フェッチ開始時の IsLoading = false, want true")
	}
	fetcher.nextCall(t).result <- fetchResult{events: nil}
	recorder.next(t)
}

// TestListViewModel_LastIssuedWins は後から発行したフェッチの結果が
// 先行フェッチの遅延完了に上書きされないことを検証する。
func TestListViewModel_LastIssuedWins(t *testing.T) {
	fetcher := newFakeFetcher()
	vm, recorder := newTestListViewModel(fetcher, newFakeFavorites())
	ctx := context.Background()

	vm.SetLocation(ctx, "Amsterdam")
	recorder.next(t)
	first := fetcher.nextCall(t)

	vm.SetLocation(ctx, "Rotterdam")
	recorder.next(t)
	second := fetcher.nextCall(t)

	// 2番目のフェッチが先に完了する
	second.result <- fetchResult{events: []model.Event{listEvent(2, "Rotterdam Jazz")}}
	loaded := recorder.next(t)
	if len(loaded.Events) != 1 || loaded.Events[0].ID != 2 {
		t.Fatalf("2番目のフェッチ結果が反映されていない: %+v", loaded.Events)
	}

	// 1番目のフェッチが遅れて完了しても状態は変わらない
	first.result <- fetchResult{events: []model.Event{listEvent(1, "Amsterdam Jazz")}}

	// 破棄された結果は通知されない
	select {
	case state := <-recorder.ch:
		t.Errorf("破棄されるべき結果が通知された: %+v", state.Events)
	case <-time.After(100 * time.Millisecond):
	}

	state := vm.State()
	if len(state.Events) != 1 || state.Events[0].ID != 2 {
		t.Errorf("最終状態 = %+v, want 2番目のフェッチ結果", state.Events)
	}
}

func TestListViewModel_FacetMutation_TriggersRefetch(t *testing.T) {
	fetcher := newFakeFetcher()
	vm, recorder := newTestListViewModel(fetcher, newFakeFavorites())
	ctx := context.Background()

	vm.SetCategories(ctx, []string{"music", "theater"})
	recorder.next(t)

	call := fetcher.nextCall(t)
	if len(call.query.Categories) != 2 {
		t.Fatalf("クエリのカテゴリ数 = %d, want 2", len(call.query.Categories))
	}
	if call.query.Categories[0] != "music" || call.query.Categories[1] != "theater" {
		t.Errorf("カテゴリの順序が指定と異なる: %v", call.query.Categories)
	}
	call.result <- fetchResult{events: nil}
	recorder.next(t)

	vm.SetSort(ctx, events.SortPriceAscending)
	recorder.next(t)
	call = fetcher.nextCall(t)
	if call.query.Sort != events.SortPriceAscending {
		t.Errorf("クエリのソート = %v, want SortPriceAsc", call.query.Sort)
	}
	// ファセットは累積する
	if len(call.query.Categories) != 2 {
		t.Errorf("先に設定したカテゴリが失われた: %v", call.query.Categories)
	}
	call.result <- fetchResult{events: nil}
	recorder.next(t)
}

func TestListViewModel_Success_MarksFavorites(t *testing.T) {
	fetcher := newFakeFetcher()
	favs := newFakeFavorites()
	favs.ids[2] = true
	vm, recorder := newTestListViewModel(fetcher, favs)

	vm.Refresh(context.Background())
	recorder.next(t)
	fetcher.nextCall(t).result <- fetchResult{
		events: []model.Event{listEvent(1, "A"), listEvent(2, "B")},
	}

	loaded := recorder.next(t)
	if loaded.Events[0].IsFavorite {
		t.Error("未登録イベントの IsFavorite = true, want false")
	}
	if !loaded.Events[1].IsFavorite {
		t.Error("登録済みイベントの IsFavorite = false, want true")
	}
}

func TestListViewModel_ToggleFavorite_UpdatesList(t *testing.T) {
	fetcher := newFakeFetcher()
	vm, recorder := newTestListViewModel(fetcher, newFakeFavorites())
	ctx := context.Background()

	vm.Refresh(ctx)
	recorder.next(t)
	fetcher.nextCall(t).result <- fetchResult{events: []model.Event{listEvent(7, "A")}}
	recorder.next(t)

	if err := vm.ToggleFavorite(ctx, listEvent(7, "A")); err != nil {
		t.Fatalf("ToggleFavorite がエラーを返した: %v", err)
	}

	updated := recorder.next(t)
	if !updated.Events[0].IsFavorite {
		t.Error("トグル後の IsFavorite = false, want true")
	}
}
