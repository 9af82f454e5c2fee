package browse

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/hitoshi/eventman/internal/favorites"
	"github.com/hitoshi/eventman/internal/model"
)

// DetailState はイベント詳細画面の公開状態を表す。
// 取得に失敗した場合、Eventはnilのままになる。
type DetailState struct {
	Event        *model.Event
	IsLoading    bool
	ErrorMessage string
}

// DetailViewModel は単一イベントの取得と派生ペイロードを管理する。
type DetailViewModel struct {
	fetcher   EventFetcher
	favorites favorites.Service
	logger    *slog.Logger
	dispatch  Dispatcher
	eventID   int64

	mu         sync.Mutex
	state      DetailState
	generation uint64
	observer   func(DetailState)
}

// NewDetailViewModel はDetailViewModelを生成する。
// 取得はLoadの呼び出しで開始する。
func NewDetailViewModel(fetcher EventFetcher, favoritesService favorites.Service, logger *slog.Logger, dispatch Dispatcher, eventID int64) *DetailViewModel {
	return &DetailViewModel{
		fetcher:   fetcher,
		favorites: favoritesService,
		logger:    logger,
		dispatch:  dispatch,
		eventID:   eventID,
	}
}

// SetObserver は状態変化の通知先を設定する。
func (vm *DetailViewModel) SetObserver(observer func(DetailState)) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.observer = observer
}

// State は現在の公開状態のコピーを返す。
func (vm *DetailViewModel) State() DetailState {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.state
}

// Load はイベントを取得する。再読み込みにも同じメソッドを使う。
// 先行する未完了の取得結果は破棄される。
func (vm *DetailViewModel) Load(ctx context.Context) {
	vm.mu.Lock()
	vm.generation++
	issued := vm.generation
	vm.state.IsLoading = true
	vm.state.ErrorMessage = ""
	vm.mu.Unlock()

	vm.publish()

	go vm.fetch(ctx, issued)
}

func (vm *DetailViewModel) fetch(ctx context.Context, issued uint64) {
	event, err := vm.fetcher.FetchEvent(ctx, vm.eventID)
	if err == nil && event != nil {
		favorite, favErr := vm.favorites.IsFavorite(ctx, event.ID)
		if favErr != nil {
			vm.logger.Error("お気に入り状態の確認に失敗しました", slog.String("error", favErr.Error()))
		}
		event.IsFavorite = favorite
	}

	vm.dispatch(func() {
		vm.mu.Lock()
		if issued != vm.generation {
			vm.mu.Unlock()
			return
		}

		if err != nil {
			vm.state.Event = nil
			vm.state.ErrorMessage = userMessage(err)
			vm.state.IsLoading = false
			vm.mu.Unlock()
			vm.logger.Error("イベント詳細の取得に失敗しました",
				slog.Int64("event_id", vm.eventID), slog.String("error", err.Error()))
			vm.publish()
			return
		}

		vm.state.Event = event
		vm.state.IsLoading = false
		vm.mu.Unlock()
		vm.publish()
	})
}

// ToggleFavorite は表示中イベントのお気に入り状態を反転する。
// イベントが未読み込みの場合は何もしない。
func (vm *DetailViewModel) ToggleFavorite(ctx context.Context) error {
	vm.mu.Lock()
	event := vm.state.Event
	vm.mu.Unlock()
	if event == nil {
		return nil
	}

	favorite, err := vm.favorites.Toggle(ctx, *event)
	if err != nil {
		return err
	}

	vm.mu.Lock()
	if vm.state.Event != nil && vm.state.Event.ID == event.ID {
		// 公開済みスナップショットを書き換えないよう、新しいコピーに差し替える
		updated := *vm.state.Event
		updated.IsFavorite = favorite
		vm.state.Event = &updated
	}
	vm.mu.Unlock()
	vm.publish()
	return nil
}

// AppleMapsURL は会場住所へのApple Mapsディープリンクを返す。
// 住所がない場合はnilを返す（エラーではなく「操作不可」を意味する）。
func (vm *DetailViewModel) AppleMapsURL() *string {
	return vm.mapURL("https://maps.apple.com/?q=")
}

// GoogleMapsURL は会場住所へのGoogle Mapsディープリンクを返す。
// 住所がない場合はnilを返す。
func (vm *DetailViewModel) GoogleMapsURL() *string {
	return vm.mapURL("https://www.google.com/maps/search/?api=1&query=")
}

func (vm *DetailViewModel) mapURL(prefix string) *string {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if vm.state.Event == nil || vm.state.Event.VenueAddress == nil {
		return nil
	}
	u := prefix + url.QueryEscape(*vm.state.Event.VenueAddress)
	return &u
}

// SharePayload は外部共有用のテキストを返す。
// イベント未読み込みの場合は汎用文言にフォールバックする。
func (vm *DetailViewModel) SharePayload() string {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	event := vm.state.Event
	if event == nil {
		return "このイベントをチェックしてください！"
	}

	location := "場所未定"
	if event.Location != nil {
		location = *event.Location
	}
	return fmt.Sprintf("%s（%s）\n%s", event.Title, location, event.Summary)
}

func (vm *DetailViewModel) publish() {
	vm.mu.Lock()
	observer := vm.observer
	state := vm.state
	vm.mu.Unlock()

	if observer != nil {
		observer(state)
	}
}
