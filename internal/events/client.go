package events

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/eventman/internal/model"
)

// collectionPath はイベントコレクションのパス。
const collectionPath = "/tickets/tickets"

// FetchMetrics はイベント取得のメトリクス記録のインターフェース。
type FetchMetrics interface {
	RecordFetchSuccess()
	RecordFetchFailure(kind string)
	RecordHTTPStatus(statusCode int)
	RecordFetchLatency(duration time.Duration)
}

// Client はリモートイベントAPIのクライアント。
// 1回の呼び出しにつき1リクエストを発行する。内部リトライやキャッシュは行わず、
// 鮮度管理は呼び出し元の責務とする。
// トランスポート層の結果はmodel.FetchErrorの閉じた分類に写像される。
type Client struct {
	httpClient *http.Client
	codec      *Codec
	logger     *slog.Logger
	metrics    FetchMetrics
	limiter    *rate.Limiter
	endpoint   string // テスト用にコンストラクタでベースURLを差し替え可能
	maxBody    int64
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURLにはAPIのベースアドレスを指定する（コレクションパスは内部で付与する）。
// metricsとlimiterにはnilを渡してもよい。
func NewClient(
	httpClient *http.Client,
	codec *Codec,
	logger *slog.Logger,
	metrics FetchMetrics,
	limiter *rate.Limiter,
	baseURL string,
	maxBody int64,
) *Client {
	return &Client{
		httpClient: httpClient,
		codec:      codec,
		logger:     logger,
		metrics:    metrics,
		limiter:    limiter,
		endpoint:   strings.TrimSuffix(baseURL, "/") + collectionPath,
		maxBody:    maxBody,
	}
}

// FetchEvents はファセット状態に基づいてイベント一覧を取得する。
// 未設定のファセットのみの場合はクエリ文字列なしでコレクションアドレスを叩く。
// 戻り値の順序はレスポンスの配列順序をそのまま保持する。
func (c *Client) FetchEvents(ctx context.Context, q Query) ([]model.Event, error) {
	reqURL, err := BuildEventsURL(c.endpoint, q)
	if err != nil {
		return nil, err
	}

	body, err := c.get(ctx, reqURL.String())
	if err != nil {
		return nil, err
	}

	events, err := c.codec.DecodeEvents(body)
	if err != nil {
		c.recordFailure("decoding")
		c.logger.Error("イベント一覧のデコードに失敗しました",
			slog.String("url", reqURL.String()),
			slog.String("error", err.Error()),
		)
		return nil, model.NewDecodingError(err)
	}

	c.recordSuccess()
	c.logger.Info("イベント一覧を取得しました",
		slog.String("url", reqURL.String()),
		slog.Int("count", len(events)),
	)
	return events, nil
}

// FetchEvent は識別子をパスセグメントとして付与し、単一のイベントを取得する。
func (c *Client) FetchEvent(ctx context.Context, id int64) (*model.Event, error) {
	itemURL := c.endpoint + "/" + strconv.FormatInt(id, 10)

	body, err := c.get(ctx, itemURL)
	if err != nil {
		return nil, err
	}

	event, err := c.codec.DecodeEvent(body)
	if err != nil {
		c.recordFailure("decoding")
		c.logger.Error("イベントのデコードに失敗しました",
			slog.Int64("event_id", id),
			slog.String("error", err.Error()),
		)
		return nil, model.NewDecodingError(err)
	}

	c.recordSuccess()
	return &event, nil
}

// get は1回のGETリクエストを発行し、レスポンスボディを返す。
// 非2xxステータス、空ボディ、トランスポート障害をそれぞれ
// InvalidResponse、InvalidData、Unknownに分類する。
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, model.NewUnknownError(err)
		}
	}

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, model.NewUnknownError(fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err))
	}
	req.Header.Set("User-Agent", "Eventman/1.0 Event Client")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure("unknown")
		c.logger.Error("イベントAPIの呼び出しに失敗しました",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return nil, model.NewUnknownError(err)
	}
	defer resp.Body.Close()

	if c.metrics != nil {
		c.metrics.RecordHTTPStatus(resp.StatusCode)
		c.metrics.RecordFetchLatency(time.Since(start))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.recordFailure("invalid_response")
		c.logger.Error("イベントAPIがエラーステータスを返しました",
			slog.String("url", rawURL),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, model.NewInvalidResponseError(resp.StatusCode)
	}

	reader := io.Reader(resp.Body)
	if c.maxBody > 0 {
		reader = io.LimitReader(resp.Body, c.maxBody)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		c.recordFailure("unknown")
		return nil, model.NewUnknownError(fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err))
	}

	if len(body) == 0 {
		c.recordFailure("invalid_data")
		c.logger.Error("イベントAPIのレスポンスボディが空です",
			slog.String("url", rawURL),
		)
		return nil, model.NewInvalidDataError()
	}

	return body, nil
}

func (c *Client) recordSuccess() {
	if c.metrics != nil {
		c.metrics.RecordFetchSuccess()
	}
}

func (c *Client) recordFailure(kind string) {
	if c.metrics != nil {
		c.metrics.RecordFetchFailure(kind)
	}
}
