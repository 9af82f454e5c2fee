package model

import "fmt"

// FetchErrorKind はリポジトリ境界のエラー分類を表す。
// UI層には人間向けメッセージのみを渡すが、テスト容易性のため
// 構造化された分類を保持する。
type FetchErrorKind int

const (
	// FetchErrorUnknown はその他のトランスポート障害。
	FetchErrorUnknown FetchErrorKind = iota
	// FetchErrorInvalidResponse は非2xxステータスの応答。
	FetchErrorInvalidResponse
	// FetchErrorInvalidData は空のレスポンスボディ。
	FetchErrorInvalidData
	// FetchErrorDecoding はスキーマ不一致によるデコード失敗。
	FetchErrorDecoding
)

// FetchError はイベントリポジトリの呼び出しで発生するエラーを表す。
type FetchError struct {
	Kind       FetchErrorKind
	StatusCode int   // FetchErrorInvalidResponseの場合のみ設定される
	Err        error // 元のエラー（存在する場合）
}

// Error はerrorインターフェースを実装する。
func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchErrorInvalidResponse:
		return fmt.Sprintf("イベントAPIがステータス %d を返しました", e.StatusCode)
	case FetchErrorInvalidData:
		return "イベントAPIのレスポンスボディが空です"
	case FetchErrorDecoding:
		return fmt.Sprintf("イベントAPIのレスポンスのデコードに失敗しました: %v", e.Err)
	default:
		return fmt.Sprintf("イベントAPIの呼び出しに失敗しました: %v", e.Err)
	}
}

// Unwrap は元のエラーを返す。
func (e *FetchError) Unwrap() error {
	return e.Err
}

// UserMessage はUI表示用の人間向けメッセージを返す。
func (e *FetchError) UserMessage() string {
	switch e.Kind {
	case FetchErrorInvalidResponse:
		return "サーバーからの応答が不正です。しばらく待ってから再度お試しください。"
	case FetchErrorInvalidData:
		return "サーバーから空の応答が返されました。"
	case FetchErrorDecoding:
		return "サーバーの応答を読み取れませんでした。"
	default:
		return "通信に失敗しました。接続を確認してください。"
	}
}

// NewInvalidResponseError は非2xxステータスのエラーを生成する。
func NewInvalidResponseError(statusCode int) *FetchError {
	return &FetchError{Kind: FetchErrorInvalidResponse, StatusCode: statusCode}
}

// NewInvalidDataError は空ボディのエラーを生成する。
func NewInvalidDataError() *FetchError {
	return &FetchError{Kind: FetchErrorInvalidData}
}

// NewDecodingError はデコード失敗のエラーを生成する。
func NewDecodingError(err error) *FetchError {
	return &FetchError{Kind: FetchErrorDecoding, Err: err}
}

// NewUnknownError はその他のトランスポート障害のエラーを生成する。
func NewUnknownError(err error) *FetchError {
	return &FetchError{Kind: FetchErrorUnknown, Err: err}
}

// DecodeError はワイヤ形式のデコード失敗を表す。
// 必須トップレベルフィールドの欠落時に返される。
// ネストされたオプショングループ（venue/image）の欠落や不正では発生しない。
type DecodeError struct {
	Field string
}

// Error はerrorインターフェースを実装する。
func (e *DecodeError) Error() string {
	return fmt.Sprintf("必須フィールドがありません: %s", e.Field)
}

// NewMissingFieldError は必須フィールド欠落のデコードエラーを生成する。
func NewMissingFieldError(field string) *DecodeError {
	return &DecodeError{Field: field}
}

// InvalidRequestError はリクエスト構築の失敗を表す。
// ベースアドレスが固定である限り実質的に到達しない。
type InvalidRequestError struct {
	Reason string
}

// Error はerrorインターフェースを実装する。
func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("不正なリクエストです: %s", e.Reason)
}

// APIError はゲートウェイの統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, events, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeEventNotFound   = "EVENT_NOT_FOUND"
	ErrCodeUpstreamFailure = "UPSTREAM_FAILURE"
	ErrCodeInvalidEventID  = "INVALID_EVENT_ID"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
)

// NewEventNotFoundError はイベント未検出エラーを生成する。
func NewEventNotFoundError(eventID int64) *APIError {
	return &APIError{
		Code:     ErrCodeEventNotFound,
		Message:  fmt.Sprintf("指定されたイベントが見つかりません: %d", eventID),
		Category: "events",
		Action:   "イベントIDを確認してください。",
	}
}

// NewUpstreamFailureError はイベントAPI呼び出し失敗のエラーを生成する。
func NewUpstreamFailureError(fetchErr *FetchError) *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamFailure,
		Message:  fetchErr.UserMessage(),
		Category: "events",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidEventIDError は不正なイベントIDのエラーを生成する。
func NewInvalidEventIDError(raw string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEventID,
		Message:  fmt.Sprintf("不正なイベントIDです: %s", raw),
		Category: "validation",
		Action:   "イベントIDは整数で指定してください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "ログインが必要です。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
