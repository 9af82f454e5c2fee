// Package auth はアイデンティティプロバイダとの連携を提供する。
// サインイン状態の保持と「ユーザーが存在するか」の判定がこの層の責務であり、
// チケット所有権などの認可判断は行わない。
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

// Identity はサインイン済みユーザーを表す。
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// IdentityProvider はアイデンティティプロバイダのインターフェース。
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*Identity, error)
	CreateUser(ctx context.Context, email, password, name string) (*Identity, error)
	ResetPassword(ctx context.Context, email string) error
	SignOut(ctx context.Context) error
	// CurrentUser は現在のユーザーを返す。未サインインの場合はnilを返す。
	CurrentUser(ctx context.Context) (*Identity, error)
}

// RemoteProvider はHTTP経由でアイデンティティプロバイダを呼び出す実装。
// サインインで得たトークンを保持し、以降のリクエストに付与する。
// ゲートウェイ配下では複数リクエストから同時に呼ばれるため、
// トークンはミューテックスで保護する。
type RemoteProvider struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	deviceID   string

	mu    sync.Mutex
	token string
}

// NewRemoteProvider はRemoteProviderを生成する。
// デバイスIDはインスタンスごとに一意なIDが払い出される。
func NewRemoteProvider(httpClient *http.Client, logger *slog.Logger, baseURL string) *RemoteProvider {
	return &RemoteProvider{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
		deviceID:   uuid.NewString(),
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
	Name     string `json:"name,omitempty"`
}

type sessionResponse struct {
	Token string   `json:"token"`
	User  Identity `json:"user"`
}

// SignIn はメールアドレスとパスワードでサインインする。
func (p *RemoteProvider) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	var session sessionResponse
	err := p.post(ctx, "/auth/login", credentialsRequest{Email: email, Password: password}, &session)
	if err != nil {
		return nil, fmt.Errorf("サインインに失敗しました: %w", err)
	}
	p.setToken(session.Token)
	return &session.User, nil
}

// CreateUser は新規ユーザーを登録し、そのままサインインする。
func (p *RemoteProvider) CreateUser(ctx context.Context, email, password, name string) (*Identity, error) {
	var session sessionResponse
	err := p.post(ctx, "/auth/register", credentialsRequest{Email: email, Password: password, Name: name}, &session)
	if err != nil {
		return nil, fmt.Errorf("ユーザー登録に失敗しました: %w", err)
	}
	p.setToken(session.Token)
	return &session.User, nil
}

// ResetPassword はパスワードリセットメールの送信を要求する。
func (p *RemoteProvider) ResetPassword(ctx context.Context, email string) error {
	if err := p.post(ctx, "/auth/reset-password", credentialsRequest{Email: email}, nil); err != nil {
		return fmt.Errorf("パスワードリセットの要求に失敗しました: %w", err)
	}
	return nil
}

// SignOut はセッションを破棄する。
// リモート側の失敗に関わらずローカルのトークンは破棄する。
func (p *RemoteProvider) SignOut(ctx context.Context) error {
	err := p.post(ctx, "/auth/logout", nil, nil)
	p.setToken("")
	if err != nil {
		p.logger.Warn("サインアウトのリモート通知に失敗しました", slog.String("error", err.Error()))
	}
	return nil
}

// CurrentUser は現在のユーザーを取得する。
// トークンを保持していない場合はリモートを呼ばずにnilを返す。
func (p *RemoteProvider) CurrentUser(ctx context.Context) (*Identity, error) {
	if p.currentToken() == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/auth/me", nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	p.setHeaders(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ユーザー情報の取得に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		// トークン失効。サインアウト状態として扱う
		p.setToken("")
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("アイデンティティプロバイダがステータス %d を返しました", resp.StatusCode)
	}

	var identity Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, fmt.Errorf("ユーザー情報のパースに失敗しました: %w", err)
	}
	return &identity, nil
}

func (p *RemoteProvider) post(ctx context.Context, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("リクエストのエンコードに失敗しました: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	p.setHeaders(req)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.logger.Error("アイデンティティプロバイダがエラーステータスを返しました",
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
		)
		return fmt.Errorf("アイデンティティプロバイダがステータス %d を返しました", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
		}
	}
	return nil
}

func (p *RemoteProvider) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Eventman/1.0 Event Client")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Device-ID", p.deviceID)
	if token := p.currentToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (p *RemoteProvider) setToken(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = token
}

func (p *RemoteProvider) currentToken() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token
}
