package auth

import (
	"context"
	"log/slog"
	"sync"
)

// Service はサインイン状態の管理を提供する。
// ビューモデル層が必要とするのは「ユーザーが存在するか」のシグナルであり、
// 直近に取得したアイデンティティをキャッシュして提供する。
type Service struct {
	provider IdentityProvider
	logger   *slog.Logger

	mu      sync.Mutex
	current *Identity
}

// NewService はServiceを生成する。
func NewService(provider IdentityProvider, logger *slog.Logger) *Service {
	return &Service{
		provider: provider,
		logger:   logger,
	}
}

// SignIn はサインインし、取得したアイデンティティをキャッシュする。
func (s *Service) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	identity, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.current = identity
	s.mu.Unlock()
	s.logger.Info("サインインしました", slog.String("user_id", identity.ID))
	return identity, nil
}

// CreateUser は新規ユーザーを登録し、取得したアイデンティティをキャッシュする。
func (s *Service) CreateUser(ctx context.Context, email, password, name string) (*Identity, error) {
	identity, err := s.provider.CreateUser(ctx, email, password, name)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.current = identity
	s.mu.Unlock()
	s.logger.Info("ユーザーを登録しました", slog.String("user_id", identity.ID))
	return identity, nil
}

// ResetPassword はパスワードリセットを要求する。
func (s *Service) ResetPassword(ctx context.Context, email string) error {
	return s.provider.ResetPassword(ctx, email)
}

// SignOut はサインアウトし、キャッシュを破棄する。
func (s *Service) SignOut(ctx context.Context) error {
	err := s.provider.SignOut(ctx)
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	return err
}

// CurrentUser はキャッシュ済みのアイデンティティを返す。
// キャッシュがない場合はプロバイダへ問い合わせる。
func (s *Service) CurrentUser(ctx context.Context) (*Identity, error) {
	s.mu.Lock()
	cached := s.current
	s.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	identity, err := s.provider.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.current = identity
	s.mu.Unlock()
	return identity, nil
}

// IsSignedIn はユーザーが存在するかを返す。
// 問い合わせに失敗した場合は未サインインとして扱う。
func (s *Service) IsSignedIn(ctx context.Context) bool {
	identity, err := s.CurrentUser(ctx)
	if err != nil {
		s.logger.Warn("サインイン状態の確認に失敗しました", slog.String("error", err.Error()))
		return false
	}
	return identity != nil
}
