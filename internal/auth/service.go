package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/gotodo/internal/model"
	"github.com/hitoshi/gotodo/internal/repository"
)

// Service は認証に関するビジネスロジックを提供する。
// トークン検証とローカルユーザーへの解決（UPSERT）を1つの操作にまとめる。
type Service struct {
	verifier TokenVerifier
	userRepo repository.UserRepository
}

// NewService はServiceを生成する。
func NewService(verifier TokenVerifier, userRepo repository.UserRepository) *Service {
	return &Service{
		verifier: verifier,
		userRepo: userRepo,
	}
}

// AuthenticateToken はベアラートークンを検証し、対応するローカルユーザーを返す。
// 初回のsubjectはユーザー行を新規作成し、2回目以降はプロフィール項目を最新値で上書きする。
// 内部IDは認証を繰り返しても変化しない。
func (s *Service) AuthenticateToken(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, model.NewMissingTokenError()
	}

	claims, err := s.verifier.Verify(ctx, token)
	if err != nil {
		slog.Warn("token verification failed",
			slog.String("error", err.Error()),
		)
		return nil, model.NewInvalidTokenError()
	}

	user, err := s.userRepo.UpsertByGoogleSub(ctx, claims.Subject, claims.Email, claims.Name, claims.Picture)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	return user, nil
}
