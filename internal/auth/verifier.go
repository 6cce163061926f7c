// Package auth はIDトークン検証とユーザー解決を提供する。
package auth

import (
	"context"
	"fmt"

	"google.golang.org/api/idtoken"
)

// TokenClaims は検証済みIDトークンから取り出した本人情報を表す。
// Subjectは必須、プロフィール項目はIdPが返した場合のみ設定される。
type TokenClaims struct {
	Subject string
	Email   *string
	Name    *string
	Picture *string
}

// TokenVerifier はIDトークン検証のインターフェース。
// 実装は「不透明なトークン文字列を設定済みaudienceに対して検証し、
// 安定したsubject識別子とプロフィール項目を返すか、失敗する」という契約のみを持つ。
type TokenVerifier interface {
	// Verify はトークンを検証し、本人情報を返す。
	// 失敗した場合はリトライせずエラーを返す。
	Verify(ctx context.Context, token string) (*TokenClaims, error)
}

// GoogleVerifierConfig はGoogle IDトークン検証の設定。
type GoogleVerifierConfig struct {
	// Audience はトークンのaud claimと一致すべき値（OAuthクライアントID）。
	Audience string
}

// GoogleVerifier はGoogleのIDトークンを検証するTokenVerifier実装。
// 署名・有効期限・audienceの検証はgoogle.golang.org/api/idtokenに委譲する。
type GoogleVerifier struct {
	config GoogleVerifierConfig
}

// NewGoogleVerifier はGoogleVerifierを生成する。
func NewGoogleVerifier(config GoogleVerifierConfig) *GoogleVerifier {
	return &GoogleVerifier{config: config}
}

// Verify はGoogleのIDトークンを検証し、本人情報を返す。
// audience不一致のトークンはここで失敗する。
func (v *GoogleVerifier) Verify(ctx context.Context, token string) (*TokenClaims, error) {
	if token == "" {
		return nil, fmt.Errorf("empty token")
	}
	if v.config.Audience == "" {
		return nil, fmt.Errorf("audience is not configured")
	}

	payload, err := idtoken.Validate(ctx, token, v.config.Audience)
	if err != nil {
		return nil, fmt.Errorf("failed to validate id token: %w", err)
	}

	if payload.Subject == "" {
		return nil, fmt.Errorf("empty sub in token payload")
	}

	return &TokenClaims{
		Subject: payload.Subject,
		Email:   stringClaim(payload.Claims, "email"),
		Name:    stringClaim(payload.Claims, "name"),
		Picture: stringClaim(payload.Claims, "picture"),
	}, nil
}

// stringClaim はclaimsから文字列claimを取り出す。存在しない・空の場合はnilを返す。
func stringClaim(claims map[string]interface{}, key string) *string {
	v, ok := claims[key]
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

// compile-time interface check
var _ TokenVerifier = (*GoogleVerifier)(nil)
