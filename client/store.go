package client

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// tokenFileName はトークンを保存するファイル名（固定キー）。
const tokenFileName = "token"

// TokenStore はベアラートークンの永続化インターフェース。
// 保持するトークンは常に最大1つ。
type TokenStore interface {
	// Load は保存済みトークンを返す。未保存の場合は空文字列を返す（エラーにしない）。
	Load() (string, error)
	// Save はトークンを保存する。既存のトークンは上書きされる。
	Save(token string) error
	// Clear は保存済みトークンを削除する。未保存の場合は何もしない。
	Clear() error
}

// FileTokenStore はファイルにトークンを保存するTokenStore実装。
type FileTokenStore struct {
	path string
}

// NewFileTokenStore は指定ディレクトリ配下にトークンを保存するFileTokenStoreを生成する。
func NewFileTokenStore(dir string) *FileTokenStore {
	return &FileTokenStore{
		path: filepath.Join(dir, tokenFileName),
	}
}

// DefaultTokenDir はトークン保存先のデフォルトディレクトリを返す。
func DefaultTokenDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".gotodo"), nil
}

// Load は保存済みトークンを返す。未保存の場合は空文字列を返す。
func (s *FileTokenStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save はトークンをファイルに保存する。トークンは秘密情報のため0600で書き込む。
func (s *FileTokenStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(token), 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Clear は保存済みトークンを削除する。
func (s *FileTokenStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}

// compile-time interface check
var _ TokenStore = (*FileTokenStore)(nil)
