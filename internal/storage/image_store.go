// Package storage は寄付画像の保存と取得を提供する。
package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// publicPathPrefix は公開URL上のアップロード画像のパスプレフィックス。
const publicPathPrefix = "/uploads/"

// allowedExtensions は保存を許可する画像拡張子。
var allowedExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"gif":  true,
	"webp": true,
}

// ImageStore は寄付画像の永続化インターフェース。
type ImageStore interface {
	// Save は画像データを保存し、公開URLを返す。
	// キーは {ユーザーID}/{ランダム}.{拡張子} 形式で生成される。
	Save(ctx context.Context, userID, ext string, data []byte) (string, error)

	// Remove は公開URLに対応する画像を削除する。
	// 画像が存在しない場合はエラーを返さない。
	Remove(ctx context.Context, publicURL string) error
}

// FilesystemStore はローカルファイルシステムを使用したImageStoreの実装。
// 保存した画像は /uploads/ パスで静的配信される。
type FilesystemStore struct {
	rootDir string
	baseURL string
}

// NewFilesystemStore はFilesystemStoreを生成する。
// rootDirが存在しない場合は作成する。
func NewFilesystemStore(rootDir, baseURL string) (*FilesystemStore, error) {
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &FilesystemStore{
		rootDir: rootDir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Save は画像データを保存し、公開URLを返す。
func (s *FilesystemStore) Save(ctx context.Context, userID, ext string, data []byte) (string, error) {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("unsupported image extension: %s", ext)
	}
	if userID == "" {
		return "", fmt.Errorf("user ID is required")
	}

	key, err := generateKey(userID, ext)
	if err != nil {
		return "", fmt.Errorf("failed to generate image key: %w", err)
	}

	path := filepath.Join(s.rootDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create user directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}

	return s.baseURL + publicPathPrefix + key, nil
}

// Remove は公開URLに対応する画像を削除する。
// このストアの管理外のURL（外部画像URL等）は何もせず成功として扱う。
func (s *FilesystemStore) Remove(ctx context.Context, publicURL string) error {
	key, ok := s.keyFromURL(publicURL)
	if !ok {
		return nil
	}

	path := filepath.Join(s.rootDir, filepath.FromSlash(key))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove image file: %w", err)
	}
	return nil
}

// keyFromURL は公開URLからストレージキーを取り出す。
// パストラバーサルを防ぐため、取り出したキーを検証する。
func (s *FilesystemStore) keyFromURL(publicURL string) (string, bool) {
	prefix := s.baseURL + publicPathPrefix
	if !strings.HasPrefix(publicURL, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(publicURL, prefix)
	if key == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return "", false
	}
	return key, true
}

// generateKey は {ユーザーID}/{ランダム}.{拡張子} 形式のキーを生成する。
func generateKey(userID, ext string) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s.%s", userID, hex.EncodeToString(b), ext), nil
}

// compile-time interface check
var _ ImageStore = (*FilesystemStore)(nil)
