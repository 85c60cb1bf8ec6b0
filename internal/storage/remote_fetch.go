package storage

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Olamidayoo/harvest-helping-hands/internal/model"
)

// maxImageSize は取得する画像の最大サイズのデフォルト（5MB）。
const maxImageSize = 5 * 1024 * 1024

// fetchTimeout は外部画像取得のタイムアウトのデフォルト。
const fetchTimeout = 10 * time.Second

// FetchConfig はRemoteImageFetcherの設定。
// ゼロ値のフィールドにはデフォルト値が適用される。
type FetchConfig struct {
	Timeout time.Duration
	MaxSize int64
}

// SSRFValidator はSSRF検証のインターフェース。
// security.SSRFGuardServiceを抽象化してテスタビリティを向上させる。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// RemoteImageFetcherService は外部URLからの画像取得インターフェース。
type RemoteImageFetcherService interface {
	// Fetch は指定URLから画像を取得し、データと拡張子を返す。
	// ブロック対象URLの場合はIMAGE_URL_BLOCKEDエラーを返す。
	// 取得失敗・画像以外のContent-Typeの場合はUPLOAD_FAILEDエラーを返す。
	Fetch(ctx context.Context, imageURL string) (data []byte, ext string, err error)
}

// RemoteImageFetcher は外部URL画像取得機能の実装。
// 寄付作成時に画像URLを指定された場合に使用する。
type RemoteImageFetcher struct {
	ssrfGuard SSRFValidator
	timeout   time.Duration
	maxSize   int64
}

// NewRemoteImageFetcher はRemoteImageFetcherの新しいインスタンスを生成する。
func NewRemoteImageFetcher(ssrfGuard SSRFValidator, config FetchConfig) *RemoteImageFetcher {
	if config.Timeout <= 0 {
		config.Timeout = fetchTimeout
	}
	if config.MaxSize <= 0 {
		config.MaxSize = maxImageSize
	}
	return &RemoteImageFetcher{
		ssrfGuard: ssrfGuard,
		timeout:   config.Timeout,
		maxSize:   config.MaxSize,
	}
}

// Fetch は指定URLから画像を取得し、データと拡張子を返す。
// 画像取得の失敗は寄付作成自体を中断させるため、favicon取得と異なり
// 失敗を握りつぶさずエラーとして返す。
func (f *RemoteImageFetcher) Fetch(ctx context.Context, imageURL string) ([]byte, string, error) {
	if f.ssrfGuard != nil {
		if err := f.ssrfGuard.ValidateURL(imageURL); err != nil {
			slog.Warn("image fetch blocked", "url", imageURL, "error", err)
			return nil, "", model.NewImageURLBlockedError()
		}
	}

	client := f.getHTTPClient()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", model.NewUploadFailedError("URLが不正です")
	}
	req.Header.Set("User-Agent", "HarvestHelpingHands/1.0")

	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("image fetch failed", "url", imageURL, "error", err)
		return nil, "", model.NewUploadFailedError("画像を取得できませんでした")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("image fetch bad status", "url", imageURL, "status", resp.StatusCode)
		return nil, "", model.NewUploadFailedError("画像の取得元がエラーを返しました")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, "", model.NewUploadFailedError("画像の読み取りに失敗しました")
	}
	if int64(len(body)) > f.maxSize {
		slog.Warn("image fetch too large", "url", imageURL, "size", len(body))
		return nil, "", model.NewUploadFailedError("画像サイズが上限を超えています")
	}

	ext, ok := extensionForContentType(resp.Header.Get("Content-Type"))
	if !ok {
		slog.Warn("image fetch non-image content type", "url", imageURL, "contentType", resp.Header.Get("Content-Type"))
		return nil, "", model.NewUploadFailedError("画像以外のコンテンツです")
	}

	return body, ext, nil
}

// getHTTPClient はHTTPクライアントを取得する。
func (f *RemoteImageFetcher) getHTTPClient() *http.Client {
	if f.ssrfGuard != nil {
		return f.ssrfGuard.NewSafeClient(f.timeout, f.maxSize)
	}
	return &http.Client{Timeout: f.timeout}
}

// extensionForContentType はContent-Typeヘッダーから保存用の拡張子を決定する。
func extensionForContentType(contentType string) (string, bool) {
	mimeType := contentType
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	mimeType = strings.TrimSpace(strings.ToLower(mimeType))

	switch mimeType {
	case "image/jpeg":
		return "jpg", true
	case "image/png":
		return "png", true
	case "image/gif":
		return "gif", true
	case "image/webp":
		return "webp", true
	}
	return "", false
}

// compile-time interface check
var _ RemoteImageFetcherService = (*RemoteImageFetcher)(nil)
