package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Olamidayoo/harvest-helping-hands/internal/model"
)

// mockSSRFValidator はテスト用のSSRF検証実装。
// httptestサーバー（ループバック）へのアクセスを許可するため、
// 通常のHTTPクライアントを返す。
type mockSSRFValidator struct {
	validateFn func(rawURL string) error
}

func (m *mockSSRFValidator) ValidateURL(rawURL string) error {
	if m.validateFn != nil {
		return m.validateFn(rawURL)
	}
	return nil
}

func (m *mockSSRFValidator) NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client {
	return &http.Client{Timeout: timeout}
}

// 画像取得成功時にデータと拡張子が返ること
func TestRemoteImageFetcher_Fetch_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-data"))
	}))
	defer ts.Close()

	fetcher := NewRemoteImageFetcher(&mockSSRFValidator{}, FetchConfig{})

	data, ext, err := fetcher.Fetch(context.Background(), ts.URL+"/photo.png")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(data) != "png-data" {
		t.Errorf("data = %q, want %q", data, "png-data")
	}
	if ext != "png" {
		t.Errorf("ext = %q, want %q", ext, "png")
	}
}

// SSRF検証に失敗したURLではIMAGE_URL_BLOCKEDエラーになること
func TestRemoteImageFetcher_Fetch_BlockedURL(t *testing.T) {
	fetcher := NewRemoteImageFetcher(&mockSSRFValidator{
		validateFn: func(rawURL string) error {
			return errors.New("blocked IP address")
		},
	}, FetchConfig{})

	_, _, err := fetcher.Fetch(context.Background(), "http://169.254.169.254/latest/meta-data/")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeImageURLBlocked {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeImageURLBlocked)
	}
}

// 画像以外のContent-TypeではUPLOAD_FAILEDエラーになること
func TestRemoteImageFetcher_Fetch_NonImageContentType(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	}))
	defer ts.Close()

	fetcher := NewRemoteImageFetcher(&mockSSRFValidator{}, FetchConfig{})

	_, _, err := fetcher.Fetch(context.Background(), ts.URL)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeUploadFailed {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeUploadFailed)
	}
}

// 取得元がエラーを返した場合にUPLOAD_FAILEDエラーになること
func TestRemoteImageFetcher_Fetch_BadStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	fetcher := NewRemoteImageFetcher(&mockSSRFValidator{}, FetchConfig{})

	_, _, err := fetcher.Fetch(context.Background(), ts.URL)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeUploadFailed {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeUploadFailed)
	}
}

// サイズ上限を超える画像が拒否されること
func TestRemoteImageFetcher_Fetch_TooLarge(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(make([]byte, maxImageSize+1))
	}))
	defer ts.Close()

	fetcher := NewRemoteImageFetcher(&mockSSRFValidator{}, FetchConfig{})

	_, _, err := fetcher.Fetch(context.Background(), ts.URL)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeUploadFailed {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeUploadFailed)
	}
}

// Content-Typeから拡張子を決定できること
func TestExtensionForContentType(t *testing.T) {
	tests := []struct {
		contentType string
		wantExt     string
		wantOK      bool
	}{
		{"image/jpeg", "jpg", true},
		{"image/png", "png", true},
		{"image/gif", "gif", true},
		{"image/webp", "webp", true},
		{"image/png; charset=utf-8", "png", true},
		{"IMAGE/PNG", "png", true},
		{"text/html", "", false},
		{"application/octet-stream", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			ext, ok := extensionForContentType(tt.contentType)
			if ok != tt.wantOK {
				t.Errorf("extensionForContentType(%q) ok = %v, want %v", tt.contentType, ok, tt.wantOK)
			}
			if ext != tt.wantExt {
				t.Errorf("extensionForContentType(%q) ext = %q, want %q", tt.contentType, ext, tt.wantExt)
			}
		})
	}
}

// FetchConfigで指定した上限を超える画像が拒否されること
func TestRemoteImageFetcher_Fetch_CustomMaxSize(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(make([]byte, 2048))
	}))
	defer ts.Close()

	fetcher := NewRemoteImageFetcher(&mockSSRFValidator{}, FetchConfig{MaxSize: 1024})

	_, _, err := fetcher.Fetch(context.Background(), ts.URL)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeUploadFailed {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeUploadFailed)
	}
}
