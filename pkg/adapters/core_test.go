package adapters

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/shouni/gemini-tryon-kit/pkg/domain"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

// newTestSource は名前解決を行わない ImageSource を作成します。
func newTestSource(t *testing.T, httpClient *mockHTTPClient, reader *mockReader, cache ImageCacher) *ImageSource {
	t.Helper()
	var src *ImageSource
	var err error
	if reader != nil {
		src, err = NewImageSource(httpClient, reader, cache, time.Hour)
	} else {
		src, err = NewImageSource(httpClient, nil, cache, time.Hour)
	}
	require.NoError(t, err)
	src.safeURL = func(string) (bool, error) { return true, nil }
	return src
}

func TestNewImageSource(t *testing.T) {
	_, err := NewImageSource(nil, nil, nil, 0)
	assert.ErrorContains(t, err, "httpClient is required")
}

func TestImageSource_Load(t *testing.T) {
	ctx := context.Background()
	data := pngBytes(t)

	t.Run("HTTPから取得してMIMEタイプを判定する", func(t *testing.T) {
		httpMock := &mockHTTPClient{data: data}
		src := newTestSource(t, httpMock, nil, nil)

		img, err := src.Load(ctx, "https://example.com/person.png")
		require.NoError(t, err)
		assert.Equal(t, "image/png", img.MIMEType)
		assert.Equal(t, data, img.Data)
	})

	t.Run("キャッシュがあれば取得しない", func(t *testing.T) {
		cache := &mockCache{data: map[string]any{}}
		httpMock := &mockHTTPClient{data: data}
		src := newTestSource(t, httpMock, nil, cache)

		_, err := src.Load(ctx, "https://example.com/garment.png")
		require.NoError(t, err)
		_, err = src.Load(ctx, "https://example.com/garment.png")
		require.NoError(t, err)

		assert.Equal(t, 1, httpMock.calls)
	})

	t.Run("キャッシュの型が不正なら取得し直す", func(t *testing.T) {
		cache := &mockCache{data: map[string]any{"https://example.com/x.png": 42}}
		httpMock := &mockHTTPClient{data: data}
		src := newTestSource(t, httpMock, nil, cache)

		_, err := src.Load(ctx, "https://example.com/x.png")
		require.NoError(t, err)
		assert.Equal(t, 1, httpMock.calls)
	})

	t.Run("gs://はリモートリーダーで読む", func(t *testing.T) {
		reader := &mockReader{data: data}
		httpMock := &mockHTTPClient{}
		src := newTestSource(t, httpMock, reader, nil)

		img, err := src.Load(ctx, "gs://bucket/person.png")
		require.NoError(t, err)
		assert.Equal(t, "gs://bucket/person.png", reader.opened)
		assert.Equal(t, "image/png", img.MIMEType)
		assert.Zero(t, httpMock.calls)
	})

	t.Run("リーダーがなければgs://はエラー", func(t *testing.T) {
		src := newTestSource(t, &mockHTTPClient{}, nil, nil)
		_, err := src.Load(ctx, "gs://bucket/person.png")
		assert.Error(t, err)
	})

	t.Run("画像でない内容はDecodeError", func(t *testing.T) {
		src := newTestSource(t, &mockHTTPClient{data: []byte("<html>nope</html>")}, nil, nil)
		_, err := src.Load(ctx, "https://example.com/page")

		var decodeErr *domain.DecodeError
		assert.ErrorAs(t, err, &decodeErr)
	})

	t.Run("スニッフィングできないTIFFも受け付ける", func(t *testing.T) {
		buf := new(bytes.Buffer)
		require.NoError(t, tiff.Encode(buf, image.NewGray(image.Rect(0, 0, 4, 4)), nil))
		src := newTestSource(t, &mockHTTPClient{data: buf.Bytes()}, nil, nil)

		img, err := src.Load(ctx, "https://example.com/scan.tiff")
		require.NoError(t, err)
		assert.Equal(t, "image/tiff", img.MIMEType)
	})

	t.Run("取得エラーはラップされる", func(t *testing.T) {
		cause := errors.New("status 404")
		src := newTestSource(t, &mockHTTPClient{err: cause}, nil, nil)
		_, err := src.Load(ctx, "https://example.com/missing.png")
		assert.ErrorIs(t, err, cause)
	})

	t.Run("クライアントのSSRF検証で拒否されたURLは取得しない", func(t *testing.T) {
		httpMock := &mockHTTPClient{data: data, unsafe: errors.New("restricted network")}
		src, err := NewImageSource(httpMock, nil, nil, 0)
		require.NoError(t, err)

		_, err = src.Load(ctx, "http://10.0.0.1/admin.png")
		assert.ErrorContains(t, err, "restricted network")
		assert.Equal(t, []string{"http://10.0.0.1/admin.png"}, httpMock.checked)
		assert.Zero(t, httpMock.calls)
	})

	t.Run("gs://はSSRF検証の対象外", func(t *testing.T) {
		httpMock := &mockHTTPClient{unsafe: errors.New("must not be called")}
		src, err := NewImageSource(httpMock, &mockReader{data: data}, nil, 0)
		require.NoError(t, err)

		_, err = src.Load(ctx, "gs://bucket/garment.png")
		require.NoError(t, err)
		assert.Empty(t, httpMock.checked)
	})
}

func TestImageSource_WithHTTPKitClient(t *testing.T) {
	ctx := context.Background()
	src, err := NewImageSource(httpkit.New(time.Second), nil, nil, 0)
	require.NoError(t, err)

	tests := []struct {
		name string
		url  string
	}{
		{"ループバック", "http://127.0.0.1/admin"},
		{"プライベートIP (クラスA)", "http://10.255.255.254/metadata"},
		{"リンクローカル", "http://169.254.169.254/latest/meta-data"},
		{"不正なスキーム", "gopher://8.8.8.8/"},
		{"相対パス", "images/a.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := src.Load(ctx, tt.url)
			assert.ErrorContains(t, err, "unsafe url")
		})
	}
}
