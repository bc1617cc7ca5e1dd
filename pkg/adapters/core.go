package adapters

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shouni/gemini-tryon-kit/pkg/domain"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"

	_ "golang.org/x/image/tiff"
)

// ImageCacher は取得済み画像データのキャッシュ操作を抽象化するインターフェースです。
type ImageCacher interface {
	Get(key string) (any, bool)
	Set(key string, value any, d time.Duration)
}

// ImageSource は URL や GCS パスから正規化前の画像を取得するコンポーネントです。
// 取得した画像は Normalizer に渡して利用します。
type ImageSource struct {
	httpClient httpkit.ClientInterface
	reader     remoteio.InputReader
	cache      ImageCacher
	cacheTTL   time.Duration
	// safeURL は SSRF 検証です。通常は httpClient.IsSafeURL を使います。
	safeURL func(string) (bool, error)
}

// NewImageSource は依存関係を注入して ImageSource を生成します。
// reader と cache は nil を許容します（gs:// 非対応・キャッシュなし）。
func NewImageSource(httpClient httpkit.ClientInterface, reader remoteio.InputReader, cache ImageCacher, cacheTTL time.Duration) (*ImageSource, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("httpClient is required")
	}
	return &ImageSource{
		httpClient: httpClient,
		reader:     reader,
		cache:      cache,
		cacheTTL:   cacheTTL,
		safeURL:    httpClient.IsSafeURL,
	}, nil
}

// Load は参照先の画像を取得し、内容から判定したメディアタイプを付けて返します。
func (s *ImageSource) Load(ctx context.Context, ref string) (domain.RawImage, error) {
	if s.cache != nil {
		if cached, found := s.cache.Get(ref); found {
			if data, ok := cached.([]byte); ok {
				return toRawImage(data)
			}
			slog.WarnContext(ctx, "キャッシュデータが不正な型です", "ref", ref, "type", fmt.Sprintf("%T", cached))
		}
	}

	data, err := s.fetch(ctx, ref)
	if err != nil {
		return domain.RawImage{}, err
	}

	img, err := toRawImage(data)
	if err != nil {
		return domain.RawImage{}, err
	}
	if s.cache != nil {
		s.cache.Set(ref, data, s.cacheTTL)
	}
	return img, nil
}

func (s *ImageSource) fetch(ctx context.Context, ref string) ([]byte, error) {
	if strings.HasPrefix(ref, "gs://") {
		if s.reader == nil {
			return nil, fmt.Errorf("gs:// references require a remote reader: %s", ref)
		}
		rc, err := s.reader.Open(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", ref, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}

	if safe, err := s.safeURL(ref); !safe || err != nil {
		slog.WarnContext(ctx, "SSRFの可能性がある、または不正なURLをブロックしました", "url", ref, "error", err)
		if err == nil {
			err = fmt.Errorf("blocked by network policy")
		}
		return nil, fmt.Errorf("unsafe url %q: %w", ref, err)
	}

	data, err := s.httpClient.FetchBytes(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ref, err)
	}
	return data, nil
}

// toRawImage はバイト列の先頭から MIME タイプを判定し、画像でなければ DecodeError を返します。
func toRawImage(data []byte) (domain.RawImage, error) {
	mimeType := http.DetectContentType(data)
	if strings.HasPrefix(mimeType, "image/") {
		return domain.RawImage{Data: data, MIMEType: mimeType}, nil
	}
	// TIFF などスニッフィング表にない形式はデコーダに判定させます。
	if _, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		return domain.RawImage{Data: data, MIMEType: "image/" + format}, nil
	}
	return domain.RawImage{}, &domain.DecodeError{Err: fmt.Errorf("content type %s is not an image", mimeType)}
}
