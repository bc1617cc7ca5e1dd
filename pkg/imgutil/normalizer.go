package imgutil

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"
	"net/http"

	"github.com/shouni/gemini-tryon-kit/pkg/domain"
	"golang.org/x/image/draw"
)

const (
	// MaxDimension は正規化後の長辺の上限（px）です。
	MaxDimension = 1024
	// JPEGQuality は再エンコード時の品質です。
	JPEGQuality = 90

	defaultMaxCanvasPixels = 1 << 26
	defaultMaxSourcePixels = 1 << 27
)

// Normalizer は任意形式の画像をデコードし、長辺を MaxDimension 以下に縮小したうえで
// JPEG に再エンコードします。状態を持たないので並行して呼び出せます。
type Normalizer struct {
	maxDimension    int
	quality         int
	maxCanvasPixels int
	maxSourcePixels int
	logger          *slog.Logger
	encode          func(image.Image, int) ([]byte, error)
}

// Option は Normalizer の設定を変更します。
type Option func(*Normalizer)

// WithMaxDimension は長辺の上限を変更します。
func WithMaxDimension(px int) Option {
	return func(n *Normalizer) {
		if px > 0 {
			n.maxDimension = px
		}
	}
}

// WithQuality は JPEG 品質（1〜100）を変更します。
func WithQuality(q int) Option {
	return func(n *Normalizer) {
		if q >= 1 && q <= 100 {
			n.quality = q
		}
	}
}

// WithMaxCanvasPixels は確保できるキャンバスの最大ピクセル数を変更します。
func WithMaxCanvasPixels(px int) Option {
	return func(n *Normalizer) {
		n.maxCanvasPixels = px
	}
}

// WithMaxSourcePixels はデコードを許可する入力画像の最大ピクセル数を変更します。
func WithMaxSourcePixels(px int) Option {
	return func(n *Normalizer) {
		n.maxSourcePixels = px
	}
}

// WithLogger はログ出力先を差し替えます。
func WithLogger(l *slog.Logger) Option {
	return func(n *Normalizer) {
		if l != nil {
			n.logger = l
		}
	}
}

// NewNormalizer はデフォルト設定（1024px / 品質90）の Normalizer を作成します。
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{
		maxDimension:    MaxDimension,
		quality:         JPEGQuality,
		maxCanvasPixels: defaultMaxCanvasPixels,
		maxSourcePixels: defaultMaxSourcePixels,
		logger:          slog.Default(),
		encode:          compressToJPEG,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize は画像をデコード・縮小・再エンコードし、転送用の EncodedImage を返します。
// 失敗時は *domain.DecodeError または *domain.CanvasUnavailableError を返します。
func (n *Normalizer) Normalize(ctx context.Context, raw domain.RawImage) (domain.EncodedImage, error) {
	if err := ctx.Err(); err != nil {
		return domain.EncodedImage{}, err
	}

	src, format, err := n.decode(raw.Data)
	if err != nil {
		return domain.EncodedImage{}, err
	}
	if raw.MIMEType != "" && raw.MIMEType != "image/"+format {
		n.logger.DebugContext(ctx, "申告されたMIMEタイプと実際のフォーマットが異なります",
			"declared", raw.MIMEType, "detected", format, "sniffed", http.DetectContentType(raw.Data))
	}

	bounds := src.Bounds()
	width, height := TargetSize(bounds.Dx(), bounds.Dy(), n.maxDimension)

	if err := ctx.Err(); err != nil {
		return domain.EncodedImage{}, err
	}

	canvas, err := n.newCanvas(width, height)
	if err != nil {
		return domain.EncodedImage{}, err
	}
	render(canvas, src)

	// キャンバスを書き出せないのは入力ではなく描画環境の問題なので CanvasUnavailableError とします。
	data, err := n.encode(canvas, n.quality)
	if err != nil {
		return domain.EncodedImage{}, &domain.CanvasUnavailableError{
			Width: width, Height: height,
			Err: fmt.Errorf("encode jpeg: %w", err),
		}
	}

	n.logger.DebugContext(ctx, "画像を正規化しました",
		"format", format,
		"src_width", bounds.Dx(), "src_height", bounds.Dy(),
		"width", width, "height", height,
		"bytes", len(data))

	return domain.EncodedImage{
		Data:     encodeBase64(data),
		MIMEType: domain.CanonicalMIMEType,
	}, nil
}

func (n *Normalizer) decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", &domain.DecodeError{Err: fmt.Errorf("empty input")}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", &domain.DecodeError{Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", &domain.DecodeError{Err: fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height)}
	}
	if n.maxSourcePixels > 0 && cfg.Width*cfg.Height > n.maxSourcePixels {
		return nil, "", &domain.DecodeError{Err: fmt.Errorf("source %dx%d exceeds %d pixels", cfg.Width, cfg.Height, n.maxSourcePixels)}
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", &domain.DecodeError{Err: err}
	}
	return img, format, nil
}

func (n *Normalizer) newCanvas(width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, &domain.CanvasUnavailableError{Width: width, Height: height, Err: fmt.Errorf("non-positive size")}
	}
	if n.maxCanvasPixels > 0 && width*height > n.maxCanvasPixels {
		return nil, &domain.CanvasUnavailableError{
			Width: width, Height: height,
			Err: fmt.Errorf("exceeds %d pixels", n.maxCanvasPixels),
		}
	}
	return image.NewRGBA(image.Rect(0, 0, width, height)), nil
}

// render は白背景のキャンバスに src を描画します。サイズが異なる場合は Catmull-Rom で縮小します。
// JPEG はアルファを持たないため、透過部分は白になります。
func render(dst *image.RGBA, src image.Image) {
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)

	sb := src.Bounds()
	if sb.Dx() == dst.Bounds().Dx() && sb.Dy() == dst.Bounds().Dy() {
		draw.Draw(dst, dst.Bounds(), src, sb.Min, draw.Over)
		return
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, draw.Over, nil)
}

// TargetSize は長辺が maxDim を超える場合にアスペクト比を保って縮小したサイズを返します。
// 各辺は最も近い整数に丸め、最小 1px とします。超えない場合はそのまま返します。
func TargetSize(width, height, maxDim int) (int, int) {
	longer := max(width, height)
	if maxDim <= 0 || longer <= maxDim {
		return width, height
	}
	ratio := float64(maxDim) / float64(longer)
	w := int(math.Round(float64(width) * ratio))
	h := int(math.Round(float64(height) * ratio))
	return max(w, 1), max(h, 1)
}
