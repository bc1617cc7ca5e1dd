package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shouni/gemini-tryon-kit/pkg/domain"
	"golang.org/x/time/rate"
)

var _ Generator = (*TryOnGenerator)(nil)

// TryOnGenerator はリクエストの組み立て、送信、応答の解析を一括で行う試着画像ジェネレーターです。
// 状態を持たないため、複数の goroutine から同時に利用できます。
type TryOnGenerator struct {
	dispatcher  Dispatcher
	instruction string
	limiter     *rate.Limiter
	logger      *slog.Logger
	shapes      []shapeMatcher
}

// Option は TryOnGenerator の設定を変更します。
type Option func(*TryOnGenerator)

// WithInstruction は画像の後ろに付ける指示文を差し替えます（多言語化用）。
func WithInstruction(text string) Option {
	return func(g *TryOnGenerator) {
		if s := strings.TrimSpace(text); s != "" {
			g.instruction = s
		}
	}
}

// WithLimiter は送信前に待機するレートリミッターを設定します。リトライは行いません。
func WithLimiter(l *rate.Limiter) Option {
	return func(g *TryOnGenerator) {
		g.limiter = l
	}
}

// WithLogger はログ出力先を差し替えます。
func WithLogger(l *slog.Logger) Option {
	return func(g *TryOnGenerator) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewTryOnGenerator は Dispatcher を注入して TryOnGenerator を初期化します。
func NewTryOnGenerator(dispatcher Dispatcher, opts ...Option) (*TryOnGenerator, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	g := &TryOnGenerator{
		dispatcher:  dispatcher,
		instruction: DefaultInstruction,
		logger:      slog.Default(),
		shapes:      responseShapes,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Generate は人物画像・衣服画像・指示文の順でリクエストを組み立て、1 回だけ送信します。
// 画像が得られなかった場合は、応答のテキストを含む *domain.NoImageReturnedError を返します。
func (g *TryOnGenerator) Generate(ctx context.Context, person, garment domain.EncodedImage) (*domain.GenerationResult, error) {
	parts, err := BuildParts(person, garment, g.instruction)
	if err != nil {
		return nil, err
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, &domain.NetworkError{Err: err}
		}
	}

	start := time.Now()
	env, err := g.dispatcher.Dispatch(ctx, parts)
	if err != nil {
		err = classify(err)
		g.logger.WarnContext(ctx, "試着画像の生成リクエストに失敗しました", "error", err, "elapsed", time.Since(start))
		return nil, err
	}

	res, shape, err := resolve(env, g.shapes)
	if err != nil {
		g.logger.WarnContext(ctx, "応答に画像が含まれていませんでした", "error", err, "elapsed", time.Since(start))
		return nil, err
	}

	g.logger.InfoContext(ctx, "試着画像を生成しました", "shape", shape, "has_text", res.Text != "", "elapsed", time.Since(start))
	return res, nil
}

// classify は分類済みでないエラーを *domain.NetworkError として扱います。
func classify(err error) error {
	var (
		httpErr *domain.ProxyHTTPError
		netErr  *domain.NetworkError
		noImage *domain.NoImageReturnedError
	)
	if errors.As(err, &httpErr) || errors.As(err, &netErr) || errors.As(err, &noImage) {
		return err
	}
	return &domain.NetworkError{Err: err}
}
