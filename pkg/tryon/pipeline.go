package tryon

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/gemini-tryon-kit/pkg/config"
	"github.com/shouni/gemini-tryon-kit/pkg/domain"
	"github.com/shouni/gemini-tryon-kit/pkg/generator"
	"github.com/shouni/gemini-tryon-kit/pkg/imgutil"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ImageNormalizer は画像を転送用の形式に正規化します。
type ImageNormalizer interface {
	Normalize(ctx context.Context, raw domain.RawImage) (domain.EncodedImage, error)
}

// Pipeline は呼び出し側（UI など）に公開する境界です。
// Normalize と Generate の 2 つの入口と、それらをまとめた TryOn を提供します。
type Pipeline struct {
	normalizer ImageNormalizer
	generator  generator.Generator
}

// New は依存関係を注入して Pipeline を作成します。
func New(normalizer ImageNormalizer, gen generator.Generator) (*Pipeline, error) {
	if normalizer == nil {
		return nil, fmt.Errorf("normalizer is required")
	}
	if gen == nil {
		return nil, fmt.Errorf("generator is required")
	}
	return &Pipeline{normalizer: normalizer, generator: gen}, nil
}

// NewFromConfig は設定値からプロキシ経由の Pipeline を組み立てます。
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	dispatcher, err := generator.NewProxyDispatcher(generator.ProxyConfig{
		Endpoint:            cfg.ProxyURL,
		APIKey:              cfg.APIKey,
		APIKeyHeader:        cfg.APIKeyHeader,
		Timeout:             cfg.ProxyTimeout,
		AllowPrivateNetwork: cfg.AllowPrivateNetwork,
	})
	if err != nil {
		return nil, fmt.Errorf("proxy dispatcher: %w", err)
	}

	opts := []generator.Option{
		generator.WithInstruction(cfg.Instruction),
		generator.WithLogger(logger),
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, generator.WithLimiter(rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)))
	}
	gen, err := generator.NewTryOnGenerator(dispatcher, opts...)
	if err != nil {
		return nil, err
	}

	normalizer := imgutil.NewNormalizer(
		imgutil.WithMaxDimension(cfg.MaxDimension),
		imgutil.WithQuality(cfg.JPEGQuality),
		imgutil.WithLogger(logger),
	)
	return New(normalizer, generator.NewObservable("proxy", gen))
}

// Normalize は 1 枚の画像を正規化します。
func (p *Pipeline) Normalize(ctx context.Context, raw domain.RawImage) (domain.EncodedImage, error) {
	return p.normalizer.Normalize(ctx, raw)
}

// Generate は正規化済みの 2 枚から試着画像を生成します。
func (p *Pipeline) Generate(ctx context.Context, person, garment domain.EncodedImage) (*domain.GenerationResult, error) {
	return p.generator.Generate(ctx, person, garment)
}

// TryOn は 2 枚の画像を並行して正規化し、両方が揃ってから生成します。
// どちらかの正規化に失敗した時点で中断し、そのエラーを返します。
func (p *Pipeline) TryOn(ctx context.Context, person, garment domain.RawImage) (*domain.GenerationResult, error) {
	personImg, garmentImg, err := p.NormalizePair(ctx, person, garment)
	if err != nil {
		return nil, err
	}
	return p.Generate(ctx, personImg, garmentImg)
}

// NormalizePair は人物画像と衣服画像を並行して正規化します。
func (p *Pipeline) NormalizePair(ctx context.Context, person, garment domain.RawImage) (domain.EncodedImage, domain.EncodedImage, error) {
	var personImg, garmentImg domain.EncodedImage

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		img, err := p.normalizer.Normalize(gctx, person)
		if err != nil {
			return fmt.Errorf("person image: %w", err)
		}
		personImg = img
		return nil
	})
	g.Go(func() error {
		img, err := p.normalizer.Normalize(gctx, garment)
		if err != nil {
			return fmt.Errorf("garment image: %w", err)
		}
		garmentImg = img
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.EncodedImage{}, domain.EncodedImage{}, err
	}
	return personImg, garmentImg, nil
}
