package generator

import (
	"context"
	"errors"
	"time"

	"github.com/shouni/gemini-tryon-kit/pkg/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/shouni/gemini-tryon-kit/pkg/generator"

type observableGenerator struct {
	name      string
	generator Generator

	duration metric.Float64Histogram
}

// NewObservable は Generator をトレースとメトリクスで包みます。
// グローバルプロバイダーが未設定なら何も記録されません。
func NewObservable(name string, g Generator) Generator {
	meter := otel.Meter(instrumentationName)
	duration, _ := meter.Float64Histogram("tryon.generate.duration",
		metric.WithDescription("Duration of try-on generation calls"),
		metric.WithUnit("s"),
	)

	return &observableGenerator{
		name:      name,
		generator: g,
		duration:  duration,
	}
}

func (o *observableGenerator) Generate(ctx context.Context, person, garment domain.EncodedImage) (*domain.GenerationResult, error) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "tryon.generate "+o.name)
	defer span.End()

	start := time.Now()
	result, err := o.generator.Generate(ctx, person, garment)

	attrs := []attribute.KeyValue{
		attribute.String("tryon.generator", o.name),
		attribute.String("tryon.outcome", outcome(err)),
	}
	span.SetAttributes(attrs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if o.duration != nil {
		o.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attrs...))
	}

	return result, err
}

// outcome はエラー種別をメトリクス用のラベルに変換します。
func outcome(err error) string {
	var (
		httpErr *domain.ProxyHTTPError
		netErr  *domain.NetworkError
		noImage *domain.NoImageReturnedError
		input   *domain.InvalidInputError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &noImage):
		return "no_image"
	case errors.As(err, &httpErr):
		return "http_error"
	case errors.As(err, &netErr):
		return "network_error"
	case errors.As(err, &input):
		return "invalid_input"
	default:
		return "error"
	}
}
