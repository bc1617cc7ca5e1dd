package generator

import (
	"context"

	"github.com/shouni/gemini-tryon-kit/pkg/domain"
	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// Generator はビジネスロジック層が利用する試着画像生成の窓口です。
type Generator interface {
	// Generate は人物画像と衣服画像から試着画像を 1 枚生成します。
	// 人物画像は顔・体型・ポーズの基準、衣服画像は着せる服の基準として扱われ、順序は入れ替えません。
	Generate(ctx context.Context, person, garment domain.EncodedImage) (*domain.GenerationResult, error)
}

// Dispatcher は組み立て済みのパーツをリモートサービスへ 1 回だけ送信し、応答を Envelope に変換します。
// 返すエラーは *domain.ProxyHTTPError か *domain.NetworkError のいずれかにしてください。
type Dispatcher interface {
	Dispatch(ctx context.Context, parts []*genai.Part) (*Envelope, error)
}

// PartsGenerator は go-gemini-client のモデルのうち、SDKDispatcher が利用する部分だけを切り出したものです。
type PartsGenerator interface {
	GenerateWithParts(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error)
}
