package generator

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/shouni/gemini-tryon-kit/pkg/domain"
	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

var _ Dispatcher = (*SDKDispatcher)(nil)

// SDKDispatcher はプロキシを経由せず、go-gemini-client のモデルで直接生成します。
// 応答は ProxyDispatcher と同じ Envelope に変換されるため、解析処理は共通です。
type SDKDispatcher struct {
	client PartsGenerator
	model  string
}

// NewSDKDispatcher は依存関係を注入して SDKDispatcher を初期化します。
func NewSDKDispatcher(client PartsGenerator, model string) (*SDKDispatcher, error) {
	if client == nil {
		return nil, fmt.Errorf("client (PartsGenerator) is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	return &SDKDispatcher{client: client, model: model}, nil
}

// Dispatch はパーツをそのままモデルへ渡します。
func (d *SDKDispatcher) Dispatch(ctx context.Context, parts []*genai.Part) (*Envelope, error) {
	resp, err := d.client.GenerateWithParts(ctx, d.model, parts, gemini.GenerateOptions{})
	if err != nil {
		return nil, classifySDKError(err)
	}
	if resp == nil || resp.RawResponse == nil {
		return &Envelope{}, nil
	}
	return envelopeFromGenAI(resp.RawResponse), nil
}

// classifySDKError は genai.APIError を HTTP エラーに、それ以外を通信エラーに分類します。
func classifySDKError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &domain.ProxyHTTPError{Status: apiErr.Code, Message: firstNonEmpty(apiErr.Message, apiErr.Status)}
	}
	return &domain.NetworkError{Err: err}
}

// envelopeFromGenAI は SDK の応答を Envelope に変換します。画像データは base64 に戻します。
func envelopeFromGenAI(raw *genai.GenerateContentResponse) *Envelope {
	env := &Envelope{}
	for _, c := range raw.Candidates {
		if c == nil {
			continue
		}
		cand := Candidate{FinishReason: string(c.FinishReason)}
		if c.Content != nil {
			for _, p := range c.Content.Parts {
				if p == nil {
					continue
				}
				part := Part{Text: p.Text, Thought: p.Thought}
				if p.InlineData != nil && len(p.InlineData.Data) > 0 {
					part.InlineData = &Blob{
						MimeType: p.InlineData.MIMEType,
						Data:     base64.StdEncoding.EncodeToString(p.InlineData.Data),
					}
				}
				cand.Content.Parts = append(cand.Content.Parts, part)
			}
		}
		env.Candidates = append(env.Candidates, cand)
	}
	if raw.PromptFeedback != nil {
		env.PromptFeedback = &PromptFeedback{
			BlockReason:        string(raw.PromptFeedback.BlockReason),
			BlockReasonMessage: raw.PromptFeedback.BlockReasonMessage,
		}
	}
	return env
}
