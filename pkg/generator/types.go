package generator

import (
	"encoding/json"
	"time"

	"google.golang.org/genai"
)

const (
	// DefaultAPIKeyHeader はプロキシへ API キーを渡すときのヘッダー名です。
	DefaultAPIKeyHeader = "x-goog-api-key"
	// DefaultProxyTimeout は画像生成 1 回あたりの既定タイムアウトです。
	DefaultProxyTimeout = 120 * time.Second
	// defaultWrappedMIMEType は wrapped-JSON 形式で mimeType が省略された場合の値です。
	defaultWrappedMIMEType = "image/png"
	maxErrorBodyBytes      = 1 << 20
)

// generateContentRequest はプロキシへ送る JSON ボディです。
type generateContentRequest struct {
	Contents []*genai.Content `json:"contents"`
}

// Envelope はリモートサービスの応答を形式に依存しない形で保持します。
// Data は受信した base64 文字列をそのまま保持します。
type Envelope struct {
	Candidates     []Candidate     `json:"candidates"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
	Error          *APIError       `json:"error,omitempty"`
}

type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inlineData,omitempty"`
	Thought    bool   `json:"thought,omitempty"`
}

type Blob struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type PromptFeedback struct {
	BlockReason        string `json:"blockReason,omitempty"`
	BlockReasonMessage string `json:"blockReasonMessage,omitempty"`
}

// APIError は {"error":{"code":..,"message":..}} 形式のエラー本文です。
type APIError struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Status  string `json:"status,omitempty"`
}

// UnmarshalJSON は {"error":"message"} のような文字列だけのエラーも受け付けます。
func (e *APIError) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		e.Message = s
		return nil
	}
	type plain APIError
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*e = APIError(p)
	return nil
}

// errorEnvelope は 2xx 以外の応答本文を解釈するための型です。
type errorEnvelope struct {
	Error *APIError `json:"error"`
}

// wrappedDocument は単一のテキストパーツに JSON として埋め込まれた応答です。
type wrappedDocument struct {
	GeneratedImage *struct {
		ImageBytes string `json:"imageBytes"`
		MimeType   string `json:"mimeType"`
	} `json:"generatedImage"`
	Commentary string `json:"commentary"`
}

// parts はすべての候補のパーツを候補順に平坦化して返します。
func (e *Envelope) parts() []Part {
	if e == nil {
		return nil
	}
	var out []Part
	for _, c := range e.Candidates {
		out = append(out, c.Content.Parts...)
	}
	return out
}

func (e *Envelope) finishReason() string {
	if e == nil {
		return ""
	}
	for _, c := range e.Candidates {
		if c.FinishReason != "" {
			return c.FinishReason
		}
	}
	return ""
}

// textEnvelope は本文全体を 1 つのテキストパーツとして包みます。
func textEnvelope(text string) *Envelope {
	return &Envelope{
		Candidates: []Candidate{{
			Content: Content{Parts: []Part{{Text: text}}},
		}},
	}
}
