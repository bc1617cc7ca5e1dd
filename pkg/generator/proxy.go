package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shouni/gemini-tryon-kit/pkg/domain"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"google.golang.org/genai"
)

var _ Dispatcher = (*ProxyDispatcher)(nil)

// ProxyConfig はプロキシエンドポイントへの接続設定です。セッションごとに生成して注入します。
type ProxyConfig struct {
	Endpoint string
	// APIKey が空でなければ APIKeyHeader に付与します。
	APIKey       string
	APIKeyHeader string
	// Timeout は既定クライアントのタイムアウトです。0 なら DefaultProxyTimeout です。
	Timeout time.Duration
	// AllowPrivateNetwork が true なら、ローカルや社内ネットワーク上のプロキシへの接続を許可します。
	AllowPrivateNetwork bool
	// HTTPClient が nil の場合は httpkit.New で作成したクライアントを使用します。
	// Do だけを使うので httpkit のリトライは適用されません。
	HTTPClient httpkit.Doer
}

// ProxyDispatcher は generateContent 互換のプロキシへ JSON を POST します。
type ProxyDispatcher struct {
	endpoint     string
	apiKey       string
	apiKeyHeader string
	httpClient   httpkit.Doer
}

// NewProxyDispatcher は設定を検証して ProxyDispatcher を作成します。
func NewProxyDispatcher(cfg ProxyConfig) (*ProxyDispatcher, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	u, err := url.ParseRequestURI(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid endpoint scheme: %s", u.Scheme)
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultProxyTimeout
		}
		client = httpkit.New(timeout, httpkit.WithSkipNetworkValidation(cfg.AllowPrivateNetwork))
	}
	header := strings.TrimSpace(cfg.APIKeyHeader)
	if header == "" {
		header = DefaultAPIKeyHeader
	}

	return &ProxyDispatcher{
		endpoint:     endpoint,
		apiKey:       strings.TrimSpace(cfg.APIKey),
		apiKeyHeader: header,
		httpClient:   client,
	}, nil
}

// Dispatch はパーツを 1 つのユーザーターンに包んで送信します。リトライは行いません。
func (d *ProxyDispatcher) Dispatch(ctx context.Context, parts []*genai.Part) (*Envelope, error) {
	payload := generateContentRequest{
		Contents: []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.apiKey != "" {
		req.Header.Set(d.apiKeyHeader, d.apiKey)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, &domain.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, readHTTPError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.NetworkError{Err: fmt.Errorf("read response: %w", err)}
	}
	return decodeEnvelope(data), nil
}

// readHTTPError は JSON のエラー本文から message を取り出し、なければ本文をそのまま使います。
// 本文を最後まで読めなかった場合はステータス文言にします。
func readHTTPError(resp *http.Response) *domain.ProxyHTTPError {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil {
		return &domain.ProxyHTTPError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error != nil && envelope.Error.Message != "" {
		return &domain.ProxyHTTPError{Status: resp.StatusCode, Message: envelope.Error.Message}
	}

	return &domain.ProxyHTTPError{
		Status:  resp.StatusCode,
		Message: firstNonEmpty(string(data), http.StatusText(resp.StatusCode)),
	}
}

// decodeEnvelope は 2xx の本文を Envelope に変換します。
// JSON でない本文や、トップレベルに generatedImage を持つ本文はテキストパーツとして扱います。
func decodeEnvelope(data []byte) *Envelope {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return textEnvelope(strings.TrimSpace(string(data)))
	}
	if len(env.Candidates) == 0 && env.Error == nil && env.PromptFeedback == nil {
		if doc, ok := parseWrapped(string(data)); ok && doc.GeneratedImage != nil {
			return textEnvelope(string(data))
		}
	}
	return &env
}
