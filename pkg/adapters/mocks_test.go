package adapters

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/shouni/go-http-kit/pkg/httpkit"
)

// --- Mocks ---

// mockHTTPClient は httpkit.ClientInterface のうち FetchBytes と IsSafeURL だけを実装します。
// それ以外のメソッドを呼ぶと panic します。
type mockHTTPClient struct {
	httpkit.ClientInterface

	calls   int
	data    []byte
	err     error
	checked []string
	unsafe  error
}

func (m *mockHTTPClient) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	m.calls++
	return m.data, m.err
}

func (m *mockHTTPClient) IsSafeURL(url string) (bool, error) {
	m.checked = append(m.checked, url)
	if m.unsafe != nil {
		return false, m.unsafe
	}
	return true, nil
}

type mockReader struct {
	opened string
	data   []byte
	err    error
}

func (m *mockReader) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	m.opened = uri
	if m.err != nil {
		return nil, m.err
	}
	return io.NopCloser(bytes.NewReader(m.data)), nil
}

func (m *mockReader) List(ctx context.Context, uri string, fn func(string) error) error {
	return nil
}

type mockCache struct {
	data map[string]any
}

func (m *mockCache) Get(key string) (any, bool) {
	val, ok := m.data[key]
	return val, ok
}

func (m *mockCache) Set(key string, value any, d time.Duration) {
	m.data[key] = value
}
