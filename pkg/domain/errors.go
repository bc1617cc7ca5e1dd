package domain

import (
	"fmt"
	"strings"
)

// パイプラインが返すエラーはすべて以下のいずれかの型です。
// 呼び出し側はメッセージを解析せず errors.As で種別を判定してください。
// どのエラーも内部でリトライされることはありません。

// DecodeError は入力バイト列が画像として認識できなかったことを表します。
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return "image could not be decoded"
	}
	return "image could not be decoded: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// CanvasUnavailableError は描画先のキャンバスを確保できなかったことを表します。
// 環境起因の致命的なエラーとして扱います。
type CanvasUnavailableError struct {
	Width, Height int
	Err           error
}

func (e *CanvasUnavailableError) Error() string {
	msg := fmt.Sprintf("canvas %dx%d is unavailable", e.Width, e.Height)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CanvasUnavailableError) Unwrap() error { return e.Err }

// NoImageReturnedError は HTTP としては成功したが画像が含まれていなかったことを表します。
// Text にはサービスが返した説明文（安全フィルターによる拒否理由など）が入ります。
type NoImageReturnedError struct {
	Text         string
	FinishReason string
	BlockReason  string
	Err          error
}

func (e *NoImageReturnedError) Error() string {
	var b strings.Builder
	b.WriteString("no image was returned by the generation service")
	if e.BlockReason != "" {
		b.WriteString(" (blocked: ")
		b.WriteString(e.BlockReason)
		b.WriteString(")")
	} else if e.FinishReason != "" {
		b.WriteString(" (finish reason: ")
		b.WriteString(e.FinishReason)
		b.WriteString(")")
	}
	if e.Text != "" {
		b.WriteString(": ")
		b.WriteString(e.Text)
	}
	return b.String()
}

func (e *NoImageReturnedError) Unwrap() error { return e.Err }

// ProxyHTTPError はエンドポイントが 2xx 以外のステータスを返したことを表します。
type ProxyHTTPError struct {
	Status  int
	Message string
}

func (e *ProxyHTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("proxy error (%d)", e.Status)
	}
	return fmt.Sprintf("proxy error (%d): %s", e.Status, e.Message)
}

// NetworkError は接続拒否・名前解決失敗・通信中断など、応答を得られなかったことを表します。
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	if e.Err == nil {
		return "network error while calling the generation service"
	}
	return "network error while calling the generation service: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error { return e.Err }

// InvalidInputError は呼び出し側から渡された値が不正なことを表します。
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
