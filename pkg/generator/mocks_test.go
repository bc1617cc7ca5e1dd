package generator

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/jpeg"
	"testing"

	"github.com/shouni/gemini-tryon-kit/pkg/domain"
	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// --- Mocks ---

// mockDispatcher は送信されたパーツを記録し、固定の応答を返します。
type mockDispatcher struct {
	calls    int
	lastPart []*genai.Part
	env      *Envelope
	err      error
}

func (m *mockDispatcher) Dispatch(ctx context.Context, parts []*genai.Part) (*Envelope, error) {
	m.calls++
	m.lastPart = parts
	return m.env, m.err
}

// mockAIClient は go-gemini-client の GenerateWithParts を模倣します。
type mockAIClient struct {
	lastModel string
	lastParts []*genai.Part
	resp      *gemini.Response
	err       error
}

func (m *mockAIClient) GenerateWithParts(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
	m.lastModel = model
	m.lastParts = parts
	return m.resp, m.err
}

// --- Helpers ---

// encodedJPEG は w x h の小さな JPEG を EncodedImage として返します。
func encodedJPEG(t *testing.T, w, h int) domain.EncodedImage {
	t.Helper()
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, image.NewGray(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	return domain.EncodedImage{
		Data:     base64.StdEncoding.EncodeToString(buf.Bytes()),
		MIMEType: "image/jpeg",
	}
}

func imageEnvelope(mimeType, data, text string) *Envelope {
	parts := []Part{{InlineData: &Blob{MimeType: mimeType, Data: data}}}
	if text != "" {
		parts = append(parts, Part{Text: text})
	}
	return &Envelope{Candidates: []Candidate{{Content: Content{Parts: parts}}}}
}
