package generator

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/shouni/gemini-tryon-kit/pkg/domain"
	"google.golang.org/genai"
)

// BuildParts は [人物画像, 衣服画像, 指示文] の順でパーツを組み立てます。
// 1 枚目が顔・体型・ポーズの基準、2 枚目が衣服の基準なので順序は固定です。
func BuildParts(person, garment domain.EncodedImage, instruction string) ([]*genai.Part, error) {
	personPart, err := toPart("person image", person)
	if err != nil {
		return nil, err
	}
	garmentPart, err := toPart("garment image", garment)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(instruction) == "" {
		instruction = DefaultInstruction
	}

	return []*genai.Part{
		personPart,
		garmentPart,
		genai.NewPartFromText(instruction),
	}, nil
}

func toPart(field string, img domain.EncodedImage) (*genai.Part, error) {
	if img.MIMEType == "" {
		return nil, &domain.InvalidInputError{Field: field, Reason: "mime type is empty"}
	}
	payload := domain.StripDataURIHeader(img.Data)
	if payload == "" {
		return nil, &domain.InvalidInputError{Field: field, Reason: "image data is empty"}
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, &domain.InvalidInputError{Field: field, Reason: "image data is not valid base64"}
	}
	return &genai.Part{
		InlineData: &genai.Blob{
			MIMEType: img.MIMEType,
			Data:     data,
		},
	}, nil
}

// shapeMatcher は応答形式を 1 つだけ判定します。形式が違えば ok=false を返します。
type shapeMatcher struct {
	name  string
	match func(parts []Part) (*domain.GenerationResult, bool)
}

// responseShapes は先頭から順に試されます。新しい形式はここへ追加します。
var responseShapes = []shapeMatcher{
	{name: "direct-parts", match: matchDirectParts},
	{name: "wrapped-json", match: matchWrappedJSON},
}

// resolve は応答を GenerationResult に収束させます。どの形式でも画像が見つからなければ
// *domain.NoImageReturnedError を返します。
func resolve(env *Envelope, shapes []shapeMatcher) (*domain.GenerationResult, string, error) {
	parts := env.parts()
	for _, s := range shapes {
		if res, ok := s.match(parts); ok && res.ImageURL != "" {
			return res, s.name, nil
		}
	}

	noImage := &domain.NoImageReturnedError{
		Text:         explain(parts),
		FinishReason: env.finishReason(),
	}
	if env != nil {
		if env.PromptFeedback != nil {
			noImage.BlockReason = env.PromptFeedback.BlockReason
			if noImage.Text == "" {
				noImage.Text = env.PromptFeedback.BlockReasonMessage
			}
		}
		if noImage.Text == "" && env.Error != nil {
			noImage.Text = env.Error.Message
		}
	}
	return nil, "", noImage
}

// matchDirectParts は最初の画像パーツと最初のテキストパーツを順序に関係なく拾います。
func matchDirectParts(parts []Part) (*domain.GenerationResult, bool) {
	res := &domain.GenerationResult{}
	for _, p := range parts {
		// 思考パーツの画像は途中経過なので採用しません。
		if p.Thought {
			continue
		}
		if p.InlineData != nil && p.InlineData.Data != "" {
			if res.ImageURL == "" {
				res.ImageURL = domain.FormatDataURI(firstNonEmpty(p.InlineData.MimeType, defaultWrappedMIMEType), p.InlineData.Data)
			}
			continue
		}
		if res.Text == "" {
			res.Text = strings.TrimSpace(p.Text)
		}
	}
	return res, res.ImageURL != ""
}

// matchWrappedJSON はテキストパーツに埋め込まれた {generatedImage, commentary} を解析します。
func matchWrappedJSON(parts []Part) (*domain.GenerationResult, bool) {
	for _, p := range parts {
		if p.Thought {
			continue
		}
		doc, ok := parseWrapped(p.Text)
		if !ok || doc.GeneratedImage == nil || doc.GeneratedImage.ImageBytes == "" {
			continue
		}
		mimeType := doc.GeneratedImage.MimeType
		if mimeType == "" {
			mimeType = defaultWrappedMIMEType
		}
		return &domain.GenerationResult{
			ImageURL: domain.FormatDataURI(mimeType, domain.StripDataURIHeader(doc.GeneratedImage.ImageBytes)),
			Text:     strings.TrimSpace(doc.Commentary),
		}, true
	}
	return nil, false
}

func parseWrapped(text string) (*wrappedDocument, bool) {
	body := stripCodeFence(text)
	if !strings.HasPrefix(body, "{") {
		return nil, false
	}
	var doc wrappedDocument
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, false
	}
	return &doc, true
}

// explain は画像がなかった場合に呼び出し側へ見せる説明文を選びます。
func explain(parts []Part) string {
	for _, p := range parts {
		if p.Thought {
			continue
		}
		text := strings.TrimSpace(p.Text)
		if text == "" {
			continue
		}
		if doc, ok := parseWrapped(text); ok && strings.TrimSpace(doc.Commentary) != "" {
			return strings.TrimSpace(doc.Commentary)
		}
		return text
	}
	return ""
}
