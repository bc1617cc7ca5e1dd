package domain

import "strings"

// CanonicalMIMEType は正規化後のすべての画像が持つメディアタイプです。
const CanonicalMIMEType = "image/jpeg"

// RawImage は呼び出し側が用意した未加工の画像バイナリです。
// MIMEType は申告値であり、実際のフォーマット判定はデコーダが行います。
type RawImage struct {
	Data     []byte
	MIMEType string
}

// EncodedImage は転送用に正規化された画像です（base64 + メディアタイプ）。
// フィールドが等しければ同一とみなせる値型なので、コピーして渡してください。
type EncodedImage struct {
	Data     string
	MIMEType string
}

// DataURI は画像を data URI 形式で返します。
func (e EncodedImage) DataURI() string {
	return FormatDataURI(e.MIMEType, e.Data)
}

// GenerationResult は試着画像生成の最終成果物です。
// ImageURL は必ず空でない data URI で、Text はモデルのコメント（任意）です。
type GenerationResult struct {
	ImageURL string
	Text     string
}

// FormatDataURI は data:<mimeType>;base64,<data> を組み立てます。
func FormatDataURI(mimeType, data string) string {
	var b strings.Builder
	b.Grow(len("data:;base64,") + len(mimeType) + len(data))
	b.WriteString("data:")
	b.WriteString(mimeType)
	b.WriteString(";base64,")
	b.WriteString(data)
	return b.String()
}

// StripDataURIHeader は data URI のヘッダー部分を取り除き、base64 ペイロードだけを返します。
// data URI でない文字列はそのまま返します。
func StripDataURIHeader(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if i := strings.Index(s, ","); i >= 0 {
		return s[i+1:]
	}
	return s
}
