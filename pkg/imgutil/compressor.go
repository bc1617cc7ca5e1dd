package imgutil

import (
	"bytes"
	"encoding/base64"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// compressToJPEG はキャンバスを指定品質の JPEG にエンコードします。
func compressToJPEG(img image.Image, quality int) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeBase64 は data URI のヘッダーを含まない純粋な base64 ペイロードを返します。
func encodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
