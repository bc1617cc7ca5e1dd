package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodedImage_DataURI(t *testing.T) {
	img := EncodedImage{Data: "AAEC", MIMEType: "image/jpeg"}
	assert.Equal(t, "data:image/jpeg;base64,AAEC", img.DataURI())
}

func TestEncodedImage_Equality(t *testing.T) {
	t.Run("フィールドが等しければ同一の値として扱える", func(t *testing.T) {
		a := EncodedImage{Data: "AAEC", MIMEType: CanonicalMIMEType}
		b := EncodedImage{Data: "AAEC", MIMEType: CanonicalMIMEType}
		assert.Equal(t, a, b)
		assert.True(t, a == b)
	})
}

func TestStripDataURIHeader(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"data URI", "data:image/png;base64,iVBORw0", "iVBORw0"},
		{"ペイロードのみ", "iVBORw0", "iVBORw0"},
		{"カンマなし", "data:image/png", "data:image/png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripDataURIHeader(tt.in))
		})
	}
}
