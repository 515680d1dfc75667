package diagnostic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngImage() []byte {
	return append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
}

func jpegImage() []byte {
	return append([]byte("\xff\xd8\xff\xe0"), make([]byte, 64)...)
}

func webpImage() []byte {
	data := append([]byte("RIFF"), make([]byte, 4)...)
	return append(data, []byte("WEBPVP8 ")...)
}

func TestValidateImagesDetectsTypes(t *testing.T) {
	types, errs := ValidateImages([]ImageUpload{
		{Name: "engine.png", Data: pngImage()},
		{Name: "dash.jpg", Data: jpegImage()},
		{Name: "leak.webp", Data: webpImage()},
	})
	require.Empty(t, errs)
	assert.Equal(t, []string{"image/png", "image/jpeg", "image/webp"}, types)
}

func TestValidateImagesRejectsUnsupportedFormat(t *testing.T) {
	_, errs := ValidateImages([]ImageUpload{
		{Name: "notes.txt", Data: []byte("pas une image du tout, juste du texte")},
	})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "notes.txt: unsupported format")
}

func TestValidateImagesIgnoresClientFilename(t *testing.T) {
	// A text payload named .png is still rejected; only sniffing counts.
	_, errs := ValidateImages([]ImageUpload{
		{Name: "fake.png", Data: []byte("plain text pretending to be a photo")},
	})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "unsupported format")
}

func TestValidateImagesRejectsOversized(t *testing.T) {
	big := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, maxImageSize)...)
	_, errs := ValidateImages([]ImageUpload{{Name: "huge.png", Data: big}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "exceeds the 5 MB limit")
}

func TestValidateImagesRejectsEmptyFile(t *testing.T) {
	_, errs := ValidateImages([]ImageUpload{{Name: "empty.png", Data: nil}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "empty.png: file is empty")
}

func TestValidateImagesRejectsTooMany(t *testing.T) {
	images := make([]ImageUpload, maxImageCount+1)
	for i := range images {
		images[i] = ImageUpload{Name: "photo.png", Data: pngImage()}
	}

	_, errs := ValidateImages(images)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "at most 10 photos")
}

func TestValidateImagesCollectsPerFileErrors(t *testing.T) {
	_, errs := ValidateImages([]ImageUpload{
		{Name: "ok.png", Data: pngImage()},
		{Name: "empty.png", Data: nil},
		{Name: "notes.txt", Data: []byte("du texte")},
	})
	assert.Len(t, errs, 2)
}

func TestValidateImagesAcceptsNone(t *testing.T) {
	types, errs := ValidateImages(nil)
	assert.Empty(t, errs)
	assert.Empty(t, types)
}
