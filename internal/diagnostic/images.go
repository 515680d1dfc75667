package diagnostic

import (
	"fmt"
	"net/http"
)

// ImageUpload is one photo attached to the intake form.
type ImageUpload struct {
	Name string
	Data []byte
}

const (
	maxImageCount = 10
	maxImageSize  = 5 << 20
)

// Content types accepted for diagnostic photos. Detection is by sniffing the
// payload, never by trusting the client's filename or declared type.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// ValidateImages checks count, per-file size and sniffed content type.
// It returns the detected content type per image (index-aligned with the
// input) and every violation found.
func ValidateImages(images []ImageUpload) ([]string, []string) {
	var errs []string

	if len(images) > maxImageCount {
		errs = append(errs, fmt.Sprintf("images: at most %d photos per session", maxImageCount))
		return nil, errs
	}

	types := make([]string, len(images))
	for i, img := range images {
		name := img.Name
		if name == "" {
			name = fmt.Sprintf("image %d", i+1)
		}

		if len(img.Data) == 0 {
			errs = append(errs, fmt.Sprintf("%s: file is empty", name))
			continue
		}
		if len(img.Data) > maxImageSize {
			errs = append(errs, fmt.Sprintf("%s: exceeds the 5 MB limit", name))
			continue
		}

		contentType := http.DetectContentType(img.Data)
		if !allowedImageTypes[contentType] {
			errs = append(errs, fmt.Sprintf("%s: unsupported format %s, use JPEG, PNG or WebP", name, contentType))
			continue
		}
		types[i] = contentType
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return types, nil
}
