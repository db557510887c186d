package domain

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/kapu/pec-ai-go/pkg/errors"
)

const defaultImageMIME = "image/png"

// EncodedImage is one still image held in memory together with its MIME type.
type EncodedImage struct {
	MIMEType string
	Data     []byte
}

// NewEncodedImage wraps raw bytes, sniffing the MIME type when none is given.
func NewEncodedImage(data []byte, mimeType string) EncodedImage {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
		if i := strings.Index(mimeType, ";"); i >= 0 {
			mimeType = mimeType[:i]
		}
	}
	return EncodedImage{MIMEType: mimeType, Data: data}
}

// ParseDataURI decodes "data:<mime>;base64,<payload>". A missing MIME type
// falls back to image/png.
func ParseDataURI(uri string) (EncodedImage, error) {
	trimmed := strings.TrimSpace(uri)
	if !strings.HasPrefix(trimmed, "data:") {
		return EncodedImage{}, errors.NewValidationError("image must be a data URI", "image", "")
	}

	header, payload, ok := strings.Cut(trimmed[len("data:"):], ",")
	if !ok {
		return EncodedImage{}, errors.NewValidationError("data URI has no payload", "image", "")
	}
	if !strings.HasSuffix(header, ";base64") {
		return EncodedImage{}, errors.NewValidationError("data URI must be base64 encoded", "image", header)
	}

	mimeType, _, _ := strings.Cut(strings.TrimSuffix(header, ";base64"), ";")
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		mimeType = defaultImageMIME
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return EncodedImage{}, errors.NewValidationError("data URI payload is not valid base64", "image", "")
	}

	return EncodedImage{MIMEType: strings.ToLower(mimeType), Data: data}, nil
}

// DataURI renders the image back to its base64 data URI form.
func (img EncodedImage) DataURI() string {
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = defaultImageMIME
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(img.Data))
}

func (img EncodedImage) IsEmpty() bool {
	return len(img.Data) == 0
}

// Validate checks size and that the MIME type is an accepted still image.
func (img EncodedImage) Validate(maxBytes int) error {
	if img.IsEmpty() {
		return errors.NewValidationError("image is empty", "image", "")
	}
	if maxBytes > 0 && len(img.Data) > maxBytes {
		return errors.NewValidationError(fmt.Sprintf("image exceeds %d bytes", maxBytes), "image", len(img.Data))
	}
	if !IsAllowedImageType(img.MIMEType) {
		return errors.NewValidationError(fmt.Sprintf("unsupported image type %q", img.MIMEType), "image", img.MIMEType)
	}
	return nil
}

// Extension returns the file extension, dot included, for the MIME type.
func (img EncodedImage) Extension() string {
	switch img.MIMEType {
	case "image/png", "image/x-png":
		return ".png"
	case "image/jpeg", "image/pjpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".bin"
	}
}

func IsAllowedImageType(mimeType string) bool {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "image/png", "image/x-png", "image/jpeg", "image/pjpeg", "image/jpg", "image/webp", "image/gif":
		return true
	default:
		return false
	}
}

// ImageDestination selects which bucket an upload lands in.
type ImageDestination string

const (
	DestinationCards   ImageDestination = "cards"
	DestinationAvatars ImageDestination = "avatars"
)
