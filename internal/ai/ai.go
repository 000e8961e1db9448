// Package ai extracts purchase details from receipt images.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/mmynk/churchboard/internal/models"
)

// MaxImageBytes is the largest accepted receipt image.
const MaxImageBytes = 10 << 20

// SupportedMIMETypes lists the accepted image formats.
var SupportedMIMETypes = []string{"image/jpeg", "image/png", "image/webp", "image/heic"}

var (
	ErrImageTooLarge      = fmt.Errorf("image exceeds %d MiB", MaxImageBytes>>20)
	ErrUnsupportedType    = errors.New("unsupported image type")
	ErrEmptyImage         = errors.New("image is empty")
	ErrUnreadableResponse = errors.New("model returned an unreadable response")
)

// Recognizer turns a receipt image into suggested purchase details.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, mimeType string) (*models.ReceiptRecognition, error)
}

// NormalizeMIMEType lowercases mimeType, drops parameters and maps the
// common image/jpg alias. When mimeType is empty it is sniffed from data.
func NormalizeMIMEType(mimeType string, data []byte) string {
	mt, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(mimeType)), ";")
	mt = strings.TrimSpace(mt)
	if mt == "" || mt == "application/octet-stream" {
		mt = http.DetectContentType(data)
	}
	if mt == "image/jpg" {
		mt = "image/jpeg"
	}
	return mt
}

// ValidateImage checks size and type before an image is sent to a model.
func ValidateImage(data []byte, mimeType string) error {
	if len(data) == 0 {
		return ErrEmptyImage
	}
	if len(data) > MaxImageBytes {
		return ErrImageTooLarge
	}
	if !slices.Contains(SupportedMIMETypes, mimeType) {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
	return nil
}
