package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mmynk/churchboard/internal/ai"
	"github.com/mmynk/churchboard/internal/apperr"
	"github.com/mmynk/churchboard/internal/metrics"
	"github.com/mmynk/churchboard/internal/models"
)

// AIService fronts the receipt recognizer.
type AIService struct {
	recognizer ai.Recognizer
	metrics    *metrics.Collector
}

// NewAIService creates an AIService. recognizer may be nil when no model is
// configured.
func NewAIService(recognizer ai.Recognizer, m *metrics.Collector) *AIService {
	return &AIService{recognizer: recognizer, metrics: m}
}

// RecognizeReceipt extracts purchase details from a receipt image.
func (s *AIService) RecognizeReceipt(ctx context.Context, caller *models.User, image []byte, mimeType string) (*models.ReceiptRecognition, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if s.recognizer == nil {
		s.metrics.AIRecognition(metrics.ResultSkipped)
		return nil, apperr.Unavailable("receipt recognition is not configured")
	}

	mimeType = ai.NormalizeMIMEType(mimeType, image)
	if err := ai.ValidateImage(image, mimeType); err != nil {
		return nil, apperr.InvalidArgument(err.Error())
	}

	slog.Info("RecognizeReceipt request received", "user_id", caller.ID, "mime_type", mimeType, "bytes", len(image))
	rec, err := s.recognizer.Recognize(ctx, image, mimeType)
	if err != nil {
		s.metrics.AIRecognition(metrics.ResultError)
		slog.Error("RecognizeReceipt failed", "user_id", caller.ID, "error", err)
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, apperr.Wrap(http.StatusServiceUnavailable, apperr.CodeServiceUnavailable, "receipt recognition failed", err)
	}

	s.metrics.AIRecognition(metrics.ResultOK)
	return rec, nil
}
