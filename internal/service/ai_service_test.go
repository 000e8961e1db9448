package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/churchboard/internal/ai"
	"github.com/mmynk/churchboard/internal/apperr"
	"github.com/mmynk/churchboard/internal/metrics"
	"github.com/mmynk/churchboard/internal/models"
)

type fakeRecognizer struct {
	gotMIME string
	result  *models.ReceiptRecognition
	err     error
}

func (f *fakeRecognizer) Recognize(_ context.Context, _ []byte, mimeType string) (*models.ReceiptRecognition, error) {
	f.gotMIME = mimeType
	return f.result, f.err
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestAIService_RecognizeReceipt(t *testing.T) {
	ctx := context.Background()
	caller := &models.User{ID: "alice", Status: models.UserStatusApproved}

	t.Run("ok", func(t *testing.T) {
		rec := &fakeRecognizer{result: &models.ReceiptRecognition{StoreName: "Costco", TotalAmount: 12}}
		m := metrics.NewCollector()
		svc := NewAIService(rec, m)

		got, err := svc.RecognizeReceipt(ctx, caller, []byte{0xff, 0xd8, 0xff, 0xe0}, "image/jpg")
		require.NoError(t, err)
		assert.Equal(t, "Costco", got.StoreName)
		assert.Equal(t, "image/jpeg", rec.gotMIME)
		assert.Equal(t, 1, testutil.CollectAndCount(m, "churchboard_ai_recognitions_total"))
	})

	t.Run("sniffs missing type", func(t *testing.T) {
		rec := &fakeRecognizer{result: &models.ReceiptRecognition{}}
		_, err := NewAIService(rec, nil).RecognizeReceipt(ctx, caller, pngHeader, "")
		require.NoError(t, err)
		assert.Equal(t, "image/png", rec.gotMIME)
	})

	t.Run("not configured", func(t *testing.T) {
		_, err := NewAIService(nil, nil).RecognizeReceipt(ctx, caller, pngHeader, "image/png")
		requireCode(t, err, apperr.CodeServiceUnavailable)
	})

	t.Run("invalid image", func(t *testing.T) {
		svc := NewAIService(&fakeRecognizer{}, nil)
		_, err := svc.RecognizeReceipt(ctx, caller, nil, "image/png")
		requireCode(t, err, apperr.CodeInvalidArgument)

		_, err = svc.RecognizeReceipt(ctx, caller, []byte("%PDF-1.4"), "application/pdf")
		requireCode(t, err, apperr.CodeInvalidArgument)

		_, err = svc.RecognizeReceipt(ctx, caller, make([]byte, ai.MaxImageBytes+1), "image/png")
		requireCode(t, err, apperr.CodeInvalidArgument)
	})

	t.Run("model failure", func(t *testing.T) {
		m := metrics.NewCollector()
		svc := NewAIService(&fakeRecognizer{err: errors.New("quota exceeded")}, m)
		_, err := svc.RecognizeReceipt(ctx, caller, pngHeader, "image/png")
		requireCode(t, err, apperr.CodeServiceUnavailable)
		assert.Equal(t, 1, testutil.CollectAndCount(m, "churchboard_ai_recognitions_total"))
	})
}
