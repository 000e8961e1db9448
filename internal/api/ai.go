package api

import (
	"encoding/base64"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/mmynk/churchboard/internal/ai"
	"github.com/mmynk/churchboard/internal/apperr"
	mw "github.com/mmynk/churchboard/internal/middleware"
	"github.com/mmynk/churchboard/internal/respond"
)

// maxUploadBytes leaves room for base64 expansion and multipart framing.
const maxUploadBytes = ai.MaxImageBytes*4/3 + maxBodyBytes

var errImageTooLarge = apperr.New(http.StatusRequestEntityTooLarge, apperr.CodeInvalidArgument, ai.ErrImageTooLarge.Error())

func (h *handler) recognizeReceipt(w http.ResponseWriter, r *http.Request) {
	image, mimeType, err := readImage(w, r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	rec, err := h.svc.AI.RecognizeReceipt(r.Context(), mw.UserFromContext(r.Context()), image, mimeType)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, rec)
}

// readImage accepts a multipart form with an "image" file or a JSON body
// with a base64 image.
func readImage(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return readMultipartImage(w, r)
	}

	var body struct {
		ImageBase64 string `json:"imageBase64"`
		MimeType    string `json:"mimeType"`
	}
	if err := decodeJSON(w, r, &body, maxUploadBytes); err != nil {
		return nil, "", err
	}

	data := body.ImageBase64
	mimeType := body.MimeType
	// Accept data URLs as produced by FileReader.readAsDataURL.
	if rest, ok := strings.CutPrefix(data, "data:"); ok {
		header, payload, found := strings.Cut(rest, ",")
		if !found {
			return nil, "", apperr.InvalidArgument("malformed data URL")
		}
		if mimeType == "" {
			mimeType, _, _ = strings.Cut(header, ";")
		}
		data = payload
	}
	if data == "" {
		return nil, "", apperr.InvalidArgument("imageBase64 is required")
	}
	image, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, "", apperr.InvalidArgument("imageBase64 is not valid base64")
	}
	if len(image) > ai.MaxImageBytes {
		return nil, "", errImageTooLarge
	}
	return image, mimeType, nil
}

func readMultipartImage(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, "", errImageTooLarge
		}
		return nil, "", apperr.InvalidArgument("image file is required")
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, ai.MaxImageBytes+1))
	if err != nil {
		return nil, "", apperr.InvalidArgument("failed to read image")
	}
	if len(image) > ai.MaxImageBytes {
		return nil, "", errImageTooLarge
	}
	return image, header.Header.Get("Content-Type"), nil
}
