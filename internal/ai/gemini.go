package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/mmynk/churchboard/internal/models"
)

const defaultModel = "gemini-2.0-flash"

// GeminiConfig configures the Gemini recognizer.
type GeminiConfig struct {
	APIKey string
	Model  string

	// Categories are offered to the model as accounting category choices.
	Categories []string

	// BaseURL overrides the API endpoint.
	BaseURL    string
	HTTPClient *http.Client
}

// contentGenerator is the part of *genai.Models the recognizer calls.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiRecognizer recognizes receipts with a Gemini model.
type GeminiRecognizer struct {
	models     contentGenerator
	model      string
	categories []string
}

// NewGeminiRecognizer creates a recognizer backed by the Gemini API.
func NewGeminiRecognizer(ctx context.Context, cfg GeminiConfig) (*GeminiRecognizer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("Gemini API key is required")
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return newGeminiRecognizer(client.Models, cfg), nil
}

func newGeminiRecognizer(gen contentGenerator, cfg GeminiConfig) *GeminiRecognizer {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &GeminiRecognizer{models: gen, model: model, categories: cfg.Categories}
}

// Recognize implements Recognizer.
func (g *GeminiRecognizer) Recognize(ctx context.Context, image []byte, mimeType string) (*models.ReceiptRecognition, error) {
	if err := ValidateImage(image, mimeType); err != nil {
		return nil, err
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(image, mimeType),
			genai.NewPartFromText(g.prompt()),
		}, genai.RoleUser),
	}
	resp, err := g.models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0),
	})
	if err != nil {
		return nil, fmt.Errorf("GenAI generate failed: %w", err)
	}

	return parseRecognition(resp.Text(), g.categories)
}

func (g *GeminiRecognizer) prompt() string {
	var b strings.Builder
	b.WriteString("You read purchase receipts for a church office. ")
	b.WriteString("Return a single JSON object with these fields:\n")
	b.WriteString(`{"storeName": string, "purchaseDate": "YYYY-MM-DD", "totalAmount": number, `)
	b.WriteString(`"items": [{"name": string, "amount": number}], "suggestedTitle": string, "suggestedCategory": string}`)
	b.WriteString("\nUse the final total paid including tax. Use an empty string for anything you cannot read. ")
	b.WriteString("suggestedTitle is a short description of what was bought.")
	if len(g.categories) > 0 {
		b.WriteString(" suggestedCategory must be exactly one of: ")
		b.WriteString(strings.Join(g.categories, ", "))
		b.WriteString(", or empty if none fits.")
	}
	return b.String()
}

var fencePattern = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// flexNumber accepts a JSON number or a numeric string such as "$12.50".
type flexNumber float64

func (f *flexNumber) UnmarshalJSON(b []byte) error {
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexNumber(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	// "12,50" uses a decimal comma, "1,234.50" a thousands separator.
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}
	s = strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexNumber(n)
	return nil
}

type rawRecognition struct {
	StoreName    string     `json:"storeName"`
	PurchaseDate string     `json:"purchaseDate"`
	TotalAmount  flexNumber `json:"totalAmount"`
	Items        []struct {
		Name   string     `json:"name"`
		Amount flexNumber `json:"amount"`
	} `json:"items"`
	SuggestedTitle    string `json:"suggestedTitle"`
	SuggestedCategory string `json:"suggestedCategory"`
}

// parseRecognition decodes the model's JSON and drops values that are not
// usable as form suggestions.
func parseRecognition(text string, categories []string) (*models.ReceiptRecognition, error) {
	text = strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	var raw rawRecognition
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableResponse, err)
	}

	out := &models.ReceiptRecognition{
		StoreName:      strings.TrimSpace(raw.StoreName),
		TotalAmount:    float64(raw.TotalAmount),
		Items:          []models.ReceiptItem{},
		SuggestedTitle: strings.TrimSpace(raw.SuggestedTitle),
	}
	if out.TotalAmount < 0 {
		out.TotalAmount = 0
	}
	if _, err := time.Parse("2006-01-02", raw.PurchaseDate); err == nil {
		out.PurchaseDate = raw.PurchaseDate
	}
	for _, it := range raw.Items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			continue
		}
		out.Items = append(out.Items, models.ReceiptItem{Name: name, Amount: float64(it.Amount)})
	}
	cat := strings.TrimSpace(raw.SuggestedCategory)
	if len(categories) == 0 || slices.Contains(categories, cat) {
		out.SuggestedCategory = cat
	}
	return out, nil
}
