package oracle

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/models"
	"google.golang.org/genai"
)

// Gemini backs the oracle with the Gemini API using JSON-schema constrained
// responses.
type Gemini struct {
	client *genai.Client
	model  string
	campus string
}

func NewGemini(ctx context.Context, apiKey, model, campusName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("Gemini API key is required")
	}
	if model == "" {
		model = "gemini-3-flash-preview"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Gemini{client: client, model: model, campus: campusName}, nil
}

func (g *Gemini) Score(ctx context.Context, a, b *models.Report) (int, error) {
	prompt := fmt.Sprintf(`You are the matching engine of a campus lost and found desk%s.
Compare the two reports below and rate how likely they describe the same physical item, from 0 to 100.

Rules:
1. Ignore letter case, small typos and filler words.
2. Different categories score low unless the descriptions clearly overlap.
3. Identical or neighbouring campus locations raise the score.
4. A high score needs the two reported times to be within 48 hours.
5. When photos are attached, use them only to confirm the kind of object.

%s

%s`, g.campusSuffix(), describe("REPORT 1", a), describe("REPORT 2", b))

	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	parts = appendImage(parts, a.ImageRef)
	parts = appendImage(parts, b.ImageRef)

	var out struct {
		Score float64 `json:"score"`
	}
	schema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"score": {Type: genai.TypeNumber, Description: "Weighted similarity score from 0 to 100"},
		},
		Required: []string{"score"},
	}
	if err := g.generate(ctx, parts, schema, &out); err != nil {
		return 0, err
	}
	return clampScore(int(math.Round(out.Score))), nil
}

func (g *Gemini) GenerateVerificationQuestion(ctx context.Context, found *models.Report) (Question, error) {
	prompt := fmt.Sprintf(`Write ONE easy question that only the real owner of this found item could answer.

Rules:
1. Ask about a single concrete, visible attribute: the color of a part, a brand or logo, a sticker or mark, or a word printed on it.
2. Keep it short and in plain language, for example "What color is the strap?".
3. No abstract, vague, memory-heavy or multi-part questions.
4. The answer must be 1 to 3 words.

ITEM: %s
DESCRIPTION: %s`, found.ItemName, found.Description)

	parts := appendImage([]*genai.Part{genai.NewPartFromText(prompt)}, found.ImageRef)

	var out Question
	schema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"question": {Type: genai.TypeString, Description: "Short direct question about one concrete attribute"},
			"answer":   {Type: genai.TypeString, Description: "The correct answer in 1 to 3 words"},
		},
		Required: []string{"question", "answer"},
	}
	if err := g.generate(ctx, parts, schema, &out); err != nil {
		return Question{}, err
	}
	if out.Question == "" || out.Answer == "" {
		return Question{}, errors.New("incomplete verification question from Gemini")
	}
	return out, nil
}

func (g *Gemini) ValidateAnswer(ctx context.Context, candidate, expected string) (bool, error) {
	prompt := fmt.Sprintf(`Does the user's answer mean the same thing as the expected answer?

Rules:
1. Be lenient with the owner: accept different letter case, small spelling mistakes and synonyms.
2. Accept a longer answer if it contains the key detail (expected "Red", answer "it is dark red").

Expected: %s
User answer: %s`, expected, candidate)

	var out struct {
		IsMatch bool `json:"isMatch"`
	}
	schema := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: map[string]*genai.Schema{"isMatch": {Type: genai.TypeBoolean}},
		Required:   []string{"isMatch"},
	}
	if err := g.generate(ctx, []*genai.Part{genai.NewPartFromText(prompt)}, schema, &out); err != nil {
		return false, err
	}
	return out.IsMatch, nil
}

func (g *Gemini) generate(ctx context.Context, parts []*genai.Part, schema *genai.Schema, out any) error {
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr[float32](0.1),
			ResponseMIMEType: "application/json",
			ResponseSchema:   schema,
		},
	)
	if err != nil {
		return fmt.Errorf("Gemini generate failed: %w", err)
	}
	return decodeJSON(resp.Text(), out)
}

func (g *Gemini) campusSuffix() string {
	if g.campus == "" {
		return ""
	}
	return " at " + g.campus
}

func describe(label string, r *models.Report) string {
	return fmt.Sprintf(`%s (%s):
Category: %s
Item: %s
Description: %s
Location: %s
Time: %s`, label, r.Type, r.Category, r.ItemName, r.Description, r.Location, r.OccurredAt.Format("2006-01-02 15:04"))
}

// appendImage attaches an inline image when ref is a base64 data URI.
// Other references are skipped.
func appendImage(parts []*genai.Part, ref string) []*genai.Part {
	mimeType, data, ok := parseDataURI(ref)
	if !ok {
		return parts
	}
	return append(parts, genai.NewPartFromBytes(data, mimeType))
}

func parseDataURI(ref string) (string, []byte, bool) {
	rest, ok := strings.CutPrefix(ref, "data:")
	if !ok {
		return "", nil, false
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, false
	}
	mimeType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return "", nil, false
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, false
	}
	return mimeType, data, true
}

func decodeJSON(text string, out any) error {
	content := strings.TrimSpace(text)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)
	if content == "" {
		return errors.New("empty response from Gemini")
	}
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("failed to parse Gemini response: %w", err)
	}
	return nil
}
