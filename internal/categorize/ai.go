package categorize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"github.com/creditsphere/creditsphere/internal/domain"
)

// AIClient is the external normalization/categorization collaborator.
// Implementations must be safe for concurrent use.
type AIClient interface {
	// NormalizeMerchant turns a raw statement descriptor into a clean
	// merchant name with a self-reported confidence (0-100).
	NormalizeMerchant(ctx context.Context, rawMerchant string, amount decimal.Decimal) (canonical string, confidence int, err error)

	// Categorize picks a category (and optional subcategory) for a
	// merchant. The category is always a member of the fixed enum.
	Categorize(ctx context.Context, merchant string, amount decimal.Decimal, description string) (category, subcategory string, confidence int, err error)
}

const (
	retryAttempts = 3
	retryBaseWait = 2 * time.Second
	retryMaxWait  = 10 * time.Second
)

// withRetry runs fn up to retryAttempts times with exponential backoff
// between failures, honoring context cancellation while waiting.
func withRetry(ctx context.Context, fn func() error) error {
	wait := retryBaseWait
	var err error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
			wait *= 2
			if wait > retryMaxWait {
				wait = retryMaxWait
			}
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}

// GeminiClient implements AIClient against the Gemini API, with every
// response cached by content hash.
type GeminiClient struct {
	client *genai.Client
	model  string
	cache  Cache
	log    zerolog.Logger
}

// NewGeminiClient creates a Gemini-backed AI client. cache may be nil
// to disable caching.
func NewGeminiClient(ctx context.Context, model string, cache Cache, log zerolog.Logger) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiClient: create genai client: %w", err)
	}
	return &GeminiClient{client: client, model: model, cache: cache, log: log}, nil
}

type normalizeResult struct {
	Canonical  string `json:"canonical"`
	Confidence int    `json:"confidence"`
}

type categorizeResult struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory,omitempty"`
	Confidence  int    `json:"confidence"`
}

// NormalizeMerchant asks the model for a canonical merchant name. On
// model failure after retries it degrades to a mechanical cleanup of
// the raw descriptor at low confidence rather than erroring.
func (g *GeminiClient) NormalizeMerchant(ctx context.Context, rawMerchant string, amount decimal.Decimal) (string, int, error) {
	key := cacheKey("merchant", rawMerchant)
	if cached, ok := g.getCached(ctx, key); ok {
		var r normalizeResult
		if json.Unmarshal([]byte(cached), &r) == nil {
			return r.Canonical, r.Confidence, nil
		}
	}

	prompt := "Given the raw merchant name from a credit card statement, normalize it to a clean, canonical merchant name.\n\n" +
		"Raw merchant: " + rawMerchant + "\n\n" +
		"Rules:\n" +
		"1. Remove transaction codes, POS numbers, location codes\n" +
		"2. Use proper capitalization\n" +
		"3. Use the most recognizable brand name\n" +
		"4. Be concise (2-4 words max)\n\n" +
		"Examples:\n" +
		"- \"AMZ*MKTP US*1A2B3C\" -> \"Amazon\"\n" +
		"- \"STARBUCKS #12345 TORONTO\" -> \"Starbucks\"\n" +
		"- \"SQ *COFFEE SHOP\" -> \"Coffee Shop\"\n" +
		"- \"WAL-MART #1234\" -> \"Walmart\"\n\n" +
		"Return ONLY the canonical name, nothing else."

	text, err := g.generate(ctx, prompt)
	if err != nil {
		g.log.Error().Err(err).Str("raw_merchant", rawMerchant).Msg("AI merchant normalization failed")
		cleaned := strings.TrimSpace(strings.SplitN(strings.SplitN(rawMerchant, "#", 2)[0], "*", 2)[0])
		return cleaned, 50, nil
	}

	canonical := strings.TrimSpace(text)
	confidence := 85
	if len(canonical) >= 30 {
		confidence = 70
	}

	g.setCached(ctx, key, normalizeResult{Canonical: canonical, Confidence: confidence})
	g.log.Info().
		Str("raw_merchant", rawMerchant).
		Str("canonical", canonical).
		Int("confidence", confidence).
		Msg("AI normalized merchant")
	return canonical, confidence, nil
}

// Categorize asks the model for a category. Invalid categories are
// coerced to "other" at reduced confidence; a model failure after
// retries degrades to "other".
func (g *GeminiClient) Categorize(ctx context.Context, merchant string, amount decimal.Decimal, description string) (string, string, int, error) {
	key := cacheKey("category", merchant+"|"+amount.String()+"|"+description)
	if cached, ok := g.getCached(ctx, key); ok {
		var r categorizeResult
		if json.Unmarshal([]byte(cached), &r) == nil {
			return r.Category, r.Subcategory, r.Confidence, nil
		}
	}

	prompt := "Categorize this transaction from a credit card statement.\n\n" +
		"Merchant: " + merchant + "\n" +
		"Amount: $" + amount.Abs().StringFixed(2) + "\n"
	if description != "" {
		prompt += "Description: " + description + "\n"
	}
	prompt += "\nCategories: " + strings.Join(domain.Categories, ", ") + "\n\n" +
		"Rules:\n" +
		"1. Choose the MOST SPECIFIC category that fits\n" +
		"2. If uncertain, choose \"other\"\n" +
		"3. Consider the merchant name and amount\n" +
		"4. Return in format: category|subcategory or just category\n\n" +
		"Examples:\n" +
		"- \"Starbucks\" -> dining|coffee\n" +
		"- \"Walmart\" -> groceries\n" +
		"- \"Shell Gas\" -> gas\n" +
		"- \"Netflix\" -> subscription|streaming\n" +
		"- \"Uber\" -> transport|rideshare\n\n" +
		"Return ONLY the category (and optional subcategory), nothing else."

	text, err := g.generate(ctx, prompt)
	if err != nil {
		g.log.Error().Err(err).Str("merchant", merchant).Msg("AI categorization failed")
		return domain.CategoryOther, "", 50, nil
	}

	parts := strings.SplitN(strings.ToLower(strings.TrimSpace(text)), "|", 2)
	category := strings.TrimSpace(parts[0])
	subcategory := ""
	if len(parts) > 1 {
		subcategory = strings.TrimSpace(parts[1])
	}

	confidence := 90
	if !domain.ValidCategory(category) {
		g.log.Warn().Str("category", category).Msg("AI returned invalid category")
		category = domain.CategoryOther
		confidence = 60
	}

	g.setCached(ctx, key, categorizeResult{Category: category, Subcategory: subcategory, Confidence: confidence})
	g.log.Info().
		Str("merchant", merchant).
		Str("category", category).
		Int("confidence", confidence).
		Msg("AI categorized transaction")
	return category, subcategory, confidence, nil
}

func (g *GeminiClient) generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	var text string
	err := withRetry(ctx, func() error {
		resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
		if err != nil {
			return fmt.Errorf("generate content: %w", err)
		}
		text = resp.Text()
		if text == "" {
			return fmt.Errorf("empty response from model")
		}
		return nil
	})
	return text, err
}

func (g *GeminiClient) getCached(ctx context.Context, key string) (string, bool) {
	if g.cache == nil {
		return "", false
	}
	val, ok, err := g.cache.Get(ctx, key)
	if err != nil {
		g.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		return "", false
	}
	return val, ok
}

func (g *GeminiClient) setCached(ctx context.Context, key string, v any) {
	if g.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := g.cache.Set(ctx, key, string(data), DefaultCacheTTL); err != nil {
		g.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}
