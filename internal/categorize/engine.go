package categorize

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/creditsphere/creditsphere/internal/domain"
	"github.com/creditsphere/creditsphere/internal/store"
)

const (
	// FuzzyMatchThreshold is the minimum similarity score for an alias
	// match to be accepted.
	FuzzyMatchThreshold = 80

	// AIMerchantConfidence is the minimum self-reported confidence for
	// an AI-proposed merchant to be linked.
	AIMerchantConfidence = 70

	// aiCallsPerTransaction: one normalize plus one categorize call.
	aiCallsPerTransaction = 2
)

// Engine resolves merchants and categories for transactions. All
// collaborators are injected; ai may be nil to disable the fallback.
type Engine struct {
	store   store.Store
	ai      AIClient
	aliases *AliasTable
	log     zerolog.Logger
}

// NewEngine wires a categorization engine.
func NewEngine(st store.Store, ai AIClient, aliases *AliasTable, log zerolog.Logger) *Engine {
	if aliases == nil {
		aliases = DefaultAliasTable()
	}
	return &Engine{store: st, ai: ai, aliases: aliases, log: log}
}

// Categorize resolves and persists the merchant and category for one
// transaction. The transaction is mutated in place.
func (e *Engine) Categorize(ctx context.Context, tx *domain.Transaction) error {
	if tx.RawMerchant == "" {
		tx.Category = domain.CategoryOther
		return e.update(ctx, tx)
	}

	normalized := NormalizeText(tx.RawMerchant)

	// Exact alias hit, then fuzzy.
	match, ok := e.aliases.LookupExact(normalized)
	if !ok {
		match, ok = e.aliases.MatchFuzzy(normalized, FuzzyMatchThreshold)
	}
	if ok {
		merchant, err := e.upsertMerchant(ctx, match.Canonical, match.Category, tx.RawMerchant)
		if err != nil {
			return fmt.Errorf("Categorize: %w", err)
		}
		tx.MerchantID = merchant.ID
		tx.Category = match.Category
		e.log.Debug().
			Str("raw_merchant", tx.RawMerchant).
			Str("canonical", match.Canonical).
			Str("category", match.Category).
			Int("confidence", match.Confidence).
			Msg("matched merchant alias")
		return e.update(ctx, tx)
	}

	return e.categorizeWithAI(ctx, tx)
}

// categorizeWithAI is the quota-gated fallback. Quota exhaustion and AI
// failures both degrade to "other" with no merchant link.
func (e *Engine) categorizeWithAI(ctx context.Context, tx *domain.Transaction) error {
	if e.ai == nil {
		tx.Category = domain.CategoryOther
		return e.update(ctx, tx)
	}

	if err := e.store.CheckAICalls(ctx, tx.UserID); err != nil {
		if errors.Is(err, store.ErrQuotaExceeded) {
			e.log.Warn().Str("user_id", tx.UserID).Msg("AI quota exceeded, categorizing as other")
		} else {
			e.log.Error().Err(err).Str("user_id", tx.UserID).Msg("AI quota check failed")
		}
		tx.Category = domain.CategoryOther
		return e.update(ctx, tx)
	}

	canonical, confidence, err := e.ai.NormalizeMerchant(ctx, tx.RawMerchant, tx.Amount)
	if err != nil {
		e.log.Error().Err(err).Str("raw_merchant", tx.RawMerchant).Msg("AI normalization failed")
		tx.Category = domain.CategoryOther
		return e.update(ctx, tx)
	}

	category, subcategory, _, err := e.ai.Categorize(ctx, canonical, tx.Amount, tx.RawMerchant)
	if err != nil {
		e.log.Error().Err(err).Str("merchant", canonical).Msg("AI categorization failed")
		tx.Category = domain.CategoryOther
		return e.update(ctx, tx)
	}

	if !domain.ValidCategory(category) {
		category = domain.CategoryOther
	}

	if confidence >= AIMerchantConfidence {
		merchant, err := e.upsertMerchant(ctx, canonical, category, tx.RawMerchant)
		if err != nil {
			return fmt.Errorf("categorizeWithAI: %w", err)
		}
		tx.MerchantID = merchant.ID
	}

	tx.Category = category
	tx.Subcategory = subcategory

	if err := e.store.IncrementAICalls(ctx, tx.UserID, aiCallsPerTransaction); err != nil {
		e.log.Error().Err(err).Str("user_id", tx.UserID).Msg("failed to record AI calls")
	}
	return e.update(ctx, tx)
}

// CategorizeBatch categorizes the given transactions, continuing past
// per-transaction failures.
func (e *Engine) CategorizeBatch(ctx context.Context, userID string, txns []*domain.Transaction) error {
	var done int
	for _, tx := range txns {
		if err := e.Categorize(ctx, tx); err != nil {
			e.log.Error().Err(err).Str("transaction_id", tx.ID).Msg("failed to categorize transaction")
			continue
		}
		done++
	}
	e.log.Info().
		Str("user_id", userID).
		Int("categorized", done).
		Int("total", len(txns)).
		Msg("batch categorization finished")
	return nil
}

// CategorizeUncategorized picks up to limit uncategorized transactions
// for the user and categorizes them. Returns the number processed.
func (e *Engine) CategorizeUncategorized(ctx context.Context, userID string, limit int) (int, error) {
	txns, err := e.store.ListUncategorized(ctx, userID, limit)
	if err != nil {
		return 0, fmt.Errorf("CategorizeUncategorized: %w", err)
	}
	if len(txns) == 0 {
		return 0, nil
	}
	if err := e.CategorizeBatch(ctx, userID, txns); err != nil {
		return 0, err
	}
	return len(txns), nil
}

// CategoryBreakdown sums transaction amounts per category for the user
// since the given time. Uncategorized transactions are excluded.
func (e *Engine) CategoryBreakdown(ctx context.Context, userID string, since time.Time) (map[string]decimal.Decimal, error) {
	txns, err := e.store.ListByUserSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("CategoryBreakdown: %w", err)
	}

	breakdown := make(map[string]decimal.Decimal)
	for _, tx := range txns {
		if tx.Category == "" {
			continue
		}
		breakdown[tx.Category] = breakdown[tx.Category].Add(tx.Amount)
	}
	return breakdown, nil
}

// upsertMerchant finds or creates the merchant and records the raw
// descriptor as an alias.
func (e *Engine) upsertMerchant(ctx context.Context, canonical, category, rawMerchant string) (*domain.Merchant, error) {
	merchant, err := e.store.FindMerchantByName(ctx, canonical)
	if err != nil {
		return nil, fmt.Errorf("upsertMerchant: lookup %q: %w", canonical, err)
	}

	if merchant != nil {
		if !merchant.HasAlias(rawMerchant) {
			merchant.AddAlias(rawMerchant)
			if err := e.store.UpdateMerchant(ctx, merchant); err != nil {
				return nil, fmt.Errorf("upsertMerchant: updating %q: %w", canonical, err)
			}
		}
		return merchant, nil
	}

	merchant = &domain.Merchant{
		ID:            uuid.NewString(),
		CanonicalName: canonical,
		Aliases:       []string{rawMerchant},
		Category:      category,
	}
	if err := e.store.InsertMerchant(ctx, merchant); err != nil {
		return nil, fmt.Errorf("upsertMerchant: inserting %q: %w", canonical, err)
	}
	e.log.Info().Str("merchant", canonical).Msg("created merchant")
	return merchant, nil
}

func (e *Engine) update(ctx context.Context, tx *domain.Transaction) error {
	if err := e.store.UpdateTransaction(ctx, tx); err != nil {
		return fmt.Errorf("updating transaction %s: %w", tx.ID, err)
	}
	return nil
}
