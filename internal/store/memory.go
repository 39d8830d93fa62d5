package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/creditsphere/creditsphere/internal/domain"
)

// DefaultAIQuota is the monthly AI-call allowance applied to users with
// no explicit limit configured.
const DefaultAIQuota = 100

// Memory is an in-memory Store implementation. It is safe for
// concurrent use; data is lost on process exit. Tests and the CLI use
// it as the default backend.
type Memory struct {
	mu sync.RWMutex

	transactions map[string]*domain.Transaction
	statements   map[string]*domain.Statement
	merchants    map[string]*domain.Merchant
	cards        map[string]*domain.Card
	accounts     map[string]*domain.Account
	products     map[string]*domain.CreditCardProduct

	aiCallsUsed map[string]int
	aiQuota     map[string]int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		transactions: make(map[string]*domain.Transaction),
		statements:   make(map[string]*domain.Statement),
		merchants:    make(map[string]*domain.Merchant),
		cards:        make(map[string]*domain.Card),
		accounts:     make(map[string]*domain.Account),
		products:     make(map[string]*domain.CreditCardProduct),
		aiCallsUsed:  make(map[string]int),
		aiQuota:      make(map[string]int),
	}
}

var _ Store = (*Memory)(nil)

// FindByKey implements TransactionRepository.
func (m *Memory) FindByKey(ctx context.Context, key domain.DedupKey) (*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, tx := range m.transactions {
		if tx.Key().Equal(key) {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, nil
}

// InsertTransaction implements TransactionRepository.
func (m *Memory) InsertTransaction(ctx context.Context, tx *domain.Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("InsertTransaction: transaction ID is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.transactions[tx.ID]; exists {
		return fmt.Errorf("InsertTransaction: duplicate transaction ID %s", tx.ID)
	}
	cp := *tx
	m.transactions[tx.ID] = &cp
	return nil
}

// UpdateTransaction implements TransactionRepository.
func (m *Memory) UpdateTransaction(ctx context.Context, tx *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.transactions[tx.ID]; !exists {
		return fmt.Errorf("UpdateTransaction: transaction not found: %s", tx.ID)
	}
	cp := *tx
	m.transactions[tx.ID] = &cp
	return nil
}

// ListUncategorized implements TransactionRepository.
func (m *Memory) ListUncategorized(ctx context.Context, userID string, limit int) ([]*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*domain.Transaction
	for _, tx := range m.transactions {
		if tx.UserID == userID && tx.Category == "" {
			cp := *tx
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

// ListByCard implements TransactionRepository.
func (m *Memory) ListByCard(ctx context.Context, cardID string) ([]*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*domain.Transaction
	for _, tx := range m.transactions {
		if tx.CardID == cardID {
			cp := *tx
			result = append(result, &cp)
		}
	}
	return result, nil
}

// ListByUserSince implements TransactionRepository.
func (m *Memory) ListByUserSince(ctx context.Context, userID string, since time.Time) ([]*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*domain.Transaction
	for _, tx := range m.transactions {
		if tx.UserID == userID && !tx.Date.Before(since) {
			cp := *tx
			result = append(result, &cp)
		}
	}
	return result, nil
}

// GetStatement implements StatementRepository.
func (m *Memory) GetStatement(ctx context.Context, id string) (*domain.Statement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, exists := m.statements[id]
	if !exists {
		return nil, fmt.Errorf("GetStatement: statement not found: %s", id)
	}
	cp := *st
	return &cp, nil
}

// PutStatement stores a statement record; used by callers that create
// statements before invoking the pipeline.
func (m *Memory) PutStatement(st *domain.Statement) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *st
	m.statements[st.ID] = &cp
}

// InsertStatement records a freshly uploaded statement.
func (m *Memory) InsertStatement(ctx context.Context, st *domain.Statement) error {
	m.PutStatement(st)
	return nil
}

// UpdateStatement implements StatementRepository.
func (m *Memory) UpdateStatement(ctx context.Context, st *domain.Statement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.statements[st.ID]; !exists {
		return fmt.Errorf("UpdateStatement: statement not found: %s", st.ID)
	}
	cp := *st
	m.statements[st.ID] = &cp
	return nil
}

// FindMerchantByName implements MerchantRepository.
func (m *Memory) FindMerchantByName(ctx context.Context, canonicalName string) (*domain.Merchant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, mer := range m.merchants {
		if mer.CanonicalName == canonicalName {
			cp := *mer
			cp.Aliases = append([]string(nil), mer.Aliases...)
			return &cp, nil
		}
	}
	return nil, nil
}

// InsertMerchant implements MerchantRepository.
func (m *Memory) InsertMerchant(ctx context.Context, mer *domain.Merchant) error {
	if mer.ID == "" {
		return fmt.Errorf("InsertMerchant: merchant ID is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.merchants {
		if existing.CanonicalName == mer.CanonicalName {
			return fmt.Errorf("InsertMerchant: canonical name already exists: %s", mer.CanonicalName)
		}
	}
	cp := *mer
	cp.Aliases = append([]string(nil), mer.Aliases...)
	m.merchants[mer.ID] = &cp
	return nil
}

// UpdateMerchant implements MerchantRepository.
func (m *Memory) UpdateMerchant(ctx context.Context, mer *domain.Merchant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.merchants[mer.ID]; !exists {
		return fmt.Errorf("UpdateMerchant: merchant not found: %s", mer.ID)
	}
	cp := *mer
	cp.Aliases = append([]string(nil), mer.Aliases...)
	m.merchants[mer.ID] = &cp
	return nil
}

// PutCard stores a card record.
func (m *Memory) PutCard(c *domain.Card) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *c
	m.cards[c.ID] = &cp
}

// ListActiveCards implements CardRepository. Cards come back sorted by
// issuer+product+last4 so listing order is deterministic.
func (m *Memory) ListActiveCards(ctx context.Context, userID string) ([]*domain.Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*domain.Card
	for _, c := range m.cards {
		if c.UserID == userID && c.IsActive {
			cp := *c
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		ki := result[i].Issuer + "|" + result[i].Product + "|" + result[i].Last4
		kj := result[j].Issuer + "|" + result[j].Product + "|" + result[j].Last4
		return ki < kj
	})
	return result, nil
}

// FindCardByInstitution implements CardRepository.
func (m *Memory) FindCardByInstitution(ctx context.Context, userID, institution string) (*domain.Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.cards {
		if c.UserID == userID && c.IsActive && c.Issuer == institution {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

// PutAccount stores an account record.
func (m *Memory) PutAccount(a *domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *a
	m.accounts[a.ID] = &cp
}

// FindAccount implements AccountRepository.
func (m *Memory) FindAccount(ctx context.Context, userID, institution string, accountType domain.AccountType) (*domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, a := range m.accounts {
		if a.UserID == userID && a.IsActive && a.Institution == institution && a.AccountType == accountType {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

// SetAIQuota overrides the monthly AI-call allowance for a user.
func (m *Memory) SetAIQuota(userID string, limit int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.aiQuota[userID] = limit
}

// CheckAICalls implements QuotaRepository.
func (m *Memory) CheckAICalls(ctx context.Context, userID string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit, ok := m.aiQuota[userID]
	if !ok {
		limit = DefaultAIQuota
	}
	if m.aiCallsUsed[userID] >= limit {
		return fmt.Errorf("CheckAICalls: user %s: %w", userID, ErrQuotaExceeded)
	}
	return nil
}

// IncrementAICalls implements QuotaRepository.
func (m *Memory) IncrementAICalls(ctx context.Context, userID string, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.aiCallsUsed[userID] += n
	return nil
}

// PutProduct stores a catalog product.
func (m *Memory) PutProduct(p *domain.CreditCardProduct) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *p
	m.products[p.ID] = &cp
}

// ListActiveProducts implements ProductRepository.
func (m *Memory) ListActiveProducts(ctx context.Context) ([]*domain.CreditCardProduct, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*domain.CreditCardProduct
	for _, p := range m.products {
		if p.IsActive {
			cp := *p
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}
