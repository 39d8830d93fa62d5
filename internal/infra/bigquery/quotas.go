package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/creditsphere/creditsphere/internal/store"
)

// quotaRow is the schema of the ai_quotas table, one row per user per
// calendar month.
type quotaRow struct {
	UserID     string             `bigquery:"user_id"`     // REQUIRED
	Month      string             `bigquery:"month"`       // REQUIRED, "2006-01"
	CallsUsed  int64              `bigquery:"calls_used"`  // REQUIRED
	QuotaLimit bigquery.NullInt64 `bigquery:"quota_limit"` // NULLABLE override
}

func currentMonth() string {
	return time.Now().UTC().Format("2006-01")
}

// CheckAICalls implements store.QuotaRepository.
func (s *Store) CheckAICalls(ctx context.Context, userID string) error {
	query := fmt.Sprintf(`
		SELECT user_id, month, calls_used, quota_limit
		FROM %s
		WHERE user_id = @user_id AND month = @month
		LIMIT 1
	`, s.table(quotasTable))

	q := s.client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "month", Value: currentMonth()},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return fmt.Errorf("CheckAICalls: reading query: %w", err)
	}

	var row quotaRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil // no usage this month
	}
	if err != nil {
		return fmt.Errorf("CheckAICalls: iterating: %w", err)
	}

	limit := int64(store.DefaultAIQuota)
	if row.QuotaLimit.Valid {
		limit = row.QuotaLimit.Int64
	}
	if row.CallsUsed >= limit {
		return fmt.Errorf("CheckAICalls: user %s: %w", userID, store.ErrQuotaExceeded)
	}
	return nil
}

// IncrementAICalls implements store.QuotaRepository.
func (s *Store) IncrementAICalls(ctx context.Context, userID string, n int) error {
	query := fmt.Sprintf(`
		MERGE %s q
		USING (SELECT @user_id AS user_id, @month AS month) src
		ON q.user_id = src.user_id AND q.month = src.month
		WHEN MATCHED THEN
		  UPDATE SET calls_used = q.calls_used + @n
		WHEN NOT MATCHED THEN
		  INSERT (user_id, month, calls_used) VALUES (src.user_id, src.month, @n)
	`, s.table(quotasTable))

	err := s.runDML(ctx, query, []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "month", Value: currentMonth()},
		{Name: "n", Value: int64(n)},
	})
	if err != nil {
		return fmt.Errorf("IncrementAICalls: %w", err)
	}
	return nil
}
