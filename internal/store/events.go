package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"analytics-service/internal/errs"
	"analytics-service/internal/models"
)

// InsertEvents appends a chunk of events as a single atomic statement. The
// whole chunk succeeds or fails together; callers report per-chunk outcomes.
func (s *Store) InsertEvents(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(events))
	args := make([]interface{}, 0, len(events)*9)
	for i, ev := range events {
		base := i * 9
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9))
		args = append(args, ev.ID, ev.StoreID, ev.ProductID, ev.UserID,
			ev.EventType, ev.Value, ev.Metadata, ev.InvokedOn, ev.CreatedAt)
	}

	query := `
		INSERT INTO events (id, store_id, product_id, user_id, event_type, value, metadata, invoked_on, created_at)
		VALUES ` + strings.Join(placeholders, ", ")

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return errs.Wrap(errs.KindTransient, "insert events", err)
	}
	return nil
}

// ListEventsForDay returns every event with created_at inside the UTC
// calendar day, for the aggregation fold
func (s *Store) ListEventsForDay(ctx context.Context, day time.Time) ([]models.Event, error) {
	start := day.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)

	var events []models.Event
	err := s.db.SelectContext(ctx, &events,
		"SELECT * FROM events WHERE created_at >= $1 AND created_at < $2 ORDER BY created_at",
		start, end)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, "list events for day", err)
	}
	return events, nil
}

// SumEventsForEntity folds raw events for one entity over [from, to) into
// counts and revenue, for the resolver's raw path
func (s *Store) SumEventsForEntity(ctx context.Context, scope, entityID string, from, to time.Time) (*models.EventTotals, error) {
	column := "product_id"
	if scope == models.ScopeStore {
		column = "store_id"
	}

	var totals models.EventTotals
	query := fmt.Sprintf(`
		SELECT
			COUNT(*) FILTER (WHERE event_type = 'view')      AS views,
			COUNT(*) FILTER (WHERE event_type = 'like')      AS likes,
			COUNT(*) FILTER (WHERE event_type = 'addToCart') AS add_to_carts,
			COUNT(*) FILTER (WHERE event_type = 'purchase')  AS purchases,
			COUNT(*) FILTER (WHERE event_type = 'checkout')  AS checkouts,
			COALESCE(SUM(value) FILTER (WHERE event_type = 'purchase'), 0) AS revenue
		FROM events
		WHERE %s = $1 AND created_at >= $2 AND created_at < $3`, column)

	if err := s.db.GetContext(ctx, &totals, query, entityID, from, to); err != nil {
		return nil, errs.Wrap(errs.KindTransient, "sum events", err)
	}
	return &totals, nil
}

// DeleteEventsBefore hard-deletes events past the retention window
func (s *Store) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, errs.Wrap(errs.KindTransient, "delete old events", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
