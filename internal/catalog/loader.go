package catalog

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/utafrali/bookshop/internal/domain"
	"github.com/utafrali/bookshop/pkg/tracing"
)

// Result is the outcome of one catalog load.
type Result struct {
	Items  []domain.CatalogItem
	Status domain.CatalogStatus
}

// Loader turns the source's records into priced catalog items.
type Loader struct {
	source  Source
	prices  PriceSource
	timeout time.Duration
	logger  *slog.Logger
}

// NewLoader creates a loader. A zero timeout leaves the fetch bounded only by
// the caller's context.
func NewLoader(source Source, prices PriceSource, timeout time.Duration, logger *slog.Logger) *Loader {
	return &Loader{
		source:  source,
		prices:  prices,
		timeout: timeout,
		logger:  logger,
	}
}

// Load fetches the list once. Any failure is logged and yields an empty
// catalog with status CatalogFailed; Load itself never fails.
func (l *Loader) Load(ctx context.Context) Result {
	ctx, span := tracing.Tracer("github.com/utafrali/bookshop/catalog").Start(ctx, "catalog.Load")
	defer span.End()

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	records, err := l.source.Fetch(ctx)
	if err != nil {
		tracing.RecordError(span, err)
		catalogLoadsTotal.WithLabelValues("failure").Inc()
		l.logger.ErrorContext(ctx, "catalog fetch failed", slog.String("error", err.Error()))
		return Result{Items: []domain.CatalogItem{}, Status: domain.CatalogFailed}
	}

	items := make([]domain.CatalogItem, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if rec.ID == "" {
			continue
		}
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		seen[rec.ID] = struct{}{}
		items = append(items, domain.CatalogItem{
			ID:       rec.ID,
			Title:    rec.Title,
			Author:   rec.Author,
			ImageURL: rec.ImageURL,
			Price:    l.prices.Price(),
		})
	}

	span.SetAttributes(
		attribute.Int("catalog.records", len(records)),
		attribute.Int("catalog.items", len(items)),
	)
	catalogLoadsTotal.WithLabelValues("success").Inc()

	if dropped := len(records) - len(items); dropped > 0 {
		l.logger.WarnContext(ctx, "catalog records dropped",
			slog.Int("dropped", dropped),
			slog.Int("kept", len(items)),
		)
	}
	l.logger.InfoContext(ctx, "catalog loaded", slog.Int("items", len(items)))

	return Result{Items: items, Status: domain.CatalogLoaded}
}
