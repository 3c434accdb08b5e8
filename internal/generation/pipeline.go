// Package generation implements the full fetch-map-store cycle that rebuilds
// the availability read model for one catalog instance.
package generation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/folio-org/mod-rtac-cache-sub000/internal/cache"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/gateway"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/mapper"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/models"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/refdata"
	"github.com/folio-org/mod-rtac-cache-sub000/pkg/logger"
	"github.com/folio-org/mod-rtac-cache-sub000/pkg/metrics"
)

// statusAvailable marks items that need no circulation enrichment.
const statusAvailable = "Available"

// Config bounds the paging and fan-out behaviour of the pipeline.
type Config struct {
	HoldingsPageSize    int
	ItemsPageSize       int
	PiecesLimit         int
	EnrichmentChunkSize int
}

func (c Config) withDefaults() Config {
	if c.HoldingsPageSize <= 0 {
		c.HoldingsPageSize = 50
	}
	if c.ItemsPageSize <= 0 {
		c.ItemsPageSize = 500
	}
	if c.PiecesLimit <= 0 {
		c.PiecesLimit = 1000
	}
	if c.EnrichmentChunkSize <= 0 {
		c.EnrichmentChunkSize = 50
	}
	return c
}

// Pipeline regenerates the availability records of one instance from the
// upstream record systems. Runs are idempotent: re-running for an unchanged
// instance overwrites rows by key and yields the same row set. The pipeline
// never deletes rows whose upstream source disappeared; delete events or
// retention handle those.
type Pipeline struct {
	gw    gateway.Gateway
	store *cache.Store
	ref   *refdata.Lookup
	cfg   Config
	log   *zap.Logger
}

// NewPipeline constructs a Pipeline.
func NewPipeline(gw gateway.Gateway, store *cache.Store, ref *refdata.Lookup, cfg Config) (*Pipeline, error) {
	if gw == nil {
		return nil, errors.New("generation: gateway is required")
	}
	if store == nil {
		return nil, errors.New("generation: cache store is required")
	}
	if ref == nil {
		return nil, errors.New("generation: reference lookup is required")
	}
	return &Pipeline{
		gw:    gw,
		store: store,
		ref:   ref,
		cfg:   cfg.withDefaults(),
		log:   logger.WithModule("generation"),
	}, nil
}

// Run executes the full generation cycle for an instance. Any upstream or
// store failure propagates; the caller decides cleanup.
func (p *Pipeline) Run(ctx context.Context, tenant, instanceID string) error {
	total, err := p.gw.HoldingsCount(ctx, tenant, instanceID)
	if err != nil {
		metrics.GenerationRuns.WithLabelValues("failure").Inc()
		return fmt.Errorf("generation: count holdings for %s: %w", instanceID, err)
	}
	if total == 0 {
		p.log.Debug("instance has no holdings", zap.String("instance_id", instanceID))
		return nil
	}

	for offset := 0; offset < total; offset += p.cfg.HoldingsPageSize {
		holdings, err := p.gw.Holdings(ctx, tenant, instanceID, p.cfg.HoldingsPageSize, offset)
		if err != nil {
			metrics.GenerationRuns.WithLabelValues("failure").Inc()
			return fmt.Errorf("generation: fetch holdings page at %d: %w", offset, err)
		}
		if len(holdings) == 0 {
			break
		}

		// Items and pieces of every holding on the page run in parallel; the
		// page must fully settle before the offset advances, bounding both
		// upstream load and memory.
		g, gctx := errgroup.WithContext(ctx)
		for _, h := range holdings {
			h := h
			g.Go(func() error {
				return p.syncHolding(gctx, tenant, h)
			})
			g.Go(func() error {
				return p.syncItems(gctx, tenant, h)
			})
			g.Go(func() error {
				return p.syncPieces(gctx, tenant, h)
			})
		}
		if err := g.Wait(); err != nil {
			metrics.GenerationRuns.WithLabelValues("failure").Inc()
			return err
		}
	}

	metrics.GenerationRuns.WithLabelValues("success").Inc()
	p.log.Info("generation finished",
		zap.String("instance_id", instanceID),
		zap.Int("holdings", total),
	)
	return nil
}

func (p *Pipeline) syncHolding(ctx context.Context, tenant string, h gateway.Holding) error {
	rec, err := mapper.FromHolding(ctx, p.ref, tenant, h)
	if err != nil {
		return fmt.Errorf("generation: map holding %s: %w", h.ID, err)
	}
	return p.store.Upsert(ctx, rec)
}

func (p *Pipeline) syncItems(ctx context.Context, tenant string, h gateway.Holding) error {
	for offset := 0; ; offset += p.cfg.ItemsPageSize {
		items, err := p.gw.Items(ctx, tenant, h.ID, p.cfg.ItemsPageSize, offset)
		if err != nil {
			return fmt.Errorf("generation: fetch items for holding %s: %w", h.ID, err)
		}
		if len(items) == 0 {
			return nil
		}

		enrichment, err := p.enrich(ctx, tenant, items)
		if err != nil {
			return err
		}

		out := make([]models.AvailabilityRecord, 0, len(items))
		for _, it := range items {
			rec, err := mapper.FromItem(ctx, p.ref, tenant, h, it, enrichment[it.ID])
			if err != nil {
				return fmt.Errorf("generation: map item %s: %w", it.ID, err)
			}
			out = append(out, rec)
		}
		if err := p.store.UpsertBatch(ctx, out); err != nil {
			return err
		}

		if len(items) < p.cfg.ItemsPageSize {
			return nil
		}
	}
}

func (p *Pipeline) syncPieces(ctx context.Context, tenant string, h gateway.Holding) error {
	pieces, err := p.gw.Pieces(ctx, tenant, h.ID, p.cfg.PiecesLimit)
	if err != nil {
		return fmt.Errorf("generation: fetch pieces for holding %s: %w", h.ID, err)
	}
	if len(pieces) == 0 {
		return nil
	}

	out := make([]models.AvailabilityRecord, 0, len(pieces))
	for _, piece := range pieces {
		rec, err := mapper.FromPiece(ctx, p.ref, tenant, h, piece)
		if err != nil {
			return fmt.Errorf("generation: map piece %s: %w", piece.ID, err)
		}
		out = append(out, rec)
	}
	return p.store.UpsertBatch(ctx, out)
}

// enrich issues parallel due-date and hold-count lookups for every item that
// is not plainly available, in id chunks small enough for upstream query
// limits, and merges the results into per-item enrichment.
func (p *Pipeline) enrich(ctx context.Context, tenant string, items []gateway.Item) (map[string]mapper.Enrichment, error) {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if it.Status.Name != statusAvailable {
			ids = append(ids, it.ID)
		}
	}
	if len(ids) == 0 {
		return map[string]mapper.Enrichment{}, nil
	}

	var (
		mu       sync.Mutex
		dueDates = make(map[string]*time.Time)
		holds    = make(map[string]int)
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, chunk := range chunkIDs(ids, p.cfg.EnrichmentChunkSize) {
		chunk := chunk
		g.Go(func() error {
			loans, err := p.gw.OpenLoans(gctx, tenant, chunk)
			if err != nil {
				return fmt.Errorf("generation: fetch loans: %w", err)
			}
			mu.Lock()
			defer mu.Unlock()
			for _, loan := range loans {
				if loan.DueDate != nil {
					dueDates[loan.ItemID] = loan.DueDate
				}
			}
			return nil
		})
		g.Go(func() error {
			requests, err := p.gw.OpenRequests(gctx, tenant, chunk)
			if err != nil {
				return fmt.Errorf("generation: fetch requests: %w", err)
			}
			mu.Lock()
			defer mu.Unlock()
			for _, req := range requests {
				if req.ItemID != "" {
					holds[req.ItemID]++
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	enrichment := make(map[string]mapper.Enrichment, len(ids))
	for _, id := range ids {
		e := mapper.Enrichment{DueDate: dueDates[id]}
		if count, ok := holds[id]; ok {
			c := count
			e.HoldRequests = &c
		}
		enrichment[id] = e
	}
	return enrichment, nil
}

func chunkIDs(ids []string, size int) [][]string {
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
