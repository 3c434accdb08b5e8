package refdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/folio-org/mod-rtac-cache-sub000/internal/gateway"
)

// Kind names one reference data set.
type Kind string

const (
	KindLocations     Kind = "locations"
	KindLibraries     Kind = "libraries"
	KindMaterialTypes Kind = "material-types"
	KindLoanTypes     Kind = "loan-types"
	KindNoteTypes     Kind = "note-types"
)

// Entry is one reference record in id-keyed form. Code and LibraryID are only
// populated for kinds that carry them.
type Entry struct {
	ID        string
	Name      string
	Code      string
	LibraryID string
}

// Lookup caches reference data sets per tenant and kind. Maps are populated
// lazily on first access and invalidated only by explicit Evict calls driven
// by change events; there is no TTL.
type Lookup struct {
	gw   gateway.ReferenceGateway
	maps *xsync.MapOf[string, map[string]Entry]
}

// NewLookup constructs a Lookup backed by the supplied reference gateway.
func NewLookup(gw gateway.ReferenceGateway) (*Lookup, error) {
	if gw == nil {
		return nil, errors.New("refdata: reference gateway is required")
	}
	return &Lookup{
		gw:   gw,
		maps: xsync.NewMapOf[string, map[string]Entry](),
	}, nil
}

// Map returns the id-keyed reference map for the tenant and kind, loading it
// from upstream on first access. Concurrent first accesses may load twice;
// the last stored map wins, which is harmless for immutable reference sets.
func (l *Lookup) Map(ctx context.Context, tenant string, kind Kind) (map[string]Entry, error) {
	key := cacheKey(tenant, kind)
	if m, ok := l.maps.Load(key); ok {
		return m, nil
	}

	m, err := l.load(ctx, tenant, kind)
	if err != nil {
		return nil, err
	}

	l.maps.Store(key, m)
	return m, nil
}

// Evict drops the cached map for the tenant and kind. The next Map call
// reloads from upstream.
func (l *Lookup) Evict(tenant string, kind Kind) {
	l.maps.Delete(cacheKey(tenant, kind))
}

func (l *Lookup) load(ctx context.Context, tenant string, kind Kind) (map[string]Entry, error) {
	switch kind {
	case KindLocations:
		records, err := l.gw.Locations(ctx, tenant)
		if err != nil {
			return nil, fmt.Errorf("refdata: load locations: %w", err)
		}
		m := make(map[string]Entry, len(records))
		for _, r := range records {
			m[r.ID] = Entry{ID: r.ID, Name: r.Name, Code: r.Code, LibraryID: r.LibraryID}
		}
		return m, nil

	case KindLibraries:
		records, err := l.gw.Libraries(ctx, tenant)
		if err != nil {
			return nil, fmt.Errorf("refdata: load libraries: %w", err)
		}
		m := make(map[string]Entry, len(records))
		for _, r := range records {
			m[r.ID] = Entry{ID: r.ID, Name: r.Name, Code: r.Code}
		}
		return m, nil

	case KindMaterialTypes:
		return l.loadNamed(ctx, tenant, kind, l.gw.MaterialTypes)
	case KindLoanTypes:
		return l.loadNamed(ctx, tenant, kind, l.gw.LoanTypes)
	case KindNoteTypes:
		return l.loadNamed(ctx, tenant, kind, l.gw.NoteTypes)
	default:
		return nil, fmt.Errorf("refdata: unknown kind %q", kind)
	}
}

func (l *Lookup) loadNamed(ctx context.Context, tenant string, kind Kind, fetch func(context.Context, string) ([]gateway.NamedRef, error)) (map[string]Entry, error) {
	records, err := fetch(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("refdata: load %s: %w", kind, err)
	}
	m := make(map[string]Entry, len(records))
	for _, r := range records {
		m[r.ID] = Entry{ID: r.ID, Name: r.Name}
	}
	return m, nil
}

func cacheKey(tenant string, kind Kind) string {
	return tenant + "|" + string(kind)
}
