package refdata

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/folio-org/mod-rtac-cache-sub000/internal/gateway"
)

type countingGateway struct {
	mu    sync.Mutex
	loads map[string]int
}

func newCountingGateway() *countingGateway {
	return &countingGateway{loads: map[string]int{}}
}

func (g *countingGateway) count(kind string) {
	g.mu.Lock()
	g.loads[kind]++
	g.mu.Unlock()
}

func (g *countingGateway) Locations(context.Context, string) ([]gateway.Location, error) {
	g.count("locations")
	return []gateway.Location{{ID: "loc-1", Name: "Main", Code: "M", LibraryID: "lib-1"}}, nil
}

func (g *countingGateway) Libraries(context.Context, string) ([]gateway.Library, error) {
	g.count("libraries")
	return []gateway.Library{{ID: "lib-1", Name: "Central", Code: "C"}}, nil
}

func (g *countingGateway) MaterialTypes(context.Context, string) ([]gateway.NamedRef, error) {
	g.count("material-types")
	return []gateway.NamedRef{{ID: "mt-1", Name: "book"}}, nil
}

func (g *countingGateway) LoanTypes(context.Context, string) ([]gateway.NamedRef, error) {
	g.count("loan-types")
	return []gateway.NamedRef{{ID: "lt-1", Name: "Can circulate"}}, nil
}

func (g *countingGateway) NoteTypes(context.Context, string) ([]gateway.NamedRef, error) {
	g.count("note-types")
	return []gateway.NamedRef{{ID: "nt-1", Name: "Note"}}, nil
}

func TestMapLoadsLazilyAndOnce(t *testing.T) {
	gw := newCountingGateway()
	lookup, err := NewLookup(gw)
	require.NoError(t, err)
	ctx := context.Background()

	require.Zero(t, gw.loads["locations"])

	m, err := lookup.Map(ctx, "diku", KindLocations)
	require.NoError(t, err)
	require.Equal(t, "Main", m["loc-1"].Name)
	require.Equal(t, "lib-1", m["loc-1"].LibraryID)

	_, err = lookup.Map(ctx, "diku", KindLocations)
	require.NoError(t, err)
	require.Equal(t, 1, gw.loads["locations"])
}

func TestMapIsolatesTenants(t *testing.T) {
	gw := newCountingGateway()
	lookup, err := NewLookup(gw)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = lookup.Map(ctx, "diku", KindLoanTypes)
	require.NoError(t, err)
	_, err = lookup.Map(ctx, "other", KindLoanTypes)
	require.NoError(t, err)

	require.Equal(t, 2, gw.loads["loan-types"])
}

func TestEvictForcesReload(t *testing.T) {
	gw := newCountingGateway()
	lookup, err := NewLookup(gw)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = lookup.Map(ctx, "diku", KindMaterialTypes)
	require.NoError(t, err)

	lookup.Evict("diku", KindMaterialTypes)

	_, err = lookup.Map(ctx, "diku", KindMaterialTypes)
	require.NoError(t, err)
	require.Equal(t, 2, gw.loads["material-types"])
}

func TestEvictIsScopedToKindAndTenant(t *testing.T) {
	gw := newCountingGateway()
	lookup, err := NewLookup(gw)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = lookup.Map(ctx, "diku", KindNoteTypes)
	require.NoError(t, err)
	_, err = lookup.Map(ctx, "diku", KindLibraries)
	require.NoError(t, err)

	lookup.Evict("diku", KindNoteTypes)

	_, err = lookup.Map(ctx, "diku", KindLibraries)
	require.NoError(t, err)
	require.Equal(t, 1, gw.loads["libraries"])
}

func TestUnknownKindFails(t *testing.T) {
	lookup, err := NewLookup(newCountingGateway())
	require.NoError(t, err)

	_, err = lookup.Map(context.Background(), "diku", Kind("bogus"))
	require.Error(t, err)
}
