package mapper

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/folio-org/mod-rtac-cache-sub000/internal/gateway"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/models"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/refdata"
)

type fakeRefGateway struct{}

func (fakeRefGateway) Locations(context.Context, string) ([]gateway.Location, error) {
	return []gateway.Location{
		{ID: "loc-1", Name: "Main Stacks", Code: "MAIN", LibraryID: "lib-1"},
		{ID: "loc-2", Name: "Annex", Code: "ANX", LibraryID: "lib-1"},
	}, nil
}

func (fakeRefGateway) Libraries(context.Context, string) ([]gateway.Library, error) {
	return []gateway.Library{{ID: "lib-1", Name: "Central Library", Code: "CL"}}, nil
}

func (fakeRefGateway) MaterialTypes(context.Context, string) ([]gateway.NamedRef, error) {
	return []gateway.NamedRef{{ID: "mt-1", Name: "book"}}, nil
}

func (fakeRefGateway) LoanTypes(context.Context, string) ([]gateway.NamedRef, error) {
	return []gateway.NamedRef{
		{ID: "lt-1", Name: "Can circulate"},
		{ID: "lt-2", Name: "Reading room"},
	}, nil
}

func (fakeRefGateway) NoteTypes(context.Context, string) ([]gateway.NamedRef, error) {
	return []gateway.NamedRef{{ID: "nt-1", Name: "Note"}}, nil
}

func newTestLookup(t *testing.T) *refdata.Lookup {
	t.Helper()
	ref, err := refdata.NewLookup(fakeRefGateway{})
	require.NoError(t, err)
	return ref
}

func TestItemVolumePrecedence(t *testing.T) {
	tests := []struct {
		name string
		item gateway.Item
		want *string
	}{
		{
			name: "display summary wins",
			item: gateway.Item{DisplaySummary: "DS", Enumeration: "E", Chronology: "C", Volume: "V"},
			want: strPtr("(DS)"),
		},
		{
			name: "enumeration with chronology",
			item: gateway.Item{Enumeration: "E", Chronology: "C", Volume: "V"},
			want: strPtr("(E C)"),
		},
		{
			name: "enumeration alone",
			item: gateway.Item{Enumeration: "v.12"},
			want: strPtr("(v.12)"),
		},
		{
			name: "volume fallback",
			item: gateway.Item{Volume: "V", Chronology: "C"},
			want: strPtr("(V)"),
		},
		{
			name: "chronology last",
			item: gateway.Item{Chronology: "1998"},
			want: strPtr("(1998)"),
		},
		{
			name: "nothing yields nil",
			item: gateway.Item{},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ItemVolume(tt.item)
			if tt.want == nil {
				require.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			require.Equal(t, *tt.want, *got)
		})
	}
}

func TestPieceVolumeHasNoVolumeFallback(t *testing.T) {
	require.Equal(t, "(DS)", PieceVolume(gateway.Piece{DisplaySummary: "DS", Enumeration: "E"}))
	require.Equal(t, "(E C)", PieceVolume(gateway.Piece{Enumeration: "E", Chronology: "C"}))
	require.Equal(t, "(C)", PieceVolume(gateway.Piece{Chronology: "C"}))
	require.Equal(t, "", PieceVolume(gateway.Piece{}))
}

func TestFromHoldingResolvesLocationAndNotes(t *testing.T) {
	ref := newTestLookup(t)
	h := gateway.Holding{
		ID:                  "h-1",
		InstanceID:          "inst-1",
		PermanentLocationID: "loc-1",
		CallNumber:          "QA76.73",
		HoldingsStatements:  []gateway.Statement{{Statement: "v.1-10"}},
		Notes: []gateway.Note{
			{NoteTypeID: "nt-1", Note: "public note"},
			{NoteTypeID: "nt-1", Note: "internal", StaffOnly: true},
		},
	}

	rec, err := FromHolding(context.Background(), ref, "diku", h)
	require.NoError(t, err)

	require.Equal(t, "inst-1", rec.InstanceID)
	require.Equal(t, models.RecordTypeHolding, rec.RecordType)
	require.Equal(t, "h-1", rec.RecordID)
	require.Equal(t, "h-1", rec.HoldingsID)
	require.Equal(t, "QA76.73", rec.CallNumber)
	require.Equal(t, "Main Stacks", rec.LocationName)
	require.Equal(t, "MAIN", rec.LocationCode)
	require.Equal(t, "lib-1", rec.LibraryID)
	require.Equal(t, "Central Library", rec.LibraryName)

	var notes []PublicNote
	require.NoError(t, json.Unmarshal(rec.PublicNotes, &notes))
	require.Len(t, notes, 1)
	require.Equal(t, "public note", notes[0].Note)
	require.Equal(t, "Note", notes[0].NoteType)
}

func TestFromHoldingEffectiveLocationOverridesPermanent(t *testing.T) {
	ref := newTestLookup(t)
	h := gateway.Holding{
		ID:                  "h-1",
		InstanceID:          "inst-1",
		PermanentLocationID: "loc-1",
		EffectiveLocationID: "loc-2",
	}

	rec, err := FromHolding(context.Background(), ref, "diku", h)
	require.NoError(t, err)
	require.Equal(t, "loc-2", rec.LocationID)
	require.Equal(t, "Annex", rec.LocationName)
}

func TestFromItemMergesHoldingContextAndEnrichment(t *testing.T) {
	ref := newTestLookup(t)
	h := gateway.Holding{ID: "h-1", InstanceID: "inst-1", PermanentLocationID: "loc-1", CallNumber: "CN"}
	due := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	holds := 2
	it := gateway.Item{
		ID:                  "it-1",
		HoldingsRecordID:    "h-1",
		Barcode:             "0001",
		Status:              gateway.ItemStatus{Name: "Checked out"},
		MaterialTypeID:      "mt-1",
		PermanentLoanTypeID: "lt-1",
		Enumeration:         "v.3",
	}

	rec, err := FromItem(context.Background(), ref, "diku", h, it, Enrichment{DueDate: &due, HoldRequests: &holds})
	require.NoError(t, err)

	require.Equal(t, models.RecordTypeItem, rec.RecordType)
	require.Equal(t, "it-1", rec.RecordID)
	require.Equal(t, "h-1", rec.HoldingsID)
	require.Equal(t, "CN", rec.CallNumber)
	require.Equal(t, "Checked out", rec.Status)
	require.Equal(t, "book", rec.MaterialType)
	require.Equal(t, "Can circulate", rec.LoanType)
	require.NotNil(t, rec.Volume)
	require.Equal(t, "(v.3)", *rec.Volume)
	require.Equal(t, &due, rec.DueDate)
	require.Equal(t, 2, *rec.TotalHoldRequests)
	// Item without its own effective location inherits the holding's.
	require.Equal(t, "loc-1", rec.LocationID)
}

func TestFromItemTemporaryLoanTypeWins(t *testing.T) {
	ref := newTestLookup(t)
	h := gateway.Holding{ID: "h-1", InstanceID: "inst-1", PermanentLocationID: "loc-1"}
	it := gateway.Item{
		ID:                  "it-1",
		Status:              gateway.ItemStatus{Name: "Available"},
		PermanentLoanTypeID: "lt-1",
		TemporaryLoanTypeID: "lt-2",
	}

	rec, err := FromItem(context.Background(), ref, "diku", h, it, Enrichment{})
	require.NoError(t, err)
	require.Equal(t, "Reading room", rec.LoanType)
}

func TestFromItemOwnLocationOverridesHolding(t *testing.T) {
	ref := newTestLookup(t)
	h := gateway.Holding{ID: "h-1", InstanceID: "inst-1", PermanentLocationID: "loc-1"}
	it := gateway.Item{
		ID:                  "it-1",
		Status:              gateway.ItemStatus{Name: "Available"},
		EffectiveLocationID: "loc-2",
	}

	rec, err := FromItem(context.Background(), ref, "diku", h, it, Enrichment{})
	require.NoError(t, err)
	require.Equal(t, "loc-2", rec.LocationID)
	require.Equal(t, "Annex", rec.LocationName)
}

func TestFromPieceStoresEmptyVolume(t *testing.T) {
	ref := newTestLookup(t)
	h := gateway.Holding{ID: "h-1", InstanceID: "inst-1", PermanentLocationID: "loc-1"}
	p := gateway.Piece{ID: "p-1", HoldingID: "h-1", ReceivingStatus: "Received"}

	rec, err := FromPiece(context.Background(), ref, "diku", h, p)
	require.NoError(t, err)
	require.Equal(t, models.RecordTypePiece, rec.RecordType)
	require.Equal(t, "Received", rec.Status)
	require.NotNil(t, rec.Volume)
	require.Equal(t, "", *rec.Volume)
}

func TestFromItemWithParentClearsVariantState(t *testing.T) {
	ref := newTestLookup(t)
	due := time.Now()
	holds := 3
	parent := models.AvailabilityRecord{
		InstanceID:        "inst-1",
		RecordType:        models.RecordTypeHolding,
		RecordID:          "h-1",
		HoldingsID:        "h-1",
		CallNumber:        "CN",
		LocationID:        "loc-1",
		LocationName:      "Main Stacks",
		BoundWith:         true,
		DueDate:           &due,
		TotalHoldRequests: &holds,
		CreatedAt:         time.Now().Add(-time.Hour),
	}
	it := gateway.Item{ID: "it-1", Status: gateway.ItemStatus{Name: "Available"}, Barcode: "b"}

	rec, err := FromItemWithParent(context.Background(), ref, "diku", parent, it)
	require.NoError(t, err)

	require.Equal(t, models.RecordTypeItem, rec.RecordType)
	require.Equal(t, "it-1", rec.RecordID)
	require.Equal(t, "h-1", rec.HoldingsID)
	require.False(t, rec.BoundWith)
	require.Nil(t, rec.DueDate)
	require.Nil(t, rec.TotalHoldRequests)
	require.True(t, rec.CreatedAt.IsZero())
	// Denormalized holding context carries over.
	require.Equal(t, "CN", rec.CallNumber)
	require.Equal(t, "Main Stacks", rec.LocationName)
}

func TestFromPieceWithParentClearsItemOnlyFields(t *testing.T) {
	parent := models.AvailabilityRecord{
		InstanceID:   "inst-1",
		RecordType:   models.RecordTypeHolding,
		RecordID:     "h-1",
		HoldingsID:   "h-1",
		Barcode:      "b",
		MaterialType: "book",
		LoanType:     "Can circulate",
	}
	p := gateway.Piece{ID: "p-1", ReceivingStatus: "Expected", Enumeration: "no.4"}

	rec := FromPieceWithParent(parent, p)
	require.Equal(t, models.RecordTypePiece, rec.RecordType)
	require.Equal(t, "p-1", rec.RecordID)
	require.Equal(t, "Expected", rec.Status)
	require.Empty(t, rec.Barcode)
	require.Empty(t, rec.MaterialType)
	require.Empty(t, rec.LoanType)
	require.Equal(t, "(no.4)", *rec.Volume)
}

func TestRemapItemPreservesCirculationState(t *testing.T) {
	ref := newTestLookup(t)
	due := time.Now()
	holds := 1
	existing := models.AvailabilityRecord{
		InstanceID:        "inst-1",
		RecordType:        models.RecordTypeItem,
		RecordID:          "it-1",
		HoldingsID:        "h-1",
		Status:            "Checked out",
		DueDate:           &due,
		TotalHoldRequests: &holds,
	}
	it := gateway.Item{
		ID:               "it-1",
		HoldingsRecordID: "h-2",
		Status:           gateway.ItemStatus{Name: "In transit"},
		Barcode:          "0002",
	}

	rec, err := RemapItem(context.Background(), ref, "diku", existing, it)
	require.NoError(t, err)
	require.Equal(t, "In transit", rec.Status)
	require.Equal(t, "0002", rec.Barcode)
	require.Equal(t, "h-2", rec.HoldingsID)
	require.Equal(t, &due, rec.DueDate)
	require.Equal(t, &holds, rec.TotalHoldRequests)
}

func TestRemapBoundWithItemKeepsItemState(t *testing.T) {
	ref := newTestLookup(t)
	due := time.Now()
	existing := models.AvailabilityRecord{
		InstanceID: "inst-2",
		RecordType: models.RecordTypeItem,
		RecordID:   "it-1",
		HoldingsID: "h-2",
		BoundWith:  true,
		Status:     "Checked out",
		DueDate:    &due,
	}
	h := gateway.Holding{ID: "h-2", InstanceID: "inst-2", PermanentLocationID: "loc-2", CallNumber: "NEW"}

	rec, err := RemapBoundWithItem(context.Background(), ref, "diku", existing, h)
	require.NoError(t, err)
	require.Equal(t, "NEW", rec.CallNumber)
	require.Equal(t, "Annex", rec.LocationName)
	require.Equal(t, "Checked out", rec.Status)
	require.Equal(t, &due, rec.DueDate)
	require.True(t, rec.BoundWith)
}

func strPtr(s string) *string { return &s }
