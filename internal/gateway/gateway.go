package gateway

import "context"

// Gateway exposes the upstream record systems (inventory, circulation,
// acquisitions) behind typed paged queries. Implementations own transport
// concerns such as timeouts and retries; callers treat every error as fatal
// for the operation in flight.
type Gateway interface {
	// HoldingsCount returns the number of holdings attached to an instance.
	HoldingsCount(ctx context.Context, tenant, instanceID string) (int, error)

	// Holdings pages the holdings of an instance.
	Holdings(ctx context.Context, tenant, instanceID string, limit, offset int) ([]Holding, error)

	// Items pages the items of a holdings record.
	Items(ctx context.Context, tenant, holdingsID string, limit, offset int) ([]Item, error)

	// Pieces fetches the pieces of a holdings record, bounded by limit.
	Pieces(ctx context.Context, tenant, holdingID string, limit int) ([]Piece, error)

	// OpenLoans returns open loans for the supplied item ids.
	OpenLoans(ctx context.Context, tenant string, itemIDs []string) ([]Loan, error)

	// OpenRequests returns open requests for the supplied item ids.
	OpenRequests(ctx context.Context, tenant string, itemIDs []string) ([]Request, error)

	ReferenceGateway
}

// ReferenceGateway loads reference data sets. Split out so the lookup cache
// can depend on the narrow surface it actually uses.
type ReferenceGateway interface {
	Locations(ctx context.Context, tenant string) ([]Location, error)
	Libraries(ctx context.Context, tenant string) ([]Library, error)
	MaterialTypes(ctx context.Context, tenant string) ([]NamedRef, error)
	LoanTypes(ctx context.Context, tenant string) ([]NamedRef, error)
	NoteTypes(ctx context.Context, tenant string) ([]NamedRef, error)
}
