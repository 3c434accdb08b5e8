package gateway

import "time"

// Statement is one holdings statement line.
type Statement struct {
	Statement string `json:"statement"`
	Note      string `json:"note,omitempty"`
}

// Note is a holdings or item note. StaffOnly notes never reach the read model.
type Note struct {
	NoteTypeID string `json:"noteTypeId"`
	Note       string `json:"note"`
	StaffOnly  bool   `json:"staffOnly"`
}

// Holding is an upstream holdings record fragment.
type Holding struct {
	ID                  string      `json:"id"`
	InstanceID          string      `json:"instanceId"`
	PermanentLocationID string      `json:"permanentLocationId"`
	EffectiveLocationID string      `json:"effectiveLocationId,omitempty"`
	CallNumber          string      `json:"callNumber,omitempty"`
	HoldingsStatements  []Statement `json:"holdingsStatements,omitempty"`
	Notes               []Note      `json:"notes,omitempty"`
}

// EffectiveLocation resolves the location governing the holding.
func (h Holding) EffectiveLocation() string {
	if h.EffectiveLocationID != "" {
		return h.EffectiveLocationID
	}
	return h.PermanentLocationID
}

// ItemStatus wraps the named status of an item.
type ItemStatus struct {
	Name string `json:"name"`
}

// Item is an upstream item record fragment.
type Item struct {
	ID                  string     `json:"id"`
	HoldingsRecordID    string     `json:"holdingsRecordId"`
	Barcode             string     `json:"barcode,omitempty"`
	Status              ItemStatus `json:"status"`
	MaterialTypeID      string     `json:"materialTypeId,omitempty"`
	PermanentLoanTypeID string     `json:"permanentLoanTypeId,omitempty"`
	TemporaryLoanTypeID string     `json:"temporaryLoanTypeId,omitempty"`
	EffectiveLocationID string     `json:"effectiveLocationId,omitempty"`
	DisplaySummary      string     `json:"displaySummary,omitempty"`
	Enumeration         string     `json:"enumeration,omitempty"`
	Chronology          string     `json:"chronology,omitempty"`
	Volume              string     `json:"volume,omitempty"`
	Notes               []Note     `json:"notes,omitempty"`
}

// LoanTypeID resolves the loan type governing the item.
func (i Item) LoanTypeID() string {
	if i.TemporaryLoanTypeID != "" {
		return i.TemporaryLoanTypeID
	}
	return i.PermanentLoanTypeID
}

// Piece is an upstream acquisitions piece fragment.
type Piece struct {
	ID              string `json:"id"`
	HoldingID       string `json:"holdingId"`
	DisplaySummary  string `json:"displaySummary,omitempty"`
	Enumeration     string `json:"enumeration,omitempty"`
	Chronology      string `json:"chronology,omitempty"`
	ReceivingStatus string `json:"receivingStatus,omitempty"`
}

// LoanStatus wraps the named status of a loan.
type LoanStatus struct {
	Name string `json:"name"`
}

// Loan is an upstream circulation loan fragment.
type Loan struct {
	ID      string     `json:"id"`
	ItemID  string     `json:"itemId"`
	Status  LoanStatus `json:"status"`
	DueDate *time.Time `json:"dueDate,omitempty"`
}

// Request is an upstream circulation request fragment.
type Request struct {
	ID     string `json:"id"`
	ItemID string `json:"itemId,omitempty"`
	Status string `json:"status"`
}

// Instance is an upstream instance fragment carrying denormalized attributes.
type Instance struct {
	ID                string   `json:"id"`
	Source            *string  `json:"source,omitempty"`
	InstanceFormatIDs []string `json:"instanceFormatIds,omitempty"`
}

// Location is a reference location record.
type Location struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	LibraryID string `json:"libraryId"`
}

// Library is a reference library record.
type Library struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// NamedRef is a reference record carrying only an id and a display name
// (material types, loan types, note types).
type NamedRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
