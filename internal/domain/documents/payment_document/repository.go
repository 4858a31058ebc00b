package payment_document

import (
	"context"
	"time"

	"paydocs/internal/core/id"
	"paydocs/internal/domain"
	"paydocs/internal/domain/catalog"
)

// ListFilter extends domain.ListFilter with document-specific filters.
type ListFilter struct {
	domain.ListFilter

	States         []State
	PartnerID      *id.ID
	PaymentOrderID *id.ID
	PaymentType    catalog.PaymentType

	// DueFrom and DueTo bound date_due inclusively; documents without a due date never match.
	DueFrom *time.Time
	DueTo   *time.Time
}

// Repository defines the interface for payment document persistence.
type Repository interface {
	// Create inserts the document header.
	Create(ctx context.Context, doc *PaymentDocument) error

	// Update stores the header with optimistic locking on Version.
	Update(ctx context.Context, doc *PaymentDocument) error

	// Delete removes the document and its lines.
	Delete(ctx context.Context, docID id.ID) error

	// GetByID retrieves the document header.
	GetByID(ctx context.Context, docID id.ID) (*PaymentDocument, error)

	// GetLines retrieves the lines of a document.
	GetLines(ctx context.Context, docID id.ID) ([]*DocumentLine, error)

	// SaveLines replaces the lines of a document.
	SaveLines(ctx context.Context, docID id.ID, lines []*DocumentLine) error

	// List retrieves headers with filtering and pagination.
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*PaymentDocument], error)

	// Find retrieves all headers matching the filter, ignoring pagination.
	Find(ctx context.Context, filter ListFilter) ([]*PaymentDocument, error)

	// FindLinesByMoveLines returns lines claiming any of the move lines whose
	// document is in one of states (all states when empty).
	FindLinesByMoveLines(ctx context.Context, moveLineIDs []id.ID, states []State) ([]*DocumentLine, error)
}
