package ledger

import (
	"context"
	"time"

	"paydocs/internal/core/id"
)

// MoveFilter selects moves. Empty fields do not filter.
type MoveFilter struct {
	IDs               []id.ID
	PaymentDocumentID *id.ID
	PaymentOrderID    *id.ID
	States            []MoveState
}

// LineFilter selects move lines. Empty fields do not filter.
type LineFilter struct {
	IDs                []id.ID
	MoveIDs            []id.ID
	AccountIDs         []id.ID
	DocumentLineIDs    []id.ID
	BankPaymentLineIDs []id.ID
	PartnerID          *id.ID

	// MaturityTo keeps lines maturing on or before the date, and lines without maturity.
	MaturityTo *time.Time

	OnlyPosted       bool
	OnlyUnreconciled bool
}

// Repository defines persistence of moves and their lines.
type Repository interface {
	// CreateMove inserts the move and all of its lines.
	CreateMove(ctx context.Context, m *Move) error

	// UpdateMove stores header fields (state, number, payment state) with optimistic locking.
	UpdateMove(ctx context.Context, m *Move) error

	// DeleteMove removes the move and its lines.
	DeleteMove(ctx context.Context, moveID id.ID) error

	// GetMove loads a move with its lines.
	GetMove(ctx context.Context, moveID id.ID) (*Move, error)

	// ListMoves loads moves with their lines, ordered by date then creation.
	ListMoves(ctx context.Context, f MoveFilter) ([]*Move, error)

	// ListLines returns lines ordered by maturity date then ID.
	ListLines(ctx context.Context, f LineFilter) ([]*MoveLine, error)

	// UpdateLines stores the reconciliation fields of lines.
	UpdateLines(ctx context.Context, lines []*MoveLine) error
}
