// Package linecreate selects the move lines offered when creating payment
// lines or document lines from open receivables and payables.
package linecreate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/cel-go/cel"

	"paydocs/internal/core/apperror"
	"paydocs/internal/core/id"
	"paydocs/internal/domain/catalog"
	"paydocs/internal/domain/documents/payment_document"
	"paydocs/internal/domain/documents/payment_order"
	"paydocs/internal/domain/ledger"
)

// Ledger lists move lines.
type Ledger interface {
	Lines(ctx context.Context, f ledger.LineFilter) ([]*ledger.MoveLine, error)
}

// Accounts lists accounts by type.
type Accounts interface {
	Accounts(ctx context.Context, types ...catalog.AccountType) ([]*catalog.Account, error)
}

// Documents reports move lines claimed by document lines.
type Documents interface {
	LinesForMoveLines(ctx context.Context, moveLineIDs []id.ID, states []payment_document.State) ([]*payment_document.DocumentLine, error)
}

// Orders reports move lines claimed by payment lines.
type Orders interface {
	PaymentLinesForMoveLines(ctx context.Context, moveLineIDs []id.ID) ([]*payment_order.PaymentLine, error)
}

// Filter narrows the candidate move lines.
type Filter struct {
	// PaymentType picks receivable lines (inbound) or payable lines (outbound).
	PaymentType catalog.PaymentType
	PartnerID   *id.ID

	// DueDate keeps lines maturing on or before it, and lines without maturity.
	DueDate *time.Time

	// IncludeDraft also offers lines of unposted moves.
	IncludeDraft bool

	// Expression is an optional CEL predicate over "line".
	Expression string
}

// Service computes candidate move lines.
type Service struct {
	ledger    Ledger
	accounts  Accounts
	documents Documents
	orders    Orders
	env       *cel.Env
}

// NewService creates the candidate service. orders may be nil.
func NewService(led Ledger, accounts Accounts, docs Documents, orders Orders) (*Service, error) {
	env, err := cel.NewEnv(cel.Variable("line", cel.MapType(cel.StringType, cel.DynType)))
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	return &Service{
		ledger:    led,
		accounts:  accounts,
		documents: docs,
		orders:    orders,
		env:       env,
	}, nil
}

// Candidates returns unreconciled receivable or payable lines matching f and
// not claimed by a draft, open or advanced payment document, nor by a live
// payment order.
func (s *Service) Candidates(ctx context.Context, f Filter) ([]*ledger.MoveLine, error) {
	if !f.PaymentType.IsValid() {
		return nil, apperror.NewValidation("invalid payment type").WithDetail("field", "paymentType")
	}
	match, err := s.compile(f.Expression)
	if err != nil {
		return nil, err
	}

	accountType := catalog.AccountReceivable
	if f.PaymentType == catalog.PaymentTypeOutbound {
		accountType = catalog.AccountPayable
	}
	accounts, err := s.accounts.Accounts(ctx, accountType)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, nil
	}
	codes := make(map[id.ID]string, len(accounts))
	accountIDs := make([]id.ID, 0, len(accounts))
	for _, a := range accounts {
		codes[a.ID] = a.Code
		accountIDs = append(accountIDs, a.ID)
	}

	lines, err := s.ledger.Lines(ctx, ledger.LineFilter{
		AccountIDs:       accountIDs,
		PartnerID:        f.PartnerID,
		MaturityTo:       f.DueDate,
		OnlyPosted:       !f.IncludeDraft,
		OnlyUnreconciled: true,
	})
	if err != nil {
		return nil, err
	}
	lines, err = s.dropClaimed(ctx, lines)
	if err != nil {
		return nil, err
	}

	if match == nil {
		return lines, nil
	}
	out := lines[:0]
	for _, l := range lines {
		ok, err := match(lineVars(l, codes[l.AccountID]))
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *Service) dropClaimed(ctx context.Context, lines []*ledger.MoveLine) ([]*ledger.MoveLine, error) {
	if len(lines) == 0 {
		return lines, nil
	}
	ids := ledger.LineIDs(lines)
	claimed := make(map[id.ID]struct{})

	docLines, err := s.documents.LinesForMoveLines(ctx, ids, payment_document.ActiveStates)
	if err != nil {
		return nil, err
	}
	for _, dl := range docLines {
		claimed[*dl.MoveLineID] = struct{}{}
	}
	if s.orders != nil {
		payLines, err := s.orders.PaymentLinesForMoveLines(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, pl := range payLines {
			claimed[*pl.MoveLineID] = struct{}{}
		}
	}

	out := make([]*ledger.MoveLine, 0, len(lines))
	for _, l := range lines {
		if _, ok := claimed[l.ID]; !ok {
			out = append(out, l)
		}
	}
	return out, nil
}

// compile checks that expr is a boolean CEL expression. An empty expr yields nil.
func (s *Service) compile(expr string) (func(map[string]any) (bool, error), error) {
	if expr == "" {
		return nil, nil
	}
	ast, iss := s.env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, apperror.NewValidation("invalid filter expression").
			WithDetail("expression", expr).
			WithCause(iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, apperror.NewValidation("filter expression must return a boolean").
			WithDetail("expression", expr)
	}
	prg, err := s.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("cel program: %w", err)
	}
	return func(line map[string]any) (bool, error) {
		out, _, err := prg.Eval(map[string]any{"line": line})
		if err != nil {
			return false, apperror.NewValidation("filter expression failed").
				WithDetail("expression", expr).
				WithCause(err)
		}
		b, ok := out.Value().(bool)
		return ok && b, nil
	}, nil
}

func lineVars(l *ledger.MoveLine, accountCode string) map[string]any {
	residual, _ := l.AmountResidual.Float64()
	vars := map[string]any{
		"name":            l.Name,
		"partner_id":      id.Deref(l.PartnerID).String(),
		"amount_residual": residual,
		"currency":        string(l.Currency),
		"account_code":    accountCode,
		"date_maturity":   "",
	}
	if l.DateMaturity != nil {
		vars["date_maturity"] = l.DateMaturity.Format(time.DateOnly)
	}
	return vars
}
