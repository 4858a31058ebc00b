package payment_order

import (
	"context"
	"fmt"
	"slices"
	"time"

	"paydocs/internal/core/apperror"
	"paydocs/internal/core/clock"
	"paydocs/internal/core/id"
	"paydocs/internal/core/tx"
	"paydocs/internal/domain"
	"paydocs/internal/domain/audit"
	"paydocs/internal/domain/catalog"
	"paydocs/internal/domain/documents/payment_document"
	"paydocs/internal/domain/ledger"
	"paydocs/pkg/logger"
)

// Catalog is the reference data an order reads.
type Catalog interface {
	PaymentMode(ctx context.Context, modeID id.ID) (*catalog.PaymentMode, error)
	Journal(ctx context.Context, journalID id.ID) (*catalog.Journal, error)
	Partner(ctx context.Context, partnerID id.ID) (*catalog.Partner, error)
}

// Ledger is the accounting kernel an order generates moves in.
type Ledger interface {
	CreateMove(ctx context.Context, m *ledger.Move) error
	Post(ctx context.Context, moveID id.ID) error
	Cancel(ctx context.Context, moveID id.ID) error
	Delete(ctx context.Context, moveID id.ID) error
	Reconcile(ctx context.Context, lineIDs []id.ID) (id.ID, error)
	RemoveMoveReconcile(ctx context.Context, lineIDs []id.ID) error
	Move(ctx context.Context, moveID id.ID) (*ledger.Move, error)
	Moves(ctx context.Context, f ledger.MoveFilter) ([]*ledger.Move, error)
	Lines(ctx context.Context, f ledger.LineFilter) ([]*ledger.MoveLine, error)
}

// Documents is the payment document side of the order extension.
type Documents interface {
	Find(ctx context.Context, filter payment_document.ListFilter) ([]*payment_document.PaymentDocument, error)
	AttachToOrder(ctx context.Context, docID, orderID id.ID) (*payment_document.PaymentDocument, error)
	Moves(ctx context.Context, docID id.ID) ([]*ledger.Move, error)
	OffsettingAccount(ctx context.Context, doc *payment_document.PaymentDocument, mode *catalog.PaymentMode) (id.ID, error)
}

// Service provides business operations for payment orders.
type Service struct {
	repo      Repository
	catalog   Catalog
	ledger    Ledger
	documents Documents
	clock     clock.Clock
	txManager tx.Manager
	audit     audit.Recorder
	hooks     *domain.HookRegistry[*PaymentOrder]
}

// NewService creates a new payment order service.
func NewService(
	repo Repository,
	cat Catalog,
	led Ledger,
	docs Documents,
	clk clock.Clock,
	txManager tx.Manager,
	recorder audit.Recorder,
) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{
		repo:      repo,
		catalog:   cat,
		ledger:    led,
		documents: docs,
		clock:     clk,
		txManager: txManager,
		audit:     recorder,
		hooks:     domain.NewHookRegistry[*PaymentOrder](),
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*PaymentOrder] {
	return s.hooks
}

func (s *Service) today() time.Time {
	return clock.Today(s.clock)
}

// Create stores a new draft order, deriving type, journal and date
// preference from its payment mode.
func (s *Service) Create(ctx context.Context, o *PaymentOrder) error {
	if err := s.hooks.RunBeforeCreate(ctx, o); err != nil {
		return err
	}
	mode, err := s.catalog.PaymentMode(ctx, o.PaymentModeID)
	if err != nil {
		return err
	}
	if mode.PaymentType != "" {
		o.PaymentType = mode.PaymentType
	}
	if o.JournalID == nil {
		o.JournalID = mode.DefaultJournal()
	}
	if o.DatePrefered == "" {
		o.DatePrefered = mode.DefaultDatePrefered
		if o.DatePrefered == "" {
			o.DatePrefered = catalog.DatePreferedDue
		}
	}
	if o.CompanyCurrency == "" {
		o.CompanyCurrency = mode.CompanyCurrency
	}
	o.State = StateDraft
	audit.EnrichCreatedByDirect(ctx, &o.CreatedBy, &o.UpdatedBy)

	if err := o.Validate(ctx); err != nil {
		return domain.NormalizeValidationErr(err)
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, o); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		return s.audit.Record(ctx, audit.Entry{
			EntityType: EntityName,
			EntityID:   o.ID,
			Action:     audit.ActionCreate,
			ToState:    string(o.State),
		})
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "payment order created", "id", o.ID, "name", o.Name, "payment_type", o.PaymentType)
	return nil
}

// GetByID retrieves an order with payment lines, bank lines and attached documents.
func (s *Service) GetByID(ctx context.Context, orderID id.ID) (*PaymentOrder, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, domain.NormalizeGetErr(EntityName, err, orderID.String())
	}
	if err := s.loadDetails(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) loadDetails(ctx context.Context, o *PaymentOrder) error {
	var err error
	if o.PaymentLines, err = s.repo.GetPaymentLines(ctx, o.ID); err != nil {
		return fmt.Errorf("get payment lines: %w", err)
	}
	if o.BankLines, err = s.repo.GetBankLines(ctx, o.ID); err != nil {
		return fmt.Errorf("get bank lines: %w", err)
	}
	docs, err := s.documents.Find(ctx, payment_document.ListFilter{PaymentOrderID: id.Ptr(o.ID)})
	if err != nil {
		return err
	}
	o.DocumentIDs = o.DocumentIDs[:0]
	for _, d := range docs {
		o.DocumentIDs = append(o.DocumentIDs, d.ID)
	}
	return nil
}

// List retrieves order headers.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*PaymentOrder], error) {
	return s.repo.List(ctx, filter)
}

// Find retrieves all orders matching filter, with details.
func (s *Service) Find(ctx context.Context, filter ListFilter) ([]*PaymentOrder, error) {
	orders, err := s.repo.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	for _, o := range orders {
		if err := s.loadDetails(ctx, o); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// Moves returns the moves generated for an order.
func (s *Service) Moves(ctx context.Context, orderID id.ID) ([]*ledger.Move, error) {
	return s.ledger.Moves(ctx, ledger.MoveFilter{PaymentOrderID: id.Ptr(orderID)})
}

// transition mirrors payment_document's: load, check state, mutate, store.
func (s *Service) transition(
	ctx context.Context,
	orderID id.ID,
	action string,
	from []State,
	to State,
	mutate func(ctx context.Context, o *PaymentOrder) error,
) (*PaymentOrder, error) {
	ctx = logger.WithOrder(ctx, orderID)
	var o *PaymentOrder
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		o, err = s.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if len(from) > 0 && !slices.Contains(from, o.State) {
			return apperror.NewInvalidState(EntityName, string(o.State), action)
		}
		if mutate != nil {
			if err := mutate(ctx, o); err != nil {
				return err
			}
		}
		prev := o.State
		o.State = to
		audit.EnrichUpdatedByDirect(ctx, &o.UpdatedBy)
		o.Touch()
		if err := s.repo.Update(ctx, o); err != nil {
			return fmt.Errorf("%s: %w", action, err)
		}
		if err := s.audit.Record(ctx, audit.Transition(EntityName, o.ID, string(prev), string(to))); err != nil {
			return err
		}
		if err := s.hooks.RunAfterTransition(ctx, o); err != nil {
			return err
		}
		logger.Info(ctx, "payment order state changed", "name", o.Name, "from", prev, "to", to)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// AddMoveLines creates payment lines from move lines on a draft order.
// Lines already on the order are skipped.
func (s *Service) AddMoveLines(ctx context.Context, orderID id.ID, moveLineIDs []id.ID) (*PaymentOrder, error) {
	var o *PaymentOrder
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		o, err = s.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := o.CanModify(); err != nil {
			return err
		}
		lines, err := s.paymentLinesFor(ctx, o, moveLineIDs)
		if err != nil {
			return err
		}
		o.PaymentLines = append(o.PaymentLines, lines...)
		if err := s.repo.SavePaymentLines(ctx, o.ID, o.PaymentLines); err != nil {
			return fmt.Errorf("save payment lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// paymentLinesFor builds payment lines for move lines the order does not claim yet.
func (s *Service) paymentLinesFor(ctx context.Context, o *PaymentOrder, moveLineIDs []id.ID) ([]*PaymentLine, error) {
	own := o.MoveLineIDs()
	var wanted []id.ID
	for _, mlID := range id.Unique(moveLineIDs) {
		if !slices.Contains(own, mlID) {
			wanted = append(wanted, mlID)
		}
	}
	if len(wanted) == 0 {
		return nil, nil
	}
	mlines, err := s.ledger.Lines(ctx, ledger.LineFilter{IDs: wanted})
	if err != nil {
		return nil, err
	}
	moves := make(map[id.ID]*ledger.Move)
	out := make([]*PaymentLine, 0, len(mlines))
	for _, ml := range mlines {
		move, ok := moves[ml.MoveID]
		if !ok {
			if move, err = s.ledger.Move(ctx, ml.MoveID); err != nil {
				return nil, err
			}
			moves[ml.MoveID] = move
		}
		out = append(out, PaymentLineFromMoveLine(o, move, ml))
	}
	return out, nil
}

// AttachDocuments imports open documents of the same payment type into a draft order.
func (s *Service) AttachDocuments(ctx context.Context, orderID id.ID, docIDs []id.ID) (*PaymentOrder, error) {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := o.CanModify(); err != nil {
			return err
		}
		docIDs = id.Unique(docIDs)
		docs, err := s.documents.Find(ctx, payment_document.ListFilter{ListFilter: domain.ListFilter{IDs: docIDs}})
		if err != nil {
			return err
		}
		if len(docs) != len(docIDs) {
			return apperror.NewNotFound(payment_document.EntityName, docIDs)
		}
		for _, d := range docs {
			if d.PaymentType != o.PaymentType {
				return apperror.NewValidation(fmt.Sprintf(
					"Payment document %s is %s but payment order %s is %s.",
					d.Name, d.PaymentType, o.Name, o.PaymentType))
			}
			if _, err := s.documents.AttachToOrder(ctx, d.ID, o.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, orderID)
}

// Draft2Open turns the transit lines of attached documents into payment
// lines, computes execution dates and groups the lines into bank lines.
func (s *Service) Draft2Open(ctx context.Context, orderID id.ID) (*PaymentOrder, error) {
	return s.transition(ctx, orderID, "open", []State{StateDraft}, StateOpen,
		func(ctx context.Context, o *PaymentOrder) error {
			if err := s.importDocumentLines(ctx, o); err != nil {
				return err
			}
			if len(o.PaymentLines) == 0 {
				return apperror.NewUserError(fmt.Sprintf("There are no transactions on payment order %s.", o.Name))
			}

			today := s.today()
			for _, pl := range o.PaymentLines {
				date := s.executionDate(o, pl, today)
				pl.Date = &date
			}
			o.BankLines = groupBankLines(o)

			if err := s.repo.SavePaymentLines(ctx, o.ID, o.PaymentLines); err != nil {
				return fmt.Errorf("save payment lines: %w", err)
			}
			if err := s.repo.SaveBankLines(ctx, o.ID, o.BankLines); err != nil {
				return fmt.Errorf("save bank lines: %w", err)
			}
			return nil
		})
}

// importDocumentLines claims, for every attached document, the generated
// move lines on the document's offsetting account not yet on the order.
func (s *Service) importDocumentLines(ctx context.Context, o *PaymentOrder) error {
	if len(o.DocumentIDs) == 0 {
		return nil
	}
	docs, err := s.documents.Find(ctx, payment_document.ListFilter{ListFilter: domain.ListFilter{IDs: o.DocumentIDs}})
	if err != nil {
		return err
	}
	for _, doc := range docs {
		mode, err := s.catalog.PaymentMode(ctx, doc.PaymentModeID)
		if err != nil {
			return err
		}
		accountID, err := s.documents.OffsettingAccount(ctx, doc, mode)
		if err != nil {
			if apperror.IsUserError(err) {
				logger.Warn(ctx, "document has no offsetting account, skipped", "document_id", doc.ID, "error", err)
				continue
			}
			return err
		}
		moves, err := s.documents.Moves(ctx, doc.ID)
		if err != nil {
			return err
		}
		var candidates []id.ID
		for _, ml := range ledger.AllLines(moves) {
			if ml.AccountID == accountID {
				candidates = append(candidates, ml.ID)
			}
		}
		lines, err := s.paymentLinesFor(ctx, o, candidates)
		if err != nil {
			return err
		}
		o.PaymentLines = append(o.PaymentLines, lines...)
	}
	return nil
}

// executionDate is today for "now", the maturity for "due" and the scheduled
// date for "fixed", never earlier than today.
func (s *Service) executionDate(o *PaymentOrder, pl *PaymentLine, today time.Time) time.Time {
	var date time.Time
	switch o.DatePrefered {
	case catalog.DatePreferedDue:
		if pl.DateMaturity != nil {
			date = clock.Date(*pl.DateMaturity)
		}
	case catalog.DatePreferedFixed:
		if o.DateScheduled != nil {
			date = clock.Date(*o.DateScheduled)
		}
	}
	if date.Before(today) {
		return today
	}
	return date
}

// Generate marks the payment file as generated.
func (s *Service) Generate(ctx context.Context, orderID id.ID) (*PaymentOrder, error) {
	return s.transition(ctx, orderID, "generate", []State{StateOpen}, StateGenerated,
		func(ctx context.Context, o *PaymentOrder) error {
			today := s.today()
			o.DateGenerated = &today
			return nil
		})
}

// Generated2Uploaded records the upload, generates the order moves when the
// mode asks for it and, for orders fed by documents, reconciles the document
// transit lines with the order's bank line lines.
func (s *Service) Generated2Uploaded(ctx context.Context, orderID id.ID) (*PaymentOrder, error) {
	return s.transition(ctx, orderID, "upload", []State{StateGenerated}, StateUploaded,
		func(ctx context.Context, o *PaymentOrder) error {
			mode, err := s.catalog.PaymentMode(ctx, o.PaymentModeID)
			if err != nil {
				return err
			}
			if mode.GenerateMove {
				if err := s.generateMoves(ctx, o, mode); err != nil {
					return err
				}
			}
			if o.OnlyDocs() {
				for _, b := range o.BankLines {
					if err := s.reconcileBankLine(ctx, o, b); err != nil {
						return err
					}
				}
			}
			today := s.today()
			o.DateUploaded = &today
			return nil
		})
}

// ActionDone closes an uploaded order.
func (s *Service) ActionDone(ctx context.Context, orderID id.ID) (*PaymentOrder, error) {
	return s.transition(ctx, orderID, "done", []State{StateUploaded}, StateDone,
		func(ctx context.Context, o *PaymentOrder) error {
			today := s.today()
			o.DateDone = &today
			return nil
		})
}

// Cancel voids the order moves, drops its bank lines and cancels it.
func (s *Service) Cancel(ctx context.Context, orderID id.ID) (*PaymentOrder, error) {
	o, err := s.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.State == StateCancel {
		return o, nil
	}
	return s.transition(ctx, orderID, "cancel", nil, StateCancel,
		func(ctx context.Context, o *PaymentOrder) error {
			moves, err := s.Moves(ctx, o.ID)
			if err != nil {
				return err
			}
			for _, m := range moves {
				if err := s.ledger.Cancel(ctx, m.ID); err != nil {
					return err
				}
				if err := s.ledger.RemoveMoveReconcile(ctx, ledger.LineIDs(m.Lines)); err != nil {
					return err
				}
				if err := s.ledger.Delete(ctx, m.ID); err != nil {
					return err
				}
			}
			for _, pl := range o.PaymentLines {
				pl.BankLineID = nil
				pl.Date = nil
			}
			o.BankLines = nil
			if err := s.repo.SaveBankLines(ctx, o.ID, nil); err != nil {
				return fmt.Errorf("drop bank lines: %w", err)
			}
			if err := s.repo.SavePaymentLines(ctx, o.ID, o.PaymentLines); err != nil {
				return fmt.Errorf("save payment lines: %w", err)
			}
			return nil
		})
}

// Cancel2Draft reopens a cancelled order.
func (s *Service) Cancel2Draft(ctx context.Context, orderID id.ID) (*PaymentOrder, error) {
	return s.transition(ctx, orderID, "reset to draft", []State{StateCancel}, StateDraft, nil)
}

// PaymentLinesForMoveLines returns payment lines of non-cancelled orders
// claiming any of the move lines.
func (s *Service) PaymentLinesForMoveLines(ctx context.Context, moveLineIDs []id.ID) ([]*PaymentLine, error) {
	if len(moveLineIDs) == 0 {
		return nil, nil
	}
	lines, err := s.repo.FindPaymentLinesByMoveLines(ctx, moveLineIDs)
	if err != nil {
		return nil, fmt.Errorf("find payment lines: %w", err)
	}
	return lines, nil
}
