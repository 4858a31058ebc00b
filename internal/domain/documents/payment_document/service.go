package payment_document

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
	"paydocs/internal/domain/ledger"
	"paydocs/pkg/logger"
)

// Catalog is the reference data a document reads.
type Catalog interface {
	PaymentMode(ctx context.Context, modeID id.ID) (*catalog.PaymentMode, error)
	PaymentMethod(ctx context.Context, methodID id.ID) (*catalog.PaymentMethod, error)
	Journal(ctx context.Context, journalID id.ID) (*catalog.Journal, error)
	Partner(ctx context.Context, partnerID id.ID) (*catalog.Partner, error)
}

// Ledger is the accounting kernel a document generates and voids moves in.
type Ledger interface {
	CreateMove(ctx context.Context, m *ledger.Move) error
	Post(ctx context.Context, moveID id.ID) error
	Cancel(ctx context.Context, moveID id.ID) error
	Delete(ctx context.Context, moveID id.ID) error
	RemoveMoveReconcile(ctx context.Context, lineIDs []id.ID) error
	Move(ctx context.Context, moveID id.ID) (*ledger.Move, error)
	Moves(ctx context.Context, f ledger.MoveFilter) ([]*ledger.Move, error)
	Lines(ctx context.Context, f ledger.LineFilter) ([]*ledger.MoveLine, error)
}

// Service provides business operations for payment documents.
type Service struct {
	repo      Repository
	catalog   Catalog
	ledger    Ledger
	clock     clock.Clock
	txManager tx.Manager
	audit     audit.Recorder
	hooks     *domain.HookRegistry[*PaymentDocument]
}

// NewService creates a new payment document service.
func NewService(
	repo Repository,
	cat Catalog,
	led Ledger,
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
		clock:     clk,
		txManager: txManager,
		audit:     recorder,
		hooks:     domain.NewHookRegistry[*PaymentDocument](),
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*PaymentDocument] {
	return s.hooks
}

func (s *Service) today() time.Time {
	return clock.Today(s.clock)
}

// Create stores a new draft document, deriving payment type, journal and
// date preference from its payment mode.
func (s *Service) Create(ctx context.Context, doc *PaymentDocument) error {
	if err := s.hooks.RunBeforeCreate(ctx, doc); err != nil {
		return err
	}

	mode, err := s.catalog.PaymentMode(ctx, doc.PaymentModeID)
	if err != nil {
		return err
	}
	s.applyModeDefaults(doc, mode)
	doc.State = StateDraft
	audit.EnrichCreatedByDirect(ctx, &doc.CreatedBy, &doc.UpdatedBy)
	for _, l := range doc.Lines {
		if id.IsNil(l.ID) {
			l.ID = id.New()
		}
		l.DocumentID = doc.ID
	}
	doc.ComputeTotal()

	if err := s.checkInvariants(ctx, doc, mode, true); err != nil {
		return err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.catalog.Partner(ctx, doc.PartnerID); err != nil {
			return err
		}
		if err := s.checkUnclaimed(ctx, doc.ID, doc.MoveLineIDs()); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return s.audit.Record(ctx, audit.Entry{
			EntityType: EntityName,
			EntityID:   doc.ID,
			Action:     audit.ActionCreate,
			ToState:    string(doc.State),
		})
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "payment document created",
		"id", doc.ID,
		"name", doc.Name,
		"payment_type", doc.PaymentType)
	return nil
}

func (s *Service) applyModeDefaults(doc *PaymentDocument, mode *catalog.PaymentMode) {
	if doc.Date.IsZero() {
		doc.Date = s.today()
	} else {
		doc.Date = clock.Date(doc.Date)
	}
	if mode.PaymentType != "" {
		doc.PaymentType = mode.PaymentType
	}
	doc.PaymentMethodID = mode.PaymentMethodID
	applyModeJournal(doc, mode)
	if doc.DatePrefered == "" || doc.DatePrefered == catalog.DatePreferedFixed {
		doc.DatePrefered = mode.DocumentDatePrefered()
	}
	if doc.CompanyCurrency == "" {
		doc.CompanyCurrency = mode.CompanyCurrency
	}
}

// applyModeJournal forces the journal of a fixed-link mode and otherwise
// fills the mode's default when none is set.
func applyModeJournal(doc *PaymentDocument, mode *catalog.PaymentMode) {
	switch {
	case mode.BankAccountLink == catalog.LinkFixed && id.IsSet(mode.FixedJournalID):
		doc.JournalID = id.Ptr(*mode.FixedJournalID)
	case doc.JournalID == nil:
		doc.JournalID = mode.DefaultJournal()
	}
}

// checkInvariants validates the document; the due date is only checked when
// it is being written.
func (s *Service) checkInvariants(ctx context.Context, doc *PaymentDocument, mode *catalog.PaymentMode, checkDue bool) error {
	if err := doc.Validate(ctx); err != nil {
		return domain.NormalizeValidationErr(err)
	}
	if err := doc.CheckPaymentType(mode); err != nil {
		return err
	}
	if doc.JournalID != nil {
		if allowed := mode.AllowedJournals(); len(allowed) > 0 && !slices.Contains(allowed, *doc.JournalID) {
			return apperror.NewValidation(fmt.Sprintf(
				"The journal of payment document %s is not allowed by its payment mode.", doc.Name)).
				WithDetail("field", "journalId")
		}
	}
	if checkDue {
		if err := doc.CheckDateDue(s.today()); err != nil {
			return err
		}
	}
	return nil
}

// GetByID retrieves a payment document with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*PaymentDocument, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return nil, domain.NormalizeGetErr(EntityName, err, docID.String())
	}

	lines, err := s.repo.GetLines(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	doc.Lines = lines

	return doc, nil
}

// List retrieves document headers.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*PaymentDocument], error) {
	return s.repo.List(ctx, filter)
}

// Find retrieves all documents matching filter, with lines.
func (s *Service) Find(ctx context.Context, filter ListFilter) ([]*PaymentDocument, error) {
	docs, err := s.repo.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find documents: %w", err)
	}
	for _, doc := range docs {
		if doc.Lines, err = s.repo.GetLines(ctx, doc.ID); err != nil {
			return nil, fmt.Errorf("get lines: %w", err)
		}
	}
	return docs, nil
}

// Update rewrites header and lines of a draft document.
func (s *Service) Update(ctx context.Context, doc *PaymentDocument) error {
	if err := s.hooks.RunBeforeUpdate(ctx, doc); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		stored, err := s.repo.GetByID(ctx, doc.ID)
		if err != nil {
			return domain.NormalizeGetErr(EntityName, err, doc.ID.String())
		}
		if err := stored.CanModify(); err != nil {
			return err
		}

		mode, err := s.catalog.PaymentMode(ctx, doc.PaymentModeID)
		if err != nil {
			return err
		}
		doc.State = stored.State
		doc.CreatedAt, doc.CreatedBy = stored.CreatedAt, stored.CreatedBy
		doc.PaymentMethodID = mode.PaymentMethodID
		applyModeJournal(doc, mode)
		if doc.CompanyCurrency == "" {
			doc.CompanyCurrency = stored.CompanyCurrency
		}
		for _, l := range doc.Lines {
			if id.IsNil(l.ID) {
				l.ID = id.New()
			}
			l.DocumentID = doc.ID
		}
		doc.ComputeTotal()

		if err := s.checkInvariants(ctx, doc, mode, dueChanged(stored.DateDue, doc.DateDue)); err != nil {
			return err
		}
		if err := s.checkUnclaimed(ctx, doc.ID, doc.MoveLineIDs()); err != nil {
			return err
		}

		audit.EnrichUpdatedByDirect(ctx, &doc.UpdatedBy)
		doc.Touch()
		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return s.audit.Record(ctx, audit.Entry{EntityType: EntityName, EntityID: doc.ID, Action: audit.ActionUpdate})
	})
}

func dueChanged(before, after *time.Time) bool {
	if after == nil {
		return false
	}
	return before == nil || !before.Equal(*after)
}

// Delete removes a draft document and its lines.
func (s *Service) Delete(ctx context.Context, docID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.GetByID(ctx, docID)
		if err != nil {
			return err
		}
		if doc.State != StateDraft {
			return apperror.NewUserError(
				"You cannot delete a non draft payment document. You can cancel it in order to do so.").
				WithDetail("state", doc.State)
		}
		if err := s.hooks.RunBeforeDelete(ctx, doc); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, docID); err != nil {
			return fmt.Errorf("delete document: %w", err)
		}
		logger.Info(ctx, "payment document deleted", "id", docID, "name", doc.Name)
		return s.audit.Record(ctx, audit.Entry{
			EntityType: EntityName,
			EntityID:   docID,
			Action:     audit.ActionDelete,
			FromState:  string(doc.State),
		})
	})
}

// Copy duplicates a document header into a new draft without lines, so the
// copy never claims the source's move lines. An empty name gives
// "<name> (copy)".
func (s *Service) Copy(ctx context.Context, docID id.ID, name string) (*PaymentDocument, error) {
	src, err := s.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = src.Name + " (copy)"
	}

	dup := NewPaymentDocument(name, src.PartnerID, src.PaymentModeID)
	dup.PaymentType = src.PaymentType
	dup.JournalID = src.JournalID
	dup.Date = src.Date
	dup.DatePrefered = src.DatePrefered
	dup.DateDue = src.DateDue
	dup.Description = src.Description
	dup.CompanyCurrency = src.CompanyCurrency
	dup.DocumentDueMoveAccountID = src.DocumentDueMoveAccountID
	dup.ExpirationMoveJournalID = src.ExpirationMoveJournalID

	if err := s.Create(ctx, dup); err != nil {
		return nil, err
	}
	return dup, nil
}

// AttachMoveLines claims move lines for a draft document, one document line
// per move line. Lines already on the document are skipped; lines claimed by
// another active document are rejected.
func (s *Service) AttachMoveLines(ctx context.Context, docID id.ID, moveLineIDs []id.ID) (*PaymentDocument, error) {
	var doc *PaymentDocument
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.GetByID(ctx, docID)
		if err != nil {
			return err
		}
		if err := doc.CanModify(); err != nil {
			return err
		}

		own := doc.MoveLineIDs()
		var wanted []id.ID
		for _, mlID := range id.Unique(moveLineIDs) {
			if !slices.Contains(own, mlID) {
				wanted = append(wanted, mlID)
			}
		}
		if len(wanted) == 0 {
			return nil
		}

		if err := s.checkUnclaimed(ctx, doc.ID, wanted); err != nil {
			return err
		}

		mlines, err := s.ledger.Lines(ctx, ledger.LineFilter{IDs: wanted})
		if err != nil {
			return err
		}
		if len(mlines) != len(wanted) {
			return apperror.NewNotFound("move_line", wanted)
		}
		moves := make(map[id.ID]*ledger.Move)
		for _, ml := range mlines {
			move, ok := moves[ml.MoveID]
			if !ok {
				if move, err = s.ledger.Move(ctx, ml.MoveID); err != nil {
					return err
				}
				moves[ml.MoveID] = move
			}
			doc.Lines = append(doc.Lines, PrepareDocumentLine(doc, move, ml))
		}

		return s.storeLines(ctx, doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// AddLine appends a manually entered line to a draft document.
func (s *Service) AddLine(ctx context.Context, docID id.ID, line *DocumentLine) (*PaymentDocument, error) {
	var doc *PaymentDocument
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.GetByID(ctx, docID)
		if err != nil {
			return err
		}
		if err := doc.CanModify(); err != nil {
			return err
		}
		line.ID = id.New()
		line.DocumentID = doc.ID
		if id.IsNil(line.PartnerID) {
			line.PartnerID = doc.PartnerID
		}
		if line.Currency == "" {
			line.Currency = doc.CompanyCurrency
		}
		if err := line.Validate(ctx, doc.CompanyCurrency); err != nil {
			return err
		}
		if line.MoveLineID != nil {
			if slices.Contains(doc.MoveLineIDs(), *line.MoveLineID) {
				return apperror.NewValidation("The move line is already on this payment document.").
					WithDetail("moveLineId", *line.MoveLineID)
			}
			if err := s.checkUnclaimed(ctx, doc.ID, []id.ID{*line.MoveLineID}); err != nil {
				return err
			}
		}
		doc.Lines = append(doc.Lines, line)
		return s.storeLines(ctx, doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// RemoveLines drops lines from a draft document.
func (s *Service) RemoveLines(ctx context.Context, docID id.ID, lineIDs []id.ID) (*PaymentDocument, error) {
	var doc *PaymentDocument
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.GetByID(ctx, docID)
		if err != nil {
			return err
		}
		if err := doc.CanModify(); err != nil {
			return err
		}
		doc.Lines = slices.DeleteFunc(doc.Lines, func(l *DocumentLine) bool {
			return slices.Contains(lineIDs, l.ID)
		})
		return s.storeLines(ctx, doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// checkUnclaimed rejects move lines already claimed by another active
// document. Lines of docID itself are ignored.
func (s *Service) checkUnclaimed(ctx context.Context, docID id.ID, moveLineIDs []id.ID) error {
	moveLineIDs = id.Unique(moveLineIDs)
	if len(moveLineIDs) == 0 {
		return nil
	}
	claimed, err := s.repo.FindLinesByMoveLines(ctx, moveLineIDs, ActiveStates)
	if err != nil {
		return fmt.Errorf("find claimed lines: %w", err)
	}
	for _, l := range claimed {
		if l.DocumentID == docID {
			continue
		}
		return apperror.NewValidation("Some move lines are already claimed by another payment document.").
			WithDetail("documentId", l.DocumentID).
			WithDetail("moveLineId", l.MoveLineID)
	}
	return nil
}

func (s *Service) storeLines(ctx context.Context, doc *PaymentDocument) error {
	doc.ComputeTotal()
	audit.EnrichUpdatedByDirect(ctx, &doc.UpdatedBy)
	doc.Touch()
	if err := s.repo.Update(ctx, doc); err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
		return fmt.Errorf("save lines: %w", err)
	}
	return nil
}

// Moves returns the moves generated by a document.
func (s *Service) Moves(ctx context.Context, docID id.ID) ([]*ledger.Move, error) {
	return s.ledger.Moves(ctx, ledger.MoveFilter{PaymentDocumentID: id.Ptr(docID)})
}

// LinesForMoveLines returns document lines claiming any of the move lines,
// restricted to documents in states (all states when empty).
func (s *Service) LinesForMoveLines(ctx context.Context, moveLineIDs []id.ID, states []State) ([]*DocumentLine, error) {
	if len(moveLineIDs) == 0 {
		return nil, nil
	}
	lines, err := s.repo.FindLinesByMoveLines(ctx, moveLineIDs, states)
	if err != nil {
		return nil, fmt.Errorf("find document lines: %w", err)
	}
	return lines, nil
}
