package memory

import (
	"context"
	"slices"
	"strings"

	"paydocs/internal/core/apperror"
	"paydocs/internal/core/id"
	"paydocs/internal/domain"
	"paydocs/internal/domain/documents/payment_document"
)

// DocumentRepo implements payment_document.Repository.
type DocumentRepo struct {
	store *Store
}

// NewDocumentRepo creates a payment document repository over store.
func NewDocumentRepo(store *Store) *DocumentRepo {
	return &DocumentRepo{store: store}
}

var _ payment_document.Repository = (*DocumentRepo)(nil)

func (r *DocumentRepo) Create(ctx context.Context, doc *payment_document.PaymentDocument) error {
	return r.store.write(func(st *state) error {
		if _, ok := st.documents[doc.ID]; ok {
			return apperror.NewDuplicate(payment_document.EntityName, "id", doc.ID.String())
		}
		st.documents[doc.ID] = copyDocument(doc)
		return nil
	})
}

func (r *DocumentRepo) Update(ctx context.Context, doc *payment_document.PaymentDocument) error {
	return r.store.write(func(st *state) error {
		cur, ok := st.documents[doc.ID]
		if !ok {
			return apperror.NewNotFound(payment_document.EntityName, doc.ID.String())
		}
		if cur.Version != doc.Version-1 {
			return apperror.NewConcurrentModification(payment_document.EntityName, doc.ID.String())
		}
		st.documents[doc.ID] = copyDocument(doc)
		return nil
	})
}

func (r *DocumentRepo) Delete(ctx context.Context, docID id.ID) error {
	return r.store.write(func(st *state) error {
		if _, ok := st.documents[docID]; !ok {
			return apperror.NewNotFound(payment_document.EntityName, docID.String())
		}
		delete(st.documents, docID)
		for lid, l := range st.docLines {
			if l.DocumentID == docID {
				delete(st.docLines, lid)
			}
		}
		return nil
	})
}

func (r *DocumentRepo) GetByID(ctx context.Context, docID id.ID) (*payment_document.PaymentDocument, error) {
	return get(r.store, func(st *state) map[id.ID]*payment_document.PaymentDocument { return st.documents },
		copyDocument, payment_document.EntityName, docID)
}

func (r *DocumentRepo) GetLines(ctx context.Context, docID id.ID) ([]*payment_document.DocumentLine, error) {
	var out []*payment_document.DocumentLine
	r.store.read(func(st *state) {
		for _, l := range st.docLines {
			if l.DocumentID == docID {
				out = append(out, copyOf(l))
			}
		}
	})
	slices.SortFunc(out, func(a, b *payment_document.DocumentLine) int {
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}

func (r *DocumentRepo) SaveLines(ctx context.Context, docID id.ID, lines []*payment_document.DocumentLine) error {
	return r.store.write(func(st *state) error {
		for lid, l := range st.docLines {
			if l.DocumentID == docID {
				delete(st.docLines, lid)
			}
		}
		for _, l := range lines {
			c := copyOf(l)
			c.DocumentID = docID
			st.docLines[c.ID] = c
		}
		return nil
	})
}

func (r *DocumentRepo) List(ctx context.Context, filter payment_document.ListFilter) (domain.ListResult[*payment_document.PaymentDocument], error) {
	docs, err := r.Find(ctx, filter)
	if err != nil {
		return domain.ListResult[*payment_document.PaymentDocument]{}, err
	}
	return domain.Paginate(docs, filter.ListFilter), nil
}

func (r *DocumentRepo) Find(ctx context.Context, filter payment_document.ListFilter) ([]*payment_document.PaymentDocument, error) {
	var out []*payment_document.PaymentDocument
	r.store.read(func(st *state) {
		for _, d := range st.documents {
			if matchDocument(d, filter) {
				out = append(out, copyDocument(d))
			}
		}
	})
	sortDocuments(out, filter.OrderBy)
	return out, nil
}

func matchDocument(d *payment_document.PaymentDocument, f payment_document.ListFilter) bool {
	switch {
	case len(f.IDs) > 0 && !slices.Contains(f.IDs, d.ID):
		return false
	case len(f.States) > 0 && !slices.Contains(f.States, d.State):
		return false
	case f.PartnerID != nil && d.PartnerID != *f.PartnerID:
		return false
	case f.PaymentOrderID != nil && !id.Equal(d.PaymentOrderID, f.PaymentOrderID):
		return false
	case f.PaymentType != "" && d.PaymentType != f.PaymentType:
		return false
	}
	if f.DueFrom != nil || f.DueTo != nil {
		if d.DateDue == nil {
			return false
		}
		if f.DueFrom != nil && d.DateDue.Before(*f.DueFrom) {
			return false
		}
		if f.DueTo != nil && d.DateDue.After(*f.DueTo) {
			return false
		}
	}
	return true
}

// sortDocuments supports "name", "date" and "date_due", with a leading "-"
// for descending order.
func sortDocuments(docs []*payment_document.PaymentDocument, orderBy string) {
	desc := strings.HasPrefix(orderBy, "-")
	field := strings.TrimPrefix(orderBy, "-")
	slices.SortStableFunc(docs, func(a, b *payment_document.PaymentDocument) int {
		var c int
		switch field {
		case "date":
			c = a.Date.Compare(b.Date)
		case "date_due":
			c = compareOptionalTime(a.DateDue, b.DateDue)
		default:
			c = strings.Compare(a.Name, b.Name)
		}
		if c == 0 {
			c = strings.Compare(a.ID.String(), b.ID.String())
		}
		if desc {
			return -c
		}
		return c
	})
}

func (r *DocumentRepo) FindLinesByMoveLines(ctx context.Context, moveLineIDs []id.ID, states []payment_document.State) ([]*payment_document.DocumentLine, error) {
	var out []*payment_document.DocumentLine
	r.store.read(func(st *state) {
		for _, l := range st.docLines {
			if l.MoveLineID == nil || !slices.Contains(moveLineIDs, *l.MoveLineID) {
				continue
			}
			doc, ok := st.documents[l.DocumentID]
			if !ok || (len(states) > 0 && !slices.Contains(states, doc.State)) {
				continue
			}
			out = append(out, copyOf(l))
		}
	})
	slices.SortFunc(out, func(a, b *payment_document.DocumentLine) int {
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}
