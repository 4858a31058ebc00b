package handlers

import (
	"context"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"paydocs/internal/core/id"
	"paydocs/internal/domain/catalog"
	"paydocs/internal/infrastructure/http/v1/dto"
)

// CatalogHandler provides generic HTTP handlers for catalog entities.
// Catalog entries are replaced whole: PUT carries every field.
type CatalogHandler[T any, Req any] struct {
	*BaseHandler

	list func(ctx context.Context, query url.Values) ([]T, error)
	get  func(ctx context.Context, entityID id.ID) (T, error)
	save func(ctx context.Context, entity T) error

	// mapRequest applies req onto existing; existing is the zero T on create.
	mapRequest func(req Req, existing T) T
}

// CatalogHandlerConfig configures the catalog handler.
type CatalogHandlerConfig[T any, Req any] struct {
	List       func(ctx context.Context, query url.Values) ([]T, error)
	Get        func(ctx context.Context, entityID id.ID) (T, error)
	Save       func(ctx context.Context, entity T) error
	MapRequest func(req Req, existing T) T
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler[T any, Req any](base *BaseHandler, cfg CatalogHandlerConfig[T, Req]) *CatalogHandler[T, Req] {
	return &CatalogHandler[T, Req]{
		BaseHandler: base,
		list:        cfg.List,
		get:         cfg.Get,
		save:        cfg.Save,
		mapRequest:  cfg.MapRequest,
	}
}

// List handles GET /{entity}.
func (h *CatalogHandler[T, Req]) List(c *gin.Context) {
	items, err := h.list(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewItemsResponse(items))
}

// Get handles GET /{entity}/:id.
func (h *CatalogHandler[T, Req]) Get(c *gin.Context) {
	entityID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	entity, err := h.get(c.Request.Context(), entityID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, entity)
}

// Create handles POST /{entity}.
func (h *CatalogHandler[T, Req]) Create(c *gin.Context) {
	var req Req
	if !h.BindJSON(c, &req) {
		return
	}
	var zero T
	entity := h.mapRequest(req, zero)
	if err := h.save(c.Request.Context(), entity); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, entity)
}

// Update handles PUT /{entity}/:id.
func (h *CatalogHandler[T, Req]) Update(c *gin.Context) {
	entityID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req Req
	if !h.BindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	existing, err := h.get(ctx, entityID)
	if err != nil {
		h.Error(c, err)
		return
	}
	entity := h.mapRequest(req, existing)
	if err := h.save(ctx, entity); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, entity)
}

// NewAccountHandler serves accounts. GET accepts ?type=receivable,payable.
func NewAccountHandler(base *BaseHandler, svc *catalog.Service) *CatalogHandler[*catalog.Account, dto.AccountRequest] {
	return NewCatalogHandler(base, CatalogHandlerConfig[*catalog.Account, dto.AccountRequest]{
		List: func(ctx context.Context, q url.Values) ([]*catalog.Account, error) {
			var types []catalog.AccountType
			if raw := q.Get("type"); raw != "" {
				for _, t := range strings.Split(raw, ",") {
					types = append(types, catalog.AccountType(strings.TrimSpace(t)))
				}
			}
			return svc.Accounts(ctx, types...)
		},
		Get:  svc.Account,
		Save: svc.SaveAccount,
		MapRequest: func(req dto.AccountRequest, existing *catalog.Account) *catalog.Account {
			return req.ToAccount(existing)
		},
	})
}

// NewJournalHandler serves journals.
func NewJournalHandler(base *BaseHandler, svc *catalog.Service) *CatalogHandler[*catalog.Journal, dto.JournalRequest] {
	return NewCatalogHandler(base, CatalogHandlerConfig[*catalog.Journal, dto.JournalRequest]{
		List: func(ctx context.Context, _ url.Values) ([]*catalog.Journal, error) {
			return svc.Journals(ctx)
		},
		Get:  svc.Journal,
		Save: svc.SaveJournal,
		MapRequest: func(req dto.JournalRequest, existing *catalog.Journal) *catalog.Journal {
			return req.ToJournal(existing)
		},
	})
}

// NewPartnerHandler serves partners.
func NewPartnerHandler(base *BaseHandler, svc *catalog.Service) *CatalogHandler[*catalog.Partner, dto.PartnerRequest] {
	return NewCatalogHandler(base, CatalogHandlerConfig[*catalog.Partner, dto.PartnerRequest]{
		List: func(ctx context.Context, _ url.Values) ([]*catalog.Partner, error) {
			return svc.Partners(ctx)
		},
		Get:  svc.Partner,
		Save: svc.SavePartner,
		MapRequest: func(req dto.PartnerRequest, existing *catalog.Partner) *catalog.Partner {
			return req.ToPartner(existing)
		},
	})
}

// NewPaymentMethodHandler serves payment methods.
func NewPaymentMethodHandler(base *BaseHandler, svc *catalog.Service) *CatalogHandler[*catalog.PaymentMethod, dto.PaymentMethodRequest] {
	return NewCatalogHandler(base, CatalogHandlerConfig[*catalog.PaymentMethod, dto.PaymentMethodRequest]{
		List: func(ctx context.Context, _ url.Values) ([]*catalog.PaymentMethod, error) {
			return svc.PaymentMethods(ctx)
		},
		Get:  svc.PaymentMethod,
		Save: svc.SavePaymentMethod,
		MapRequest: func(req dto.PaymentMethodRequest, existing *catalog.PaymentMethod) *catalog.PaymentMethod {
			return req.ToPaymentMethod(existing)
		},
	})
}

// NewPaymentModeHandler serves payment modes.
func NewPaymentModeHandler(base *BaseHandler, svc *catalog.Service) *CatalogHandler[*catalog.PaymentMode, dto.PaymentModeRequest] {
	return NewCatalogHandler(base, CatalogHandlerConfig[*catalog.PaymentMode, dto.PaymentModeRequest]{
		List: func(ctx context.Context, _ url.Values) ([]*catalog.PaymentMode, error) {
			return svc.PaymentModes(ctx)
		},
		Get:  svc.PaymentMode,
		Save: svc.SavePaymentMode,
		MapRequest: func(req dto.PaymentModeRequest, existing *catalog.PaymentMode) *catalog.PaymentMode {
			return req.ToPaymentMode(existing)
		},
	})
}
