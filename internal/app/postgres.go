package app

import (
	"context"
	"fmt"

	"paydocs/internal/infrastructure/storage/postgres"
	"paydocs/internal/infrastructure/storage/postgres/catalog_repo"
	"paydocs/internal/infrastructure/storage/postgres/document_repo"
	"paydocs/pkg/numerator"
)

// NewPostgresRepositories builds the PostgreSQL backend over pool.
func NewPostgresRepositories(pool *postgres.Pool) (Repositories, *postgres.TxManager, error) {
	txm := postgres.NewTxManager(pool)

	recorder, err := postgres.NewAuditRecorder(txm)
	if err != nil {
		return Repositories{}, nil, fmt.Errorf("audit recorder: %w", err)
	}

	return Repositories{
		Catalog:   catalog_repo.NewCatalogRepo(txm),
		Ledger:    document_repo.NewMoveRepo(txm),
		Documents: document_repo.NewPaymentDocumentRepo(txm),
		Orders:    document_repo.NewPaymentOrderRepo(txm),
		Numerator: numerator.New(func(ctx context.Context) numerator.Querier { return txm.GetQuerier(ctx) }),
		Audit:     recorder,
		TxManager: txm,
	}, txm, nil
}
