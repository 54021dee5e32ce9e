package application

import (
	"context"
	"fmt"
	"time"

	"catalog-sync-engine/internal/domain"
	"catalog-sync-engine/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrSyncInProgress is returned when a full sync is requested while another
// run already holds the business's sync lock.
var ErrSyncInProgress = fmt.Errorf("a full sync is already running for this business")

const syncPageSize = 250

// SyncService drives the full-sync reconciliation: a paginated re-import of
// the upstream catalog through the upsert primitives, followed by a removal
// sweep over everything the run did not see. The run as a whole is not
// transactional; an interrupted run leaves previously-synced items in their
// last-known state, which is stale but never wrong.
type SyncService struct {
	connections *ConnectionService
	catalog     *CatalogService
	client      ports.ShopifyClient
	locker      ports.SyncLocker
	logger      zerolog.Logger
}

// NewSyncService creates a new sync service
func NewSyncService(
	connections *ConnectionService,
	catalog *CatalogService,
	client ports.ShopifyClient,
	locker ports.SyncLocker,
	logger zerolog.Logger,
) *SyncService {
	return &SyncService{
		connections: connections,
		catalog:     catalog,
		client:      client,
		locker:      locker,
		logger:      logger,
	}
}

// Run imports or re-syncs the business's entire upstream catalog.
//
// Item-level failures are recorded in the report and never abort the run.
// Transport failures abort the remainder: the sweep is skipped, because a
// sweep over a partial listing would mark still-existing items unavailable.
// A non-nil error is returned only when the run could not commit anything.
func (s *SyncService) Run(ctx context.Context, businessID string) (*domain.SyncReport, error) {
	conn, err := s.connections.GetConnection(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, ErrNotConnected
	}

	ok, err := s.locker.Acquire(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !ok {
		return nil, ErrSyncInProgress
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), businessID); err != nil {
			s.logger.Warn().Err(err).Str("businessId", businessID).Msg("Failed to release sync lock")
		}
	}()

	runID := uuid.NewString()
	started := time.Now()
	logger := s.logger.With().Str("runId", runID).Str("businessId", businessID).Str("shop", conn.ShopDomain).Logger()
	logger.Info().Msg("Starting full catalog sync")

	report := &domain.SyncReport{}

	shopInfo, err := s.client.GetShop(ctx, conn.ShopDomain, conn.AccessToken)
	if err != nil {
		// Auth/transport failure before any page: nothing committed.
		report.Errors = append(report.Errors, fmt.Sprintf("shop lookup failed: %v", err))
		s.finish(ctx, logger, businessID, report, started)
		return report, fmt.Errorf("failed to reach upstream platform: %w", err)
	}
	currency := shopInfo.Currency

	seenProducts := make(map[string]struct{})
	seenVariants := make(map[string]struct{})

	var transportErr error
	var sinceID uint64
	for {
		page, next, err := s.client.ListProducts(ctx, conn.ShopDomain, conn.AccessToken, sinceID, syncPageSize)
		if err != nil {
			transportErr = err
			report.Errors = append(report.Errors, fmt.Sprintf("product listing failed: %v", err))
			break
		}

		for _, up := range page {
			// Record ids at encounter time, upsert outcome regardless: an
			// item that exists upstream must never be swept because its
			// write failed.
			if up.ExternalID != "" {
				seenProducts[up.ExternalID] = struct{}{}
			}
			for _, uv := range up.Variants {
				if uv.ExternalID != "" {
					seenVariants[uv.ExternalID] = struct{}{}
				}
			}

			if up.Currency == "" {
				up.Currency = currency
			}

			res, err := s.catalog.UpsertProduct(ctx, businessID, up)
			if err != nil {
				logger.Warn().Err(err).Str("externalId", up.ExternalID).Msg("Product upsert failed")
				report.Errors = append(report.Errors, err.Error())
				report.Skipped++
				continue
			}
			if res.IsNew {
				report.Added++
			} else {
				report.Updated++
			}

			for _, uv := range up.Variants {
				vres, err := s.catalog.UpsertVariant(ctx, businessID, res.ID, uv)
				if err != nil {
					logger.Warn().Err(err).Str("externalId", uv.ExternalID).Msg("Variant upsert failed")
					report.Errors = append(report.Errors, err.Error())
					report.Skipped++
					continue
				}
				if vres.IsNew {
					report.Added++
				} else {
					report.Updated++
				}
			}
		}

		if next == 0 {
			break
		}
		sinceID = next
	}

	if transportErr == nil {
		// Removal sweep: set-difference between what the store believes is
		// available and what the full pass actually saw.
		now := time.Now()
		removedProducts, err := s.catalog.SweepProducts(ctx, businessID, seenProducts, now)
		report.Removed += removedProducts
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("product sweep failed: %v", err))
		}
		removedVariants, err := s.catalog.SweepVariants(ctx, businessID, seenVariants, now)
		report.Removed += removedVariants
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("variant sweep failed: %v", err))
		}
	}

	s.finish(ctx, logger, businessID, report, started)

	if transportErr != nil && !report.Committed() {
		return report, fmt.Errorf("sync aborted before any item was committed: %w", transportErr)
	}
	return report, nil
}

func (s *SyncService) finish(ctx context.Context, logger zerolog.Logger, businessID string, report *domain.SyncReport, started time.Time) {
	status := report.Status()
	if err := s.connections.UpdateSyncStatus(ctx, businessID, status); err != nil {
		logger.Warn().Err(err).Msg("Failed to record sync status")
	}
	logger.Info().
		Str("status", string(status)).
		Int("added", report.Added).
		Int("updated", report.Updated).
		Int("removed", report.Removed).
		Int("skipped", report.Skipped).
		Int("errors", len(report.Errors)).
		Dur("duration", time.Since(started)).
		Msg("Full catalog sync finished")
}
