package companies

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/corpbank/corpbank/internal/registry/shared"
	internalShared "github.com/corpbank/corpbank/internal/shared"
)

const auditEntity = "company"

type Service struct {
	repo      Repository
	validator *shared.Validator
	audit     internalShared.Auditor
	logger    *slog.Logger
}

func NewService(repo Repository, validator *shared.Validator, audit internalShared.Auditor, logger *slog.Logger) *Service {
	return &Service{repo: repo, validator: validator, audit: audit, logger: logger}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Company, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Company, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, form CompanyForm) (Company, error) {
	company, err := s.clean(form)
	if err != nil {
		return Company{}, err
	}
	created, err := s.repo.Create(ctx, company)
	if err != nil {
		return Company{}, err
	}
	s.record(ctx, internalShared.AuditCreate, created.ID, map[string]any{"name": created.Name})
	return created, nil
}

// Update replaces every mutable field. A missing company wins over an invalid payload.
func (s *Service) Update(ctx context.Context, id int64, form CompanyForm) (Company, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return Company{}, err
	}
	company, err := s.clean(form)
	if err != nil {
		return Company{}, err
	}
	updated, err := s.repo.Update(ctx, id, company)
	if err != nil {
		return Company{}, err
	}
	s.record(ctx, internalShared.AuditUpdate, id, map[string]any{"name": updated.Name})
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.record(ctx, internalShared.AuditDelete, id, map[string]any{"cascaded_bank_accounts": removed})
	return nil
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, internalShared.AuditLog{
		Action:   action,
		Entity:   auditEntity,
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		internalShared.LoggerFrom(ctx, s.logger).Warn("audit company", slog.String("action", action), slog.Int64("id", id), slog.Any("error", err))
	}
}
