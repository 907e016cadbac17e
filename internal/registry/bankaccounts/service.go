package bankaccounts

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/corpbank/corpbank/internal/registry/shared"
	internalShared "github.com/corpbank/corpbank/internal/shared"
)

const auditEntity = "bank_account"

type Service struct {
	repo      Repository
	validator *shared.Validator
	audit     internalShared.Auditor
	logger    *slog.Logger
}

func NewService(repo Repository, validator *shared.Validator, audit internalShared.Auditor, logger *slog.Logger) *Service {
	return &Service{repo: repo, validator: validator, audit: audit, logger: logger}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]BankAccount, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (BankAccount, error) {
	return s.repo.Get(ctx, id)
}

// Create validates the payload, checks that both parents exist and stores the account.
func (s *Service) Create(ctx context.Context, form BankAccountForm) (BankAccount, error) {
	account, err := s.clean(ctx, form)
	if err != nil {
		return BankAccount{}, err
	}
	created, err := s.repo.Create(ctx, account)
	if err != nil {
		return BankAccount{}, err
	}
	s.record(ctx, internalShared.AuditCreate, created)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, form BankAccountForm) (BankAccount, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return BankAccount{}, err
	}
	account, err := s.clean(ctx, form)
	if err != nil {
		return BankAccount{}, err
	}
	updated, err := s.repo.Update(ctx, id, account)
	if err != nil {
		return BankAccount{}, err
	}
	s.record(ctx, internalShared.AuditUpdate, updated)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, internalShared.AuditDelete, BankAccount{ID: id})
	return nil
}

func (s *Service) record(ctx context.Context, action string, a BankAccount) {
	if s.audit == nil {
		return
	}
	meta := map[string]any{}
	if action != internalShared.AuditDelete {
		meta["bank"] = a.BankID
		meta["company"] = a.CompanyID
	}
	err := s.audit.Record(ctx, internalShared.AuditLog{
		Action:   action,
		Entity:   auditEntity,
		EntityID: strconv.FormatInt(a.ID, 10),
		Meta:     meta,
	})
	if err != nil {
		internalShared.LoggerFrom(ctx, s.logger).Warn("audit bank account", slog.String("action", action), slog.Int64("id", a.ID), slog.Any("error", err))
	}
}
