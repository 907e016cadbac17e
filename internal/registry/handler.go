package registry

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corpbank/corpbank/internal/registry/bankaccounts"
	"github.com/corpbank/corpbank/internal/registry/banks"
	"github.com/corpbank/corpbank/internal/registry/companies"
	"github.com/corpbank/corpbank/internal/registry/shared"
	internalShared "github.com/corpbank/corpbank/internal/shared"
)

// Handler groups the bank, company and bank account resources.
type Handler struct {
	Banks        *banks.Handler
	Companies    *companies.Handler
	BankAccounts *bankaccounts.Handler
}

// NewHandler wires the pgx repositories, services and handlers of every resource.
func NewHandler(logger *slog.Logger, pool *pgxpool.Pool, validator *shared.Validator, audit internalShared.Auditor) *Handler {
	return &Handler{
		Banks:        banks.NewHandler(logger, banks.NewService(banks.NewRepository(pool), validator, audit, logger)),
		Companies:    companies.NewHandler(logger, companies.NewService(companies.NewRepository(pool), validator, audit, logger)),
		BankAccounts: bankaccounts.NewHandler(logger, bankaccounts.NewService(bankaccounts.NewRepository(pool), validator, audit, logger)),
	}
}

// MountRoutes registers the resource routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/banks", h.Banks.MountRoutes)
	r.Route("/companies", h.Companies.MountRoutes)
	r.Route("/bank_accounts", h.BankAccounts.MountRoutes)
}
