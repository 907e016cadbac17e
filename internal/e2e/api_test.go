package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpbank/corpbank/internal/app"
	"github.com/corpbank/corpbank/internal/auth"
	"github.com/corpbank/corpbank/internal/observability"
	"github.com/corpbank/corpbank/internal/platform/cache"
	"github.com/corpbank/corpbank/internal/platform/db"
	"github.com/corpbank/corpbank/internal/registry"
	"github.com/corpbank/corpbank/internal/registry/shared"
	internalShared "github.com/corpbank/corpbank/internal/shared"
	"github.com/corpbank/corpbank/jobs"
	_ "github.com/corpbank/corpbank/testing"
)

const dsnEnv = "CORPBANK_TEST_PG_DSN"

type stack struct {
	pool    *pgxpool.Pool
	router  http.Handler
	auth    *auth.Service
	metrics *observability.Metrics
	token   string
}

// newStack migrates a scratch database and builds the full router. The test is
// skipped unless CORPBANK_TEST_PG_DSN points at a disposable database.
func newStack(t *testing.T) *stack {
	t.Helper()
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s not set", dsnEnv)
	}
	ctx := context.Background()

	pool, err := db.New(ctx, dsn, 4)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = db.Migrate(ctx, pool)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `TRUNCATE bank_accounts, companies, banks, api_tokens, users, audit_logs, idempotency_keys RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := &app.Config{AppEnv: "test", AppRequestTimeout: 5 * time.Second, RateLimitPerMinute: 10000, PhoneDefaultRegion: "BR"}
	logger := app.NewLogger(cfg)
	authService := auth.NewService(auth.NewRepository(pool), cache.NewStore(client, "e2e_token"), auth.Options{
		TokenTTL: time.Hour,
		CacheTTL: time.Minute,
		Logger:   logger,
	})
	metrics := observability.NewMetrics()
	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		AuthService:     authService,
		AuthHandler:     auth.NewHandler(logger, authService),
		RegistryHandler: registry.NewHandler(logger, pool, shared.NewValidator(cfg.PhoneDefaultRegion), internalShared.NewAuditLogger(pool)),
		Idempotency:     internalShared.NewIdempotencyStore(pool, logger),
		DB:              pool,
		Metrics:         metrics,
	})

	_, err = authService.CreateUser(ctx, "ops@corpbank.test", "correct-horse")
	require.NoError(t, err)

	s := &stack{pool: pool, router: router, auth: authService, metrics: metrics}
	rec := s.do(t, http.MethodPost, "/auth/token/", `{"email":"ops@corpbank.test","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	s.token = body["token"]
	return s
}

func (s *stack) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Token "+s.token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *stack) create(t *testing.T, path, body string) map[string]any {
	t.Helper()
	rec := s.do(t, http.MethodPost, path, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRegistryLifecycle(t *testing.T) {
	s := newStack(t)

	bank := s.create(t, "/banks/", `{"name": "Copper Wire", "code": "002"}`)
	assert.Equal(t, "Copper Wire", bank["name"])
	assert.Equal(t, "002", bank["code"])

	rec := s.do(t, http.MethodPost, "/companies/", `{"name": "Copper Wire", "phone": "test", "address": "x", "earnings_declared": 1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "phone")

	company := s.create(t, "/companies/", `{"name": "Copper Wire", "phone": "48995481447", "address": "Rua A, 1", "city": "Florianopolis", "earnings_declared": "12345.6789"}`)
	assert.Equal(t, "+5548995481447", company["phone"])
	assert.Equal(t, "12345.6789", company["earnings_declared"])

	account := s.create(t, "/bank_accounts/", fmt.Sprintf(`{"bank": %v, "company": %v, "account_number": "0123456789", "agency": "12345678"}`, bank["id"], company["id"]))
	rec = s.do(t, http.MethodGet, fmt.Sprintf("/bank_accounts/%v/", account["id"]), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var fetched map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	assert.Equal(t, bank["id"], fetched["bank"])
	assert.Equal(t, company["id"], fetched["company"])

	rec = s.do(t, http.MethodPost, "/bank_accounts/", `{"bank": 999, "company": 998, "account_number": "1", "agency": "1"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `Invalid pk \"999\" - object does not exist.`)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/companies/30/", "").Code)

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/companies/%v", company["id"]), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var companyAgain map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &companyAgain))
	assert.Equal(t, company, companyAgain)

	rec = s.do(t, http.MethodDelete, fmt.Sprintf("/banks/%v/", bank["id"]), "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, fmt.Sprintf("/bank_accounts/%v/", account["id"]), "").Code)

	var audits int
	require.NoError(t, s.pool.QueryRow(context.Background(), `SELECT count(*) FROM audit_logs WHERE actor_id IS NOT NULL`).Scan(&audits))
	assert.GreaterOrEqual(t, audits, 4)
}

func TestCompanyDeleteCascades(t *testing.T) {
	s := newStack(t)

	bank := s.create(t, "/banks/", `{"name": "Itau", "code": "341"}`)
	company := s.create(t, "/companies/", `{"name": "Acme", "phone": "+55 48 99548-1447", "address": "x", "earnings_declared": 1}`)
	for i := 0; i < 3; i++ {
		s.create(t, "/bank_accounts/", fmt.Sprintf(`{"bank": %v, "company": %v, "account_number": "%d", "agency": "1"}`, bank["id"], company["id"], i))
	}

	require.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, fmt.Sprintf("/companies/%v", company["id"]), "").Code)

	var remaining int
	require.NoError(t, s.pool.QueryRow(context.Background(), `SELECT count(*) FROM bank_accounts`).Scan(&remaining))
	assert.Zero(t, remaining)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, fmt.Sprintf("/banks/%v", bank["id"]), "").Code)
}

func TestSearchTreatsWildcardsLiterally(t *testing.T) {
	s := newStack(t)

	s.create(t, "/banks/", `{"name": "Banco 100% Digital", "code": "100"}`)
	s.create(t, "/banks/", `{"name": "Banco 1000 Digital", "code": "101"}`)

	rec := s.do(t, http.MethodGet, "/banks/?search=100%25", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var banks []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &banks))
	require.Len(t, banks, 1)
	assert.Equal(t, "Banco 100% Digital", banks[0]["name"])
}

func TestMutationsRequireToken(t *testing.T) {
	s := newStack(t)
	s.token = ""

	rec := s.do(t, http.MethodPost, "/banks/", `{"name": "Copper Wire", "code": "002"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var banks int
	require.NoError(t, s.pool.QueryRow(context.Background(), `SELECT count(*) FROM banks`).Scan(&banks))
	assert.Zero(t, banks)
}

func TestPurgeJobRemovesExpiredTokens(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	_, err := s.pool.Exec(ctx, `UPDATE api_tokens SET expires_at = NOW() - INTERVAL '1 minute'`)
	require.NoError(t, err)

	task, err := jobs.NewPurgeTokensTask("e2e")
	require.NoError(t, err)
	require.NoError(t, jobs.NewPurgeTokensJob(s.auth, nil, s.metrics).Handle(ctx, task))

	var tokens int
	require.NoError(t, s.pool.QueryRow(ctx, `SELECT count(*) FROM api_tokens`).Scan(&tokens))
	assert.Zero(t, tokens)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/banks/", "").Code)

	s.token = ""
	rec := s.do(t, http.MethodGet, "/metrics", "")
	assert.Contains(t, rec.Body.String(), "corpbank_tokens_purged_total 1")
}
