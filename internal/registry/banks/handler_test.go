package banks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpbank/corpbank/internal/platform/httpx"
	"github.com/corpbank/corpbank/internal/registry/shared"
	internalShared "github.com/corpbank/corpbank/internal/shared"
)

// ============================================================================
// MOCK DEPENDENCIES
// ============================================================================

type memRepo struct {
	mu       sync.Mutex
	banks    map[int64]Bank
	nextID   int64
	accounts map[int64]int64 // bank id -> dependent account count
	listErr  error
}

func newMemRepo() *memRepo {
	return &memRepo{banks: map[int64]Bank{}, accounts: map[int64]int64{}, nextID: 1}
}

func (m *memRepo) List(ctx context.Context, filters shared.ListFilters) ([]Bank, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []Bank{}
	for _, b := range m.banks {
		if filters.Search == "" || strings.Contains(strings.ToLower(b.Name), strings.ToLower(filters.Search)) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRepo) Get(ctx context.Context, id int64) (Bank, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.banks[id]
	if !ok {
		return Bank{}, httpx.ErrNotFound
	}
	return b, nil
}

func (m *memRepo) Create(ctx context.Context, bank Bank) (Bank, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bank.ID = m.nextID
	m.nextID++
	m.banks[bank.ID] = bank
	return bank, nil
}

func (m *memRepo) Update(ctx context.Context, id int64, bank Bank) (Bank, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.banks[id]; !ok {
		return Bank{}, httpx.ErrNotFound
	}
	bank.ID = id
	m.banks[id] = bank
	return bank, nil
}

func (m *memRepo) Delete(ctx context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.banks[id]; !ok {
		return 0, httpx.ErrNotFound
	}
	delete(m.banks, id)
	removed := m.accounts[id]
	delete(m.accounts, id)
	return removed, nil
}

type recordingAuditor struct {
	mu   sync.Mutex
	logs []internalShared.AuditLog
}

func (a *recordingAuditor) Record(ctx context.Context, log internalShared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

func (a *recordingAuditor) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.logs))
	for _, l := range a.logs {
		out = append(out, l.Action)
	}
	return out
}

func newTestRouter(t *testing.T) (http.Handler, *memRepo, *recordingAuditor) {
	t.Helper()
	repo := newMemRepo()
	audit := &recordingAuditor{}
	svc := NewService(repo, shared.NewValidator("BR"), audit, nil)
	r := chi.NewRouter()
	r.Route("/banks", NewHandler(nil, svc).MountRoutes)
	return r, repo, audit
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBank(t *testing.T, rec *httptest.ResponseRecorder) BankResponse {
	t.Helper()
	var out BankResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// ============================================================================
// TESTS
// ============================================================================

func TestCreateBank(t *testing.T) {
	router, repo, audit := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/banks/", `{"name": "Copper Wire", "code": "002"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Equal(t, "Copper Wire", raw["name"])
	assert.Equal(t, "002", raw["code"])
	assert.EqualValues(t, 1, raw["id"])
	assert.Len(t, raw, 3)

	assert.Len(t, repo.banks, 1)
	assert.Equal(t, []string{internalShared.AuditCreate}, audit.actions())
}

func TestCreateBankValidation(t *testing.T) {
	router, repo, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/banks/", `{"name": "", "code": "0025"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, []string{shared.MsgRequired}, problem.Errors["name"])
	assert.Equal(t, []string{"Ensure this field has no more than 3 characters."}, problem.Errors["code"])
	assert.Empty(t, repo.banks)

	rec = do(t, router, http.MethodPost, "/banks/", `{"name": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/banks/", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Contains(t, problem.Errors, "name")
	assert.Contains(t, problem.Errors, "code")
}

func TestCreateThenRetrieveMatches(t *testing.T) {
	router, _, _ := newTestRouter(t)

	created := decodeBank(t, do(t, router, http.MethodPost, "/banks/", `{"name": " Banco do Brasil ", "code": "001"}`))
	assert.Equal(t, "Banco do Brasil", created.Name)

	rec := do(t, router, http.MethodGet, "/banks/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created, decodeBank(t, rec))
}

func TestListBanks(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/banks/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	for _, body := range []string{`{"name":"Itau","code":"341"}`, `{"name":"Bradesco","code":"237"}`, `{"name":"Caixa","code":"104"}`} {
		require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/banks/", body).Code)
	}

	rec = do(t, router, http.MethodGet, "/banks/", "")
	var list []BankResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 3)
	assert.Equal(t, "Itau", list[0].Name)

	rec = do(t, router, http.MethodGet, "/banks/?search=brad", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "237", list[0].Code)
}

func TestListBanksStorageFailure(t *testing.T) {
	router, repo, _ := newTestRouter(t)
	repo.listErr = errors.New("connection reset")

	rec := do(t, router, http.MethodGet, "/banks/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestRetrieveMissingBank(t *testing.T) {
	router, _, _ := newTestRouter(t)

	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/banks/30", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/banks/abc", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodPut, "/banks/30", `{"name":"x","code":"1"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodDelete, "/banks/30", "").Code)
}

func TestUpdateBank(t *testing.T) {
	router, _, audit := newTestRouter(t)
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/banks/", `{"name":"Old","code":"001"}`).Code)

	rec := do(t, router, http.MethodPut, "/banks/1", `{"name":"New","code":"002"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, BankResponse{ID: 1, Code: "002", Name: "New"}, decodeBank(t, rec))
	assert.Equal(t, []string{internalShared.AuditCreate, internalShared.AuditUpdate}, audit.actions())
}

func TestInvalidUpdateLeavesBankUnchanged(t *testing.T) {
	router, repo, _ := newTestRouter(t)
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/banks/", `{"name":"Keep","code":"001"}`).Code)

	rec := do(t, router, http.MethodPut, "/banks/1", `{"name":"","code":"toolong"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, Bank{ID: 1, Code: "001", Name: "Keep"}, repo.banks[1])
}

func TestPatchBankOnlyChangesSentFields(t *testing.T) {
	router, _, _ := newTestRouter(t)
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/banks/", `{"name":"Keep","code":"001"}`).Code)

	rec := do(t, router, http.MethodPatch, "/banks/1", `{"code":"077"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, BankResponse{ID: 1, Code: "077", Name: "Keep"}, decodeBank(t, rec))

	rec = do(t, router, http.MethodPatch, "/banks/1", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteBank(t *testing.T) {
	router, repo, audit := newTestRouter(t)
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/banks/", `{"name":"Gone","code":"001"}`).Code)
	repo.accounts[1] = 2

	rec := do(t, router, http.MethodDelete, "/banks/1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/banks/1", "").Code)
	require.Len(t, audit.logs, 2)
	assert.Equal(t, int64(2), audit.logs[1].Meta["cascaded_bank_accounts"])
}
