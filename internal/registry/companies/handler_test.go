package companies

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpbank/corpbank/internal/platform/httpx"
	"github.com/corpbank/corpbank/internal/registry/shared"
	_ "github.com/corpbank/corpbank/testing"
)

type memRepo struct {
	mu        sync.Mutex
	companies map[int64]Company
	nextID    int64
	now       time.Time
}

func newMemRepo() *memRepo {
	return &memRepo{
		companies: map[int64]Company{},
		nextID:    1,
		now:       time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
	}
}

func (m *memRepo) List(ctx context.Context, filters shared.ListFilters) ([]Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Company{}
	for _, c := range m.companies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRepo) Get(ctx context.Context, id int64) (Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[id]
	if !ok {
		return Company{}, httpx.ErrNotFound
	}
	return c, nil
}

func (m *memRepo) Create(ctx context.Context, company Company) (Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	company.ID = m.nextID
	company.CreatedAt = m.now
	m.nextID++
	m.companies[company.ID] = company
	return company, nil
}

func (m *memRepo) Update(ctx context.Context, id int64, company Company) (Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.companies[id]
	if !ok {
		return Company{}, httpx.ErrNotFound
	}
	company.ID = id
	company.CreatedAt = current.CreatedAt
	m.companies[id] = company
	return company, nil
}

func (m *memRepo) Delete(ctx context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.companies[id]; !ok {
		return 0, httpx.ErrNotFound
	}
	delete(m.companies, id)
	return 0, nil
}

func newTestRouter(t *testing.T) (http.Handler, *memRepo) {
	t.Helper()
	repo := newMemRepo()
	svc := NewService(repo, shared.NewValidator("BR"), nil, nil)
	r := chi.NewRouter()
	r.Route("/companies", NewHandler(nil, svc).MountRoutes)
	return r, repo
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func problemFields(t *testing.T, rec *httptest.ResponseRecorder) map[string][]string {
	t.Helper()
	var p httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p.Errors
}

const validPayload = `{
	"name": "Copper Wire",
	"phone": "48995481447",
	"address": "address test",
	"city": "address test",
	"state": "address test",
	"country": "address test",
	"earnings_declared": 1
}`

func TestCreateValidCompany(t *testing.T) {
	router, repo := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/companies/", validPayload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Copper Wire", body["name"])
	assert.Equal(t, "+5548995481447", body["phone"])
	assert.Equal(t, "address test", body["address"])
	assert.Nil(t, body["address_additional_info"])
	assert.Contains(t, body, "address_additional_info")
	assert.Equal(t, "address test", body["city"])
	assert.Equal(t, "1.0000", body["earnings_declared"])
	assert.Equal(t, "2024-03-01T12:30:00Z", body["created_at"])
	assert.Len(t, body, 10)

	require.Len(t, repo.companies, 1)
	assert.Equal(t, "+5548995481447", repo.companies[1].Phone)
}

func TestCreateCompanyRejectsInvalidPhone(t *testing.T) {
	router, repo := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/companies/", `{"name": "Copper Wire", "phone": "test", "address": "x", "earnings_declared": 1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string][]string{"phone": {shared.MsgInvalidPhone}}, problemFields(t, rec))
	assert.Empty(t, repo.companies)
}

func TestCreateCompanyReportsEveryField(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/companies/", `{"name": "", "phone": "48995481447", "country": "`+strings.Repeat("x", 61)+`", "earnings_declared": "abc"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := problemFields(t, rec)
	assert.Equal(t, []string{shared.MsgRequired}, fields["name"])
	assert.Equal(t, []string{shared.MsgRequired}, fields["address"])
	assert.Equal(t, []string{"Ensure this field has no more than 60 characters."}, fields["country"])
	assert.Equal(t, []string{shared.MsgInvalidNum}, fields["earnings_declared"])
	assert.NotContains(t, fields, "phone")
}

func TestCreateCompanyDecimalPrecision(t *testing.T) {
	router, _ := newTestRouter(t)

	payload := `{"name":"A","phone":"+5548995481447","address":"x","earnings_declared":"123456789012345.6789"}`
	rec := do(t, router, http.MethodPost, "/companies/", payload)
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp CompanyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "123456789012345.6789", resp.EarningsDeclared)

	rec = do(t, router, http.MethodPost, "/companies/", `{"name":"A","phone":"48995481447","address":"x","earnings_declared":0.00001}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, problemFields(t, rec), "earnings_declared")
}

func TestCreateIgnoresClientCreatedAt(t *testing.T) {
	router, repo := newTestRouter(t)

	payload := `{"name":"A","phone":"48995481447","address":"x","earnings_declared":1,"created_at":"1999-01-01T00:00:00Z","id":99}`
	rec := do(t, router, http.MethodPost, "/companies/", payload)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, repo.now, repo.companies[1].CreatedAt)
	_, exists := repo.companies[99]
	assert.False(t, exists)
}

func TestCreateThenRetrieveCompany(t *testing.T) {
	router, _ := newTestRouter(t)

	created := do(t, router, http.MethodPost, "/companies/", validPayload)
	require.Equal(t, http.StatusCreated, created.Code)

	rec := do(t, router, http.MethodGet, "/companies/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, created.Body.String(), rec.Body.String())
}

func TestRetrieveMissingCompany(t *testing.T) {
	router, _ := newTestRouter(t)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/companies/30", "").Code)
}

func TestUpdateCompanyKeepsCreatedAt(t *testing.T) {
	router, repo := newTestRouter(t)
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/companies/", validPayload).Code)

	payload := `{"name":"Renamed","phone":"+1 650 253 0000","address":"new","address_additional_info":"Sala 2","earnings_declared":"10.5","created_at":"2001-01-01T00:00:00Z"}`
	rec := do(t, router, http.MethodPut, "/companies/1", payload)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp CompanyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Renamed", resp.Name)
	assert.Equal(t, "+16502530000", resp.Phone)
	require.NotNil(t, resp.AddressAdditionalInfo)
	assert.Equal(t, "Sala 2", *resp.AddressAdditionalInfo)
	assert.Equal(t, "10.5000", resp.EarningsDeclared)
	assert.Equal(t, "", resp.City)
	assert.True(t, repo.now.Equal(resp.CreatedAt))
}

func TestInvalidUpdateLeavesCompanyUnchanged(t *testing.T) {
	router, repo := newTestRouter(t)
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/companies/", validPayload).Code)
	before := repo.companies[1]

	rec := do(t, router, http.MethodPut, "/companies/1", `{"name": "", "phone": "SADF2"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, before, repo.companies[1])

	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodPut, "/companies/30", `{"name": ""}`).Code)
}

func TestPatchCompany(t *testing.T) {
	router, _ := newTestRouter(t)
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/companies/", validPayload).Code)

	rec := do(t, router, http.MethodPatch, "/companies/1", `{"city": "Florianópolis"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp CompanyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Florianópolis", resp.City)
	assert.Equal(t, "Copper Wire", resp.Name)
	assert.Equal(t, "1.0000", resp.EarningsDeclared)
	assert.Equal(t, "+5548995481447", resp.Phone)

	rec = do(t, router, http.MethodPatch, "/companies/1", `{"phone": "test"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteCompany(t *testing.T) {
	router, _ := newTestRouter(t)
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/companies/", validPayload).Code)

	assert.Equal(t, http.StatusNoContent, do(t, router, http.MethodDelete, "/companies/1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/companies/1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodDelete, "/companies/1", "").Code)
}

func TestListCompanies(t *testing.T) {
	router, _ := newTestRouter(t)
	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/companies/", validPayload).Code)
	}

	rec := do(t, router, http.MethodGet, "/companies/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []CompanyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 5)
	assert.Equal(t, int64(5), list[4].ID)
}
