package shared

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/corpbank/corpbank/internal/platform/httpx"
)

// ListFilters represents the query parameters accepted by list endpoints.
type ListFilters struct {
	Search   string
	Ordering string

	// Bank account filters
	BankID    *int64
	CompanyID *int64
}

// FiltersFromQuery reads search, ordering, bank and company from q.
// Non-numeric bank/company filters are ignored.
func FiltersFromQuery(q url.Values) ListFilters {
	f := ListFilters{
		Search:   strings.TrimSpace(q.Get("search")),
		Ordering: strings.TrimSpace(q.Get("ordering")),
	}
	if id, err := ParseID(q.Get("bank")); err == nil {
		f.BankID = &id
	}
	if id, err := ParseID(q.Get("company")); err == nil {
		f.CompanyID = &id
	}
	return f
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern builds an ILIKE pattern matching search literally anywhere in the
// value. Postgres treats backslash as the default LIKE escape.
func ContainsPattern(search string) string {
	return "%" + likeEscaper.Replace(search) + "%"
}

// OrderClause turns an ordering parameter ("name", "-created_at") into an ORDER BY
// expression restricted to allowed columns. id breaks ties.
func OrderClause(ordering string, allowed map[string]string) string {
	dir := "ASC"
	if strings.HasPrefix(ordering, "-") {
		dir = "DESC"
		ordering = ordering[1:]
	}
	column, ok := allowed[ordering]
	if !ok {
		return "id ASC"
	}
	if column == "id" {
		return "id " + dir
	}
	return column + " " + dir + ", id ASC"
}

// ParseID parses a path id. Anything that is not a positive integer is reported as not found.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, httpx.ErrNotFound
	}
	return id, nil
}
