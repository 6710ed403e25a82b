package doctor

import (
	"net/url"
	"strconv"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 1000
)

// sortColumns whitelists the API sort names against real columns.
var sortColumns = map[string]string{
	"name":           "name",
	"email":          "email",
	"phone":          "phone",
	"specialization": "specialization",
	"address":        "address",
	"website":        "website",
	"email_sent":     "email_sent",
	"createdAt":      "created_at",
	"updatedAt":      "updated_at",
}

// Params is the canonical form of a directory query. The tri-state
// filters use nil for "any".
type Params struct {
	Page      int
	Limit     int
	SortBy    string // validated column name
	SortOrder string // "ASC" or "DESC"

	Search         string
	Specialization string
	EmailSent      *bool
	HasPhone       *bool
	HasWebsite     *bool
	HasAddress     *bool
}

// ParseParams normalizes raw query values: out-of-range pages clamp to 1,
// the page size is bounded, unknown sort fields fall back to creation
// time. Two requests that differ only in parameter order or in spelling
// out a default parse to identical Params.
func ParseParams(q url.Values) Params {
	p := Params{
		Page:      1,
		Limit:     DefaultPageSize,
		SortBy:    "created_at",
		SortOrder: "DESC",
	}

	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 1 {
		p.Page = n
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		p.Limit = n
		if p.Limit > MaxPageSize {
			p.Limit = MaxPageSize
		}
	}
	if col, ok := sortColumns[q.Get("sortBy")]; ok {
		p.SortBy = col
	}
	if q.Get("sortOrder") == "asc" {
		p.SortOrder = "ASC"
	}

	p.Search = q.Get("search")
	p.Specialization = q.Get("specialization")
	p.EmailSent = triState(q, "emailSent")
	p.HasPhone = triState(q, "hasPhone")
	p.HasWebsite = triState(q, "hasWebsite")
	p.HasAddress = triState(q, "hasAddress")
	return p
}

func triState(q url.Values, key string) *bool {
	if !q.Has(key) {
		return nil
	}
	v := q.Get(key) == "true"
	return &v
}

// CacheParams flattens the canonical params into the key/value set used
// for cache lookup. Unset filters and empty values are left out entirely.
func (p Params) CacheParams() map[string]string {
	m := map[string]string{
		"page":      strconv.Itoa(p.Page),
		"limit":     strconv.Itoa(p.Limit),
		"sortBy":    p.SortBy,
		"sortOrder": p.SortOrder,
	}
	if p.Search != "" {
		m["search"] = p.Search
	}
	if p.Specialization != "" {
		m["specialization"] = p.Specialization
	}
	putTriState(m, "emailSent", p.EmailSent)
	putTriState(m, "hasPhone", p.HasPhone)
	putTriState(m, "hasWebsite", p.HasWebsite)
	putTriState(m, "hasAddress", p.HasAddress)
	return m
}

func putTriState(m map[string]string, key string, v *bool) {
	if v != nil {
		m[key] = strconv.FormatBool(*v)
	}
}
