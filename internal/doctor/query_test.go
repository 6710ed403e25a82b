package doctor

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseParams_Defaults(t *testing.T) {
	p := ParseParams(url.Values{})

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultPageSize, p.Limit)
	assert.Equal(t, "created_at", p.SortBy)
	assert.Equal(t, "DESC", p.SortOrder)
	assert.Nil(t, p.EmailSent)
	assert.Nil(t, p.HasPhone)
	assert.Nil(t, p.HasWebsite)
	assert.Nil(t, p.HasAddress)
}

func TestParseParams_ClampsPageSize(t *testing.T) {
	p := ParseParams(url.Values{"limit": {"5000"}})
	assert.Equal(t, MaxPageSize, p.Limit)
}

func TestParseParams_RejectsUnknownSortField(t *testing.T) {
	p := ParseParams(url.Values{"sortBy": {"id; DROP TABLE doctors"}})
	assert.Equal(t, "created_at", p.SortBy)
}

func TestParseParams_TriStateFilters(t *testing.T) {
	p := ParseParams(url.Values{"hasPhone": {"false"}, "emailSent": {"true"}})

	if assert.NotNil(t, p.HasPhone) {
		assert.False(t, *p.HasPhone)
	}
	if assert.NotNil(t, p.EmailSent) {
		assert.True(t, *p.EmailSent)
	}
	assert.Nil(t, p.HasWebsite)
}

func TestParseParams_InvalidPageFallsBackToOne(t *testing.T) {
	for _, raw := range []string{"0", "-3", "abc"} {
		p := ParseParams(url.Values{"page": {raw}})
		assert.Equal(t, 1, p.Page, "page=%q", raw)
	}
}

func TestCacheParams_OmitsUnsetFilters(t *testing.T) {
	p := ParseParams(url.Values{"search": {"cardio"}, "hasPhone": {"true"}})
	m := p.CacheParams()

	assert.Equal(t, "cardio", m["search"])
	assert.Equal(t, "true", m["hasPhone"])
	_, ok := m["hasWebsite"]
	assert.False(t, ok)
	_, ok = m["specialization"]
	assert.False(t, ok)
}

func TestCacheParams_ExplicitDefaultEqualsImplicit(t *testing.T) {
	implicit := ParseParams(url.Values{})
	explicit := ParseParams(url.Values{"sortBy": {"createdAt"}, "sortOrder": {"desc"}, "page": {"1"}, "limit": {"20"}})
	assert.Equal(t, implicit.CacheParams(), explicit.CacheParams())
}

func TestNewPagination(t *testing.T) {
	cases := []struct {
		name        string
		total       int
		page, limit int
		wantPages   int
		wantNext    bool
		wantPrev    bool
	}{
		{"exact fit", 40, 1, 20, 2, true, false},
		{"partial last page", 41, 3, 20, 3, false, true},
		{"empty set", 0, 1, 20, 0, false, false},
		{"middle page", 100, 2, 20, 5, true, true},
		{"single page", 5, 1, 20, 1, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pg := NewPagination(tc.total, tc.page, tc.limit)
			assert.Equal(t, tc.wantPages, pg.TotalPages)
			assert.Equal(t, tc.wantNext, pg.HasNextPage)
			assert.Equal(t, tc.wantPrev, pg.HasPrevPage)
			assert.Equal(t, tc.total, pg.TotalDoctors)
			assert.Equal(t, tc.limit, pg.PageSize)
		})
	}
}
