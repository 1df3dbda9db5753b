// Package query parses and validates list parameters shared by every
// catalog resource: pagination, enum filters, free-text search and sort.
//
// Out-of-range values are rejected, never clamped, so a client always
// gets back exactly the page it asked for or a VALIDATION_ERROR.
package query

import (
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/sakif/code-compass/internal/apperror"
	"github.com/sakif/code-compass/internal/validate"
)

const (
	DefaultPage = 1
	MaxLimit    = 100
	// MaxSearchLength bounds the free-text search term.
	MaxSearchLength = 100
)

// Spec describes what one resource accepts.
type Spec struct {
	DefaultLimit int
	Categories   []string // empty: category filter not accepted
	Difficulties []string // empty: difficulty filter not accepted
	Sorts        []string // empty Sort means the resource's default order
}

// Params is a validated list request.
type Params struct {
	Page       int
	Limit      int
	Category   string
	Difficulty string
	Search     string
	Tags       []string
	Sort       string
	Extra      url.Values // remaining resource-specific parameters
}

// Offset is the number of items to skip for Page.
func (p Params) Offset() int { return (p.Page - 1) * p.Limit }

// Parse reads and validates values according to spec. Every problem is
// reported at once in the returned validation error.
func Parse(values url.Values, spec Spec, v *validate.Validator) (Params, error) {
	p := Params{
		Page:       DefaultPage,
		Limit:      spec.DefaultLimit,
		Category:   strings.TrimSpace(values.Get("category")),
		Difficulty: strings.TrimSpace(values.Get("difficulty")),
		Search:     strings.TrimSpace(values.Get("search")),
		Sort:       strings.TrimSpace(values.Get("sort")),
		Tags:       splitList(values["tags"]),
		Extra:      values,
	}
	if p.Limit == 0 {
		p.Limit = 20
	}

	var details []apperror.FieldError
	add := func(fe *apperror.FieldError) {
		if fe != nil {
			details = append(details, *fe)
		}
	}

	if raw := values.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			add(&apperror.FieldError{Field: "page", Message: "page must be a positive integer"})
		} else {
			p.Page = n
			add(v.Var("page", n, "min=1"))
		}
	}
	if raw := values.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			add(&apperror.FieldError{Field: "limit", Message: "limit must be an integer between 1 and 100"})
		} else {
			p.Limit = n
			add(v.Var("limit", n, "min=1,max="+strconv.Itoa(MaxLimit)))
		}
	}
	// Offset must stay representable; no catalog comes near this many rows.
	if p.Page > 1 && p.Limit >= 1 && p.Limit <= MaxLimit && p.Page > math.MaxInt32/p.Limit {
		add(&apperror.FieldError{Field: "page", Message: "page must be at most " + strconv.Itoa(math.MaxInt32/p.Limit) + " for limit " + strconv.Itoa(p.Limit)})
	}
	if p.Category != "" {
		add(oneOf(v, "category", p.Category, spec.Categories))
	}
	if p.Difficulty != "" {
		add(oneOf(v, "difficulty", p.Difficulty, spec.Difficulties))
	}
	if p.Search != "" {
		add(v.Var("search", p.Search, "max="+strconv.Itoa(MaxSearchLength)))
	}
	if p.Sort != "" {
		add(oneOf(v, "sort", p.Sort, spec.Sorts))
	}

	if len(details) > 0 {
		return Params{}, apperror.Validation(details)
	}
	return p, nil
}

func oneOf(v *validate.Validator, field, value string, allowed []string) *apperror.FieldError {
	if len(allowed) == 0 {
		return &apperror.FieldError{Field: field, Message: field + " filter is not supported"}
	}
	if slices.Contains(allowed, value) {
		return nil
	}
	return v.Var(field, value, "oneof="+strings.Join(allowed, " "))
}

// splitList accepts both ?tags=a&tags=b and ?tags=a,b.
func splitList(raw []string) []string {
	var out []string
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			if part = strings.TrimSpace(part); part != "" && !slices.Contains(out, part) {
				out = append(out, part)
			}
		}
	}
	return out
}

// Pagination is the meta block returned with every list.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func NewPagination(p Params, total int) Pagination {
	pages := 0
	if p.Limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(p.Limit)))
	}
	return Pagination{Page: p.Page, Limit: p.Limit, Total: total, Pages: pages}
}
