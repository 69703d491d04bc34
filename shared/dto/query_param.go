package dto

import (
	"net/http"
	"strconv"
	"strings"

	"meetroom/shared/constant"
)

const (
	SortDirAsc  = "ASC"
	SortDirDesc = "DESC"
)

// QueryParams carries paging and ordering for list endpoints. SortBy is written into the
// SQL text, so handlers map it through a whitelist of columns before use.
type QueryParams struct {
	Page    int    `json:"page"     validate:"omitempty,min=1"`
	Limit   int    `json:"limit"    validate:"omitempty,min=1"`
	SortBy  string `json:"sort_by"  validate:"omitempty"`
	SortDir string `json:"sort_dir" validate:"omitempty,oneof=ASC DESC"`
}

// FromRequest reads page, limit, sort_by and sort_dir from the query string. Invalid
// numbers and unknown directions are ignored. With withDefaults the first page of
// constant.DefaultValueLimit rows is selected when nothing was requested, and limit is
// capped at constant.MaxValueLimit either way.
func (q *QueryParams) FromRequest(r *http.Request, withDefaults bool) {
	values := r.URL.Query()

	q.Page = positiveInt(values.Get(constant.RequestParamPage), q.Page)
	q.Limit = min(positiveInt(values.Get(constant.RequestParamLimit), q.Limit), constant.MaxValueLimit)

	if sortBy := strings.TrimSpace(values.Get(constant.RequestParamSortBy)); sortBy != "" {
		q.SortBy = sortBy
	}

	switch dir := strings.ToUpper(values.Get(constant.RequestParamSortDir)); dir {
	case SortDirAsc, SortDirDesc:
		q.SortDir = dir
	}

	if !withDefaults {
		return
	}

	if q.Page == 0 {
		q.Page = constant.DefaultValuePage
	}

	if q.Limit == 0 {
		q.Limit = constant.DefaultValueLimit
	}
}

// Offset is the number of rows skipped before Page, zero when paging is unset.
func (q QueryParams) Offset() int {
	if q.Page < 1 || q.Limit < 1 {
		return 0
	}

	return (q.Page - 1) * q.Limit
}

func positiveInt(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}

	return n
}
