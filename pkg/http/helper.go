package http

import (
	"net/http"
	"strconv"

	"reservo/pkg/config"
	apperrors "reservo/pkg/errors"
)

// Page is a normalized limit/offset window read from the query string.
type Page struct {
	Limit  int
	Offset int64
}

// ParsePage reads limit and offset. Missing values fall back to the
// configured defaults; malformed ones are rejected as invalid input.
func ParsePage(r *http.Request) (Page, error) {
	query := r.URL.Query()

	var page Page
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return Page{}, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
		page.Limit = v
	}
	if s := query.Get("offset"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Page{}, apperrors.InvalidInput("invalid offset parameter: " + s)
		}
		page.Offset = v
	}

	page.Limit = config.NormalizePaginationLimit(page.Limit)
	page.Offset = config.NormalizeOffset(page.Offset)
	return page, nil
}

// QueryBool parses an optional boolean query parameter.
func QueryBool(r *http.Request, name string) (bool, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, apperrors.InvalidInput("invalid " + name + " parameter: " + s)
	}
	return v, nil
}
