package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

const (
	defaultPage     = 1
	defaultPageSize = 100
	maxPageSize     = 100
)

var errInvalidPagination = errors.New("invalid pagination parameters")

// paginationParams parses page (>= 1, default 1) and pageSize (1-100,
// default 100) from the query string. Malformed or out-of-range values are
// rejected outright rather than clamped, so no query runs on bad input.
func paginationParams(r *http.Request) (page, pageSize int, err error) {
	page, err = positiveIntParam(r, "page", defaultPage)
	if err != nil {
		return 0, 0, err
	}

	pageSize, err = positiveIntParam(r, "pageSize", defaultPageSize)
	if err != nil {
		return 0, 0, err
	}
	if pageSize > maxPageSize {
		return 0, 0, errInvalidPagination
	}

	return page, pageSize, nil
}

func positiveIntParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, errInvalidPagination
	}
	return v, nil
}

// linkHeader builds the RFC 5988 Link header for a paginated collection:
// first/prev when there is a previous page, next/last when there is a next
// one. Returns "" when the whole collection fits on one page.
func linkHeader(baseURL, path string, page, pageSize, total int) string {
	lastPage := (total + pageSize - 1) / pageSize
	if lastPage <= 1 {
		return ""
	}

	link := func(p int, rel string) string {
		return fmt.Sprintf("<%s%s?page=%d&pageSize=%d>; rel=%q", baseURL, path, p, pageSize, rel)
	}

	var links []string
	if page > 1 {
		links = append(links, link(1, "first"), link(page-1, "prev"))
	}
	if page < lastPage {
		links = append(links, link(page+1, "next"), link(lastPage, "last"))
	}
	return strings.Join(links, ", ")
}
