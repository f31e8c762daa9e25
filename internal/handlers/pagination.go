package handlers

import (
	"net/http"
	"net/url"
	"strconv"

	"botoapp/user/internal/models"
)

type pageLinks struct {
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

// UserPage is the paginated listing envelope.
type UserPage struct {
	Links       pageLinks     `json:"links"`
	Total       int64         `json:"total"`
	TotalPages  int           `json:"total_pages"`
	CurrentPage int           `json:"current_page"`
	PageSize    int           `json:"page_size"`
	Results     []models.User `json:"results"`
}

// parsePaging reads page and page_size. An unparsable page is rejected;
// a bad page_size falls back to the default and is capped at max.
func parsePaging(qs url.Values, def, max int) (int, int, bool) {
	page := 1
	if raw := qs.Get("page"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 1 {
			return 0, 0, false
		}
		page = p
	}
	size := def
	if raw := qs.Get("page_size"); raw != "" {
		if s, err := strconv.Atoi(raw); err == nil && s > 0 {
			size = s
		}
	}
	if max > 0 && size > max {
		size = max
	}
	if size <= 0 {
		size = 20
	}
	return page, size, true
}

func newPage(r *http.Request, users []models.User, total int64, page, size int) (UserPage, bool) {
	totalPages := int((total + int64(size) - 1) / int64(size))
	// page 1 of an empty listing is still valid
	if page > max(totalPages, 1) {
		return UserPage{}, false
	}
	if users == nil {
		users = []models.User{}
	}

	resp := UserPage{Total: total, TotalPages: totalPages, CurrentPage: page, PageSize: size, Results: users}
	if page < totalPages {
		next := pageURL(r, page+1)
		resp.Links.Next = &next
	}
	if page > 1 {
		prev := pageURL(r, page-1)
		resp.Links.Previous = &prev
	}
	return resp, true
}

func pageURL(r *http.Request, page int) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	u := url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path}
	q := r.URL.Query()
	if page == 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()
	return u.String()
}
