package pagination

import "math"

// Params is a normalized 1-based page window.
type Params struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Normalize applies defaults and bounds: a page below 1 becomes 1, a limit
// below 1 becomes defaultLimit, and a limit above maxLimit is capped. A
// maxLimit of 0 disables the cap.
func Normalize(page, limit, defaultLimit, maxLimit int) Params {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	return Params{Page: page, Limit: limit}
}

// Offset returns the number of rows to skip for the window, saturating at
// math.MaxInt.
func (p Params) Offset() int {
	if p.Page < 1 || p.Limit < 1 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

// TotalPages returns ceil(total/limit), or 0 when total or limit is 0.
func TotalPages(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	l := int64(limit)
	return int((total + l - 1) / l)
}
