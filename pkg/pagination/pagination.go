package pagination

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultSkip  = 0
	DefaultLimit = 100
)

// TotalCountHeader carries the size of the full result set on list responses.
const TotalCountHeader = "X-Total-Count"

// Params holds skip/limit pagination parameters extracted from a request.
type Params struct {
	Skip  int
	Limit int
}

// FromContext extracts skip and limit from the query string. Missing values
// take their defaults; malformed or negative values are an error. When
// maxLimit is positive, larger limits are clamped to it.
func FromContext(c echo.Context, maxLimit int) (Params, error) {
	p := Params{Skip: DefaultSkip, Limit: DefaultLimit}

	var err error
	if p.Skip, err = intParam(c, "skip", DefaultSkip); err != nil {
		return Params{}, err
	}
	if p.Limit, err = intParam(c, "limit", DefaultLimit); err != nil {
		return Params{}, err
	}
	if maxLimit > 0 && p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p, nil
}

func intParam(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s must not be negative", name)
	}
	return n, nil
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Skip+p.Limit < total
}

// NextSkip returns the skip value of the following page.
func (p Params) NextSkip() int {
	return p.Skip + p.Limit
}

// PageSize returns how many of total records this page holds:
// max(0, min(limit, total-skip)).
func (p Params) PageSize(total int) int {
	n := total - p.Skip
	if n > p.Limit {
		n = p.Limit
	}
	if n < 0 {
		return 0
	}
	return n
}
