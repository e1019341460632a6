package controller

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/602gho/mtr-isl-hfc-webpage/internal/utils"
)

const (
	defaultReadingsLimit = 100
	maxReadingsLimit     = 1000
)

// trailing windows accepted by ?since=, ending at the request time.
var sinceWindows = map[string]time.Duration{
	"1h":  time.Hour,
	"6h":  6 * time.Hour,
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
}

type readingsQuery struct {
	Place string
	From  time.Time
	To    time.Time
	Limit int
}

func (q readingsQuery) windowed() bool {
	return !q.From.IsZero() || !q.To.IsZero()
}

// parseReadingsQuery reads place, limit and either an explicit RFC3339
// from/to window or a trailing since window. The two window forms are exclusive.
func parseReadingsQuery(r *http.Request, now time.Time) (readingsQuery, error) {
	q := r.URL.Query()
	out := readingsQuery{Place: strings.TrimSpace(q.Get("place"))}

	var err error
	if s := q.Get("from"); s != "" {
		if out.From, err = time.Parse(time.RFC3339, s); err != nil {
			return readingsQuery{}, errors.New("invalid 'from' (expected RFC3339)")
		}
	}
	if s := q.Get("to"); s != "" {
		if out.To, err = time.Parse(time.RFC3339, s); err != nil {
			return readingsQuery{}, errors.New("invalid 'to' (expected RFC3339)")
		}
	}
	if s := q.Get("since"); s != "" {
		if out.windowed() {
			return readingsQuery{}, errors.New("'since' cannot be combined with 'from' or 'to'")
		}
		d, ok := sinceWindows[s]
		if !ok {
			return readingsQuery{}, errors.New("invalid 'since' (allowed: 1h, 6h, 24h, 7d)")
		}
		out.From, out.To = now.Add(-d), now
	}
	if !out.From.IsZero() && !out.To.IsZero() && out.From.After(out.To) {
		return readingsQuery{}, errors.New("'from' must be <= 'to'")
	}

	if out.Limit, err = utils.ParseLimit(q, defaultReadingsLimit, maxReadingsLimit); err != nil {
		return readingsQuery{}, err
	}
	return out, nil
}

func zeroAsNullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
