package zerodha

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// barTimeLayout is the broker API's date-time format for bars and ranges.
const barTimeLayout = "20060102 15:04:05"

// barDateLayout is used for daily bars.
const barDateLayout = "20060102"

type historicalQuery struct {
	interval string
	from     time.Time
	to       time.Time
	daily    bool
}

// barIntervals maps broker API bar sizes to Kite candle intervals.
var barIntervals = map[string]string{
	"1 min":   "minute",
	"3 mins":  "3minute",
	"5 mins":  "5minute",
	"10 mins": "10minute",
	"15 mins": "15minute",
	"30 mins": "30minute",
	"1 hour":  "60minute",
	"1 day":   "day",
}

// parseHistoricalQuery turns an end date-time, a duration such as "5 D"
// and a bar size such as "5 mins" into a Kite candle query. An empty end
// means now.
func parseHistoricalQuery(end, duration, barSize string, now time.Time) (historicalQuery, error) {
	var q historicalQuery

	interval, ok := barIntervals[strings.ToLower(strings.TrimSpace(barSize))]
	if !ok {
		return q, fmt.Errorf("unsupported bar size %q", barSize)
	}
	q.interval = interval
	q.daily = interval == "day"

	q.to = now
	if end = strings.TrimSpace(end); end != "" {
		t, err := parseEndDateTime(end, now.Location())
		if err != nil {
			return q, err
		}
		q.to = t
	}

	from, err := subtractDuration(q.to, duration)
	if err != nil {
		return q, err
	}
	q.from = from
	return q, nil
}

func parseEndDateTime(s string, loc *time.Location) (time.Time, error) {
	// A trailing time zone name is accepted and ignored, except UTC.
	fields := strings.Fields(s)
	if len(fields) == 3 {
		if strings.EqualFold(fields[2], "UTC") {
			loc = time.UTC
		}
		s = fields[0] + " " + fields[1]
	}
	for _, layout := range []string{barTimeLayout, "20060102-15:04:05", barDateLayout} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid end date/time %q", s)
}

func subtractDuration(to time.Time, duration string) (time.Time, error) {
	fields := strings.Fields(duration)
	if len(fields) != 2 {
		return time.Time{}, fmt.Errorf("invalid duration %q", duration)
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n <= 0 {
		return time.Time{}, fmt.Errorf("invalid duration %q", duration)
	}

	switch strings.ToUpper(fields[1]) {
	case "S":
		return to.Add(-time.Duration(n) * time.Second), nil
	case "D":
		return to.AddDate(0, 0, -n), nil
	case "W":
		return to.AddDate(0, 0, -7*n), nil
	case "M":
		return to.AddDate(0, -n, 0), nil
	case "Y":
		return to.AddDate(-n, 0, 0), nil
	}
	return time.Time{}, fmt.Errorf("invalid duration unit in %q", duration)
}

func (q historicalQuery) formatBar(t time.Time) string {
	if q.daily {
		return t.Format(barDateLayout)
	}
	return t.Format(barTimeLayout)
}
