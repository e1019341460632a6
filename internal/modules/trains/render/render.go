// Package render turns a transit schedule payload into the display strings
// shown on the train board.
package render

import (
	"fmt"
	"regexp"
	"time"

	"github.com/602gho/mtr-isl-hfc-webpage/internal/modules/trains/types"
)

const (
	Arrived  = "已到達"
	Arriving = "即將抵達"
	Unknown  = "-"

	NoServiceMessage = "無法獲取資料。可能是目前沒有列車服務或輸入錯誤。"
	NoStationMessage = "無法找到車站資料。"
	UpPlaceholder    = "目前沒有上行列車資訊"
	DownPlaceholder  = "目前沒有下行列車資訊"
	UpdatedPrefix    = "最後更新: "
	ErrorPrefix      = "發生錯誤: "

	// PlaceholderColumns is the colspan of the "no trains" row.
	PlaceholderColumns = 3
)

// timestamp layouts accepted from the feed, most common first.
var layouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

var clockRe = regexp.MustCompile(`\d{2}:\d{2}:\d{2}`)

type Row struct {
	Seq      string `json:"seq"`
	Time     string `json:"time"`
	Minutes  string `json:"minutes"`
	Dest     string `json:"dest,omitempty"`
	Platform string `json:"platform,omitempty"`
}

// Direction is one table on the board. When Rows is empty and Placeholder is
// set, the table shows a single row spanning Colspan columns.
type Direction struct {
	Rows        []Row  `json:"rows"`
	Placeholder string `json:"placeholder,omitempty"`
	Colspan     int    `json:"colspan,omitempty"`
}

type Board struct {
	StationKey   string    `json:"stationKey"`
	Up           Direction `json:"up"`
	Down         Direction `json:"down"`
	CurrentTime  string    `json:"currentTime,omitempty"`
	UpdatedLabel string    `json:"updatedLabel,omitempty"`
	Delayed      bool      `json:"delayed"`
	Error        string    `json:"error,omitempty"`
	RenderedAt   time.Time `json:"renderedAt"`
}

// HasData reports whether the pass reached the station's schedule.
func (b Board) HasData() bool {
	return b.UpdatedLabel != ""
}

// FormatTime extracts the HH:MM:SS part of a feed timestamp. Strings without
// one are returned unchanged.
func FormatTime(s string) string {
	if s == "" {
		return ""
	}
	if m := clockRe.FindString(s); m != "" {
		return m
	}
	return s
}

// ParseTime parses a feed timestamp in loc.
func ParseTime(s string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// MinutesUntil renders the countdown from current to arrival.
func MinutesUntil(arrival, current string, loc *time.Location) string {
	a, ok := ParseTime(arrival, loc)
	if !ok {
		return Unknown
	}
	c, ok := ParseTime(current, loc)
	if !ok {
		return Unknown
	}
	return Countdown(a.Sub(c))
}

// Countdown renders a time-to-arrival. Sub-minute remainders are floored.
func Countdown(diff time.Duration) string {
	if diff < 0 {
		return Arrived
	}
	mins := int64(diff / time.Minute)
	if mins == 0 {
		return Arriving
	}
	return fmt.Sprintf("%d 分鐘", mins)
}

// Render builds the board for stationKey (e.g. "ISL-HFC") from a decoded
// schedule. It never fails: problems with the payload end up in Board.Error.
func Render(resp types.ScheduleResponse, stationKey string, loc *time.Location, renderedAt time.Time) Board {
	board := Board{StationKey: stationKey, RenderedAt: renderedAt}

	if resp.Status == "0" {
		board.Error = resp.Message
		if board.Error == "" {
			board.Error = NoServiceMessage
		}
		return board
	}

	data, ok := resp.Data[stationKey]
	if !ok {
		board.Error = NoStationMessage
		return board
	}

	current := resp.CurrTime
	if current == "" {
		current = resp.SysTime
	}
	board.CurrentTime = current
	board.UpdatedLabel = UpdatedPrefix + current
	board.Delayed = resp.IsDelay == "Y"

	board.Up = direction(data.Up, current, loc, UpPlaceholder)
	board.Down = direction(data.Down, current, loc, DownPlaceholder)
	return board
}

// Failed is the board shown when the fetch itself failed. The previous rows
// stay visible beneath the error, as they do when a browser fetch rejects
// before the tables are cleared.
func Failed(prev Board, stationKey string, err error, renderedAt time.Time) Board {
	prev.StationKey = stationKey
	prev.Error = ErrorPrefix + err.Error()
	prev.RenderedAt = renderedAt
	return prev
}

func direction(trains []types.Train, current string, loc *time.Location, placeholder string) Direction {
	if len(trains) == 0 {
		return Direction{Placeholder: placeholder, Colspan: PlaceholderColumns}
	}
	rows := make([]Row, 0, len(trains))
	for _, tr := range trains {
		rows = append(rows, Row{
			Seq:      tr.Seq.String(),
			Time:     FormatTime(tr.Time),
			Minutes:  MinutesUntil(tr.Time, current, loc),
			Dest:     tr.Dest,
			Platform: tr.Plat.String(),
		})
	}
	return Direction{Rows: rows}
}
