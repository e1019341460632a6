// Package status formats the header clock and the train refresh countdown.
package status

import (
	"fmt"
	"math"
	"time"
)

const Updating = "更新中..."

func FormatClock(t time.Time) string {
	return fmt.Sprintf("%04d年%02d月%02d日 %02d時%02d分%02d秒",
		t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
}

// RefreshCountdown shows the time left until the next train pass is due.
// It is empty until the first pass that reached station data.
func RefreshCountdown(now, lastUpdate time.Time, interval time.Duration) string {
	if lastUpdate.IsZero() {
		return ""
	}
	remaining := interval - now.Sub(lastUpdate)
	if remaining <= 0 {
		return Updating
	}
	seconds := int64(math.Ceil(remaining.Seconds()))
	return fmt.Sprintf("下次更新: %d 秒", seconds)
}
