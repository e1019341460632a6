package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ScheduleResponse is the body of the MTR next-train endpoint
// (getSchedule.php?line=ISL&sta=HFC&lang=TC).
type ScheduleResponse struct {
	Status   FlexString                 `json:"status"`
	Message  string                     `json:"message"`
	SysTime  string                     `json:"sys_time"`
	CurrTime string                     `json:"curr_time"`
	IsDelay  string                     `json:"isdelay"`
	URL      string                     `json:"url,omitempty"`
	Data     map[string]StationSchedule `json:"data"`
}

// StationSchedule is keyed in ScheduleResponse.Data by "<LINE>-<STA>".
type StationSchedule struct {
	CurrTime string  `json:"curr_time"`
	SysTime  string  `json:"sys_time"`
	Up       []Train `json:"UP"`
	Down     []Train `json:"DOWN"`
}

type Train struct {
	Seq    FlexString `json:"seq"`
	Dest   string     `json:"dest"`
	Plat   FlexString `json:"plat"`
	Time   string     `json:"time"`
	TTNT   FlexString `json:"ttnt"`
	Valid  string     `json:"valid"`
	Source string     `json:"source"`
}

// FlexString accepts a JSON string, number or null. The transit feed is not
// consistent about quoting numeric fields.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("flex string: want string or number, got %s", b)
		}
		*f = FlexString(n.String())
		return nil
	}
}

func (f FlexString) String() string {
	return string(f)
}

// Int returns the value as an integer, or false when it is not one.
func (f FlexString) Int() (int, bool) {
	n, err := strconv.Atoi(string(f))
	return n, err == nil
}
