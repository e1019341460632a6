package types

import (
	"encoding/json"
	"testing"
)

func TestFlexString_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    FlexString
		wantErr bool
	}{
		{name: "string", in: `"3"`, want: "3"},
		{name: "number", in: `3`, want: "3"},
		{name: "float", in: `2.5`, want: "2.5"},
		{name: "null", in: `null`, want: ""},
		{name: "bool rejected", in: `true`, wantErr: true},
		{name: "object rejected", in: `{}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got FlexString
			err := json.Unmarshal([]byte(tt.in), &got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal(%s) err = %v; wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Unmarshal(%s) = %q; want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestScheduleResponse_decode(t *testing.T) {
	body := `{
		"status": 1,
		"message": "successful",
		"sys_time": "2024-01-15 10:00:00",
		"curr_time": "2024-01-15 10:00:05",
		"isdelay": "N",
		"data": {
			"ISL-HFC": {
				"curr_time": "2024-01-15 10:00:05",
				"sys_time": "2024-01-15 10:00:00",
				"UP": [{"seq": "1", "dest": "CHW", "plat": "1", "time": "2024-01-15 10:03:00", "ttnt": "3", "valid": "Y", "source": "-"}],
				"DOWN": [{"seq": 2, "dest": "KET", "plat": 2, "time": "2024-01-15 10:05:00", "ttnt": 5, "valid": "Y", "source": "-"}]
			}
		}
	}`

	var resp ScheduleResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "1" {
		t.Errorf("Status = %q; want 1", resp.Status)
	}
	st, ok := resp.Data["ISL-HFC"]
	if !ok {
		t.Fatal("missing ISL-HFC")
	}
	if len(st.Up) != 1 || st.Up[0].Seq != "1" || st.Up[0].Dest != "CHW" {
		t.Errorf("Up = %+v", st.Up)
	}
	if len(st.Down) != 1 || st.Down[0].Seq != "2" || st.Down[0].Plat != "2" {
		t.Errorf("Down = %+v", st.Down)
	}
	if n, ok := st.Down[0].TTNT.Int(); !ok || n != 5 {
		t.Errorf("TTNT.Int() = %d, %v; want 5, true", n, ok)
	}
}
