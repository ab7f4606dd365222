package models

import "testing"

func TestFormatLapTime(t *testing.T) {
	cases := []struct {
		ms   int64
		want string
	}{
		{83456, "01:23.456"},
		{60000, "01:00.000"},
		{59999, "00:59.999"},
		{1, "00:00.001"},
		{600000, "10:00.000"},
		{754321, "12:34.321"},
		{0, "00:00.000"},
		{-100, "00:00.000"},
	}
	for _, tc := range cases {
		if got := FormatLapTime(tc.ms); got != tc.want {
			t.Errorf("FormatLapTime(%d) = %q, want %q", tc.ms, got, tc.want)
		}
	}
}

func TestLapTimeFormatted(t *testing.T) {
	lap := LapTime{PlayerName: "Lewis", LapTimeMS: 71234}
	if got := lap.Formatted(); got != "01:11.234" {
		t.Errorf("Formatted() = %q, want 01:11.234", got)
	}
}
