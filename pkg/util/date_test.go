package util

import (
	"strconv"
	"testing"
	"time"
)

func TestMinuteBucket(t *testing.T) {
	in := time.Date(2024, 10, 10, 10, 10, 59, 999, time.FixedZone("ICT", 7*3600))
	got := MinuteBucket(in)
	want := time.Date(2024, 10, 10, 3, 10, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if got.Location() != time.UTC {
		t.Fatalf("expected UTC bucket")
	}
}

func TestFromUnixAuto(t *testing.T) {
	want := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	if got := FromUnixAuto(want.Unix()); !got.Equal(want) {
		t.Fatalf("seconds: %v", got)
	}
	if got := FromUnixAuto(want.UnixMilli()); !got.Equal(want) {
		t.Fatalf("millis: %v", got)
	}
	if got := FromUnixAuto(want.UnixMicro()); !got.Equal(want) {
		t.Fatalf("micros: %v", got)
	}
	if got := FromUnixAuto(want.UnixNano()); !got.Equal(want) {
		t.Fatalf("nanos: %v", got)
	}
}

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeEmpty(t *testing.T) {
	if _, ok := ParseTime(""); ok {
		t.Fatalf("expected not ok")
	}
}
