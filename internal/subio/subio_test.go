package subio

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"subweave/internal/services"
	"subweave/internal/subtitle"
)

func TestParseSRT(t *testing.T) {
	input := "1\r\n" +
		"00:00:01,000 --> 00:00:02,500\r\n" +
		"Hello there\r\n" +
		"\r\n" +
		"2\r\n" +
		"00:00:03,000 --> 00:00:04,000\r\n" +
		"Two lines\r\n" +
		"of text\r\n" +
		"\r\n"
	entries, err := ParseSRT(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseSRT: %v", err)
	}
	want := []subtitle.Entry{
		{Start: 1000, End: 2500, Text: "Hello there"},
		{Start: 3000, End: 4000, Text: "Two lines\\Nof text"},
	}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSRTWithoutIndicesOrTrailingBlank(t *testing.T) {
	input := "00:00:01,000 --> 00:00:02,000\nfirst\n\n00:00:05,000 --> 00:00:06,000\nsecond"
	entries, err := ParseSRT(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseSRT: %v", err)
	}
	if len(entries) != 2 || entries[1].Text != "second" {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestParseSRTSortsByStart(t *testing.T) {
	input := "1\n00:00:10,000 --> 00:00:11,000\nlate\n\n2\n00:00:01,000 --> 00:00:02,000\nearly\n"
	entries, err := ParseSRT(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseSRT: %v", err)
	}
	if entries[0].Text != "early" || entries[1].Text != "late" {
		t.Fatalf("entries not sorted: %+v", entries)
	}
}

func TestParseSRTRejectsBadTimestamp(t *testing.T) {
	input := "1\n00:00:xx,000 --> 00:00:02,000\nbroken\n"
	_, err := ParseSRT(strings.NewReader(input))
	if err == nil {
		t.Fatal("expected timestamp error")
	}
	if !errors.Is(err, services.ErrInput) {
		t.Fatalf("error not ErrInput: %v", err)
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("error missing line number: %v", err)
	}
}

func TestParseSRTRejectsReversedCue(t *testing.T) {
	input := "1\n00:00:05,000 --> 00:00:02,000\nbackwards\n"
	if _, err := ParseSRT(strings.NewReader(input)); err == nil {
		t.Fatal("expected reversed cue error")
	}
}

func TestParseVTT(t *testing.T) {
	input := "WEBVTT\n" +
		"\n" +
		"NOTE this block is skipped\n" +
		"and so is this line\n" +
		"\n" +
		"intro\n" +
		"00:00:01.000 --> 00:00:02.000 line:90%\n" +
		"Bonjour\n" +
		"\n" +
		"00:01:03.250 --> 00:01:04.000\n" +
		"Deux\n" +
		"lignes\n"
	entries, err := ParseVTT(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseVTT: %v", err)
	}
	want := []subtitle.Entry{
		{Start: 1000, End: 2000, Text: "Bonjour"},
		{Start: 63250, End: 64000, Text: "Deux\\Nlignes"},
	}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestParseVTTRequiresHeader(t *testing.T) {
	input := "00:00:01.000 --> 00:00:02.000\nno header\n"
	if _, err := ParseVTT(strings.NewReader(input)); err == nil {
		t.Fatal("expected header error")
	}
}

func TestParseTimestamp(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"00:00:01,000", 1000, true},
		{"01:02:03,456", 3723456, true},
		{"00:00:01.000", 1000, true},
		{"02:03.456", 123456, true},
		{"100:00:00,000", 360000000, true},
		{"", 0, false},
		{"00:00:01", 0, false},
		{"00:00:01,00", 0, false},
		{"aa:00:01,000", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseTimestamp(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("ParseTimestamp(%q): %v", tc.in, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("ParseTimestamp(%q) accepted bad input", tc.in)
		}
		if tc.ok && got != tc.want {
			t.Fatalf("ParseTimestamp(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	if got := FormatTimestamp(3723456, FormatSRT); got != "01:02:03,456" {
		t.Fatalf("srt timestamp = %q", got)
	}
	if got := FormatTimestamp(1000, FormatVTT); got != "00:00:01.000" {
		t.Fatalf("vtt timestamp = %q", got)
	}
	if got := FormatTimestamp(-5, FormatSRT); got != "00:00:00,000" {
		t.Fatalf("negative timestamp = %q", got)
	}
}

func TestWriteSRTRoundTrip(t *testing.T) {
	entries := []subtitle.Entry{
		{Start: 1000, End: 2500, Text: "Hello there"},
		{Start: 3000, End: 4000, Text: "Two lines\\Nof text"},
	}
	var sb strings.Builder
	if err := WriteSRT(&sb, entries); err != nil {
		t.Fatalf("WriteSRT: %v", err)
	}
	out := sb.String()
	if !strings.Contains(out, "1\n00:00:01,000 --> 00:00:02,500\nHello there\n\n") {
		t.Fatalf("output missing first cue:\n%s", out)
	}
	if !strings.Contains(out, "Two lines\nof text\n") {
		t.Fatalf("break marker not rendered as newline:\n%s", out)
	}
	parsed, err := ParseSRT(strings.NewReader(out))
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if diff := cmp.Diff(entries, parsed); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteVTT(t *testing.T) {
	entries := []subtitle.Entry{{Start: 500, End: 1500, Text: "hi"}}
	var sb strings.Builder
	if err := WriteVTT(&sb, entries); err != nil {
		t.Fatalf("WriteVTT: %v", err)
	}
	out := sb.String()
	if !strings.HasPrefix(out, "WEBVTT\n\n") {
		t.Fatalf("missing header:\n%s", out)
	}
	if !strings.Contains(out, "00:00:00.500 --> 00:00:01.500\nhi\n") {
		t.Fatalf("cue missing:\n%s", out)
	}
}

func TestDetectFormat(t *testing.T) {
	if f, err := DetectFormat("a/b/movie.SRT"); err != nil || f != FormatSRT {
		t.Fatalf("srt detect: %v %v", f, err)
	}
	if f, err := DetectFormat("movie.vtt"); err != nil || f != FormatVTT {
		t.Fatalf("vtt detect: %v %v", f, err)
	}
	if _, err := DetectFormat("movie.ass"); !errors.Is(err, services.ErrInput) {
		t.Fatalf("expected ErrInput for unsupported extension, got %v", err)
	}
}

func TestReadWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.srt")
	entries := []subtitle.Entry{{Start: 0, End: 1000, Text: "file trip"}}
	if err := WriteFile(path, entries); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if diff := cmp.Diff(entries, got); diff != "" {
		t.Fatalf("file round trip mismatch (-want +got):\n%s", diff)
	}
	if _, err := ReadFile(filepath.Join(dir, "missing.srt")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if err := os.WriteFile(filepath.Join(dir, "bad.vtt"), []byte("not a vtt"), 0o644); err != nil {
		t.Fatalf("seed bad file: %v", err)
	}
	if _, err := ReadFile(filepath.Join(dir, "bad.vtt")); err == nil {
		t.Fatal("expected error for bad vtt")
	}
}

func TestMergedEntries(t *testing.T) {
	fields := []subtitle.MergedField{
		{Start: 0, End: 1000, PrimaryText: "hello", SecondaryText: "bonjour", PrimaryStyle: "Top", SecondaryStyle: "Alt"},
		{Start: 2000, End: 3000, PrimaryText: "alone", PrimaryStyle: "Top"},
		{Start: 4000, End: 5000, SecondaryText: "seul", SecondaryStyle: "Alt"},
	}
	got := MergedEntries(fields, false)
	want := []subtitle.Entry{
		{Start: 0, End: 1000, Text: "hello\\Nbonjour", Style: "Top"},
		{Start: 2000, End: 3000, Text: "alone", Style: "Top"},
		{Start: 4000, End: 5000, Text: "seul", Style: "Alt"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merged mismatch (-want +got):\n%s", diff)
	}

	flipped := MergedEntries(fields[:1], true)
	if flipped[0].Text != "bonjour\\Nhello" || flipped[0].Style != "Alt" {
		t.Fatalf("secondary-above cue wrong: %+v", flipped[0])
	}
}

func TestPrimarySecondaryEntries(t *testing.T) {
	fields := []subtitle.MergedField{
		{Start: 0, End: 1000, PrimaryText: "hello", SecondaryText: "bonjour"},
		{Start: 2000, End: 3000, PrimaryText: "alone"},
		{Start: 4000, End: 5000, SecondaryText: "seul"},
	}
	pri := PrimaryEntries(fields)
	if len(pri) != 2 || pri[0].Text != "hello" || pri[1].Text != "alone" {
		t.Fatalf("primary track wrong: %+v", pri)
	}
	sec := SecondaryEntries(fields)
	if len(sec) != 2 || sec[0].Text != "bonjour" || sec[1].Text != "seul" {
		t.Fatalf("secondary track wrong: %+v", sec)
	}
	if sec[1].Start != 4000 || sec[1].End != 5000 {
		t.Fatalf("secondary timing wrong: %+v", sec[1])
	}
}
