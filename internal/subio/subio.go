// Package subio reads and writes subtitle files. SRT and WebVTT are
// supported; cue text is carried with explicit break markers so the
// alignment engine never sees raw newlines.
package subio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"subweave/internal/services"
	"subweave/internal/subtitle"
	"subweave/internal/tokenize"
)

// Format identifies a subtitle file format.
type Format string

const (
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
)

// DetectFormat maps a file extension to a Format.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".srt":
		return FormatSRT, nil
	case ".vtt":
		return FormatVTT, nil
	default:
		return "", services.Wrap(services.ErrInput, "subio", "detect",
			fmt.Sprintf("unsupported subtitle extension %q", filepath.Ext(path)), nil)
	}
}

// ReadFile parses a subtitle file, choosing the parser from the
// extension. Entries come back sorted by start time.
func ReadFile(path string) ([]subtitle.Entry, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrInput, "subio", "open", path, err)
	}
	defer file.Close()
	switch format {
	case FormatVTT:
		return ParseVTT(file)
	default:
		return ParseSRT(file)
	}
}

// ParseSRT parses SubRip content. Cue index lines are optional; cue text
// lines are joined with the break marker. Malformed timestamp lines are
// an error, stray blank lines are not.
func ParseSRT(r io.Reader) ([]subtitle.Entry, error) {
	return parseCues(r, false)
}

// ParseVTT parses WebVTT content. The WEBVTT header line, NOTE and STYLE
// blocks, and cue identifiers are tolerated and skipped; cue settings
// after the end timestamp are ignored.
func ParseVTT(r io.Reader) ([]subtitle.Entry, error) {
	return parseCues(r, true)
}

func parseCues(r io.Reader, vtt bool) ([]subtitle.Entry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var entries []subtitle.Entry
	var cur *subtitle.Entry
	var textLines []string
	lineNo := 0

	flush := func() {
		if cur == nil {
			return
		}
		cur.Text = strings.Join(textLines, tokenize.BreakMarker)
		entries = append(entries, *cur)
		cur = nil
		textLines = nil
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)

		if lineNo == 1 {
			trimmed = strings.TrimPrefix(trimmed, "\ufeff")
			if vtt {
				if !strings.HasPrefix(trimmed, "WEBVTT") {
					return nil, services.Wrap(services.ErrInput, "subio", "parse", "missing WEBVTT header", nil)
				}
				continue
			}
		}

		if trimmed == "" {
			flush()
			continue
		}
		if vtt && cur == nil && (strings.HasPrefix(trimmed, "NOTE") || trimmed == "STYLE" || trimmed == "REGION") {
			// Skip the whole block up to the next blank line.
			for scanner.Scan() {
				lineNo++
				if strings.TrimSpace(strings.TrimRight(scanner.Text(), "\r")) == "" {
					break
				}
			}
			continue
		}

		if strings.Contains(trimmed, "-->") {
			flush()
			start, end, err := parseCueTiming(trimmed)
			if err != nil {
				return nil, services.Wrap(services.ErrInput, "subio", "parse",
					fmt.Sprintf("line %d", lineNo), err)
			}
			cur = &subtitle.Entry{Start: start, End: end}
			continue
		}

		if cur == nil {
			// Cue index (SRT) or cue identifier (VTT); both precede the
			// timing line and carry no content.
			continue
		}
		textLines = append(textLines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, services.Wrap(services.ErrInput, "subio", "parse", "read", err)
	}
	flush()

	sort.SliceStable(entries, func(a, b int) bool {
		if entries[a].Start != entries[b].Start {
			return entries[a].Start < entries[b].Start
		}
		return entries[a].End < entries[b].End
	})
	return entries, nil
}

func parseCueTiming(line string) (int64, int64, error) {
	parts := strings.SplitN(line, "-->", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid timing line %q", line)
	}
	start, err := ParseTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	endField := strings.Fields(strings.TrimSpace(parts[1]))
	if len(endField) == 0 {
		return 0, 0, fmt.Errorf("invalid timing line %q", line)
	}
	end, err := ParseTimestamp(endField[0])
	if err != nil {
		return 0, 0, err
	}
	if end < start {
		return 0, 0, fmt.Errorf("cue ends before it starts: %q", line)
	}
	return start, end, nil
}

// ParseTimestamp converts "HH:MM:SS,mmm" or "MM:SS.mmm" (hours optional,
// comma or period before the milliseconds) to milliseconds.
func ParseTimestamp(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	normalized := strings.ReplaceAll(value, ",", ".")
	dot := strings.LastIndex(normalized, ".")
	if dot < 0 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	millisPart := normalized[dot+1:]
	if len(millisPart) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	millis, err := strconv.Atoi(millisPart)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(normalized[:dot], ":")
	var hours, minutes, seconds int
	switch len(hms) {
	case 3:
		if hours, err = strconv.Atoi(hms[0]); err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", value)
		}
		hms = hms[1:]
	case 2:
	default:
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	if minutes, err = strconv.Atoi(hms[0]); err != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	if seconds, err = strconv.Atoi(hms[1]); err != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	if hours < 0 || minutes < 0 || seconds < 0 || millis < 0 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return int64(hours)*3600000 + int64(minutes)*60000 + int64(seconds)*1000 + int64(millis), nil
}

// FormatTimestamp renders milliseconds in the requested format's
// timestamp notation.
func FormatTimestamp(ms int64, format Format) string {
	if ms < 0 {
		ms = 0
	}
	hours := ms / 3600000
	minutes := (ms % 3600000) / 60000
	seconds := (ms % 60000) / 1000
	millis := ms % 1000
	sep := ","
	if format == FormatVTT {
		sep = "."
	}
	return fmt.Sprintf("%02d:%02d:%02d%s%03d", hours, minutes, seconds, sep, millis)
}

// renderText converts engine break markers back to hard newlines for
// file output.
func renderText(text string) string {
	return strings.ReplaceAll(text, tokenize.BreakMarker, "\n")
}

// WriteSRT writes entries as SubRip cues, numbered from 1.
func WriteSRT(w io.Writer, entries []subtitle.Entry) error {
	for i, e := range entries {
		if _, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s\n\n",
			i+1,
			FormatTimestamp(e.Start, FormatSRT),
			FormatTimestamp(e.End, FormatSRT),
			renderText(e.Text)); err != nil {
			return fmt.Errorf("write srt: %w", err)
		}
	}
	return nil
}

// WriteVTT writes entries as WebVTT cues.
func WriteVTT(w io.Writer, entries []subtitle.Entry) error {
	if _, err := fmt.Fprint(w, "WEBVTT\n\n"); err != nil {
		return fmt.Errorf("write vtt: %w", err)
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%s --> %s\n%s\n\n",
			FormatTimestamp(e.Start, FormatVTT),
			FormatTimestamp(e.End, FormatVTT),
			renderText(e.Text)); err != nil {
			return fmt.Errorf("write vtt: %w", err)
		}
	}
	return nil
}
