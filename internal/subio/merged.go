package subio

import (
	"fmt"
	"os"

	"subweave/internal/subtitle"
	"subweave/internal/tokenize"
)

// MergedEntries flattens merged fields into writable cues with the
// primary text above the secondary. Fields that carry only one side
// become single-language cues. secondaryAbove flips the stacking order.
func MergedEntries(fields []subtitle.MergedField, secondaryAbove bool) []subtitle.Entry {
	entries := make([]subtitle.Entry, 0, len(fields))
	for _, f := range fields {
		top, bottom := f.PrimaryText, f.SecondaryText
		style := f.PrimaryStyle
		if secondaryAbove {
			top, bottom = bottom, top
			style = f.SecondaryStyle
		}
		text := top
		switch {
		case top == "":
			text = bottom
			if secondaryAbove {
				style = f.PrimaryStyle
			} else {
				style = f.SecondaryStyle
			}
		case bottom != "":
			text = top + tokenize.BreakMarker + bottom
		}
		entries = append(entries, subtitle.Entry{
			Start: f.Start,
			End:   f.End,
			Text:  text,
			Style: style,
		})
	}
	return entries
}

// PrimaryEntries extracts a primary-only track from merged fields,
// skipping fields with no primary text.
func PrimaryEntries(fields []subtitle.MergedField) []subtitle.Entry {
	var entries []subtitle.Entry
	for _, f := range fields {
		if f.PrimaryText == "" {
			continue
		}
		entries = append(entries, subtitle.Entry{
			Start: f.Start,
			End:   f.End,
			Text:  f.PrimaryText,
			Style: f.PrimaryStyle,
		})
	}
	return entries
}

// SecondaryEntries extracts a secondary-only track from merged fields.
// Entry timing is the merged field timing, so the secondary track comes
// out retimed onto the primary timeline.
func SecondaryEntries(fields []subtitle.MergedField) []subtitle.Entry {
	var entries []subtitle.Entry
	for _, f := range fields {
		if !f.HasSecondary() {
			continue
		}
		entries = append(entries, subtitle.Entry{
			Start: f.Start,
			End:   f.End,
			Text:  f.SecondaryText,
			Style: f.SecondaryStyle,
		})
	}
	return entries
}

// WriteFile writes cues to a file, choosing the writer from the
// extension.
func WriteFile(path string, entries []subtitle.Entry) error {
	format, err := DetectFormat(path)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if format == FormatVTT {
		err = WriteVTT(file, entries)
	} else {
		err = WriteSRT(file, entries)
	}
	if err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
