package cue

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/CDrummond/bliss-analyser/internal/services"
)

// FramesPerSecond is the CUE time base.
const FramesPerSecond = 75

// Extension is the file extension of CUE sheets.
const Extension = ".cue"

// Sheet is a parsed CUE sheet.
type Sheet struct {
	Title     string
	Performer string
	Genre     string
	Files     []File
}

// File is one FILE block of a sheet.
type File struct {
	Name   string
	Tracks []Track
}

// Track is one TRACK entry.
type Track struct {
	Number    int
	Title     string
	Performer string
	Start     time.Duration
}

// ErrNoTracks reports a sheet without usable track entries.
var ErrNoTracks = errors.New("cue sheet has no tracks")

// ParseFile reads and parses the sheet at path.
func ParseFile(path string) (*Sheet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cue sheet: %w", err)
	}
	sheet, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sheet, nil
}

// Parse parses raw sheet bytes.
func Parse(data []byte) (*Sheet, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, services.Wrap(services.ErrDecode, "cue", "decode", "", err)
	}

	sheet := &Sheet{}
	var (
		file    *File
		current *Track
		indexed bool
	)
	flushTrack := func() {
		if file != nil && current != nil && indexed {
			file.Tracks = append(file.Tracks, *current)
		}
		current = nil
		indexed = false
	}

	scanner := bufio.NewScanner(strings.NewReader(text))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := splitFields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		command := strings.ToUpper(fields[0])
		args := fields[1:]

		switch command {
		case "FILE":
			if len(args) == 0 {
				return nil, lineError(lineNo, "FILE without name")
			}
			flushTrack()
			name := args[0]
			if len(args) > 2 {
				// Unquoted names with spaces: the last field is the type.
				name = strings.Join(args[:len(args)-1], " ")
			}
			sheet.Files = append(sheet.Files, File{Name: name})
			file = &sheet.Files[len(sheet.Files)-1]
		case "TRACK":
			if file == nil {
				return nil, lineError(lineNo, "TRACK before FILE")
			}
			if len(args) == 0 {
				return nil, lineError(lineNo, "TRACK without number")
			}
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return nil, lineError(lineNo, "invalid track number %q", args[0])
			}
			flushTrack()
			current = &Track{Number: n}
		case "INDEX":
			if current == nil {
				continue
			}
			if len(args) < 2 {
				return nil, lineError(lineNo, "INDEX needs number and time")
			}
			num, err := strconv.Atoi(args[0])
			if err != nil {
				return nil, lineError(lineNo, "invalid index number %q", args[0])
			}
			start, err := ParseTime(args[1])
			if err != nil {
				return nil, lineError(lineNo, "%v", err)
			}
			// INDEX 01 marks the audible start; fall back to the first index seen.
			if num == 1 || !indexed {
				current.Start = start
				indexed = true
			}
		case "TITLE":
			value := strings.Join(args, " ")
			if current != nil {
				current.Title = value
			} else {
				sheet.Title = value
			}
		case "PERFORMER":
			value := strings.Join(args, " ")
			if current != nil {
				current.Performer = value
			} else {
				sheet.Performer = value
			}
		case "REM":
			if current == nil && len(args) > 1 && strings.EqualFold(args[0], "GENRE") {
				sheet.Genre = strings.Join(args[1:], " ")
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan cue sheet: %w", err)
	}
	flushTrack()

	for _, f := range sheet.Files {
		if len(f.Tracks) > 0 {
			return sheet, nil
		}
	}
	return nil, ErrNoTracks
}

// ParseTime converts "mm:ss:ff" into a duration.
func ParseTime(value string) (time.Duration, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid cue time %q", value)
	}
	var nums [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid cue time %q", value)
		}
		nums[i] = n
	}
	if nums[1] >= 60 || nums[2] >= FramesPerSecond {
		return 0, fmt.Errorf("invalid cue time %q", value)
	}
	frames := int64((nums[0]*60+nums[1])*FramesPerSecond + nums[2])
	// Millisecond precision matches what the catalogue stores.
	return time.Duration(frames*1000/FramesPerSecond) * time.Millisecond, nil
}

func lineError(line int, format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", services.ErrDecode, line, fmt.Sprintf(format, args...))
}

// splitFields splits a sheet line on whitespace, keeping double-quoted values
// together.
func splitFields(line string) []string {
	var (
		fields  []string
		b       strings.Builder
		quoted  bool
		started bool
	)
	for _, r := range strings.TrimSpace(line) {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case !quoted && (r == ' ' || r == '\t'):
			if started {
				fields = append(fields, b.String())
				b.Reset()
				started = false
			}
		default:
			b.WriteRune(r)
			started = true
		}
	}
	if started {
		fields = append(fields, b.String())
	}
	return fields
}
