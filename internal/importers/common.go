// Package importers parses workout history exported by other fitness
// tracking apps (Strong, Hevy) so it can seed the history used for
// recommendations.
package importers

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Format identifies the source format of an import file.
type Format string

const (
	FormatStrongCSV Format = "strong_csv"
	FormatHevyCSV   Format = "hevy_csv"
)

// ErrUnknownFormat is returned when the file matches no supported export.
var ErrUnknownFormat = errors.New("importers: unrecognized file format")

// ParsedFile is the unified output from any parser.
type ParsedFile struct {
	Format   Format
	Workouts []ParsedWorkout
}

// ParsedWorkout is one training session with its sets in file order.
type ParsedWorkout struct {
	Date     string // YYYY-MM-DD
	Duration int    // minutes, 0 when unknown
	Sets     []ParsedSet
}

// ParsedSet is a single set within a workout.
type ParsedSet struct {
	Exercise  string
	SetNumber int
	Reps      int
	Seconds   int
	Weight    *float64
	Warmup    bool
}

// ExerciseSummary collapses the sets of one exercise within a workout into
// the shape stored in workout history.
type ExerciseSummary struct {
	Type     string
	Name     string
	Sets     *int
	Reps     *int
	Duration *int // minutes
	Weight   *float64
}

// Exercises summarizes a workout's working sets per exercise, in order of
// first appearance. Warmup sets are ignored. An exercise whose sets carry
// no reps is recorded as timed work.
func (w ParsedWorkout) Exercises() []ExerciseSummary {
	type agg struct {
		sets, reps, seconds int
		weight              float64
	}
	var order []string
	byName := make(map[string]*agg)

	for _, s := range w.Sets {
		if s.Warmup {
			continue
		}
		a, ok := byName[s.Exercise]
		if !ok {
			a = &agg{}
			byName[s.Exercise] = a
			order = append(order, s.Exercise)
		}
		a.sets++
		a.reps = max(a.reps, s.Reps)
		a.seconds += s.Seconds
		if s.Weight != nil {
			a.weight = max(a.weight, *s.Weight)
		}
	}

	out := make([]ExerciseSummary, 0, len(order))
	for _, name := range order {
		a := byName[name]
		if a.reps == 0 && a.seconds > 0 {
			mins := int(math.Ceil(float64(a.seconds) / 60))
			out = append(out, ExerciseSummary{Type: "timed", Name: name, Duration: &mins})
			continue
		}
		sets, reps := a.sets, a.reps
		es := ExerciseSummary{Type: "strength", Name: name, Sets: &sets, Reps: &reps}
		if a.weight > 0 {
			w := a.weight
			es.Weight = &w
		}
		out = append(out, es)
	}
	return out
}

// Parse detects the format of data and runs the matching parser.
func Parse(data []byte) (*ParsedFile, error) {
	switch DetectFormat(data) {
	case FormatStrongCSV:
		return ParseStrongCSV(bytes.NewReader(stripBOM(data)))
	case FormatHevyCSV:
		return ParseHevyCSV(bytes.NewReader(stripBOM(data)))
	default:
		return nil, ErrUnknownFormat
	}
}

// DetectFormat identifies Strong vs Hevy CSV from the header row. Returns
// empty string if unknown.
func DetectFormat(data []byte) Format {
	firstLine := firstLineOf(bytes.TrimLeft(stripBOM(data), " \t\r\n"))
	if containsAll(firstLine, "Exercise Name", "Set Order", "Weight", "Reps") {
		return FormatStrongCSV
	}
	if containsAll(firstLine, "exercise_title", "set_index", "reps") {
		return FormatHevyCSV
	}
	return ""
}

func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
}

func firstLineOf(data []byte) string {
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return string(data[:i])
	}
	return string(data)
}

func containsAll(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}

// timestampFormats covers the date layouts seen in Strong and Hevy exports.
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2 Jan 2006, 15:04",
	"2006-01-02",
	"2006 Jan 02",
	"2006 Jan 2",
	"Jan 2, 2006",
	"01/02/2006",
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, f := range timestampFormats {
		if t, err := time.Parse(f, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseDate normalizes an export timestamp to YYYY-MM-DD.
func parseDate(s string) (string, error) {
	t, ok := parseTimestamp(s)
	if !ok {
		return "", fmt.Errorf("importers: unrecognized date %q", s)
	}
	return t.Format("2006-01-02"), nil
}

// colVal safely gets a column value from a CSV row.
func colVal(row []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// headerIndex maps column names to positions and checks required columns.
func headerIndex(header []string, source string, required ...string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.TrimSpace(col)] = i
	}
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("importers: %s csv missing required column %q", source, col)
		}
	}
	return idx, nil
}

// workoutSet groups rows into workouts keyed by date, keeping file order.
type workoutSet struct {
	byDate map[string]*ParsedWorkout
	order  []string
}

func newWorkoutSet() *workoutSet {
	return &workoutSet{byDate: make(map[string]*ParsedWorkout)}
}

func (ws *workoutSet) get(date string) *ParsedWorkout {
	pw, ok := ws.byDate[date]
	if !ok {
		pw = &ParsedWorkout{Date: date}
		ws.byDate[date] = pw
		ws.order = append(ws.order, date)
	}
	return pw
}

func (ws *workoutSet) list() []ParsedWorkout {
	out := make([]ParsedWorkout, 0, len(ws.order))
	for _, d := range ws.order {
		out = append(out, *ws.byDate[d])
	}
	return out
}
