package importers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Strong CSV columns (as exported by the Strong app).
// Date,Workout Name,Duration,Exercise Name,Set Order,Weight,Reps,Distance,Seconds,Notes,Workout Notes,RPE
const (
	strongColDate         = "Date"
	strongColDuration     = "Duration"
	strongColExerciseName = "Exercise Name"
	strongColSetOrder     = "Set Order"
	strongColWeight       = "Weight"
	strongColReps         = "Reps"
	strongColSeconds      = "Seconds"
)

// ParseStrongCSV parses workout data from a Strong app CSV export.
func ParseStrongCSV(r io.Reader) (*ParsedFile, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("importers: read strong csv: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("importers: strong csv has no data rows")
	}

	idx, err := headerIndex(records[0], "strong", strongColDate, strongColExerciseName)
	if err != nil {
		return nil, err
	}

	workouts := newWorkoutSet()
	for line, row := range records[1:] {
		dateStr := colVal(row, idx, strongColDate)
		exerciseName := colVal(row, idx, strongColExerciseName)
		if dateStr == "" || exerciseName == "" {
			continue
		}

		date, err := parseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("importers: strong csv row %d: %w", line+2, err)
		}

		pw := workouts.get(date)
		if pw.Duration == 0 {
			pw.Duration = parseStrongDuration(colVal(row, idx, strongColDuration))
		}

		set := ParsedSet{Exercise: exerciseName}
		if v := colVal(row, idx, strongColSetOrder); v != "" {
			set.SetNumber, _ = strconv.Atoi(v)
			// Strong marks warmups with "W" in the set order column.
			set.Warmup = strings.EqualFold(v, "W")
		}
		if set.SetNumber == 0 {
			set.SetNumber = len(pw.Sets) + 1
		}
		if v := colVal(row, idx, strongColWeight); v != "" {
			if w, err := strconv.ParseFloat(v, 64); err == nil && w > 0 {
				set.Weight = &w
			}
		}
		if v := colVal(row, idx, strongColReps); v != "" {
			reps, _ := strconv.ParseFloat(v, 64)
			set.Reps = int(reps)
		}
		if v := colVal(row, idx, strongColSeconds); v != "" {
			secs, _ := strconv.ParseFloat(v, 64)
			set.Seconds = int(secs)
		}

		pw.Sets = append(pw.Sets, set)
	}

	return &ParsedFile{Format: FormatStrongCSV, Workouts: workouts.list()}, nil
}

// parseStrongDuration reads the workout duration column, which older
// exports write as "1h 5m" and newer ones as a number of seconds.
func parseStrongDuration(s string) int {
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return secs / 60
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return int(d.Minutes())
}
