package importers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Hevy CSV columns.
const (
	hevyColStartTime       = "start_time"
	hevyColEndTime         = "end_time"
	hevyColExerciseTitle   = "exercise_title"
	hevyColSetIndex        = "set_index"
	hevyColSetType         = "set_type"
	hevyColWeightKg        = "weight_kg"
	hevyColWeightLbs       = "weight_lbs"
	hevyColReps            = "reps"
	hevyColDurationSeconds = "duration_seconds"
)

// ParseHevyCSV parses workout data from a Hevy app CSV export.
func ParseHevyCSV(r io.Reader) (*ParsedFile, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("importers: read hevy csv: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("importers: hevy csv has no data rows")
	}

	idx, err := headerIndex(records[0], "hevy", hevyColStartTime, hevyColExerciseTitle)
	if err != nil {
		return nil, err
	}

	workouts := newWorkoutSet()
	for line, row := range records[1:] {
		startTime := colVal(row, idx, hevyColStartTime)
		exerciseName := colVal(row, idx, hevyColExerciseTitle)
		if startTime == "" || exerciseName == "" {
			continue
		}

		start, ok := parseTimestamp(startTime)
		if !ok {
			return nil, fmt.Errorf("importers: hevy csv row %d: unrecognized date %q", line+2, startTime)
		}

		pw := workouts.get(start.Format("2006-01-02"))
		if pw.Duration == 0 {
			if end, ok := parseTimestamp(colVal(row, idx, hevyColEndTime)); ok && end.After(start) {
				pw.Duration = int(end.Sub(start).Minutes())
			}
		}

		set := ParsedSet{
			Exercise: exerciseName,
			Warmup:   colVal(row, idx, hevyColSetType) == "warmup",
		}

		// Hevy uses 0-indexed set_index.
		if v := colVal(row, idx, hevyColSetIndex); v != "" {
			si, _ := strconv.Atoi(v)
			set.SetNumber = si + 1
		} else {
			set.SetNumber = len(pw.Sets) + 1
		}

		weight := colVal(row, idx, hevyColWeightKg)
		if weight == "" {
			weight = colVal(row, idx, hevyColWeightLbs)
		}
		if weight != "" {
			if w, err := strconv.ParseFloat(weight, 64); err == nil && w > 0 {
				set.Weight = &w
			}
		}
		if v := colVal(row, idx, hevyColReps); v != "" {
			set.Reps, _ = strconv.Atoi(v)
		}
		if v := colVal(row, idx, hevyColDurationSeconds); v != "" {
			secs, _ := strconv.ParseFloat(v, 64)
			set.Seconds = int(secs)
		}

		pw.Sets = append(pw.Sets, set)
	}

	return &ParsedFile{Format: FormatHevyCSV, Workouts: workouts.list()}, nil
}
