package database

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed demo-history.json
var demoHistory []byte

// DemoExercise is one exercise template in the demo history.
type DemoExercise struct {
	Type     string   `json:"type"`
	Name     string   `json:"name"`
	Sets     *int     `json:"sets,omitempty"`
	Reps     *int     `json:"reps,omitempty"`
	Duration *int     `json:"duration,omitempty"`
	Weight   *float64 `json:"weight,omitempty"`
}

// DemoSession is one workout template in the demo history. Templates are
// cycled when seeding so the generated history looks like a training block.
type DemoSession struct {
	Name      string         `json:"name"`
	Duration  int            `json:"duration"`
	Calories  int            `json:"calories"`
	Exercises []DemoExercise `json:"exercises"`
}

// DemoCatalog is the parsed demo-history.json document.
type DemoCatalog struct {
	FitnessLevel string        `json:"fitness_level"`
	FitnessGoals string        `json:"fitness_goals"`
	Sessions     []DemoSession `json:"sessions"`
}

// DemoHistory returns the embedded demo history JSON bytes used by the
// -seed-demo flag to populate a profile with realistic workouts.
func DemoHistory() []byte {
	return demoHistory
}

// ParseDemoHistory decodes the embedded demo history.
func ParseDemoHistory() (*DemoCatalog, error) {
	var c DemoCatalog
	if err := json.Unmarshal(demoHistory, &c); err != nil {
		return nil, fmt.Errorf("database: parse demo history: %w", err)
	}
	return &c, nil
}
