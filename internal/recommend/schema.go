package recommend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/carpenike/fitrecs/internal/llm"
	"github.com/carpenike/fitrecs/internal/models"
)

// ToolName is the function the model is forced to call.
const ToolName = "generate_workout_recommendations"

// Bounds on how many plans one generation may return.
const (
	MinRecommendations = 3
	MaxRecommendations = 5
)

// ErrMalformedResponse is returned when the model does not call the tool or
// its arguments do not match the schema. No partial result is returned.
var ErrMalformedResponse = errors.New("recommend: invalid AI response format")

// parametersSchema is the JSON schema for the tool arguments. It doubles as
// the validator for what the model sends back.
func parametersSchema() map[string]any {
	exercise := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":  map[string]any{"type": "string"},
			"sets":  map[string]any{"type": "string", "description": "Number of sets (e.g., '3' or '3-4')"},
			"reps":  map[string]any{"type": "string", "description": "Number of reps or duration (e.g., '12-15' or '30 seconds')"},
			"notes": map[string]any{"type": "string", "description": "Additional tips or form cues"},
		},
		"required": []any{"name", "sets", "reps"},
	}

	recommendation := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":       map[string]any{"type": "string", "description": "Catchy workout plan title"},
			"description": map[string]any{"type": "string", "description": "Brief description of the workout focus"},
			"duration":    map[string]any{"type": "string", "description": "Estimated duration (e.g., '45 minutes')"},
			"difficulty": map[string]any{
				"type": "string",
				"enum": []any{models.LevelBeginner, models.LevelIntermediate, models.LevelAdvanced},
			},
			"exercises": map[string]any{"type": "array", "items": exercise},
			"benefits": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Key benefits of this workout",
			},
		},
		"required": []any{"title", "description", "duration", "difficulty", "exercises", "benefits"},
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"recommendations": map[string]any{
				"type":     "array",
				"items":    recommendation,
				"minItems": MinRecommendations,
				"maxItems": MaxRecommendations,
			},
		},
		"required": []any{"recommendations"},
	}
}

// Tool returns the forced tool definition sent with every request.
func Tool() *llm.Tool {
	return &llm.Tool{
		Name:        ToolName,
		Description: "Generate personalized workout recommendations",
		Parameters:  parametersSchema(),
	}
}

var (
	compiledOnce   sync.Once
	compiledSchema *gojsonschema.Schema
	compileErr     error
)

func schema() (*gojsonschema.Schema, error) {
	compiledOnce.Do(func() {
		compiledSchema, compileErr = gojsonschema.NewSchema(gojsonschema.NewGoLoader(parametersSchema()))
	})
	return compiledSchema, compileErr
}

// ParseArguments validates raw tool arguments against the schema and
// decodes them.
func ParseArguments(raw []byte) ([]models.Recommendation, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty tool arguments", ErrMalformedResponse)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: tool arguments are not valid JSON", ErrMalformedResponse)
	}

	s, err := schema()
	if err != nil {
		return nil, fmt.Errorf("recommend: compile schema: %w", err)
	}

	result, err := s.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, strings.Join(msgs, "; "))
	}

	var args struct {
		Recommendations []models.Recommendation `json:"recommendations"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return args.Recommendations, nil
}

// ParseResponse extracts and validates the forced tool call.
func ParseResponse(resp *llm.Response) ([]models.Recommendation, error) {
	call := resp.FirstToolCall(ToolName)
	if call == nil {
		return nil, fmt.Errorf("%w: no tool call in response", ErrMalformedResponse)
	}
	return ParseArguments(call.Arguments)
}
