package recommend

import (
	"fmt"
	"strings"
)

// SystemPrompt is the fixed coaching instruction sent with every request.
const SystemPrompt = `You are an expert fitness coach. Generate 3-5 personalized workout recommendations based on the user's fitness level, goals, and workout history. Each recommendation should be specific, actionable, and progressive.

Consider:
- User's current fitness level
- Their stated goals
- Recent workout patterns and exercise types
- Progressive overload principles
- Variety to prevent plateaus
- Recovery and balance

Provide detailed workout plans that are achievable and motivating.`

// UserContext renders the profile and history block.
func UserContext(h *History) string {
	level := ""
	if h.Profile != nil {
		level = h.Profile.FitnessLevel
	}

	var b strings.Builder
	b.WriteString("\nUser Profile:\n")
	fmt.Fprintf(&b, "- Fitness Level: %s\n", level)
	fmt.Fprintf(&b, "- Goals: %s\n", h.Goals())
	b.WriteString("\nRecent Workout History (last 10 workouts):\n")
	b.WriteString(h.WorkoutBlock())
	b.WriteString("\n\nRecent Exercises:\n")
	b.WriteString(h.ExerciseBlock())
	b.WriteString("\n")
	return b.String()
}

// BuildUserPrompt combines history and feedback into the user message.
func BuildUserPrompt(h *History, feedback FeedbackSummary) string {
	return "Generate workout recommendations for this user:\n\n" + UserContext(h) + feedback.Text()
}
