package recommend

import (
	"fmt"
	"strings"

	"github.com/carpenike/fitrecs/internal/models"
)

// Rating thresholds and how many titles of each kind reach the prompt.
const (
	HighRating   = 4
	LowRating    = 2
	maxHighShown = 3
	maxLowShown  = 2
)

// FeedbackSummary aggregates a user's recent completion feedback.
type FeedbackSummary struct {
	Count   int
	Average float64
	High    []*models.Completion // rating >= 4
	Low     []*models.Completion // rating <= 2
}

// Summarize computes the average rating and partitions completions into
// high- and low-rated subsets. Rating 3 lands in neither.
func Summarize(completions []*models.Completion) FeedbackSummary {
	s := FeedbackSummary{Count: len(completions)}
	if s.Count == 0 {
		return s
	}

	sum := 0
	for _, c := range completions {
		sum += c.Rating
		switch {
		case c.Rating >= HighRating:
			s.High = append(s.High, c)
		case c.Rating <= LowRating:
			s.Low = append(s.Low, c)
		}
	}
	s.Average = float64(sum) / float64(s.Count)
	return s
}

// Text renders the directive block appended to the prompt. It is empty when
// there is no feedback.
func (s FeedbackSummary) Text() string {
	if s.Count == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\nUser Feedback on Previous Recommendations:\n")
	fmt.Fprintf(&b, "- Average rating: %.1f/5 across %d completed workouts\n", s.Average, s.Count)
	fmt.Fprintf(&b, "- Highly rated (4-5 stars): %d, poorly rated (1-2 stars): %d\n", len(s.High), len(s.Low))

	if len(s.High) > 0 {
		b.WriteString("\nWorkouts the user enjoyed (reuse these patterns):\n")
		for _, c := range first(s.High, maxHighShown) {
			difficulty := "unknown difficulty"
			if c.Recommendation != nil && c.Recommendation.Difficulty != "" {
				difficulty = c.Recommendation.Difficulty
			}
			fmt.Fprintf(&b, "- %q (%s) rated %d/5\n", c.Title(), difficulty, c.Rating)
		}
	}

	if len(s.Low) > 0 {
		b.WriteString("\nWorkouts the user disliked (avoid these patterns):\n")
		for _, c := range first(s.Low, maxLowShown) {
			notes := "no notes"
			if c.Notes.Valid && strings.TrimSpace(c.Notes.String) != "" {
				notes = c.Notes.String
			}
			fmt.Fprintf(&b, "- %q rated %d/5: %s\n", c.Title(), c.Rating, notes)
		}
	}

	b.WriteString("\nRecommend more workouts like the highly rated ones and avoid what made the poorly rated ones unpopular.\n")
	return b.String()
}

func first(cs []*models.Completion, n int) []*models.Completion {
	if len(cs) > n {
		return cs[:n]
	}
	return cs
}
