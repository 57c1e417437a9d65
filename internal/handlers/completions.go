package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/carpenike/fitrecs/internal/middleware"
	"github.com/carpenike/fitrecs/internal/models"
)

// Completions serves the caller's feedback history.
type Completions struct {
	DB  *sqlx.DB
	Log logrus.FieldLogger
}

type completionResponse struct {
	ID               string                    `json:"id"`
	RecommendationID *string                   `json:"recommendation_id"`
	Title            string                    `json:"title"`
	Rating           int                       `json:"rating"`
	Notes            string                    `json:"notes"`
	Exercises        models.CompletedExercises `json:"completed_exercises"`
	CompletedAt      time.Time                 `json:"completed_at"`
}

func newCompletionResponse(c *models.Completion) completionResponse {
	resp := completionResponse{
		ID:          c.ID,
		Title:       c.Title(),
		Rating:      c.Rating,
		Notes:       c.Notes.String,
		Exercises:   c.Exercises,
		CompletedAt: c.CompletedAt,
	}
	if resp.Exercises == nil {
		resp.Exercises = models.CompletedExercises{}
	}
	if c.RecommendationID.Valid {
		id := c.RecommendationID.String
		resp.RecommendationID = &id
	}
	return resp
}

// List returns every completion, newest first.
func (h *Completions) List(w http.ResponseWriter, r *http.Request) {
	cs, err := models.ListCompletions(h.DB, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		serverError(w, logger(h.Log), "list completions", err)
		return
	}
	out := make([]completionResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, newCompletionResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"completions": out})
}

// feedbackSheet is the worksheet name of the export.
const feedbackSheet = "Feedback"

// Export returns the feedback history as an Excel workbook.
func (h *Completions) Export(w http.ResponseWriter, r *http.Request) {
	cs, err := models.ListCompletions(h.DB, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		serverError(w, logger(h.Log), "export completions", err)
		return
	}

	f, err := feedbackWorkbook(cs)
	if err != nil {
		serverError(w, logger(h.Log), "build feedback workbook", err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="fitrecs-feedback.xlsx"`)
	if _, err := f.WriteTo(w); err != nil {
		logger(h.Log).WithError(err).Warn("write feedback workbook")
	}
}

// feedbackWorkbook lays completions out one per row under a bold header.
func feedbackWorkbook(cs []*models.Completion) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", feedbackSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("handlers: rename sheet: %w", err)
	}

	header := []any{"Completed At", "Workout", "Rating", "Notes", "Exercises Completed"}
	if err := f.SetSheetRow(feedbackSheet, "A1", &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("handlers: write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("handlers: header style: %w", err)
	}
	if err := f.SetCellStyle(feedbackSheet, "A1", "E1", bold); err != nil {
		f.Close()
		return nil, fmt.Errorf("handlers: apply header style: %w", err)
	}

	for i, c := range cs {
		names := make([]string, 0, len(c.Exercises))
		for _, ex := range c.Exercises {
			names = append(names, ex.Name)
		}
		row := []any{
			c.CompletedAt.UTC().Format("2006-01-02 15:04"),
			c.Title(),
			c.Rating,
			c.Notes.String,
			strings.Join(names, ", "),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("handlers: cell name: %w", err)
		}
		if err := f.SetSheetRow(feedbackSheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("handlers: write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(feedbackSheet, "A", "A", 18); err != nil {
		f.Close()
		return nil, fmt.Errorf("handlers: column width: %w", err)
	}
	if err := f.SetColWidth(feedbackSheet, "B", "E", 32); err != nil {
		f.Close()
		return nil, fmt.Errorf("handlers: column width: %w", err)
	}
	return f, nil
}
