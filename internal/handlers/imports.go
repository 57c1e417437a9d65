package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/carpenike/fitrecs/internal/importers"
	"github.com/carpenike/fitrecs/internal/middleware"
	"github.com/carpenike/fitrecs/internal/models"
)

const maxUploadSize = 10 << 20 // 10 MB

// Imports loads workout history exported from other tracking apps.
type Imports struct {
	DB  *sqlx.DB
	Log logrus.FieldLogger
}

// Upload accepts a multipart "file" holding a Strong or Hevy CSV export. The
// format is detected from the header row, or taken from the "format" field
// when detection fails.
func (h *Imports) Upload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	log := logger(h.Log).WithField("user_id", userID)

	if _, err := models.GetProfile(h.DB, userID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		serverError(w, log, "get profile for import", err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1024)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "File too large. Maximum size is 10 MB.")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Please select a file to upload")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		serverError(w, log, "read upload", err)
		return
	}
	if int64(len(data)) > maxUploadSize {
		writeError(w, http.StatusRequestEntityTooLarge, "File too large. Maximum size is 10 MB.")
		return
	}

	parsed, err := parseUpload(data, r.FormValue("format"))
	if errors.Is(err, importers.ErrUnknownFormat) {
		writeError(w, http.StatusBadRequest, "Could not detect file format. Please select the format manually.")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := models.ImportWorkouts(h.DB, userID, parsed)
	if err != nil {
		serverError(w, log, "import workouts", err)
		return
	}

	log.WithFields(logrus.Fields{
		"format":   result.Format,
		"created":  result.WorkoutsCreated,
		"skipped":  result.WorkoutsSkipped,
		"exercise": result.ExercisesCreated,
	}).Info("workout history imported")
	writeJSON(w, http.StatusCreated, result)
}

func parseUpload(data []byte, format string) (*importers.ParsedFile, error) {
	if importers.DetectFormat(data) != "" {
		return importers.Parse(data)
	}
	switch importers.Format(format) {
	case importers.FormatStrongCSV:
		return importers.ParseStrongCSV(bytes.NewReader(data))
	case importers.FormatHevyCSV:
		return importers.ParseHevyCSV(bytes.NewReader(data))
	default:
		return nil, importers.ErrUnknownFormat
	}
}
