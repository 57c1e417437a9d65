package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/carpenike/fitrecs/internal/lifecycle"
	"github.com/carpenike/fitrecs/internal/middleware"
	"github.com/carpenike/fitrecs/internal/models"
	"github.com/carpenike/fitrecs/internal/recommend"
)

// Functions serves the endpoint hosted-backend clients call directly.
type Functions struct {
	Generator lifecycle.Generator
	Log       logrus.FieldLogger
}

type generateRequest struct {
	UserID string `json:"userId"`
}

type generateResponse struct {
	Recommendations []models.Recommendation `json:"recommendations"`
}

// GenerateRecommendations runs one generation for the userId in the body.
// When the caller is authenticated the body must name the caller.
func (h *Functions) GenerateRecommendations(w http.ResponseWriter, r *http.Request) {
	log := logger(h.Log)

	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if caller := middleware.UserIDFromContext(r.Context()); caller != "" && req.UserID != "" && caller != req.UserID {
		writeError(w, http.StatusForbidden, "Cannot generate recommendations for another user")
		return
	}

	res, err := h.Generator.Generate(r.Context(), req.UserID)
	if err != nil {
		status, msg := recommend.Classify(err)
		log.WithError(err).WithFields(logrus.Fields{
			"user_id": req.UserID,
			"status":  status,
		}).Warn("generate recommendations failed")
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{Recommendations: res.Recommendations})
}

func logger(l logrus.FieldLogger) logrus.FieldLogger {
	if l == nil {
		return logrus.StandardLogger()
	}
	return l
}
