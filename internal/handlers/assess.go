package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cardiacai/riskengine/internal/assess"
	"github.com/cardiacai/riskengine/internal/features"
	"github.com/cardiacai/riskengine/internal/history"
	"github.com/cardiacai/riskengine/internal/pkg/logger"
)

type AssessHandler struct {
	assessor *assess.Assessor
	store    *history.Store
	log      *logger.Logger
}

func NewAssessHandler(assessor *assess.Assessor, store *history.Store, log *logger.Logger) *AssessHandler {
	return &AssessHandler{assessor: assessor, store: store, log: log}
}

// Predict runs a full assessment and records it in history. Validation
// failures echo the missing feature names so the client can highlight them.
func (h *AssessHandler) Predict(c *gin.Context) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	rec := recordFrom(raw)
	result, err := h.assessor.Submit(c.Request.Context(), rec)
	if err != nil {
		var verr *assess.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "missing_features": verr.MissingFields})
			return
		}
		RespondError(c, http.StatusBadGateway, "assessment_failed", err)
		return
	}

	entry, err := h.store.Append(rec, result)
	if err != nil {
		// The assessment itself succeeded; losing the history row is not a
		// reason to fail the request.
		h.log.Error("failed to record assessment", "error", err)
		c.JSON(http.StatusOK, gin.H{"result": result})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry_id": entry.ID, "result": result})
}

// Preview returns the local heuristic estimate without touching the network
// or history. Used for live while-you-type feedback.
func (h *AssessHandler) Preview(c *gin.Context) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	RespondOK(c, gin.H{"result": h.assessor.Preview(recordFrom(raw))})
}

// Features describes the input schema: required and optional field names,
// display labels, and the default form values.
func (h *AssessHandler) Features(c *gin.Context) {
	labels := make(map[string]string, len(features.Required)+len(features.Extended))
	for _, name := range features.Names() {
		labels[name] = features.Label(name)
	}
	RespondOK(c, gin.H{
		"required": features.Required,
		"extended": features.Extended,
		"labels":   labels,
		"defaults": features.Defaults(),
	})
}

// recordFrom flattens a decoded JSON object into the string-keyed form the
// feature layer works with. Numbers keep their shortest representation;
// null and nested values are dropped.
func recordFrom(raw map[string]any) features.Record {
	rec := make(features.Record, len(raw))
	for name, value := range raw {
		switch v := value.(type) {
		case string:
			rec[name] = v
		case float64:
			rec[name] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			if v {
				rec[name] = "1"
			} else {
				rec[name] = "0"
			}
		}
	}
	return rec
}
