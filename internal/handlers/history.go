package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cardiacai/riskengine/internal/history"
	"github.com/cardiacai/riskengine/internal/pkg/logger"
)

type HistoryHandler struct {
	store *history.Store
	log   *logger.Logger
}

func NewHistoryHandler(store *history.Store, log *logger.Logger) *HistoryHandler {
	return &HistoryHandler{store: store, log: log}
}

// List returns stored assessments newest first, plus the retention cap so the
// client can render "n of cap".
func (h *HistoryHandler) List(c *gin.Context) {
	entries, err := h.store.List()
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "history_unavailable", err)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	RespondOK(c, gin.H{"entries": entries, "cap": h.store.Cap()})
}

func (h *HistoryHandler) Remove(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry id"})
		return
	}
	if err := h.store.Remove(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
			return
		}
		RespondError(c, http.StatusInternalServerError, "history_delete_failed", err)
		return
	}
	RespondOK(c, gin.H{"deleted": id})
}

func (h *HistoryHandler) Clear(c *gin.Context) {
	if err := h.store.Clear(); err != nil {
		RespondError(c, http.StatusInternalServerError, "history_clear_failed", err)
		return
	}
	RespondOK(c, gin.H{"cleared": true})
}

// Export streams the selected entries (or all of them) as a JSON or CSV
// download. ?format=csv&ids=3,5 narrows the selection.
func (h *HistoryHandler) Export(c *gin.Context) {
	ids, err := parseIDs(c.Query("ids"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ids parameter"})
		return
	}

	var body []byte
	var contentType, filename string
	switch strings.ToLower(c.DefaultQuery("format", "json")) {
	case "json":
		body, err = h.store.ExportJSON(ids...)
		contentType, filename = "application/json", "assessment-history.json"
	case "csv":
		body, err = h.store.ExportCSV(ids...)
		contentType, filename = "text/csv", "assessment-history.csv"
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be json or csv"})
		return
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
			return
		}
		RespondError(c, http.StatusInternalServerError, "export_failed", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, body)
}

func parseIDs(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
