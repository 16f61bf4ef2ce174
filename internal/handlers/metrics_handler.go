package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/brigada-mx/backend-sub000/internal/models"
	"github.com/brigada-mx/backend-sub000/internal/services"
)

// careLogMetrics measures care log completion: the base set is every entry
// matching the base filters, the filtered set adds the status filter, and
// the rate is completion per group.
var careLogMetrics = services.Definition{
	From: "care_log_entries e JOIN shifts s ON s.id = e.shift_id",
	Filters: map[string]services.Filter{
		"month":    services.EqualsFilter("s.month", true),
		"nurse_id": services.EqualsFilter("s.nurse_id", true),
		"status":   services.EqualsFilter("e.status", false),
	},
	GroupBy: map[string]string{
		"nurse": "s.nurse_id",
		"month": "s.month",
	},
}

// shiftMetrics measures shift outcomes, completion or cancellation rates per
// nurse or month.
var shiftMetrics = services.Definition{
	From: "shifts",
	Filters: map[string]services.Filter{
		"month":    services.EqualsFilter("month", true),
		"nurse_id": services.EqualsFilter("nurse_id", true),
		"status":   services.EqualsFilter("status", false),
	},
	GroupBy: map[string]string{
		"nurse": "nurse_id",
		"month": "month",
	},
}

type MetricsHandler struct {
	metrics *services.MetricsService
}

func NewMetricsHandler(metrics *services.MetricsService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

func (h *MetricsHandler) CareLog(c *gin.Context) {
	h.serve(c, careLogMetrics)
}

func (h *MetricsHandler) Shifts(c *gin.Context) {
	h.serve(c, shiftMetrics)
}

func (h *MetricsHandler) serve(c *gin.Context, def services.Definition) {
	query, ok := parseMetricsQuery(c, def)
	if !ok {
		return
	}

	response, err := h.metrics.Compute(c.Request.Context(), def, query)
	if errors.Is(err, services.ErrGroupMismatch) {
		fail(c, models.NewValidationError(err.Error(), "Revisa los datos enviados.", "metrics_error"))
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// parseMetricsQuery keeps only the query parameters the definition declares.
// Unknown parameters are rejected so a typo never silently widens a count.
func parseMetricsQuery(c *gin.Context, def services.Definition) (services.Query, bool) {
	query := services.Query{Params: map[string]string{}}

	for name, values := range c.Request.URL.Query() {
		if len(values) == 0 || values[0] == "" {
			continue
		}
		value := values[0]

		switch name {
		case "group_by":
			for _, dim := range strings.Split(value, ",") {
				if _, ok := def.GroupBy[dim]; !ok {
					fail(c, models.NewValidationError(
						"cannot group by "+dim, "Revisa los datos enviados.", "validation_error"))
					return query, false
				}
				query.GroupBy = append(query.GroupBy, dim)
			}
		case "min_count":
			minCount, err := strconv.ParseInt(value, 10, 64)
			if err != nil || minCount < 0 {
				fail(c, models.NewValidationError(
					"invalid min_count", "Revisa los datos enviados.", "validation_error"))
				return query, false
			}
			query.MinCount = minCount
		default:
			if _, ok := def.Filters[name]; !ok {
				fail(c, models.NewValidationError(
					"unknown filter "+name, "Revisa los datos enviados.", "validation_error"))
				return query, false
			}
			query.Params[name] = value
		}
	}
	return query, true
}
