package food

import (
	"encoding/json"
	"net/http"
	"strconv"

	"nutriscan/internal/core/cache"
	"nutriscan/internal/core/foodapi"
	"nutriscan/internal/core/nutrition"
	"nutriscan/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SearchResponse is one processed page of product search results.
type SearchResponse struct {
	Query      string                    `json:"query"`
	Page       int                       `json:"page"`
	TotalPages int                       `json:"total_pages"`
	Foods      []nutrition.ProcessedFood `json:"foods"`
}

// HandleProductSearch serves GET /food/search?name=&page=. Every hit on the
// page goes through the same normalization and analysis as a direct lookup.
func HandleProductSearch(usda *foodapi.Client, respCache *cache.ResponseCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := requestID(c)

		query := c.Query("name")
		if query == "" {
			c.JSON(http.StatusBadRequest, common.ErrorResponse{
				Code:    common.ErrCodeInvalidRequest,
				Message: "missing 'name' parameter",
			})
			return
		}

		page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
		if err != nil || page < 1 {
			c.JSON(http.StatusBadRequest, common.ErrorResponse{
				Code:    common.ErrCodeInvalidRequest,
				Message: "invalid 'page' parameter",
			})
			return
		}

		key := cache.SearchKey(query, page)
		if data, ok := respCache.Get(c.Request.Context(), key); ok {
			c.Data(http.StatusOK, "application/json; charset=utf-8", data)
			return
		}

		result, err := usda.Search(c.Request.Context(), query, page)
		if err != nil {
			common.LogError("product search failed",
				zap.String("request_id", reqID),
				zap.String("query", query),
				zap.Int("page", page),
				zap.Error(err),
			)
			respondError(c, common.ErrUpstreamLookup)
			return
		}

		response := SearchResponse{
			Query:      query,
			Page:       page,
			TotalPages: result.TotalPages,
			Foods:      make([]nutrition.ProcessedFood, 0, len(result.Foods)),
		}
		for _, raw := range result.Foods {
			response.Foods = append(response.Foods, nutrition.Process(raw))
		}

		data, err := json.Marshal(response)
		if err != nil {
			common.LogError("failed to serialize search response",
				zap.String("request_id", reqID),
				zap.Error(err),
			)
			respondError(c, err)
			return
		}

		respCache.Set(c.Request.Context(), key, data, respCache.LookupTTL())
		c.Data(http.StatusOK, "application/json; charset=utf-8", data)
	}
}
