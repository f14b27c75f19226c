package food

import (
	"encoding/json"
	"net/http"

	"nutriscan/internal/core/cache"
	"nutriscan/internal/core/foodapi"
	"nutriscan/internal/core/nutrition"
	"nutriscan/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HandleProductLookup serves GET /food/product?fcID=. The raw upstream record
// is normalized and analyzed before it reaches the client; responses are
// cached by record ID.
func HandleProductLookup(usda *foodapi.Client, respCache *cache.ResponseCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := requestID(c)

		fcID := c.Query("fcID")
		if fcID == "" {
			c.JSON(http.StatusBadRequest, common.ErrorResponse{
				Code:    common.ErrCodeInvalidRequest,
				Message: "missing 'fcID' parameter",
			})
			return
		}

		key := cache.ProductKey(fcID)
		if data, ok := respCache.Get(c.Request.Context(), key); ok {
			c.Data(http.StatusOK, "application/json; charset=utf-8", data)
			return
		}

		raw, err := usda.GetRecord(c.Request.Context(), fcID)
		if err != nil {
			common.LogError("product lookup failed",
				zap.String("request_id", reqID),
				zap.String("fc_id", fcID),
				zap.Error(err),
			)
			respondError(c, common.ErrUpstreamLookup)
			return
		}

		processed := nutrition.Process(raw)

		data, err := json.Marshal(processed)
		if err != nil {
			common.LogError("failed to serialize product response",
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
