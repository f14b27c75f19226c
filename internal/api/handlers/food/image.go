package food

import (
	"encoding/json"
	"io"
	"net/http"

	"nutriscan/internal/api/middleware"
	"nutriscan/internal/core/cache"
	"nutriscan/internal/core/extract"
	"nutriscan/internal/core/foodapi"
	"nutriscan/internal/core/nutrition"
	"nutriscan/internal/core/recognition"
	"nutriscan/internal/infrastructure/config"
	"nutriscan/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ImageAnalysisResponse is the result of the full image pipeline: recognition,
// name extraction, product search and nutrition analysis.
type ImageAnalysisResponse struct {
	AnalysisID   string                    `json:"analysis_id"`
	DetectedText string                    `json:"detected_text"`
	ProductName  string                    `json:"product_name"`
	Strategy     string                    `json:"strategy"`
	TotalPages   int                       `json:"total_pages"`
	Products     []nutrition.ProcessedFood `json:"products"`
}

// HandleImageAnalysis serves POST /food/image (multipart, field "image",
// optional "ocr" flag). The strategy tier arrives from the quota middleware.
func HandleImageAnalysis(
	selector *recognition.Selector,
	extractor *extract.Extractor,
	usda *foodapi.Client,
	respCache *cache.ResponseCache,
	imageCfg *config.ImageConfig,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := requestID(c)

		fileHeader, err := c.FormFile("image")
		if err != nil {
			respondError(c, common.ErrMissingImage)
			return
		}
		if fileHeader.Size > imageCfg.MaxSizeBytes {
			common.LogWarn("uploaded image over size limit",
				zap.String("request_id", reqID),
				zap.Int64("size", fileHeader.Size),
				zap.Int64("max_size", imageCfg.MaxSizeBytes),
			)
			respondError(c, common.ErrInvalidImageSize)
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			respondError(c, common.ErrMissingImage)
			return
		}
		defer file.Close()

		imageData, err := io.ReadAll(file)
		if err != nil {
			common.LogError("failed to read uploaded image",
				zap.String("request_id", reqID),
				zap.Error(err),
			)
			respondError(c, err)
			return
		}

		useOCR := c.PostForm("ocr") == "true"
		useFallback := c.GetBool(middleware.ContextUseFallback)

		key := cache.ImageKey(imageData, useOCR)
		if data, ok := respCache.Get(c.Request.Context(), key); ok {
			c.Data(http.StatusOK, "application/json; charset=utf-8", data)
			return
		}

		outcome, err := selector.Recognize(c.Request.Context(), imageData, useOCR, useFallback)
		if err != nil {
			common.LogError("image recognition failed",
				zap.String("request_id", reqID),
				zap.Error(err),
			)
			respondError(c, common.ErrRecognitionFailure)
			return
		}

		candidates, err := extractor.Extract(outcome.Text)
		if err != nil {
			common.LogError("name extraction failed",
				zap.String("request_id", reqID),
				zap.Error(err),
			)
			respondError(c, err)
			return
		}

		query := candidates.SearchQuery()
		if query == "" {
			common.LogInfo("no product name detected in image",
				zap.String("request_id", reqID),
				zap.String("strategy", outcome.Strategy),
			)
			respondError(c, common.ErrNothingDetected)
			return
		}

		response := ImageAnalysisResponse{
			AnalysisID:   common.GenerateUUID(),
			DetectedText: outcome.Text,
			ProductName:  query,
			Strategy:     outcome.Strategy,
			Products:     []nutrition.ProcessedFood{},
		}

		// A failed product search degrades to an empty product list; the
		// detected name is still worth returning.
		result, err := usda.Search(c.Request.Context(), query, 1)
		if err != nil {
			common.LogWarn("product search for detected name failed",
				zap.String("request_id", reqID),
				zap.String("query", query),
				zap.Error(err),
			)
		} else {
			response.TotalPages = result.TotalPages
			for _, raw := range result.Foods {
				response.Products = append(response.Products, nutrition.Process(raw))
			}
		}

		data, err := json.Marshal(response)
		if err != nil {
			common.LogError("failed to serialize image analysis response",
				zap.String("request_id", reqID),
				zap.Error(err),
			)
			respondError(c, err)
			return
		}

		respCache.Set(c.Request.Context(), key, data, respCache.ImageTTL())
		c.Data(http.StatusOK, "application/json; charset=utf-8", data)
	}
}
