package contract

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htm-project/neural-api/internal/domain/htm"
	"github.com/htm-project/neural-api/internal/handlers"
	"github.com/htm-project/neural-api/internal/services"
)

func newRegionTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, err := services.NewRegionService(
		htm.DefaultRegionConfig(),
		[]*htm.CorticalColumnConfig{htm.DefaultCorticalColumnConfig()},
		"contract-test-region",
	)
	require.NoError(t, err)

	handler := handlers.NewRegionHandler(svc)

	router := gin.New()
	group := router.Group("/api/v1/region")
	group.POST("/process", handler.ProcessRegion)
	group.POST("/settle", handler.SettleRegion)
	group.GET("/config", handler.GetRegionConfig)
	group.GET("/health", handler.GetRegionHealth)

	return router
}

// TestRegionProcessEndpoint exercises POST /api/v1/region/process against a
// real region built from the default single-column configuration.
func TestRegionProcessEndpoint(t *testing.T) {
	router := newRegionTestRouter(t)
	inputWidth := htm.DefaultCorticalColumnConfig().SpatialPooler.InputWidth

	requestBody := map[string]interface{}{
		"sensory": []map[string]interface{}{
			{
				"feature": map[string]interface{}{
					"width":       inputWidth,
					"active_bits": []int{1, 3, 5, 7, 9, 11, 13},
				},
			},
		},
		"learn": true,
	}
	requestJSON, err := json.Marshal(requestBody)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/region/process", bytes.NewBuffer(requestJSON))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)

	var response htm.RegionOutput
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Len(t, response.ColumnOutputs, 1)
}

// TestRegionProcessEndpointRejectsMismatchedColumnCount sends two sensory
// inputs against a single-column region.
func TestRegionProcessEndpointRejectsMismatchedColumnCount(t *testing.T) {
	router := newRegionTestRouter(t)
	inputWidth := htm.DefaultCorticalColumnConfig().SpatialPooler.InputWidth

	requestBody := map[string]interface{}{
		"sensory": []map[string]interface{}{
			{"feature": map[string]interface{}{"width": inputWidth, "active_bits": []int{1, 2, 3}}},
			{"feature": map[string]interface{}{"width": inputWidth, "active_bits": []int{1, 2, 3}}},
		},
	}
	requestJSON, err := json.Marshal(requestBody)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/region/process", bytes.NewBuffer(requestJSON))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}

// TestRegionConfigEndpoint exercises GET /api/v1/region/config.
func TestRegionConfigEndpoint(t *testing.T) {
	router := newRegionTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/region/config", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Contains(t, response, "region")
	assert.Contains(t, response, "columns")
}

// TestRegionHealthEndpoint exercises GET /api/v1/region/health.
func TestRegionHealthEndpoint(t *testing.T) {
	router := newRegionTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/region/health", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response["status"])
}
