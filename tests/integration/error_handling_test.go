package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestErrorHandlingAndValidation tests comprehensive error handling scenarios
// for the spatial pooler processing endpoint.
func TestErrorHandlingAndValidation(t *testing.T) {
	router := setupTestRouter()

	testCases := []struct {
		name           string
		requestBody    interface{}
		expectedStatus int
	}{
		{
			name:           "malformed_json",
			requestBody:    `{"invalid": json}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "missing_required_fields",
			requestBody: map[string]interface{}{
				"encoder_output": map[string]interface{}{
					"width":       2048,
					"active_bits": []int{1, 2, 3},
				},
				// Missing input_width and input_id
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "empty_active_bits",
			requestBody: map[string]interface{}{
				"encoder_output": map[string]interface{}{
					"width":       2048,
					"active_bits": []int{},
					"sparsity":    0.0,
				},
				"input_width": 2048,
				"input_id":    "test-empty-active-bits",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "width_mismatch",
			requestBody: map[string]interface{}{
				"encoder_output": map[string]interface{}{
					"width":       2048,
					"active_bits": []int{1, 2, 3},
					"sparsity":    0.001,
				},
				"input_width": 1024, // Doesn't match encoder_output.width
				"input_id":    "test-width-mismatch",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "active_bit_out_of_range",
			requestBody: map[string]interface{}{
				"encoder_output": map[string]interface{}{
					"width":       2048,
					"active_bits": []int{1, 2, 5000}, // Out of range for width 2048
					"sparsity":    0.001,
				},
				"input_width": 2048,
				"input_id":    "test-out-of-range",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "non_positive_input_width",
			requestBody: map[string]interface{}{
				"encoder_output": map[string]interface{}{
					"width":       2048,
					"active_bits": []int{1, 2, 3},
					"sparsity":    0.001,
				},
				"input_width": 0,
				"input_id":    "test-non-positive-width",
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var req *http.Request
			var err error

			if str, ok := tc.requestBody.(string); ok {
				req, err = http.NewRequest(http.MethodPost, "/api/v1/spatial-pooler/process", strings.NewReader(str))
			} else {
				requestBodyBytes, marshalErr := json.Marshal(tc.requestBody)
				require.NoError(t, marshalErr)
				req, err = http.NewRequest(http.MethodPost, "/api/v1/spatial-pooler/process", bytes.NewBuffer(requestBodyBytes))
			}

			require.NoError(t, err)
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.expectedStatus, w.Code, "Status code mismatch for test: %s", tc.name)

			var response map[string]interface{}
			if err := json.Unmarshal(w.Body.Bytes(), &response); err == nil {
				assert.Contains(t, response, "error", "Error response should contain an error field")
			}
		})
	}
}

// TestErrorHandlingRecovery tests that the API can recover from errors and
// continue serving valid requests afterward.
func TestErrorHandlingRecovery(t *testing.T) {
	router := setupTestRouter()

	invalidRequest := map[string]interface{}{
		"encoder_output": map[string]interface{}{
			"width":       2048,
			"active_bits": []int{},
		},
	}

	requestBodyBytes, err := json.Marshal(invalidRequest)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, "/api/v1/spatial-pooler/process", bytes.NewBuffer(requestBodyBytes))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code, "Invalid request should return 400")

	requestBodyBytes, err = json.Marshal(spatialPoolerRequestBody("recovery-test", 1))
	require.NoError(t, err)

	req, err = http.NewRequest(http.MethodPost, "/api/v1/spatial-pooler/process", bytes.NewBuffer(requestBodyBytes))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code, "Valid request should succeed after error")
}

// TestErrorHandlingConcurrent tests error handling works correctly under
// concurrent load, with valid and invalid requests interleaved.
func TestErrorHandlingConcurrent(t *testing.T) {
	router := setupTestRouter()

	done := make(chan bool, 10)

	for i := 0; i < 10; i++ {
		go func(id int) {
			defer func() { done <- true }()

			var requestBodyBytes []byte
			var err error

			if id%2 == 0 {
				requestBodyBytes, err = json.Marshal(spatialPoolerRequestBody(fmt.Sprintf("concurrent-valid-%d", id), id))
			} else {
				requestBodyBytes, err = json.Marshal(map[string]interface{}{
					"encoder_output": map[string]interface{}{
						"width":       2048,
						"active_bits": []int{},
					},
				})
			}
			if err != nil {
				return
			}

			req, err := http.NewRequest(http.MethodPost, "/api/v1/spatial-pooler/process", bytes.NewBuffer(requestBodyBytes))
			if err != nil {
				return
			}
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if id%2 == 0 {
				assert.Equal(t, http.StatusOK, w.Code, "Valid concurrent request should succeed")
			} else {
				assert.Equal(t, http.StatusBadRequest, w.Code, "Invalid concurrent request should fail")
			}
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}
