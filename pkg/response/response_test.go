package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/timetable-editor/pkg/errors"
	"github.com/noah-isme/timetable-editor/pkg/middleware/requestid"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestJSONWrapsData(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	JSON(c, http.StatusOK, gin.H{"revision": 3}, map[string]interface{}{"dirty": true})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	body := decode(t, w)
	assert.JSONEq(t, `{"revision":3}`, string(body["data"]))
	assert.JSONEq(t, `{"dirty":true}`, string(body["meta"]))
	assert.NotContains(t, body, "error")
}

func TestErrorUsesTypedStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(requestid.Middleware())
	router.GET("/conflict", func(c *gin.Context) {
		Error(c, appErrors.Clone(appErrors.ErrTeacherDoubleBooked, "T101 already teaches at Mon 1"))
	})
	router.GET("/boom", func(c *gin.Context) {
		Error(c, errors.New("driver: bad connection"))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/conflict", nil)
	req.Header.Set("X-Request-ID", "req-42")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	body := decode(t, w)
	assert.JSONEq(t, `{"code":"TEACHER_DOUBLE_BOOKED","message":"T101 already teaches at Mon 1","status":409}`, string(body["error"]))
	assert.JSONEq(t, `{"requestId":"req-42"}`, string(body["meta"]))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
	assert.NotContains(t, w.Body.String(), "bad connection")
}
