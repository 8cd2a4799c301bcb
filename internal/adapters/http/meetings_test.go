package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/dkeye/Meet/internal/adapters/http"
	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/domain"
)

func newMeetingRouter(dir app.MeetingDirectory) *gin.Engine {
	gin.SetMode(gin.TestMode)
	api := &httpadapter.MeetingAPI{Dir: dir, Gate: app.NewGate(dir, 10*time.Minute)}
	r := gin.New()
	r.POST("/api/meetings", api.Create)
	r.GET("/api/meetings/:id", api.Fetch)
	r.GET("/api/meetings/:id/access", api.Access)
	return r
}

func TestMeetingAPI_CreateAndFetch(t *testing.T) {
	dir := app.NewMemoryDirectory()
	r := newMeetingRouter(dir)

	body := `{"title":"standup","scheduledAt":"2026-09-01T10:00:00Z","durationMinutes":30}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/meetings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var created domain.Meeting
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, domain.MeetingScheduled, created.Status)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/meetings/"+created.ID, nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMeetingAPI_CreateRejectsMissingFields(t *testing.T) {
	r := newMeetingRouter(app.NewMemoryDirectory())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/meetings", strings.NewReader(`{"title":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMeetingAPI_Access(t *testing.T) {
	dir := app.NewMemoryDirectory()
	dir.Put(&domain.Meeting{
		ID: "live", Status: domain.MeetingScheduled,
		ScheduledAt: time.Now(), Duration: time.Hour,
	})
	r := newMeetingRouter(dir)

	tests := []struct {
		id   string
		want string
	}{
		{"live", "valid"},
		{"nope", "not-found"},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/meetings/"+tt.id+"/access", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var payload map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
		assert.Equal(t, tt.want, payload["status"])
	}
}
