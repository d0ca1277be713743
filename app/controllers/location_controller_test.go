package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/location-resolver/app/controllers"
	"github.com/location-resolver/app/models"
	"github.com/location-resolver/app/responses"
	"github.com/location-resolver/app/services"
	"github.com/location-resolver/internal/fallback"
	"github.com/location-resolver/internal/remote"
	"github.com/location-resolver/internal/resolver"
	"github.com/location-resolver/routes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type levelSource map[models.LocationLevel][]models.LocationOption

func (s levelSource) Fetch(_ context.Context, q remote.Query) ([]models.LocationOption, error) {
	return s[q.Level], nil
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	persisted, err := services.NewCacheService(256)
	require.NoError(t, err)

	source := levelSource{
		models.LevelCountry: {{Code: "IN", Name: "India"}, {Code: "AE", Name: "United Arab Emirates"}},
		models.LevelState:   {{Code: "PB", Name: "Punjab"}, {Code: "GJ", Name: "Gujarat"}},
	}
	sm, err := services.NewSessionManager(
		persisted,
		services.NewSelectionStore(persisted, "tl_location", 0, nil),
		source,
		fallback.MustLoad(),
		services.SessionConfig{
			MaxSessions:  16,
			SessionSize:  64,
			PersistedTTL: time.Hour,
			Resolver: resolver.Config{
				SearchDelay:   10 * time.Millisecond,
				PersistLevels: []models.LocationLevel{models.LevelCountry},
				KeyPrefix:     "loc:v1:",
			},
		},
		zap.NewNop(),
	)
	require.NoError(t, err)
	t.Cleanup(sm.Close)

	router := gin.New()
	routes.SetupAllRoutes(router,
		controllers.NewLocationController(sm, 5*time.Second, zap.NewNop()),
		controllers.NewAdminController(services.NewAdminService(sm, "loc:v1:", zap.NewNop()), zap.NewNop()),
	)
	return router
}

func do(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createSession(t *testing.T, router *gin.Engine, clientID string) responses.SessionResponse {
	t.Helper()
	w := do(router, http.MethodPost, "/v1/sessions", gin.H{"client_id": clientID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp responses.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	return resp
}

func TestCreateSession_RequiresClientID(t *testing.T) {
	router := newRouter(t)

	w := do(router, http.MethodPost, "/v1/sessions", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp responses.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_REQUEST", resp.Error)
}

func TestGetOptions_WaitReturnsSortedCountries(t *testing.T) {
	router := newRouter(t)
	s := createSession(t, router, "c1")

	w := do(router, http.MethodGet, "/v1/sessions/"+s.SessionID+"/options/country?wait=1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp responses.OptionsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.LevelCountry, resp.Level)
	assert.False(t, resp.Pending)
	assert.False(t, resp.Disabled)
	require.Len(t, resp.Options, 2)
	assert.Equal(t, "India", resp.Options[0].Name)
	assert.Equal(t, "United Arab Emirates", resp.Options[1].Name)
}

func TestGetOptions_DisabledWithoutAncestors(t *testing.T) {
	router := newRouter(t)
	s := createSession(t, router, "c1")

	w := do(router, http.MethodGet, "/v1/sessions/"+s.SessionID+"/options/state", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp responses.OptionsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Disabled)
	assert.False(t, resp.Pending)
	assert.Empty(t, resp.Options)
}

func TestGetOptions_BadInput(t *testing.T) {
	router := newRouter(t)
	s := createSession(t, router, "c1")

	w := do(router, http.MethodGet, "/v1/sessions/"+s.SessionID+"/options/planet", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodGet, "/v1/sessions/missing/options/country", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSelect_CascadesAndPersists(t *testing.T) {
	router := newRouter(t)
	s := createSession(t, router, "c1")
	base := "/v1/sessions/" + s.SessionID

	require.Equal(t, http.StatusOK, do(router, http.MethodPost, base+"/select", gin.H{"level": "country", "value": "IN"}).Code)
	require.Equal(t, http.StatusOK, do(router, http.MethodPost, base+"/select", gin.H{"level": "state", "value": "PB"}).Code)

	w := do(router, http.MethodPost, base+"/select", gin.H{"level": "country", "value": "AE"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp responses.SelectionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.Selection{Country: "AE"}, resp.Selection)

	// cùng client_id khôi phục Selection đã lưu
	again := createSession(t, router, "c1")
	assert.Equal(t, models.Selection{Country: "AE"}, again.Selection)
}

func TestSearch_AcceptedForCityOnly(t *testing.T) {
	router := newRouter(t)
	s := createSession(t, router, "c1")
	base := "/v1/sessions/" + s.SessionID

	do(router, http.MethodPost, base+"/select", gin.H{"level": "country", "value": "IN"})
	do(router, http.MethodPost, base+"/select", gin.H{"level": "state", "value": "PB"})

	w := do(router, http.MethodPost, base+"/search", gin.H{"level": "state", "text": "pun"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPost, base+"/search", gin.H{"level": "city", "text": "ludhiana"})
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp responses.SelectionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Ludhiana", resp.Selection.City)
}

func TestSuggest_ClosestOption(t *testing.T) {
	router := newRouter(t)
	s := createSession(t, router, "c1")
	base := "/v1/sessions/" + s.SessionID

	require.Equal(t, http.StatusOK, do(router, http.MethodGet, base+"/options/country?wait=1", nil).Code)

	w := do(router, http.MethodGet, base+"/suggest/country?text=Indai", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp responses.SuggestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Suggestion)
	assert.Equal(t, "IN", resp.Suggestion.Code)
}

func TestDeleteSession(t *testing.T) {
	router := newRouter(t)
	s := createSession(t, router, "c1")

	assert.Equal(t, http.StatusNoContent, do(router, http.MethodDelete, "/v1/sessions/"+s.SessionID, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(router, http.MethodDelete, "/v1/sessions/"+s.SessionID, nil).Code)
}

func TestAdmin_FlushAndStats(t *testing.T) {
	router := newRouter(t)
	s := createSession(t, router, "c1")
	require.Equal(t, http.StatusOK, do(router, http.MethodGet, "/v1/sessions/"+s.SessionID+"/options/country?wait=1", nil).Code)

	w := do(router, http.MethodPost, "/v1/admin/cache/flush", gin.H{"prefix": "country:"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var flushed responses.FlushCacheResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &flushed))
	assert.Equal(t, "loc:v1:country:", flushed.Prefix)
	assert.Equal(t, 1, flushed.Deleted)

	w = do(router, http.MethodGet, "/v1/admin/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.EqualValues(t, 1, stats["active_sessions"])
	assert.Contains(t, stats, "timestamp")
}

func TestHealthMetricsAndNoRoute(t *testing.T) {
	router := newRouter(t)

	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/docs", nil).Code)

	w := do(router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "locres_active_sessions")

	assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, "/nope", nil).Code)
}
