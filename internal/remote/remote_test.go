package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/location-resolver/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseOptions_Envelopes(t *testing.T) {
	tests := []struct {
		name  string
		level models.LocationLevel
		body  string
		want  []models.LocationOption
	}{
		{
			name:  "data envelope",
			level: models.LevelState,
			body:  `{"data":[{"code":"PB","name":"Punjab"}]}`,
			want:  []models.LocationOption{{Code: "PB", Name: "Punjab"}},
		},
		{
			name:  "raw array",
			level: models.LevelCountry,
			body:  `[{"country_code":"IN","country":"India"}]`,
			want:  []models.LocationOption{{Code: "IN", Name: "India"}},
		},
		{
			name:  "named envelope",
			level: models.LevelCity,
			body:  `{"success":true,"cities":[{"city":"Ludhiana"},{"label":"Amritsar"}]}`,
			want:  []models.LocationOption{{Name: "Ludhiana"}, {Name: "Amritsar"}},
		},
		{
			name:  "unknown named key",
			level: models.LevelVillage,
			body:  `{"count":1,"payload":[{"locality":"Dehlon"}]}`,
			want:  []models.LocationOption{{Name: "Dehlon"}},
		},
		{
			name:  "plain strings",
			level: models.LevelVillage,
			body:  `{"data":["Gill"," ",""]}`,
			want:  []models.LocationOption{{Name: "Gill"}},
		},
		{
			name:  "code fallback",
			level: models.LevelState,
			body:  `{"data":[{"_id":"HR"},{"foo":"bar"}]}`,
			want:  []models.LocationOption{{Code: "HR", Name: "HR"}},
		},
		{
			name:  "state name key",
			level: models.LevelState,
			body:  `{"data":[{"state_code":"KA","state_name":"Karnataka"}]}`,
			want:  []models.LocationOption{{Code: "KA", Name: "Karnataka"}},
		},
		{
			name:  "city drops code",
			level: models.LevelCity,
			body:  `{"data":[{"code":"LDH","name":"Ludhiana"}]}`,
			want:  []models.LocationOption{{Name: "Ludhiana"}},
		},
		{
			name:  "empty data",
			level: models.LevelCity,
			body:  `{"data":[]}`,
			want:  []models.LocationOption{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOptions(tt.level, []byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOptions_Unparsable(t *testing.T) {
	for _, body := range []string{`<html>`, `{"message":"ok"}`, `42`} {
		_, err := ParseOptions(models.LevelState, []byte(body))
		assert.Error(t, err, body)
	}
}

func TestQueryFor(t *testing.T) {
	sel := models.Selection{Country: "IN", State: "PB", City: "Ludhiana", Village: "Gill"}

	q := QueryFor(models.LevelVillage, sel, "gi")
	assert.Equal(t, Query{Level: models.LevelVillage, CountryCode: "IN", StateCode: "PB", CityName: "Ludhiana", Search: "gi"}, q)

	q = QueryFor(models.LevelState, sel, "")
	assert.Equal(t, Query{Level: models.LevelState, CountryCode: "IN"}, q)
}

func TestHTTPSource_CountryEndpointDetection(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/locations/countries", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"data":[{"code":"IN","name":"India"}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src := NewHTTPSource(HTTPConfig{
		BaseURL: srv.URL,
		CountryEndpoints: []string{
			"/locations/countries",
			"/api/locations/countries",
			"/api/v1/locations/countries",
			"/countries",
		},
	}, zap.NewNop())

	opts, err := src.Fetch(context.Background(), Query{Level: models.LevelCountry})
	require.NoError(t, err)
	assert.Equal(t, []models.LocationOption{{Code: "IN", Name: "India"}}, opts)

	_, err = src.Fetch(context.Background(), Query{Level: models.LevelCountry})
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, "/api/v1/locations/countries", src.countryEndpoint)
}

func TestHTTPSource_CountryAllEndpointsFail(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	src := NewHTTPSource(HTTPConfig{BaseURL: srv.URL}, nil)
	_, err := src.Fetch(context.Background(), Query{Level: models.LevelCountry})

	var remoteErr *RemoteError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, http.StatusNotFound, remoteErr.StatusCode)
	assert.Equal(t, models.LevelCountry, remoteErr.Level)
}

func TestHTTPSource_States(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/locations/states/IN", r.URL.Path)
		_, _ = w.Write([]byte(`[{"code":"AP","name":"Andhra Pradesh"}]`))
	}))
	defer srv.Close()

	src := NewHTTPSource(HTTPConfig{BaseURL: srv.URL + "/"}, nil)
	opts, err := src.Fetch(context.Background(), Query{Level: models.LevelState, CountryCode: "IN"})
	require.NoError(t, err)
	assert.Equal(t, []models.LocationOption{{Code: "AP", Name: "Andhra Pradesh"}}, opts)
}

func TestHTTPSource_CitiesFallsBackToQueryVariant(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/locations/cities", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "IN", r.URL.Query().Get("countryCode"))
		assert.Equal(t, "PB", r.URL.Query().Get("stateCode"))
		_, _ = w.Write([]byte(`{"data":[{"name":"Ludhiana"}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src := NewHTTPSource(HTTPConfig{BaseURL: srv.URL}, nil)
	opts, err := src.Fetch(context.Background(), Query{Level: models.LevelCity, CountryCode: "IN", StateCode: "PB"})
	require.NoError(t, err)
	assert.Equal(t, []models.LocationOption{{Name: "Ludhiana"}}, opts)
}

func TestHTTPSource_CitiesPathVariant(t *testing.T) {
	var queryHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/locations/cities/IN/PB", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"cities":["Patiala"]}`))
	})
	mux.HandleFunc("/locations/cities", func(w http.ResponseWriter, r *http.Request) {
		queryHits.Add(1)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src := NewHTTPSource(HTTPConfig{BaseURL: srv.URL}, nil)
	opts, err := src.Fetch(context.Background(), Query{Level: models.LevelCity, CountryCode: "IN", StateCode: "PB"})
	require.NoError(t, err)
	assert.Equal(t, []models.LocationOption{{Name: "Patiala"}}, opts)
	assert.Zero(t, queryHits.Load())
}

func TestHTTPSource_CitySearchUsesQueryVariant(t *testing.T) {
	var pathHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/locations/cities/IN/PB", func(w http.ResponseWriter, r *http.Request) {
		pathHits.Add(1)
		_, _ = w.Write([]byte(`{"data":["Amritsar","Ludhiana","Patiala"]}`))
	})
	mux.HandleFunc("/locations/cities", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Lud", r.URL.Query().Get("search"))
		// backend bỏ qua search, trả cả bang
		_, _ = w.Write([]byte(`{"data":["Amritsar","Ludhiana","Patiala"]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src := NewHTTPSource(HTTPConfig{BaseURL: srv.URL}, nil)
	opts, err := src.Fetch(context.Background(), Query{
		Level: models.LevelCity, CountryCode: "IN", StateCode: "PB", Search: "Lud",
	})
	require.NoError(t, err)
	assert.Equal(t, []models.LocationOption{{Name: "Ludhiana"}}, opts)
	assert.Zero(t, pathHits.Load())
}

func TestHTTPSource_VillageSearchFiltersResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":["Dehlon","Gill","Sahnewal"]}`))
	}))
	defer srv.Close()

	src := NewHTTPSource(HTTPConfig{BaseURL: srv.URL}, nil)
	opts, err := src.Fetch(context.Background(), Query{
		Level: models.LevelVillage, CountryCode: "IN", StateCode: "PB", CityName: "Ludhiana", Search: "Gil",
	})
	require.NoError(t, err)
	assert.Equal(t, []models.LocationOption{{Name: "Gill"}}, opts)
}

func TestHTTPSource_VillageParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/locations/villages", r.URL.Path)
		assert.Equal(t, "IN", q.Get("countryCode"))
		assert.Equal(t, "PB", q.Get("stateCode"))
		assert.Equal(t, "Ludhiana", q.Get("cityName"))
		assert.Equal(t, "Deh", q.Get("search"))
		assert.Equal(t, "50", q.Get("limit"))
		_, _ = w.Write([]byte(`{"data":[{"village":"Dehlon"}]}`))
	}))
	defer srv.Close()

	src := NewHTTPSource(HTTPConfig{BaseURL: srv.URL, VillageLimit: 50}, nil)
	opts, err := src.Fetch(context.Background(), Query{
		Level: models.LevelVillage, CountryCode: "IN", StateCode: "PB", CityName: "Ludhiana", Search: "Deh",
	})
	require.NoError(t, err)
	assert.Equal(t, []models.LocationOption{{Name: "Dehlon"}}, opts)
}

func TestHTTPSource_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/locations/states/XX":
			w.WriteHeader(http.StatusInternalServerError)
		case "/locations/states/YY":
			_, _ = w.Write([]byte(`not json`))
		case "/locations/states/ZZ":
			time.Sleep(200 * time.Millisecond)
		}
	}))
	defer srv.Close()

	src := NewHTTPSource(HTTPConfig{BaseURL: srv.URL}, nil)

	_, err := src.Fetch(context.Background(), Query{Level: models.LevelState, CountryCode: "XX"})
	var remoteErr *RemoteError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, http.StatusInternalServerError, remoteErr.StatusCode)

	_, err = src.Fetch(context.Background(), Query{Level: models.LevelState, CountryCode: "YY"})
	require.True(t, errors.As(err, &remoteErr))
	assert.Zero(t, remoteErr.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = src.Fetch(ctx, Query{Level: models.LevelState, CountryCode: "ZZ"})
	require.True(t, errors.As(err, &remoteErr))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFilterFor(t *testing.T) {
	assert.Equal(t, `level = "country"`, FilterFor(Query{Level: models.LevelCountry}))
	assert.Equal(t,
		`level = "village" AND country_code = "IN" AND state_code = "PB" AND city_name = "Ludhiana"`,
		FilterFor(Query{Level: models.LevelVillage, CountryCode: "IN", StateCode: "PB", CityName: "Ludhiana"}))
}

func TestNewIndexDocument_StableID(t *testing.T) {
	a := NewIndexDocument(models.LevelVillage, "", "Dehlon", "IN", "PB", "Ludhiana")
	b := NewIndexDocument(models.LevelVillage, "", "dehlon", "IN", "PB", "Ludhiana")
	c := NewIndexDocument(models.LevelVillage, "", "Dehlon", "IN", "PB", "Khanna")

	assert.Equal(t, a.ID, b.ID)
	assert.NotEqual(t, a.ID, c.ID)
	assert.Equal(t, "village", a.Level)
	assert.Regexp(t, `^[a-zA-Z0-9_-]+$`, a.ID)
}

func TestIndexSettings_CoverFilterFields(t *testing.T) {
	q := Query{Level: models.LevelVillage, CountryCode: "IN", StateCode: "PB", CityName: "Ludhiana"}
	filter := FilterFor(q)

	for _, attr := range IndexSettings().FilterableAttributes {
		assert.Contains(t, filter, attr)
	}
}

func TestBatches(t *testing.T) {
	docs := make([]IndexDocument, 5)
	batches := Batches(docs, 2)
	require.Len(t, batches, 3)
	assert.Len(t, batches[2], 1)

	assert.Empty(t, Batches(nil, 2))
}
