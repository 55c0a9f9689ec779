package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeevandhara/bloodbank/pkg/logger"
)

func TestGeocodeHit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "12 MG Road", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "JeevanDharaApp", r.Header.Get("User-Agent"))
		w.Write([]byte(`[{"lat":"12.9716","lon":"77.5946","display_name":"MG Road, Bengaluru"}]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, logger.Default())
	loc, err := client.Geocode(context.Background(), "12 MG Road")
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.InDelta(t, 12.9716, loc.Latitude, 0.0001)
	assert.InDelta(t, 77.5946, loc.Longitude, 0.0001)
	assert.Equal(t, "MG Road, Bengaluru", loc.DisplayName)
}

func TestGeocodeMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, logger.Default())
	loc, err := client.Geocode(context.Background(), "nowhere at all")
	require.NoError(t, err)
	assert.Nil(t, loc)
}

func TestGeocodeEmptyAddress(t *testing.T) {
	client := NewClient("http://unused.invalid", logger.Default())
	loc, err := client.Geocode(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, loc)
}

func TestGeocodeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, logger.Default())
	_, err := client.Geocode(context.Background(), "12 MG Road")
	assert.Error(t, err)
}
