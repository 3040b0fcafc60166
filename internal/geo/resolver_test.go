package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestResolver(geocodeURL, reverseURL string) *Resolver {
	return NewResolver(geocodeURL, reverseURL, 2*time.Second, zap.NewNop().Sugar())
}

func TestResolve_CoordinateInput_NoNetworkCall(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	r := newTestResolver(server.URL, server.URL)

	coord, err := r.Resolve(context.Background(), "43.65,-79.38")
	require.NoError(t, err)
	assert.Equal(t, 43.65, coord.Latitude)
	assert.Equal(t, -79.38, coord.Longitude)
	assert.Equal(t, int64(0), atomic.LoadInt64(&calls))

	// Whitespace around the tokens is fine.
	coord, err = r.Resolve(context.Background(), " 10.5 , 20.25 ")
	require.NoError(t, err)
	assert.Equal(t, 10.5, coord.Latitude)
	assert.Equal(t, 20.25, coord.Longitude)
	assert.Equal(t, int64(0), atomic.LoadInt64(&calls))
}

func TestResolve_InvalidInput(t *testing.T) {
	r := newTestResolver("http://localhost:0", "http://localhost:0")

	cases := []string{"", " ", "a", "91,0", "-91,0", "0,181", "0,-181", "1,2,3", "Toronto,Canada"}
	for _, input := range cases {
		_, err := r.Resolve(context.Background(), input)
		assert.ErrorIs(t, err, ErrInvalidLocation, "input %q", input)
	}
}

func TestResolve_PlaceName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Area 51", r.URL.Query().Get("name"))
		assert.Equal(t, "1", r.URL.Query().Get("count"))
		w.Write([]byte(`{"results":[{"latitude":37.23,"longitude":-115.8,"name":"Area 51"}]}`))
	}))
	defer server.Close()

	r := newTestResolver(server.URL, server.URL)

	// Digits without a comma are a place name, not a coordinate pair.
	coord, err := r.Resolve(context.Background(), "Area 51")
	require.NoError(t, err)
	assert.Equal(t, 37.23, coord.Latitude)
	assert.Equal(t, -115.8, coord.Longitude)
}

func TestResolve_NoMatches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	r := newTestResolver(server.URL, server.URL)

	_, err := r.Resolve(context.Background(), "Nowhereville")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolve_TransportFailure(t *testing.T) {
	r := newTestResolver("http://127.0.0.1:1", "http://127.0.0.1:1")

	_, err := r.Resolve(context.Background(), "Toronto")
	assert.ErrorIs(t, err, ErrResolutionFailed)
}

func TestSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.URL.Query().Get("count"))
		w.Write([]byte(`{"results":[
			{"name":"Toronto","country":"Canada","admin1":"Ontario","latitude":43.65,"longitude":-79.38},
			{"name":"Toronto","country":"United States","admin1":"Ohio","latitude":40.46,"longitude":-80.6}
		]}`))
	}))
	defer server.Close()

	r := newTestResolver(server.URL, server.URL)

	places, err := r.Search(context.Background(), "Toronto", 3)
	require.NoError(t, err)
	require.Len(t, places, 2)

	assert.Equal(t, "Toronto, Ontario, Canada", places[0].DisplayName)
	assert.Equal(t, "43.65,-79.38", places[0].SearchQuery)
	assert.Equal(t, "Toronto, Ohio, United States", places[1].DisplayName)
}

func TestSearch_ShortQuery(t *testing.T) {
	r := newTestResolver("http://127.0.0.1:1", "http://127.0.0.1:1")

	places, err := r.Search(context.Background(), "t", 5)
	require.NoError(t, err)
	assert.Empty(t, places)
}

func TestReverseGeocode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Write([]byte(`{"display_name":"Toronto, Ontario, Canada","address":{"city":"Toronto","state":"Ontario","country":"Canada"}}`))
	}))
	defer server.Close()

	r := newTestResolver(server.URL, server.URL)

	place, err := r.ReverseGeocode(context.Background(), 43.65, -79.38)
	require.NoError(t, err)
	require.NotNil(t, place)
	assert.Equal(t, "Toronto", place.Name)
	assert.Equal(t, "Ontario", place.Admin1)
	assert.Equal(t, "Canada", place.Country)
	assert.Equal(t, 43.65, place.Latitude)
}

func TestReverseGeocode_NoAddress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	r := newTestResolver(server.URL, server.URL)

	place, err := r.ReverseGeocode(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Nil(t, place)
}
