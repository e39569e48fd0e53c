package scraperapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediadedup/pkg/errors"
	"mediadedup/pkg/logger"
)

func TestNewClient(t *testing.T) {
	log := logger.NewTestLogger()
	client := NewClient("http://localhost:5000/", 30*time.Second, log)

	require.NotNil(t, client)
	assert.NotNil(t, client.httpClient)
	assert.NotNil(t, client.headers)
	// trailing slash trimmed so QueryURL never doubles it
	assert.Equal(t, "http://localhost:5000", client.baseURL)
	assert.Equal(t, log, client.logger)
}

func TestQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, QueryEndpoint, r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "10", r.URL.Query().Get("offset"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"documents": [
				{
					"StartPostId": "a7Qx1z0",
					"Posts": [
						{"ArticleId": "a7Qx1z0", "MediaData": "aGVsbG8="},
						{"ArticleId": "a6Ppr4M", "MediaData": "d29ybGQ="}
					]
				},
				{"StartPostId": "a5KmN2d", "Posts": []}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, logger.NewTestLogger())

	resp, err := client.Query(5, 10)
	require.NoError(t, err)
	require.Len(t, resp.Documents, 2)

	doc := resp.Documents[0]
	assert.Equal(t, "a7Qx1z0", doc.StartPostID)
	require.Len(t, doc.Posts, 2)
	assert.Equal(t, "a7Qx1z0", doc.Posts[0].ArticleID)
	assert.Equal(t, "aGVsbG8=", doc.Posts[0].MediaData)
	assert.Equal(t, "a6Ppr4M", doc.Posts[1].ArticleID)

	assert.Empty(t, resp.Documents[1].Posts)
}

func TestQueryEmptyPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"documents": []}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, logger.NewTestLogger())

	resp, err := client.Query(5, 100)
	require.NoError(t, err)
	assert.Empty(t, resp.Documents)
}

func TestQueryNonSuccessStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"server error", http.StatusInternalServerError},
		{"not found", http.StatusNotFound},
		{"service unavailable", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := NewClient(server.URL, 5*time.Second, logger.NewTestLogger())

			resp, err := client.Query(5, 0)
			assert.Nil(t, resp)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeTransport))
		})
	}
}

func TestQueryConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := NewClient(server.URL, time.Second, logger.NewTestLogger())

	resp, err := client.Query(5, 0)
	assert.Nil(t, resp)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTransport))
}

func TestQueryMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>definitely not json</html>`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, logger.NewTestLogger())

	resp, err := client.Query(5, 0)
	assert.Nil(t, resp)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeMalformed))
}

func TestProbe(t *testing.T) {
	var gotLimit, gotOffset string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("limit")
		gotOffset = r.URL.Query().Get("offset")
		w.Write([]byte(`{"documents": []}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, logger.NewTestLogger())

	require.NoError(t, client.Probe())
	// probe is the cheapest possible query
	assert.Equal(t, "1", gotLimit)
	assert.Equal(t, "0", gotOffset)
}

func TestProbeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, logger.NewTestLogger())

	err := client.Probe()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTransport))
}

func TestSetHeader(t *testing.T) {
	var gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Api-Key")
		w.Write([]byte(`{"documents": []}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, logger.NewTestLogger())
	client.SetHeader("X-Api-Key", "secret")

	_, err := client.Query(1, 0)
	require.NoError(t, err)
	assert.Equal(t, "secret", gotHeader)
}
