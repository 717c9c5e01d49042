package federalregister

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/regraph/regraph/ingestion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testWindow() ingestion.FetchWindow {
	return ingestion.FetchWindow{
		StartDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestFetchDocuments(t *testing.T) {
	ctx := context.Background()

	t.Run("Follows pagination to the last page", func(t *testing.T) {
		var server *httptest.Server
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			response := map[string]interface{}{
				"count": 3,
				"results": []map[string]interface{}{
					{"document_number": "2024-00003"},
				},
			}
			if r.URL.Query().Get("page") == "" {
				response["results"] = []map[string]interface{}{
					{"document_number": "2024-00001"},
					{"document_number": "2024-00002"},
				}
				response["next_page_url"] = server.URL + "/documents?page=2"
			}
			require.NoError(t, json.NewEncoder(w).Encode(response))
		}))
		defer server.Close()

		client := NewClient(testLogger()).WithBaseURL(server.URL).WithRateLimit(1000)
		documents, err := client.FetchDocuments(ctx, testWindow())
		require.NoError(t, err)

		require.Len(t, documents, 3)
		assert.Equal(t, "2024-00001", documents[0]["document_number"])
		assert.Equal(t, "2024-00003", documents[2]["document_number"])
	})

	t.Run("Sends window and field parameters", func(t *testing.T) {
		var query map[string][]string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			query = r.URL.Query()
			fmt.Fprint(w, `{"count":0,"results":[]}`)
		}))
		defer server.Close()

		window := testWindow()
		window.DocumentType = "RULE"

		client := NewClient(testLogger()).WithBaseURL(server.URL).WithRateLimit(1000)
		_, err := client.FetchDocuments(ctx, window)
		require.NoError(t, err)

		assert.Equal(t, "2024-03-01", query["conditions[publication_date][gte]"][0])
		assert.Equal(t, "2024-03-31", query["conditions[publication_date][lte]"][0])
		assert.Equal(t, "RULE", query["conditions[type]"][0])
		assert.Equal(t, "100", query["per_page"][0])
		assert.Equal(t, "newest", query["order"][0])
		assert.Contains(t, query["fields[]"], "document_number")
		assert.Contains(t, query["fields[]"], "regulation_id_numbers")
	})

	t.Run("Non-200 status fails the fetch", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		client := NewClient(testLogger()).WithBaseURL(server.URL).WithRateLimit(1000)
		_, err := client.FetchDocuments(ctx, testWindow())
		assert.Error(t, err)
	})

	t.Run("Cancelled context stops the fetch", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"count":0,"results":[]}`)
		}))
		defer server.Close()

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		client := NewClient(testLogger()).WithBaseURL(server.URL).WithRateLimit(1000)
		_, err := client.FetchDocuments(cancelled, testWindow())
		assert.Error(t, err)
	})
}
