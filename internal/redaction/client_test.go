package redaction

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/system/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger, _ := test.NewNullLogger()
	return NewClient(&config.RedactionConfig{
		Endpoint:   server.URL,
		APIKey:     "secret",
		APIVersion: "2023-04-01",
		Timeout:    time.Second,
	}, logger)
}

func TestClientDetect_MapsResultsInRequestOrder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/language/:analyze-text", r.URL.Path)
		assert.Equal(t, "2023-04-01", r.URL.Query().Get("api-version"))
		assert.Equal(t, "secret", r.Header.Get("Ocp-Apim-Subscription-Key"))

		body, _ := io.ReadAll(r.Body)
		var req analyzeRequest
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "PiiEntityRecognition", req.Kind)
		assert.Equal(t, "UnicodeCodePoint", req.Parameters.StringIndexType)
		assert.Equal(t, []string{"Person"}, req.Parameters.PiiCategories)
		require.Len(t, req.AnalysisInput.Documents, 3)
		assert.Equal(t, "en", req.AnalysisInput.Documents[0].Language)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"kind": "PiiEntityRecognitionResults",
			"results": {
				"documents": [
					{"id": "2", "entities": []},
					{"id": "0", "entities": [{"text": "John Doe", "category": "Person", "offset": 0, "length": 8, "confidenceScore": 0.97}]}
				],
				"errors": [
					{"id": "1", "error": {"code": "InvalidArgument", "message": "Document text is empty."}}
				]
			}
		}`))
	})

	results, err := client.Detect(context.Background(), []Document{
		{ID: "0", Text: "John Doe"},
		{ID: "1", Text: ""},
		{ID: "2", Text: "nothing"},
	}, DetectOptions{Language: "en", Categories: []string{"Person"}})

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "0", results[0].ID)
	require.Len(t, results[0].Entities, 1)
	assert.InDelta(t, 0.97, results[0].Entities[0].ConfidenceScore, 0.0001)
	require.NotNil(t, results[1].Err)
	assert.Equal(t, "InvalidArgument", results[1].Err.Code)
	assert.Nil(t, results[2].Err)
}

func TestClientDetect_MissingResultIsDocumentError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results": {"documents": [], "errors": []}}`))
	})

	results, err := client.Detect(context.Background(), []Document{{ID: "0", Text: "x"}}, DetectOptions{})

	require.NoError(t, err)
	require.NotNil(t, results[0].Err)
	assert.Equal(t, "MissingResult", results[0].Err.Code)
}

func TestClientDetect_ServiceError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"code": "401", "message": "Access denied"}}`))
	})

	_, err := client.Detect(context.Background(), []Document{{ID: "0", Text: "x"}}, DetectOptions{})

	require.Error(t, err)
	var docErr *DocumentError
	require.ErrorAs(t, err, &docErr)
	assert.Equal(t, "Access denied", docErr.Message)
}

func TestClientDetect_Timeout(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	// registered after the server cleanup so the handler returns before Close waits on it
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.Detect(ctx, []Document{{ID: "0", Text: "x"}}, DetectOptions{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "PII detection call failed")
}

func TestEngineWithClient_EndToEnd(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results": {"documents": [
			{"id": "0", "entities": [
				{"text": "John Doe", "category": "Person", "offset": 0, "length": 8, "confidenceScore": 0.99},
				{"text": "123 Main St", "category": "Address", "offset": 18, "length": 11, "confidenceScore": 0.9}
			]}
		], "errors": []}}`))
	})
	logger, _ := test.NewNullLogger()
	engine := NewEngine(client, Options{}, logger)

	got := engine.FetchRedactionSuggestions(context.Background(), "John Doe lives at 123 Main St.")

	require.NotNil(t, got)
	assert.Equal(t, "████████ lives at ███████████.", got.RedactedText)
}
