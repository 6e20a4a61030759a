package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medlens/internal/adapters/driven/fake"
	"github.com/custodia-labs/medlens/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/medlens/internal/core/ports/driven"
	"github.com/custodia-labs/medlens/internal/core/services"
	"github.com/custodia-labs/medlens/internal/postprocessors/chunker"
)

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func newTestServer(t *testing.T, model driven.VisionModel, embedder driven.EmbeddingService) *httptest.Server {
	t.Helper()

	store := memory.NewKnowledgeStore()
	ingestion, err := services.NewIngestionService(store, embedder, chunker.New(), nil, 2)
	require.NoError(t, err)
	t.Cleanup(ingestion.Close)

	var retriever *services.Retriever
	if embedder != nil {
		retriever = services.NewRetriever(embedder, services.NewHybridSearchEngine(store, services.DefaultSearchOptions()), 0)
	}

	srv := NewServer(Services{
		Analysis:  services.NewAnalysisService(model, retriever, services.AnalysisOptions{}),
		Ingestion: ingestion,
		Store:     store,
	}, Options{})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestReady_StoreDown(t *testing.T) {
	srv := NewServer(Services{Store: failingPinger{}}, Options{})
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestReady_StoreUp(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	resp, err := http.Get(ts.URL + "/ready")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestOptions_CORS(t *testing.T) {
	srv := NewServer(Services{}, Options{})
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/v1/analyze-report", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "authorization, x-client-info, apikey, content-type", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestAnalyze_NoImage(t *testing.T) {
	ts := newTestServer(t, fake.NewVisionModel(), nil)

	resp, body := post(t, ts.URL+"/api/v1/analyze-report", `{"mode":"clinician"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "unknown", body["reportType"])
	assert.Equal(t, "clinician", body["mode"])
	assert.Equal(t, services.MessageNoImage, body["summary"])
	assert.Equal(t, []any{}, body["references"])
}

func TestAnalyze_MalformedBody(t *testing.T) {
	ts := newTestServer(t, fake.NewVisionModel(), nil)

	resp, body := post(t, ts.URL+"/api/v1/analyze-report", `{not json`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "patient", body["mode"])
	assert.Equal(t, services.MessageRequestFail, body["summary"])
}

func TestAnalyze_MissingChatKey(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	resp, body := post(t, ts.URL+"/api/v1/analyze-report", `{"imageBase64":"aW1n","fileType":"image/png"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, services.MessageConfigError, body["summary"])
	assert.Nil(t, body["keyObservations"])
}

func TestAnalyze_ClinicianXRay(t *testing.T) {
	model := fake.NewVisionModel(
		fake.Reply{Content: `{"reportType":"xray","extractedText":"PA chest radiograph"}`},
		fake.Reply{Content: `{"impression":"No acute findings."}`},
	)
	ts := newTestServer(t, model, nil)

	resp, body := post(t, ts.URL+"/api/v1/analyze-report", `{"imageBase64":"aW1n","fileType":"image/png","mode":"clinician"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "xray", body["reportType"])
	assert.True(t, strings.HasPrefix(body["imagingTypeAndRegion"].(string), "Imaging: X-Ray"))
	assert.Nil(t, body["whatThisTestIsAbout"])
}

func TestIngest_MissingEmbeddingKey(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	resp, body := post(t, ts.URL+"/api/v1/ingest-document", `{"title":"A"}`)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, msgEmbeddingKeyMissing, body["error"])
}

func TestIngest_InvalidRequest(t *testing.T) {
	ts := newTestServer(t, nil, fake.NewEmbedder(0))

	for _, payload := range []string{`{"documents":[]}`, `{"content":"no title"}`, `[]`} {
		resp, body := post(t, ts.URL+"/api/v1/ingest-document", payload)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, payload)
		assert.Equal(t, msgInvalidIngest, body["error"], payload)
	}
}

func TestIngest_Batch(t *testing.T) {
	ts := newTestServer(t, nil, fake.NewEmbedder(0))

	payload := `{"documents":[
		{"title":"Chest Basics","content":"Chest radiographs show the lungs. The heart sits in the middle.","source":"RSNA","reportType":"xray","contentCategory":"anatomy"},
		{"title":"No Source","content":"x","reportType":"xray","contentCategory":"anatomy"}
	]}`
	resp, body := post(t, ts.URL+"/api/v1/ingest-document", payload)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Processed 1/2 documents with 1 total chunks", body["message"])

	results := body["results"].([]any)
	require.Len(t, results, 2)
	first := results[0].(map[string]any)
	second := results[1].(map[string]any)
	assert.Equal(t, float64(1), first["chunksCreated"])
	assert.Equal(t, "Missing required fields", second["error"])
	assert.Equal(t, "", second["documentId"])
}

func TestIngest_SingleDocument(t *testing.T) {
	ts := newTestServer(t, nil, fake.NewEmbedder(0))

	resp, body := post(t, ts.URL+"/api/v1/ingest-document",
		`{"title":"MRI Safety","content":"Screen for metal.","source":"ACR","reportType":"mri","contentCategory":"guidelines"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Processed 1/1 documents with 1 total chunks", body["message"])
}

func TestIngest_BodyTooLarge(t *testing.T) {
	store := memory.NewKnowledgeStore()
	ingestion, err := services.NewIngestionService(store, fake.NewEmbedder(0), chunker.New(), nil, 1)
	require.NoError(t, err)
	defer ingestion.Close()

	srv := NewServer(Services{Ingestion: ingestion}, Options{MaxBodyBytes: 16})
	rec := httptest.NewRecorder()
	body := `{"title":"` + strings.Repeat("a", 64) + `"}`

	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/ingest-document", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// slowEmbedder takes delay per call and honours cancellation.
type slowEmbedder struct {
	delay time.Duration
}

func (e slowEmbedder) Embed(ctx context.Context, _ string, _ driven.TaskType) ([]float32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(e.delay):
		return []float32{0.1, 0.2, 0.3}, nil
	}
}

func (e slowEmbedder) ModelName() string { return "slow" }

// ingestSentences posts one document whose every sentence becomes a chunk.
func ingestSentences(t *testing.T, opts Options, sentences int) map[string]any {
	t.Helper()
	ingestion, err := services.NewIngestionService(memory.NewKnowledgeStore(), slowEmbedder{delay: 20 * time.Millisecond},
		chunker.New(chunker.WithChunkSize(40), chunker.WithOverlap(0)), nil, 1)
	require.NoError(t, err)
	t.Cleanup(ingestion.Close)

	var content strings.Builder
	for i := range sentences {
		fmt.Fprintf(&content, "Finding %02d is described in this sentence. ", i)
	}
	payload, err := json.Marshal(map[string]string{
		"title":           "Long Guideline",
		"content":         content.String(),
		"source":          "RSNA",
		"reportType":      "xray",
		"contentCategory": "anatomy",
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	NewServer(Services{Ingestion: ingestion}, opts).Handler().
		ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/ingest-document", strings.NewReader(string(payload))))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestIngest_AnalyzeTimeoutDoesNotApply(t *testing.T) {
	body := ingestSentences(t, Options{RequestTimeout: 50 * time.Millisecond}, 10)

	result := body["results"].([]any)[0].(map[string]any)
	assert.Equal(t, float64(10), result["chunksCreated"])
	assert.Nil(t, result["chunksFailed"])
	assert.Nil(t, result["error"])
	assert.Equal(t, "Processed 1/1 documents with 10 total chunks", body["message"])
}

func TestIngest_DeadlineTruncationIsReported(t *testing.T) {
	body := ingestSentences(t, Options{IngestTimeout: 150 * time.Millisecond}, 40)

	result := body["results"].([]any)[0].(map[string]any)
	created := result["chunksCreated"].(float64)
	failed := result["chunksFailed"].(float64)
	assert.Less(t, created, float64(40))
	assert.Equal(t, float64(40), created+failed)
	assert.Contains(t, result["error"], "Ingestion interrupted")
	assert.Contains(t, body["message"], "Processed 0/1 documents")
}
