package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/tombee/condgate/pkg/condition"
)

func newTestRouter(t *testing.T) (*Router, *condition.Engine) {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	engine := condition.NewEngine(condition.Config{Logger: logger})
	t.Cleanup(func() { _ = engine.Close() })

	tracer := noop.NewTracerProvider().Tracer("test")
	eh := NewEvaluateHandler(engine, logger, tracer, 10)
	router := NewRouter(RouterConfig{Version: "test"}, engine, logger, eh)
	return router, engine
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandleEvaluate_Success(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(t, router, "/evaluate", EvaluateRequest{
		Condition: "target_os == 'android' and not checkout_ios",
		Variables: map[string]any{"target_os": "android", "checkout_ios": false},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["result"])
	assert.Equal(t, false, body["cached"])
	assert.Contains(t, body, "evaluation_time")
}

func TestHandleEvaluate_CachedOnRepeat(t *testing.T) {
	router, _ := newTestRouter(t)
	req := EvaluateRequest{
		Condition: "x > 0",
		Variables: map[string]any{"x": 1},
	}

	first := postJSON(t, router, "/evaluate", req)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, false, decodeBody(t, first)["cached"])

	second := postJSON(t, router, "/evaluate", req)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, true, decodeBody(t, second)["cached"])
}

func TestHandleEvaluate_FalseResultIsSuccess(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(t, router, "/evaluate", EvaluateRequest{Condition: "1 > 2"})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"], "false is a result, not a failure")
	assert.Equal(t, false, body["result"])
}

func TestHandleEvaluate_ErrorKinds(t *testing.T) {
	tests := []struct {
		name      string
		condition string
		variables map[string]any
		kind      string
	}{
		{
			name:      "syntax error",
			condition: "a and",
			kind:      "syntax",
		},
		{
			name:      "security violation",
			condition: "custom_vars.get('x', '')",
			kind:      "security",
		},
		{
			name:      "runtime error",
			condition: "x + y > 0",
			variables: map[string]any{"x": "a", "y": 1},
			kind:      "eval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newTestRouter(t)

			rec := postJSON(t, router, "/evaluate", EvaluateRequest{
				Condition: tt.condition,
				Variables: tt.variables,
			})

			// The request was well-formed; the failure is in the payload.
			require.Equal(t, http.StatusOK, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.kind, body["error_kind"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestHandleEvaluate_BadRequests(t *testing.T) {
	router, _ := newTestRouter(t)

	t.Run("invalid JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/evaluate", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing condition", func(t *testing.T) {
		rec := postJSON(t, router, "/evaluate", EvaluateRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/evaluate", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestHandleBatchEvaluate_MixedResults(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(t, router, "/batch-evaluate", BatchEvaluateRequest{
		Evaluations: []EvaluateRequest{
			{Condition: "x > 0", Variables: map[string]any{"x": 1}},
			{Condition: "a and"},
			{Condition: "os.environ"},
			{Condition: "x > 0", Variables: map[string]any{"x": -1}},
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool                `json:"success"`
		Results []BatchItemResponse `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.Len(t, body.Results, 4)

	assert.True(t, body.Results[0].Success)
	assert.True(t, body.Results[0].Result)
	assert.Equal(t, 0, body.Results[0].Index)

	assert.False(t, body.Results[1].Success)
	assert.Equal(t, "syntax", body.Results[1].ErrorKind)
	assert.Equal(t, 1, body.Results[1].Index)

	assert.False(t, body.Results[2].Success)
	assert.Equal(t, "security", body.Results[2].ErrorKind)

	assert.True(t, body.Results[3].Success)
	assert.False(t, body.Results[3].Result, "a false result in a batch is still a success")
}

func TestHandleBatchEvaluate_FalseResultKeepsResultKey(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(t, router, "/batch-evaluate", BatchEvaluateRequest{
		Evaluations: []EvaluateRequest{{Condition: "1 > 2"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Decode into maps so a key omitted from the wire is detectable; batch
	// items carry the same shape as /evaluate even when the result is false.
	var body struct {
		Results []map[string]any `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Results, 1)

	item := body.Results[0]
	assert.Equal(t, true, item["success"])
	require.Contains(t, item, "result")
	assert.Equal(t, false, item["result"])
	require.Contains(t, item, "cached")
	assert.Contains(t, item, "evaluation_time")
}

func TestHandleBatchEvaluate_EmptyConditionItem(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(t, router, "/batch-evaluate", BatchEvaluateRequest{
		Evaluations: []EvaluateRequest{{Condition: ""}},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Results []BatchItemResponse `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Results, 1)
	assert.False(t, body.Results[0].Success)
}

func TestHandleBatchEvaluate_BadRequests(t *testing.T) {
	router, _ := newTestRouter(t)

	t.Run("empty batch", func(t *testing.T) {
		rec := postJSON(t, router, "/batch-evaluate", BatchEvaluateRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("oversized batch", func(t *testing.T) {
		items := make([]EvaluateRequest, 11) // handler limit is 10
		for i := range items {
			items[i] = EvaluateRequest{Condition: fmt.Sprintf("x > %d", i)}
		}
		rec := postJSON(t, router, "/batch-evaluate", BatchEvaluateRequest{Evaluations: items})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
