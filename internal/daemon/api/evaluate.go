// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/condgate/internal/daemon/httputil"
	"github.com/tombee/condgate/pkg/condition"
	"github.com/tombee/condgate/pkg/errors"
)

// EvaluateHandler handles evaluation API requests.
type EvaluateHandler struct {
	engine       *condition.Engine
	logger       *slog.Logger
	tracer       trace.Tracer
	maxBatchSize int
}

// NewEvaluateHandler creates a new evaluation handler.
func NewEvaluateHandler(engine *condition.Engine, logger *slog.Logger, tracer trace.Tracer, maxBatchSize int) *EvaluateHandler {
	if maxBatchSize <= 0 {
		maxBatchSize = 1000
	}
	return &EvaluateHandler{
		engine:       engine,
		logger:       logger,
		tracer:       tracer,
		maxBatchSize: maxBatchSize,
	}
}

// EvaluateRequest is the request body for a single evaluation.
type EvaluateRequest struct {
	Condition string         `json:"condition"`
	Variables map[string]any `json:"variables,omitempty"`
}

// EvaluateResponse is the response body for a successful evaluation.
type EvaluateResponse struct {
	Success        bool    `json:"success"`
	Result         bool    `json:"result"`
	Cached         bool    `json:"cached"`
	EvaluationTime float64 `json:"evaluation_time"` // seconds
}

// BatchEvaluateRequest is the request body for a batch of evaluations.
type BatchEvaluateRequest struct {
	Evaluations []EvaluateRequest `json:"evaluations"`
}

// BatchItemResponse is one entry of a batch response, tagged with the index
// of the evaluation it answers.
type BatchItemResponse struct {
	Index          int     `json:"index"`
	Success        bool    `json:"success"`
	Result         bool    `json:"result"`
	Cached         bool    `json:"cached"`
	EvaluationTime float64 `json:"evaluation_time"`
	Error          string  `json:"error,omitempty"`
	ErrorKind      string  `json:"error_kind,omitempty"`
}

// HandleEvaluate handles POST /evaluate.
func (h *EvaluateHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}
	if req.Condition == "" {
		httputil.WriteError(w, http.StatusBadRequest, "condition is required")
		return
	}

	ctx, span := h.tracer.Start(r.Context(), "evaluate",
		trace.WithAttributes(attribute.String("condition", req.Condition)))
	defer span.End()

	out, err := h.engine.Evaluate(ctx, req.Condition, req.Variables)
	if err != nil {
		kind := errors.Kind(err)
		span.SetStatus(codes.Error, kind)
		span.RecordError(err)
		h.logger.Error("evaluation failed",
			slog.String("condition", req.Condition),
			slog.String("error_kind", kind),
			slog.Any("error", err))
		// Evaluation failures are a structured outcome, not a transport
		// error; the condition reached the engine and was refused.
		httputil.WriteErrorKind(w, http.StatusOK, err.Error(), kind)
		return
	}

	span.SetAttributes(
		attribute.Bool("result", out.Result),
		attribute.Bool("cached", out.Cached),
	)
	httputil.WriteJSON(w, http.StatusOK, EvaluateResponse{
		Success:        true,
		Result:         out.Result,
		Cached:         out.Cached,
		EvaluationTime: out.Duration.Seconds(),
	})
}

// HandleBatchEvaluate handles POST /batch-evaluate. Items are evaluated
// independently; one item's failure never aborts the rest of the batch.
func (h *EvaluateHandler) HandleBatchEvaluate(w http.ResponseWriter, r *http.Request) {
	var req BatchEvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}
	if len(req.Evaluations) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "evaluations array is required")
		return
	}
	if len(req.Evaluations) > h.maxBatchSize {
		httputil.WriteError(w, http.StatusBadRequest, "batch size exceeds limit")
		return
	}

	ctx, span := h.tracer.Start(r.Context(), "batch-evaluate",
		trace.WithAttributes(attribute.Int("batch_size", len(req.Evaluations))))
	defer span.End()

	results := make([]BatchItemResponse, 0, len(req.Evaluations))
	for i, item := range req.Evaluations {
		if item.Condition == "" {
			results = append(results, BatchItemResponse{
				Index:   i,
				Success: false,
				Error:   "condition is required",
			})
			continue
		}

		out, err := h.engine.Evaluate(ctx, item.Condition, item.Variables)
		if err != nil {
			results = append(results, BatchItemResponse{
				Index:     i,
				Success:   false,
				Error:     err.Error(),
				ErrorKind: errors.Kind(err),
			})
			continue
		}

		results = append(results, BatchItemResponse{
			Index:          i,
			Success:        true,
			Result:         out.Result,
			Cached:         out.Cached,
			EvaluationTime: out.Duration.Seconds(),
		})
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"results": results,
	})
}
