package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/eugenenazirov/code-allocator/internal/allocator"
	"github.com/eugenenazirov/code-allocator/internal/display"
	"github.com/eugenenazirov/code-allocator/internal/parser"
	"github.com/eugenenazirov/code-allocator/internal/storage"
)

const (
	strategyDP     = "dp"
	strategyGreedy = "greedy"
)

// poolRequest is the pool part shared by solve and partition requests.
// Items take precedence over Text when both are present.
type poolRequest struct {
	Text  string           `json:"text"`
	Items []allocator.Item `json:"items"`
}

type parseRequest struct {
	Text     string `json:"text"`
	ShowFull bool   `json:"showFull"`
}

type solveRequest struct {
	poolRequest
	Target         *int   `json:"target"`
	AllowOvershoot *bool  `json:"allowOvershoot"`
	Strategy       string `json:"strategy"`
	RequireResult  bool   `json:"requireResult"`
}

type partitionRequest struct {
	poolRequest
	Target        *int   `json:"target"`
	Sort          string `json:"sort"`
	RequireResult bool   `json:"requireResult"`
}

type solveResponse struct {
	RunID             string                `json:"runId"`
	Target            int                   `json:"target"`
	Strategy          string                `json:"strategy"`
	AllowOvershoot    bool                  `json:"allowOvershoot"`
	Result            allocator.Combination `json:"result"`
	ExportText        string                `json:"exportText"`
	InvalidLines      []parser.Line         `json:"invalidLines,omitempty"`
	CalculationTimeMs int64                 `json:"calculationTimeMs"`
}

type partitionResponse struct {
	RunID             string                `json:"runId"`
	Sort              allocator.SortKey     `json:"sort"`
	Result            allocator.BatchResult `json:"result"`
	ExportText        string                `json:"exportText"`
	InvalidLines      []parser.Line         `json:"invalidLines,omitempty"`
	CalculationTimeMs int64                 `json:"calculationTimeMs"`
}

func (h *Handler) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	result := parser.Parse(req.Text, parser.WithMaxAmount(h.maxAmount))
	if !req.ShowFull {
		for i := range result.Lines {
			result.Lines[i].Code = display.MaskCode(result.Lines[i].Code, false)
		}
		for i := range result.Items {
			result.Items[i].Code = display.MaskCode(result.Items[i].Code, false)
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleSolve(w http.ResponseWriter, r *http.Request) {
	var req solveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	strategy := strings.ToLower(strings.TrimSpace(req.Strategy))
	if strategy == "" {
		strategy = strategyDP
	}
	if strategy != strategyDP && strategy != strategyGreedy {
		writeError(w, http.StatusBadRequest, "Invalid request", fmt.Sprintf("unknown strategy %q", req.Strategy), "Use \"dp\" or \"greedy\"")
		return
	}
	allowOvershoot := true
	if req.AllowOvershoot != nil {
		allowOvershoot = *req.AllowOvershoot
	}

	settings, err := h.storage.GetSettings(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	target, ok := resolveTarget(w, req.Target, settings)
	if !ok {
		return
	}
	pool, invalid, ok := h.resolvePool(w, req.poolRequest)
	if !ok {
		return
	}

	var solver allocator.Solver = allocator.Greedy{}
	if strategy == strategyDP {
		engine, err := h.engine(settings)
		if err != nil {
			writeInternalError(w, err)
			return
		}
		solver = engine
	}

	ctx, span := h.startSpan(r.Context(), "allocator.solve", target, pool,
		attribute.String("allocator.strategy", strategy),
		attribute.Bool("allocator.allow_overshoot", allowOvershoot),
	)
	defer span.End()

	start := time.Now()
	result, err := solver.SolveBestCombination(pool, target, allowOvershoot)
	elapsed := time.Since(start)
	if err != nil {
		recordError(span, err)
		writeEngineError(w, err)
		return
	}
	span.SetAttributes(attribute.Int("allocator.result_count", result.Count))

	if req.RequireResult && result.Count == 0 {
		writeError(w, http.StatusUnprocessableEntity, "No combination found", "no items could be combined toward the target",
			"Allow overshoot or add items with smaller amounts")
		return
	}

	run, err := h.saveRun(ctx, storage.RunKindSolve, target, pool, result.Count, result)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, solveResponse{
		RunID:             run.ID,
		Target:            target,
		Strategy:          strategy,
		AllowOvershoot:    allowOvershoot,
		Result:            result,
		ExportText:        display.CombinationText(result),
		InvalidLines:      invalid,
		CalculationTimeMs: elapsed.Milliseconds(),
	})
}

func (h *Handler) handlePartition(w http.ResponseWriter, r *http.Request) {
	var req partitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	key := allocator.SortKey(strings.TrimSpace(req.Sort))
	if key == "" {
		key = allocator.SortByIndex
	}
	if _, err := allocator.Comparator(key); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	settings, err := h.storage.GetSettings(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	target, ok := resolveTarget(w, req.Target, settings)
	if !ok {
		return
	}
	pool, invalid, ok := h.resolvePool(w, req.poolRequest)
	if !ok {
		return
	}
	engine, err := h.engine(settings)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	ctx, span := h.startSpan(r.Context(), "allocator.partition", target, pool)
	defer span.End()

	logger := h.logger.With(zap.String("request_id", requestIDFromContext(ctx)))
	partitioner := allocator.NewPartitioner(engine, allocator.WithLogger(logger))

	start := time.Now()
	result, err := partitioner.Partition(ctx, pool, target)
	elapsed := time.Since(start)
	if err != nil {
		recordError(span, err)
		writeEngineError(w, err)
		return
	}
	span.SetAttributes(
		attribute.Int("allocator.total_sets", result.TotalSets),
		attribute.Int("allocator.theoretical_max", result.TheoreticalMax),
	)

	if req.RequireResult && result.TotalSets == 0 {
		writeError(w, http.StatusUnprocessableEntity, "No qualifying set found",
			fmt.Sprintf("no combination of the %d items reaches the target", len(pool)),
			"Lower the target or widen the extraction window")
		return
	}

	// Presentation order is applied to a copy; the stored run keeps extraction order.
	ordered := result
	if ordered.Sets, err = allocator.SortSets(result.Sets, key); err != nil {
		writeInternalError(w, err)
		return
	}

	run, err := h.saveRun(ctx, storage.RunKindPartition, target, pool, result.TotalSets, result)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, partitionResponse{
		RunID:             run.ID,
		Sort:              key,
		Result:            ordered,
		ExportText:        display.BatchText(ordered),
		InvalidLines:      invalid,
		CalculationTimeMs: elapsed.Milliseconds(),
	})
}

// resolveTarget applies the stored default when target is omitted. It writes
// a 400 response and reports false for a non-positive target.
func resolveTarget(w http.ResponseWriter, target *int, settings storage.Settings) (int, bool) {
	if target == nil {
		return settings.DefaultTarget, true
	}
	if *target <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid request", "target must be a positive integer")
		return 0, false
	}
	return *target, true
}

// resolvePool turns a request into a pool, parsing text when no items were
// given. Lines the parser rejected are returned for display.
func (h *Handler) resolvePool(w http.ResponseWriter, req poolRequest) ([]allocator.Item, []parser.Line, bool) {
	if req.Items != nil {
		return req.Items, nil, true
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "Invalid request", "either text or items must be provided")
		return nil, nil, false
	}

	parsed := parser.Parse(req.Text, parser.WithMaxAmount(h.maxAmount))
	var invalid []parser.Line
	for _, line := range parsed.Lines {
		if !line.Valid {
			invalid = append(invalid, line)
		}
	}
	return parsed.Items, invalid, true
}

func (h *Handler) startSpan(ctx context.Context, name string, target int, pool []allocator.Item, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.Int("allocator.target", target),
		attribute.Int("allocator.pool_size", len(pool)),
	)
	return h.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (h *Handler) saveRun(ctx context.Context, kind storage.RunKind, target int, pool []allocator.Item, count int, result any) (storage.Run, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return storage.Run{}, fmt.Errorf("encode result: %w", err)
	}
	total := 0
	for _, item := range pool {
		total += item.Amount
	}
	return h.storage.SaveRun(ctx, storage.Run{
		Kind:        kind,
		Target:      target,
		PoolSize:    len(pool),
		PoolTotal:   total,
		ResultCount: count,
		CreatedAt:   h.clock(),
		Result:      payload,
	})
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, allocator.ErrInvalidTarget),
		errors.Is(err, allocator.ErrInvalidAmount),
		errors.Is(err, allocator.ErrDuplicateCode):
		writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
	case errors.Is(err, allocator.ErrSearchSpaceTooLarge):
		writeError(w, http.StatusBadRequest, "Search space too large", err.Error(),
			"Raise the quantization unit or lower the target")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "Request cancelled", err.Error())
	default:
		writeInternalError(w, err)
	}
}
