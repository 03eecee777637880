package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/queryagent/domain/action"
	"github.com/felixgeelhaar/queryagent/domain/cache"
	"github.com/felixgeelhaar/queryagent/infrastructure/executor"
)

// InspectorName is the registered name of the schema inspection handler.
const InspectorName = "schema-inspector"

// sampleRows is the fixed row count returned by the sample command.
const sampleRows = 3

// cacheTTL bounds how long introspection results are served from cache.
// Sample results are never cached.
const cacheTTL = 5 * time.Minute

// Inspector answers schema questions from inside the agent loop.
// Exactly three command forms are understood: "tables",
// "describe <table>", and "sample <table>".
type Inspector struct {
	exec  executor.Executor
	cache cache.Cache
}

// NewInspector creates the schema-inspector handler.
// The cache is optional; nil disables caching.
func NewInspector(exec executor.Executor, c cache.Cache) *Inspector {
	return &Inspector{exec: exec, cache: c}
}

// Name returns the handler name.
func (h *Inspector) Name() string { return InspectorName }

// Description returns the model-facing description.
func (h *Inspector) Description() string {
	return `Inspect the database schema. Input: "tables", "describe <table>", or "sample <table>".`
}

// Execute dispatches on the command form.
func (h *Inspector) Execute(ctx context.Context, input string) action.Result {
	fields := strings.Fields(strings.TrimSpace(input))
	if len(fields) == 0 {
		return h.unknownForm(input)
	}

	switch strings.ToLower(fields[0]) {
	case "tables":
		if len(fields) != 1 {
			return h.unknownForm(input)
		}
		return h.tables(ctx)
	case "describe":
		if len(fields) != 2 {
			return h.unknownForm(input)
		}
		return h.describe(ctx, fields[1])
	case "sample":
		if len(fields) != 2 {
			return h.unknownForm(input)
		}
		return h.sample(ctx, fields[1])
	default:
		return h.unknownForm(input)
	}
}

func (h *Inspector) unknownForm(input string) action.Result {
	return action.Failure(action.FailureInput,
		fmt.Sprintf("unknown command %q; valid forms: tables, describe <table>, sample <table>", input))
}

func (h *Inspector) tables(ctx context.Context) action.Result {
	if data, ok := h.cached(ctx, "tables"); ok {
		return action.Success(data)
	}

	tables, err := h.exec.Tables(ctx)
	if err != nil {
		return action.Failure(action.FailureExecution, err.Error())
	}

	data, _ := json.Marshal(tables)
	h.store(ctx, "tables", data)
	return action.Success(string(data))
}

func (h *Inspector) describe(ctx context.Context, table string) action.Result {
	key := "describe:" + table
	if data, ok := h.cached(ctx, key); ok {
		return action.Success(data)
	}

	columns, err := h.exec.Describe(ctx, table)
	if err != nil {
		return action.Failure(action.FailureExecution, err.Error())
	}

	data, _ := json.Marshal(columns)
	h.store(ctx, key, data)
	return action.Success(string(data))
}

func (h *Inspector) sample(ctx context.Context, table string) action.Result {
	result, err := h.exec.Sample(ctx, table, sampleRows)
	if err != nil {
		return action.Failure(action.FailureExecution, err.Error())
	}

	data, _ := json.Marshal(result)
	return action.Success(string(data))
}

// cached reads a key from the cache, treating backend errors as misses.
func (h *Inspector) cached(ctx context.Context, key string) (string, bool) {
	if h.cache == nil {
		return "", false
	}
	value, found, err := h.cache.Get(ctx, key)
	if err != nil || !found {
		return "", false
	}
	return string(value), true
}

func (h *Inspector) store(ctx context.Context, key string, value []byte) {
	if h.cache == nil {
		return
	}
	// Cache failures must not fail introspection.
	_ = h.cache.Set(ctx, key, value, cacheTTL)
}
