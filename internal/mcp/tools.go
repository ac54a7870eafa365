package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/pdfindex/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams     = -32602 // Invalid method parameters
	ErrorCodeInternalError     = -32603 // Internal JSON-RPC error
	ErrorCodeSourceNotFound    = -32001 // Source directory missing or not a directory
	ErrorCodeRebuildInProgress = -32002 // Another rebuild is already running
	ErrorCodeEmbeddingFailed   = -32003 // Embedding provider failed; record not advanced
	ErrorCodePersistenceFailed = -32004 // Vector store or record could not be written
)

// maxReportedFailures bounds the failed file list in tool responses
const maxReportedFailures = 20

// handleRebuildIndex handles the rebuild_index tool invocation
func (s *Server) handleRebuildIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	force, err := getBoolDefault(args, "force", false)
	if err != nil {
		return nil, err
	}

	if !s.lock.TryAcquire() {
		return nil, newMCPError(ErrorCodeRebuildInProgress, "rebuild already in progress", nil)
	}
	defer s.lock.Release()

	opts := s.opts
	opts.Force = force

	report, err := s.builder.Build(ctx, opts)
	if err != nil {
		s.logger.Error("rebuild failed", "err", err)
		return nil, buildError(err)
	}

	response := map[string]interface{}{
		"outcome":        string(report.Outcome),
		"mode":           string(report.Changes.Mode),
		"added":          len(report.Changes.Added),
		"modified":       len(report.Changes.Modified),
		"removed":        len(report.Changes.Removed),
		"unchanged":      len(report.Changes.Unchanged),
		"record_written": report.RecordWritten,
		"duration_ms":    report.Duration.Milliseconds(),
	}

	if t := report.Tally; t != nil {
		response["files_processed"] = t.Processed
		response["documents_removed"] = t.Removed
		response["chunks_written"] = t.Chunks
	}
	if report.ModelChanged {
		response["model_changed"] = true
	}

	failures := report.Failures()
	response["files_failed"] = len(failures)
	if len(failures) > 0 {
		failed := make([]string, 0, min(len(failures), maxReportedFailures))
		for _, f := range failures[:min(len(failures), maxReportedFailures)] {
			failed = append(failed, f.Path)
		}
		if len(failures) > maxReportedFailures {
			response["failed_count"] = len(failures)
		}
		response["failed_files"] = failed
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIndexStatus handles the index_status tool invocation
func (s *Server) handleIndexStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.builder.Status(ctx, s.opts)
	if err != nil {
		return nil, buildError(err)
	}

	response := map[string]interface{}{
		"rebuild_in_progress": s.lock.Held(),
		"status":              st,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// buildError maps pipeline errors to MCP error codes
func buildError(err error) error {
	data := map[string]interface{}{"error": err.Error()}

	switch {
	case errors.Is(err, types.ErrNotFound):
		return newMCPError(ErrorCodeSourceNotFound, "source directory not found", data)
	case errors.Is(err, types.ErrEmbeddingProvider):
		return newMCPError(ErrorCodeEmbeddingFailed, "embedding provider failed", data)
	case errors.Is(err, types.ErrPersistence):
		return newMCPError(ErrorCodePersistenceFailed, "persistence failed", data)
	default:
		return newMCPError(ErrorCodeInternalError, "rebuild failed", data)
	}
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// arguments returns the tool arguments; a call without arguments yields an empty map
func arguments(request mcp.CallToolRequest) (map[string]interface{}, error) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, nil
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	return args, nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) (bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return defaultValue, nil
	}
	val, ok := raw.(bool)
	if !ok {
		return false, newMCPError(ErrorCodeInvalidParams, key+" must be a boolean", map[string]interface{}{
			"param": key,
			"value": raw,
		})
	}
	return val, nil
}
