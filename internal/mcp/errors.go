package mcp

import "fmt"

// ConnectionError indicates the tool host process or its transport failed.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("tool host connection error: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// InvocationError indicates a tool call failed at the protocol level, for
// example an unknown tool name or malformed arguments. Failures reported by
// the tool itself arrive as a CallToolResult with IsError set instead.
type InvocationError struct {
	Tool string
	Err  error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("tool %q invocation failed: %v", e.Tool, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}
