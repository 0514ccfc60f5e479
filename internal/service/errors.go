package service

import "errors"

var (
	ErrInvalidEvent     = errors.New("invalid event data")
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrCodeNotFound     = errors.New("code not found")
	ErrMissingAPIKey    = errors.New("compiler api key is missing")
	ErrExecutionFailed  = errors.New("code execution failed")
	ErrExecutionTimeout = errors.New("code execution did not finish in time")
	ErrInternalServer   = errors.New("internal server error")
)

// User-facing texts sent back over the socket.
const (
	MsgMissingAPIKey    = "Error: Compiler API key is missing."
	MsgExecutionFailed  = "Error running code. Please check your code or server logs."
	MsgSnapshotSaved    = "Snapshot saved successfully!"
	MsgSnapshotFailed   = "Failed to save snapshot."
	MsgSnapshotsFailed  = "Failed to fetch snapshots."
	MsgSnapshotNotFound = "Snapshot not found."
	MsgRevertFailed     = "Failed to revert to snapshot."
)
