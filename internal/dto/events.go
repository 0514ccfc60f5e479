package dto

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"codybuddy/internal/domain"
)

// Inbound event names
const (
	EventJoinRoom         = "joinRoom"
	EventCodeChange       = "code-change"
	EventLanguageChange   = "language-change"
	EventRunCode          = "run-code"
	EventSaveSnapshot     = "save-snapshot"
	EventGetSnapshots     = "get-snapshots"
	EventRevertToSnapshot = "revert-to-snapshot"
)

// Outbound event names. code-change and language-change are shared with the inbound set.
const (
	EventUserJoined     = "userJoined"
	EventUserLeft       = "userLeft"
	EventCodeOutput     = "code-output"
	EventSnapshotSaved  = "snapshot-saved"
	EventSnapshotError  = "snapshot-error"
	EventSnapshotsList  = "snapshots-list"
	EventSnapshotsError = "snapshots-error"
	EventError          = "error"
)

// ErrMalformedFrame is returned for frames that are not a JSON object with an event name
var ErrMalformedFrame = errors.New("malformed frame")

// Envelope is the frame format in both directions
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// ParseEnvelope peeks the event name of a raw frame and returns it with the raw data object
func ParseEnvelope(raw []byte) (string, []byte, error) {
	if !gjson.ValidBytes(raw) {
		return "", nil, ErrMalformedFrame
	}
	event := gjson.GetBytes(raw, "event")
	if event.Type != gjson.String || event.Str == "" {
		return "", nil, ErrMalformedFrame
	}
	data := gjson.GetBytes(raw, "data")
	if !data.Exists() || data.Type == gjson.Null {
		return event.Str, []byte("{}"), nil
	}
	if !data.IsObject() {
		return "", nil, fmt.Errorf("%w: data of %s is not an object", ErrMalformedFrame, event.Str)
	}
	return event.Str, []byte(data.Raw), nil
}

// Decode unmarshals an event's data object into v
func Decode(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return nil
}

// Encode builds an outbound frame
func Encode(event string, data interface{}) ([]byte, error) {
	return json.Marshal(Envelope{Event: event, Data: data})
}

// --- inbound payloads ---

type JoinRoomRequest struct {
	RoomID   string `json:"roomId"`
	UserName string `json:"userName"`
}

type CodeChangeRequest struct {
	RoomID   string `json:"roomId"`
	Code     string `json:"code"`
	Language string `json:"language,omitempty"`
}

type LanguageChangeRequest struct {
	RoomID   string `json:"roomId"`
	Language string `json:"language"`
}

// RunCodeRequest carries the provider's numeric language id
type RunCodeRequest struct {
	Code       string
	LanguageID int
}

// DecodeRunCode reads a run-code payload. Clients send languageId as a number or as a
// numeric string; both are accepted.
func DecodeRunCode(data []byte) (RunCodeRequest, error) {
	lang := gjson.GetBytes(data, "languageId")
	if !lang.Exists() {
		return RunCodeRequest{}, fmt.Errorf("%w: run-code without languageId", ErrMalformedFrame)
	}
	id := lang.Int()
	if id <= 0 {
		return RunCodeRequest{}, fmt.Errorf("%w: invalid languageId %q", ErrMalformedFrame, lang.Raw)
	}
	return RunCodeRequest{
		Code:       gjson.GetBytes(data, "code").String(),
		LanguageID: int(id),
	}, nil
}

type SaveSnapshotRequest struct {
	RoomID   string `json:"roomId"`
	Code     string `json:"code"`
	UserName string `json:"userName"`
}

type GetSnapshotsRequest struct {
	RoomID string `json:"roomId"`
}

type RevertToSnapshotRequest struct {
	RoomID     string `json:"roomId"`
	SnapshotID string `json:"snapshotId"`
}

// --- outbound payloads ---

type UserJoinedPayload struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Message  string `json:"message"`
}

type UserLeftPayload struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

type CodePayload struct {
	Code string `json:"code"`
}

type LanguagePayload struct {
	Language string `json:"language"`
}

type MessagePayload struct {
	Message string `json:"message"`
}

type SnapshotsPayload struct {
	Snapshots []domain.Snapshot `json:"snapshots"`
}

// NewUserJoined builds the userJoined payload
func NewUserJoined(connID, userName string) UserJoinedPayload {
	return UserJoinedPayload{
		UserID:   connID,
		UserName: userName,
		Message:  fmt.Sprintf("%s has joined the room", userName),
	}
}

// NewUserLeft builds the userLeft payload
func NewUserLeft(connID string) UserLeftPayload {
	return UserLeftPayload{
		UserID:  connID,
		Message: fmt.Sprintf("User %s has left the room.", connID),
	}
}
