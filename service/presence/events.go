package presence

import (
	"encoding/json"

	decode "TeamSync/tools/decode"
	errs "TeamSync/tools/errs"
)

// Inbound event names; the closed set the dispatcher accepts.
const (
	EvtPing              = "ping"
	EvtJoinWorkspace     = "join_workspace"
	EvtInviteToWorkspace = "invite_to_workspace"
	EvtQuitWorkspace     = "quit_workspace"
	EvtMessage           = "message"
	EvtDeleteMessage     = "delete_message"
	EvtNotification      = "notification"
)

// Outbound event names.
const (
	EvtPong            = "pong"
	EvtMessageDeleted  = "message_deleted"
	EvtConnEstablished = "connection_established"
)

// Envelope is the wire frame: {"event": <name>, "data": <payload>}.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func ParseEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errs.ErrMalformedPayload.WrapMsg(err.Error())
	}
	if env.Event == "" {
		return nil, errs.ErrMalformedPayload.WrapMsg("missing event name")
	}
	return &env, nil
}

// WorkspaceRef is the common "which workspace" part of message-like
// payloads. Clients are inconsistent about the key spelling; both are
// accepted and normalized before decoding.
type WorkspaceRef struct {
	WorkspaceID string `json:"workspaceId"`
}

type InvitePayload struct {
	WorkspaceID string   `json:"workspaceId"`
	UserIDs     []string `json:"userIds"`
}

type NotificationPayload struct {
	WorkspaceID string   `json:"workspaceId"`
	Receivers   []string `json:"receivers"`
}

// decodeObject unmarshals the envelope data into a map (normalizing the
// workspace_id spelling) and mapstructure-decodes it into T. The map is
// also returned so message payloads can be forwarded verbatim.
func decodeObject[T any](data json.RawMessage) (*T, map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, nil, errs.ErrMalformedPayload.WrapMsg(err.Error())
	}
	normalizeKeys(m)
	out, err := decode.Map[T](m)
	if err != nil {
		return nil, nil, errs.ErrMalformedPayload.WrapMsg(err.Error())
	}
	return out, m, nil
}

// decodeWorkspaceID handles events whose data is either a bare workspace
// id string (the join/quit shape) or an object carrying one.
func decodeWorkspaceID(data json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" {
			return "", errs.ErrMalformedPayload.WrapMsg("empty workspace id")
		}
		return s, nil
	}
	ref, _, err := decodeObject[WorkspaceRef](data)
	if err != nil {
		return "", err
	}
	if ref.WorkspaceID == "" {
		return "", errs.ErrMalformedPayload.WrapMsg("missing workspace id")
	}
	return ref.WorkspaceID, nil
}

func normalizeKeys(m map[string]any) {
	if v, ok := m["workspace_id"]; ok {
		if _, has := m["workspaceId"]; !has {
			m["workspaceId"] = v
		}
	}
}
