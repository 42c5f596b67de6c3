package presence

import (
	"context"
	"encoding/json"

	errs "TeamSync/tools/errs"
)

// pingHandler refreshes last-activity and replies with the server time.
// Pure freshness signal; delivery is unaffected.
type pingHandler struct{ s *Service }

func (h *pingHandler) Event() string { return EvtPing }

func (h *pingHandler) Handle(ctx context.Context, c *Conn, _ json.RawMessage) error {
	now := h.s.admission.Touch(ctx, c.UserID, c.ID)
	return c.Push(BuildPong(now))
}

type joinHandler struct{ s *Service }

func (h *joinHandler) Event() string { return EvtJoinWorkspace }

func (h *joinHandler) Handle(ctx context.Context, c *Conn, data json.RawMessage) error {
	wsID, err := decodeWorkspaceID(data)
	if err != nil {
		return err
	}
	return h.s.membership.Join(ctx, c.UserID, wsID)
}

type inviteHandler struct{ s *Service }

func (h *inviteHandler) Event() string { return EvtInviteToWorkspace }

func (h *inviteHandler) Handle(ctx context.Context, c *Conn, data json.RawMessage) error {
	p, _, err := decodeObject[InvitePayload](data)
	if err != nil {
		return err
	}
	if p.WorkspaceID == "" || len(p.UserIDs) == 0 {
		return errs.ErrMalformedPayload.WrapMsg("invite needs workspaceId and userIds")
	}
	return h.s.membership.BulkInvite(ctx, p.WorkspaceID, p.UserIDs)
}

type quitHandler struct{ s *Service }

func (h *quitHandler) Event() string { return EvtQuitWorkspace }

func (h *quitHandler) Handle(ctx context.Context, c *Conn, data json.RawMessage) error {
	wsID, err := decodeWorkspaceID(data)
	if err != nil {
		return err
	}
	return h.s.membership.Leave(ctx, c.UserID, wsID)
}

// messageHandler fans a chat message out to the workspace; offline
// members get it buffered. The sender's own connections receive it too,
// matching the platform's echo behavior.
type messageHandler struct{ s *Service }

func (h *messageHandler) Event() string { return EvtMessage }

func (h *messageHandler) Handle(ctx context.Context, c *Conn, data json.RawMessage) error {
	ref, m, err := decodeObject[WorkspaceRef](data)
	if err != nil {
		return err
	}
	if ref.WorkspaceID == "" {
		return errs.ErrMalformedPayload.WrapMsg("message missing workspace id")
	}
	payload, _ := json.Marshal(m)
	h.s.router.Deliver(ctx, ref.WorkspaceID, payload, "")
	return nil
}

// deleteHandler fans out message_deleted. Never buffered.
type deleteHandler struct{ s *Service }

func (h *deleteHandler) Event() string { return EvtDeleteMessage }

func (h *deleteHandler) Handle(ctx context.Context, c *Conn, data json.RawMessage) error {
	ref, m, err := decodeObject[WorkspaceRef](data)
	if err != nil {
		return err
	}
	if ref.WorkspaceID == "" {
		return errs.ErrMalformedPayload.WrapMsg("delete missing workspace id")
	}
	payload, _ := json.Marshal(m)
	h.s.router.DeliverDelete(ctx, ref.WorkspaceID, payload)
	return nil
}

// notificationHandler fans out to receivers plus workspace members.
// Never buffered.
type notificationHandler struct{ s *Service }

func (h *notificationHandler) Event() string { return EvtNotification }

func (h *notificationHandler) Handle(ctx context.Context, c *Conn, data json.RawMessage) error {
	p, m, err := decodeObject[NotificationPayload](data)
	if err != nil {
		return err
	}
	if p.WorkspaceID == "" && len(p.Receivers) == 0 {
		return errs.ErrMalformedPayload.WrapMsg("notification needs receivers or workspace")
	}
	payload, _ := json.Marshal(m)
	h.s.router.Notify(ctx, p.WorkspaceID, p.Receivers, payload)
	return nil
}
