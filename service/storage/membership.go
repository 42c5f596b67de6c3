package storage

import "context"

// Membership is the durable bidirectional workspace <-> user mapping.
// Both directions are written by the same call so the referential
// symmetry invariant holds after every operation.
type Membership struct {
	store Store
}

func NewMembership(store Store) *Membership {
	return &Membership{store: store}
}

// Join adds the user to the workspace, both directions. Idempotent.
func (m *Membership) Join(ctx context.Context, userID, wsID string) error {
	if err := m.store.SAdd(ctx, workspaceUsersKey(wsID), userID); err != nil {
		return err
	}
	return m.store.SAdd(ctx, userWorkspacesKey(userID), wsID)
}

// Leave removes the user from the workspace, both directions. No error
// if not currently a member.
func (m *Membership) Leave(ctx context.Context, userID, wsID string) error {
	if err := m.store.SRem(ctx, workspaceUsersKey(wsID), userID); err != nil {
		return err
	}
	return m.store.SRem(ctx, userWorkspacesKey(userID), wsID)
}

// BulkInvite joins every listed user; the inviter need not be a member.
// First failure aborts the rest (callers treat it as best-effort).
func (m *Membership) BulkInvite(ctx context.Context, wsID string, userIDs []string) error {
	for _, uid := range userIDs {
		if err := m.Join(ctx, uid, wsID); err != nil {
			return err
		}
	}
	return nil
}

// Members lists the workspace's user ids.
func (m *Membership) Members(ctx context.Context, wsID string) ([]string, error) {
	return m.store.SMembers(ctx, workspaceUsersKey(wsID))
}

// Workspaces lists the user's workspace ids.
func (m *Membership) Workspaces(ctx context.Context, userID string) ([]string, error) {
	return m.store.SMembers(ctx, userWorkspacesKey(userID))
}
