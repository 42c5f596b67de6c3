package storage

import (
	"fmt"
	"strings"
)

// Key shapes shared with the rest of the platform; do not change without
// a data migration.
//
//	user:{userId}:sockets            set of connection ids
//	user:{userId}:lastseen           hash conn id -> unix ms
//	user:{userId}:workspaces         set of workspace ids
//	workspace:{wsId}:users           set of user ids
//	workspace:{wsId}:unread:{userId} pending-delivery list

func userSocketsKey(userID string) string { return "user:" + userID + ":sockets" }

func userLastSeenKey(userID string) string { return "user:" + userID + ":lastseen" }

func userWorkspacesKey(userID string) string { return "user:" + userID + ":workspaces" }

func workspaceUsersKey(wsID string) string { return "workspace:" + wsID + ":users" }

func unreadKey(wsID, userID string) string {
	return fmt.Sprintf("workspace:%s:unread:%s", wsID, userID)
}

const userSocketsPattern = "user:*:sockets"

// userFromSocketsKey recovers the user id from a user:{id}:sockets key.
// User ids never contain ':'; everything between the fixed prefix and
// suffix is the id.
func userFromSocketsKey(key string) (string, bool) {
	if !strings.HasPrefix(key, "user:") || !strings.HasSuffix(key, ":sockets") {
		return "", false
	}
	id := key[len("user:") : len(key)-len(":sockets")]
	if id == "" {
		return "", false
	}
	return id, true
}
