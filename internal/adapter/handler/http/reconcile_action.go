package http

import "fmt"

// reconcileAction is the closed set of reconcile commands.
type reconcileAction int

const (
	actionFindCompletedSessions reconcileAction = iota
	actionProcessSession
	actionProcessPending
)

func parseReconcileAction(s string) (reconcileAction, error) {
	switch s {
	case "find_completed_sessions":
		return actionFindCompletedSessions, nil
	case "process_session":
		return actionProcessSession, nil
	case "process_pending":
		return actionProcessPending, nil
	default:
		return 0, fmt.Errorf("unknown reconcile action: %q", s)
	}
}
