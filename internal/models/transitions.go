package models

import "fmt"

// TerminalStateError is returned when a transition is requested out of a
// status that accepts no outgoing edges.
type TerminalStateError struct {
	Status BookingStatus
}

func (e *TerminalStateError) Error() string {
	return fmt.Sprintf("booking is %s and cannot change status", e.Status)
}

// InvalidTransitionError is returned when the requested edge does not exist
// or the acting role may not take it.
type InvalidTransitionError struct {
	From BookingStatus
	To   BookingStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// allowedTransitions maps each legal status edge to the roles that may take
// it. Drivers advance the lifecycle; customers may cancel any non-terminal
// booking they own. Statuses absent from the outer map are terminal.
var allowedTransitions = map[BookingStatus]map[BookingStatus][]UserRole{
	BookingStatusPending: {
		BookingStatusAccepted:  {RoleDriver},
		BookingStatusRejected:  {RoleDriver, RoleCustomer},
		BookingStatusCancelled: {RoleDriver, RoleCustomer},
	},
	BookingStatusAccepted: {
		BookingStatusInTransit: {RoleDriver},
		BookingStatusCancelled: {RoleCustomer},
	},
	BookingStatusInTransit: {
		BookingStatusCompleted: {RoleDriver},
		BookingStatusCancelled: {RoleCustomer},
	},
}

// ValidateTransition decides whether role may move a booking from one status
// to another. It is a pure function with no side effects.
func ValidateTransition(from, to BookingStatus, role UserRole) error {
	if from.IsTerminal() {
		return &TerminalStateError{Status: from}
	}
	roles, ok := allowedTransitions[from][to]
	if !ok {
		return &InvalidTransitionError{From: from, To: to}
	}
	for _, r := range roles {
		if r == role {
			return nil
		}
	}
	return &InvalidTransitionError{From: from, To: to}
}
