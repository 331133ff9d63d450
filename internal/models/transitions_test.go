package models

import (
	"errors"
	"testing"
)

// TestValidateTransition verifies the status transition table without a
// store or network.
func TestValidateTransition(t *testing.T) {
	cases := []struct {
		from, to BookingStatus
		role     UserRole
		want     bool
	}{
		// driver lifecycle happy path
		{BookingStatusPending, BookingStatusAccepted, RoleDriver, true},
		{BookingStatusAccepted, BookingStatusInTransit, RoleDriver, true},
		{BookingStatusInTransit, BookingStatusCompleted, RoleDriver, true},
		// pending may be declined by either side
		{BookingStatusPending, BookingStatusRejected, RoleDriver, true},
		{BookingStatusPending, BookingStatusRejected, RoleCustomer, true},
		{BookingStatusPending, BookingStatusCancelled, RoleDriver, true},
		{BookingStatusPending, BookingStatusCancelled, RoleCustomer, true},
		// customer cancel from every non-terminal state
		{BookingStatusAccepted, BookingStatusCancelled, RoleCustomer, true},
		{BookingStatusInTransit, BookingStatusCancelled, RoleCustomer, true},
		// wrong actor for the edge
		{BookingStatusPending, BookingStatusAccepted, RoleCustomer, false},
		{BookingStatusAccepted, BookingStatusInTransit, RoleCustomer, false},
		{BookingStatusInTransit, BookingStatusCompleted, RoleCustomer, false},
		{BookingStatusAccepted, BookingStatusCancelled, RoleDriver, false},
		{BookingStatusPending, BookingStatusAccepted, RoleUnset, false},
		// skipping states
		{BookingStatusPending, BookingStatusInTransit, RoleDriver, false},
		{BookingStatusPending, BookingStatusCompleted, RoleDriver, false},
		{BookingStatusPending, BookingStatusCompleted, RoleCustomer, false},
		{BookingStatusAccepted, BookingStatusCompleted, RoleDriver, false},
		// no going back
		{BookingStatusAccepted, BookingStatusPending, RoleDriver, false},
		{BookingStatusInTransit, BookingStatusAccepted, RoleDriver, false},
		// self loops
		{BookingStatusPending, BookingStatusPending, RoleDriver, false},
		{BookingStatusAccepted, BookingStatusAccepted, RoleDriver, false},
	}
	for _, tc := range cases {
		err := ValidateTransition(tc.from, tc.to, tc.role)
		if got := err == nil; got != tc.want {
			t.Errorf("ValidateTransition(%s, %s, %s) = %v, want allowed=%v",
				tc.from, tc.to, tc.role, err, tc.want)
		}
		if err != nil {
			var invalid *InvalidTransitionError
			if !errors.As(err, &invalid) {
				t.Errorf("ValidateTransition(%s, %s, %s): expected InvalidTransitionError, got %T",
					tc.from, tc.to, tc.role, err)
			}
		}
	}
}

// TestValidateTransitionTerminal checks every terminal state rejects every
// outgoing edge for every actor.
func TestValidateTransitionTerminal(t *testing.T) {
	terminals := []BookingStatus{BookingStatusCompleted, BookingStatusCancelled, BookingStatusRejected}
	targets := []BookingStatus{
		BookingStatusPending, BookingStatusAccepted, BookingStatusInTransit,
		BookingStatusCompleted, BookingStatusCancelled, BookingStatusRejected,
	}
	roles := []UserRole{RoleUnset, RoleCustomer, RoleDriver}

	for _, from := range terminals {
		for _, to := range targets {
			for _, role := range roles {
				err := ValidateTransition(from, to, role)
				var terminal *TerminalStateError
				if !errors.As(err, &terminal) {
					t.Errorf("ValidateTransition(%s, %s, %s) = %v, want TerminalStateError",
						from, to, role, err)
				}
			}
		}
	}
}
