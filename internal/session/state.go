package session

import "github.com/dvir/roombill-client/internal/domain"

// Phase is the coarse lifecycle position of the session.
type Phase int

const (
	// PhaseBootstrapping is the launch window before persisted credentials
	// have been checked.
	PhaseBootstrapping Phase = iota
	PhaseSignedOut
	PhaseSignedIn
)

func (p Phase) String() string {
	switch p {
	case PhaseBootstrapping:
		return "bootstrapping"
	case PhaseSignedOut:
		return "signed_out"
	case PhaseSignedIn:
		return "signed_in"
	}
	return "unknown"
}

// ExpiryReason annotates a signed-out state with why the previous session
// ended. It is transient UI state, never persisted.
type ExpiryReason string

const ExpiryInactivity ExpiryReason = "inactivity"

// State is the authoritative client-side auth state. Token being non-empty is
// what "signed in" means; User may lag behind Token only while bootstrapping.
type State struct {
	Phase         Phase
	Token         string
	User          *domain.User
	View          domain.View
	Err           string
	ExpiredReason ExpiryReason

	// Degraded marks a signed-in state built from the cached profile
	// snapshot because the network was unreachable.
	Degraded bool
}

// Initial is the all-null launch state.
func Initial() State {
	return State{Phase: PhaseBootstrapping, View: domain.ViewClient}
}

// Event is a session transition input. Every state mutation goes through
// Reduce so each transition stays individually testable.
type Event interface{ isEvent() }

// SignedInEvent completes any authentication path, including a degraded
// bootstrap served from the cached snapshot.
type SignedInEvent struct {
	Token    string
	User     *domain.User
	Degraded bool
}

// SignedOutEvent tears the session down. Reason is empty for an explicit
// sign-out and ExpiryInactivity for a timeout. Err carries a user-visible
// message when the teardown came from an unreachable backend at bootstrap.
type SignedOutEvent struct {
	Reason ExpiryReason
	Err    string
}

// ProfileUpdatedEvent replaces the user payload after a refresh or profile
// mutation. The current view is kept; view changes are explicit.
type ProfileUpdatedEvent struct{ User *domain.User }

// ViewSwitchedEvent changes the active view without re-authenticating.
type ViewSwitchedEvent struct{ View domain.View }

// ErrorEvent records a failed user action without touching the session.
type ErrorEvent struct{ Message string }

// ExpiredClearedEvent acknowledges the "session expired" notice.
type ExpiredClearedEvent struct{}

func (SignedInEvent) isEvent()       {}
func (SignedOutEvent) isEvent()      {}
func (ProfileUpdatedEvent) isEvent() {}
func (ViewSwitchedEvent) isEvent()   {}
func (ErrorEvent) isEvent()          {}
func (ExpiredClearedEvent) isEvent() {}

// Reduce maps (state, event) to the next state.
func Reduce(s State, e Event) State {
	switch ev := e.(type) {
	case SignedInEvent:
		return State{
			Phase:    PhaseSignedIn,
			Token:    ev.Token,
			User:     ev.User,
			View:     domain.ViewForRoles(ev.User.Roles),
			Degraded: ev.Degraded,
		}
	case SignedOutEvent:
		return State{
			Phase:         PhaseSignedOut,
			View:          domain.ViewClient,
			Err:           ev.Err,
			ExpiredReason: ev.Reason,
		}
	case ProfileUpdatedEvent:
		if s.Phase != PhaseSignedIn {
			return s
		}
		s.User = ev.User
		s.Degraded = false
		return s
	case ViewSwitchedEvent:
		if s.Phase != PhaseSignedIn {
			return s
		}
		s.View = ev.View
		return s
	case ErrorEvent:
		s.Err = ev.Message
		return s
	case ExpiredClearedEvent:
		s.ExpiredReason = ""
		return s
	}
	return s
}
