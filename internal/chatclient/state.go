package chatclient

import (
	"github.com/qmuntal/stateless"
)

// Conversation lifecycle states. A conversation is Unidentified until the
// server has acknowledged it with a durable identifier; it only ever
// advances on confirmed acknowledgment, never on a failed call.
type ConversationState stateless.State

var (
	StateUnidentified ConversationState = "Unidentified"
	StateIdentified   ConversationState = "Identified"
)

// Lifecycle triggers.
type ConversationTrigger stateless.Trigger

var (
	// TriggerSendAcknowledged fires when a send round-trips successfully and
	// the response carries the durable conversation identifier.
	TriggerSendAcknowledged ConversationTrigger = "SendAcknowledged"
	// TriggerConversationSelected fires when the user opens an existing
	// conversation from the list.
	TriggerConversationSelected ConversationTrigger = "ConversationSelected"
	// TriggerConversationDeleted fires when the currently open conversation
	// is confirmed deleted server-side.
	TriggerConversationDeleted ConversationTrigger = "ConversationDeleted"
	// TriggerNewConversation fires on the local-only "new chat" action.
	TriggerNewConversation ConversationTrigger = "NewConversation"
)

// newLifecycle builds the conversation lifecycle state machine.
func newLifecycle() *stateless.StateMachine {
	fsm := stateless.NewStateMachine(StateUnidentified)

	fsm.Configure(StateUnidentified).
		PermitReentry(TriggerNewConversation).
		Permit(TriggerSendAcknowledged, StateIdentified).
		Permit(TriggerConversationSelected, StateIdentified)

	fsm.Configure(StateIdentified).
		PermitReentry(TriggerSendAcknowledged).
		PermitReentry(TriggerConversationSelected).
		Permit(TriggerConversationDeleted, StateUnidentified).
		Permit(TriggerNewConversation, StateUnidentified)

	return fsm
}
