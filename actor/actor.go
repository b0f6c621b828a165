// File: actor/actor.go
// Package actor implements the message-passing runtime: addresses,
// mailboxes, behaviors and the Action algebra a behavior returns.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package actor

// Address is a process-unique actor identifier. Addresses are minted from
// a monotonic counter and never reused, so a Send to an address whose
// actor died can only ever be dropped, never misdelivered.
type Address uint64

// None is the zero Address; no actor ever has it.
const None Address = 0

// Message is an ownership-transferable payload. Senders must not retain
// mutable references to what they send.
type Message = any

// Behavior handles one message against the actor's current state and
// returns the actions to apply. Behaviors must be fast and non-blocking:
// they run inside a worker's cooperative loop.
type Behavior func(state any, msg Message) []Action

// Action is the tagged result algebra of a receive invocation. Actions
// from one invocation are applied in order, atomically with respect to
// the actor's next message.
type Action interface {
	isAction()
}

// Mutate replaces the actor's state wholesale. State is never aliased or
// mutated in place; ownership moves with the value.
type Mutate struct {
	State any
}

// Spawn allocates a fresh actor with its own address and mailbox. When
// Notify is set, the runtime delivers Notify(childAddress) to the acting
// actor's own mailbox so the parent learns where its child lives.
type Spawn struct {
	Init    any
	Receive Behavior
	Notify  func(Address) Message
}

// Send enqueues Msg on Target's mailbox. Delivery to a dead address is
// dropped and counted, never surfaced to the sender.
type Send struct {
	Target Address
	Source Address
	Msg    Message
}

// Become replaces the actor's behavior for messages after the current one.
type Become struct {
	Receive Behavior
}

func (Mutate) isAction() {}
func (Spawn) isAction()  {}
func (Send) isAction()   {}
func (Become) isAction() {}
