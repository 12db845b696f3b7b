package domain

import "github.com/google/uuid"

type Capability string

const (
	// account and journal administration
	CapManaging Capability = "managing"
	// editorial decisions: opening review rounds, adjudging, withdrawing published theses
	CapPublishing Capability = "publishing"
	// reading and removing any review or comment
	CapModerating Capability = "moderating"
)

func (c Capability) Valid() bool {
	switch c {
	case CapManaging, CapPublishing, CapModerating:
		return true
	}
	return false
}

// Actor is the caller of every core operation. It is resolved by the transport
// layer and passed in explicitly; the engine never looks up sessions itself.
type Actor struct {
	Id           UserId
	Capabilities []Capability
}

// Anonymous is an unauthenticated reader.
var Anonymous = Actor{Id: uuid.Nil}

func NewActor(id UserId, caps ...Capability) Actor {
	return Actor{Id: id, Capabilities: caps}
}

func (a Actor) IsAnonymous() bool {
	return a.Id == uuid.Nil
}

func (a Actor) Permitted(c Capability) bool {
	for _, have := range a.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// IsEditor is shorthand for the publishing capability.
func (a Actor) IsEditor() bool {
	return a.Permitted(CapPublishing)
}
