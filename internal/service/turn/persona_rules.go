package turn

import (
	log "github.com/sirupsen/logrus"

	"github.com/fluentpal/tutor/backend/internal/model/chat"
	"github.com/fluentpal/tutor/backend/internal/model/persona"
)

// personaInput is what the persona rules look at.
type personaInput struct {
	requested string
	session   *chat.Session
	defaultID string
}

// personaChoice is the outcome of rule evaluation. Persist asks the caller to
// record the persona in session metadata.
type personaChoice struct {
	persona persona.Persona
	source  string
	persist bool
}

type personaRule struct {
	name  string
	apply func(store persona.Store, in personaInput) (personaChoice, bool)
}

// personaRules are evaluated top-down; the first match wins.
var personaRules = []personaRule{
	{name: "request", apply: fromRequest},
	{name: "session", apply: fromSession},
	{name: "default", apply: fromDefault},
}

func resolvePersona(store persona.Store, in personaInput) personaChoice {
	for _, rule := range personaRules {
		if choice, ok := rule.apply(store, in); ok {
			choice.source = rule.name
			return choice
		}
	}
	// fromDefault always matches
	return personaChoice{persona: store.Default(), source: "fallback"}
}

func fromRequest(store persona.Store, in personaInput) (personaChoice, bool) {
	if in.requested == "" {
		return personaChoice{}, false
	}
	p, ok := store.FindByID(in.requested)
	if !ok {
		log.WithField("persona", in.requested).Warn("unknown persona requested, ignoring")
		return personaChoice{}, false
	}
	persist := in.session != nil && in.session.Persona() != p.ID
	return personaChoice{persona: p, persist: persist}, true
}

func fromSession(store persona.Store, in personaInput) (personaChoice, bool) {
	if in.session == nil || in.session.Persona() == "" {
		return personaChoice{}, false
	}
	p, ok := store.FindByID(in.session.Persona())
	return personaChoice{persona: p}, ok
}

func fromDefault(store persona.Store, in personaInput) (personaChoice, bool) {
	p, ok := store.FindByID(in.defaultID)
	if !ok {
		p = store.Default()
	}
	persist := in.session != nil && in.session.Persona() == ""
	return personaChoice{persona: p, persist: persist}, true
}
