// Package disambiguation resolves the effective intent when classification
// alone is inconclusive, using the caller's conversational state.
package disambiguation

import (
	"doc-assistant-be/pkg/nlp/entity"
	"doc-assistant-be/pkg/nlp/intent"
)

// State is what the policy needs to know about the conversation.
type State interface {
	HasActiveDocument() bool
}

// Decision is the effective command to dispatch.
type Decision struct {
	Intent   intent.Intent
	Entities entity.Entities
	Fallback bool // true when an unknown utterance was promoted to add_text
}

type Policy struct {
	defaultSection string
}

func NewPolicy(defaultSection string) *Policy {
	if defaultSection == "" {
		defaultSection = "body"
	}
	return &Policy{defaultSection: defaultSection}
}

// Resolve promotes free text to add_text while a document is being edited.
// Without an active document, unknown stays unknown.
func (p *Policy) Resolve(in intent.Intent, entities entity.Entities, utterance string, state State) Decision {
	if in == intent.Unknown && state != nil && state.HasActiveDocument() {
		return Decision{
			Intent: intent.AddText,
			Entities: entity.Entities{
				entity.Content: utterance,
				entity.Section: p.defaultSection,
			},
			Fallback: true,
		}
	}

	if entities == nil {
		entities = entity.Entities{}
	}
	return Decision{Intent: in, Entities: entities}
}
