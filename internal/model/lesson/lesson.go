// Package lesson holds the starter lessons: fixed trigger phrases that are answered
// with a canned introduction and that layer a teaching mode onto the active persona.
package lesson

import "strings"

// Starter describes one starter lesson.
type Starter struct {
	Trigger      string `json:"trigger"`
	Response     string `json:"-"`
	Mode         string `json:"mode"`
	SystemPrompt string `json:"-"`
}

// Seed returns the built-in starter lessons.
func Seed() []Starter {
	return []Starter{
		{
			Trigger:      "Quiero obtener retroalimentación",
			Mode:         "feedback",
			Response:     "¡Claro que sí! Estoy listo para ayudarte a mejorar. Envíame el texto o el audio que quieres que revise, o simplemente empieza a hablar y te iré corrigiendo.",
			SystemPrompt: "Focus explicitly on giving feedback. Correct grammar and pronunciation errors politely but clearly, and explain why each one was an error.",
		},
		{
			Trigger:      "Quiero aprender ingles basico",
			Mode:         "basic",
			Response:     "¡Excelente! Empecemos con lo básico. ¿Qué tal si practicamos saludos y presentaciones? Repite después de mí: 'Hello, my name is...'. ¡Inténtalo!",
			SystemPrompt: "TEACHING CONTEXT: the user is a BEGINNER (A1). Give every instruction, correction and word of encouragement IN SPANISH. Only use English for the exact words or phrases the student has to learn. Do not hold a conversation in English yet.",
		},
		{
			Trigger:      "Quiero aprender ingles elemental",
			Mode:         "elementary",
			Response:     "¡Great choice! Vamos a subir un pequeño escalón. Hablemos de tus rutinas diarias o tus hobbies. Tell me, what do you usually do in the mornings?",
			SystemPrompt: "TEACHING CONTEXT: the user is ELEMENTARY (A2). Use mostly SPANISH for complex explanations and simple English for questions and basic conversation. Check that the user understands before moving on.",
		},
		{
			Trigger:      "Quiero aprender ingles Intermedio",
			Mode:         "intermediate",
			Response:     "Awesome! Let's practice conversing more naturally. We could talk about travel, work or your opinions. What topic interests you today?",
			SystemPrompt: "TEACHING CONTEXT: the user is INTERMEDIATE (B1/B2). Challenge them with opinions, future plans and conditionals, and speak at a normal conversational pace.",
		},
	}
}

// Registry resolves starter lessons by trigger phrase or mode tag.
type Registry struct {
	byTrigger map[string]Starter
	byMode    map[string]Starter
	ordered   []Starter
}

// NewRegistry indexes the supplied starters. Triggers are trimmed before indexing.
func NewRegistry(starters []Starter) *Registry {
	r := &Registry{
		byTrigger: make(map[string]Starter, len(starters)),
		byMode:    make(map[string]Starter, len(starters)),
	}
	for _, s := range starters {
		s.Trigger = strings.TrimSpace(s.Trigger)
		if s.Trigger == "" {
			continue
		}
		r.byTrigger[s.Trigger] = s
		if _, exists := r.byMode[s.Mode]; !exists {
			r.byMode[s.Mode] = s
		}
		r.ordered = append(r.ordered, s)
	}
	return r
}

// Match returns the starter whose trigger equals the trimmed text exactly.
func (r *Registry) Match(text string) (Starter, bool) {
	s, ok := r.byTrigger[strings.TrimSpace(text)]
	return s, ok
}

// FindByMode returns the first starter registered for mode.
func (r *Registry) FindByMode(mode string) (Starter, bool) {
	if mode == "" {
		return Starter{}, false
	}
	s, ok := r.byMode[mode]
	return s, ok
}

// List returns the starters in registration order.
func (r *Registry) List() []Starter {
	return append([]Starter(nil), r.ordered...)
}
