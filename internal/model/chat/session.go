package chat

import "time"

// Metadata keys stored on a session.
const (
	MetaPersona = "persona"
	MetaMode    = "mode"
)

// Session is a persisted conversation owned by an authenticated user.
type Session struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	Title     string            `json:"title"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// Persona returns the persona key recorded in metadata, if any.
func (s Session) Persona() string {
	return s.Metadata[MetaPersona]
}

// Mode returns the starter-lesson mode recorded in metadata, if any.
func (s Session) Mode() string {
	return s.Metadata[MetaMode]
}
