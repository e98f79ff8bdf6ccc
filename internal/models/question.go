// internal/models/question.go
package models

import "strings"

// Role is the caller's relationship to the garage.
type Role int

const (
	RoleUnknown Role = iota
	RoleAdmin
	RoleMechanic
	RoleClient
)

// Level is the caller's self-declared experience.
type Level int

const (
	LevelUnknown Level = iota
	LevelBeginner
	LevelIntermediate
	LevelExpert
)

var roleNames = map[string]Role{
	"admin":      RoleAdmin,
	"mechanic":   RoleMechanic,
	"mecanicien": RoleMechanic,
	"client":     RoleClient,
}

var levelNames = map[string]Level{
	"beginner":      LevelBeginner,
	"debutant":      LevelBeginner,
	"intermediate":  LevelIntermediate,
	"intermediaire": LevelIntermediate,
	"expert":        LevelExpert,
}

// ParseRole maps a caller-supplied role string onto Role.
func ParseRole(s string) Role {
	if r, ok := roleNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return r
	}
	return RoleUnknown
}

// ParseLevel maps a caller-supplied level string onto Level.
func ParseLevel(s string) Level {
	if l, ok := levelNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return l
	}
	return LevelUnknown
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleMechanic:
		return "mechanic"
	case RoleClient:
		return "client"
	}
	return "unknown"
}

func (l Level) String() string {
	switch l {
	case LevelBeginner:
		return "beginner"
	case LevelIntermediate:
		return "intermediate"
	case LevelExpert:
		return "expert"
	}
	return "unknown"
}

// Question is the immutable input of one answer request.
type Question struct {
	Text  string `json:"text"`
	Role  Role   `json:"-"`
	Level Level  `json:"-"`
}

// NewQuestion builds a Question from raw transport values.
func NewQuestion(text, role, level string) Question {
	return Question{
		Text:  strings.TrimSpace(text),
		Role:  ParseRole(role),
		Level: ParseLevel(level),
	}
}
