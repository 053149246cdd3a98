// Package conversation replays canned multi-agent conversations on a timer.
package conversation

import (
	"fmt"
	"strings"
)

// Role identifies who speaks a scripted message.
type Role int

const (
	RoleUser Role = iota
	RoleCoordinator
	RoleRetrieval
	RoleAgent

	roleCount
)

// Persona is the display identity of a role.
type Persona struct {
	Name  string
	Icon  string
	Color string
}

// personas is indexed by Role; the array length pins it to roleCount, so a
// new role without a persona fails to compile.
var personas = [roleCount]Persona{
	RoleUser:        {Name: "Usuario", Icon: "👤", Color: "#61dafb"},
	RoleCoordinator: {Name: "Coordinator", Icon: "🎯", Color: "#ff6b6b"},
	RoleRetrieval:   {Name: "RAG System", Icon: "📚", Color: "#2d8a5e"},
	RoleAgent:       {Name: "TaxAgent", Icon: "🤖", Color: "#D2FF00"},
}

var roleNames = [roleCount]string{
	RoleUser:        "user",
	RoleCoordinator: "coordinator",
	RoleRetrieval:   "retrieval",
	RoleAgent:       "agent",
}

// Roles lists every role in declaration order.
func Roles() []Role {
	roles := make([]Role, 0, roleCount)
	for r := Role(0); r < roleCount; r++ {
		roles = append(roles, r)
	}
	return roles
}

// Valid reports whether r is a declared role.
func (r Role) Valid() bool {
	return r >= 0 && r < roleCount
}

// Persona returns the display identity for the role.
func (r Role) Persona() Persona {
	if !r.Valid() {
		return Persona{Name: "?", Icon: "?"}
	}
	return personas[r]
}

func (r Role) String() string {
	if !r.Valid() {
		return fmt.Sprintf("role(%d)", int(r))
	}
	return roleNames[r]
}

// ParseRole maps a role tag to a Role. "rag" is accepted for retrieval.
func ParseRole(s string) (Role, error) {
	tag := strings.ToLower(strings.TrimSpace(s))
	if tag == "rag" {
		return RoleRetrieval, nil
	}
	for r := Role(0); r < roleCount; r++ {
		if roleNames[r] == tag {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
