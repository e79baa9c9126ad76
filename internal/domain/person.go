package domain

import "fmt"

// Role is a capacity a person holds within a lobby or game
type Role string

const (
	RoleOrganizer Role = "ORGANIZER"
	RolePlayer    Role = "PLAYER"
	RoleInvitee   Role = "INVITEE"
)

var roleOrder = []Role{RoleOrganizer, RolePlayer, RoleInvitee}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	for _, known := range roleOrder {
		if r == known {
			return true
		}
	}
	return false
}

// Person is one identity taking part in a lobby or game
type Person struct {
	Identifier string
	Automate   bool
	roles      map[Role]bool
}

// NewPerson creates a person holding roles
func NewPerson(identifier string, automate bool, roles ...Role) *Person {
	p := &Person{Identifier: identifier, Automate: automate, roles: make(map[Role]bool)}
	for _, r := range roles {
		p.roles[r] = true
	}
	return p
}

// Has reports whether the person holds role
func (p *Person) Has(role Role) bool {
	return p.roles[role]
}

// Roles returns the held roles in a fixed order
func (p *Person) Roles() []Role {
	out := make([]Role, 0, len(p.roles))
	for _, r := range roleOrder {
		if p.roles[r] {
			out = append(out, r)
		}
	}
	return out
}

func (p *Person) clone() *Person {
	return NewPerson(p.Identifier, p.Automate, p.Roles()...)
}

// PersonGroup is an insertion-ordered set of people keyed by identifier
type PersonGroup struct {
	people []*Person
}

// NewPersonGroup builds a group, keeping the first entry for repeated identifiers
func NewPersonGroup(people ...*Person) *PersonGroup {
	g := &PersonGroup{}
	for _, p := range people {
		if _, ok := g.Find(p.Identifier); !ok {
			g.people = append(g.people, p)
		}
	}
	return g
}

// Find looks up a person by identifier
func (g *PersonGroup) Find(identifier string) (*Person, bool) {
	for _, p := range g.people {
		if p.Identifier == identifier {
			return p, true
		}
	}
	return nil, false
}

// MustFind looks up a person that is required to exist
func (g *PersonGroup) MustFind(identifier string) (*Person, error) {
	p, ok := g.Find(identifier)
	if !ok {
		return nil, fmt.Errorf("%w: person %s", ErrNotFound, identifier)
	}
	return p, nil
}

// FindOrCreate returns the existing person or appends a new one with no roles
func (g *PersonGroup) FindOrCreate(identifier string, automate bool) *Person {
	if p, ok := g.Find(identifier); ok {
		return p
	}
	p := NewPerson(identifier, automate)
	g.people = append(g.people, p)
	return p
}

// ByRole returns the people holding role in insertion order
func (g *PersonGroup) ByRole(role Role) []*Person {
	var out []*Person
	for _, p := range g.people {
		if p.Has(role) {
			out = append(out, p)
		}
	}
	return out
}

// AddRole grants role, creating the person if needed
func (g *PersonGroup) AddRole(identifier string, role Role) *Person {
	p := g.FindOrCreate(identifier, false)
	p.roles[role] = true
	return p
}

// RemoveRole revokes role. Unknown identifiers are ignored.
func (g *PersonGroup) RemoveRole(identifier string, role Role) {
	if p, ok := g.Find(identifier); ok {
		delete(p.roles, role)
	}
}

// Remove drops the person entirely and reports whether they were present
func (g *PersonGroup) Remove(identifier string) bool {
	for i, p := range g.people {
		if p.Identifier == identifier {
			g.people = append(g.people[:i], g.people[i+1:]...)
			return true
		}
	}
	return false
}

// Organizer is the first person holding ORGANIZER, falling back to the
// first person in the group.
func (g *PersonGroup) Organizer() (*Person, bool) {
	if organizers := g.ByRole(RoleOrganizer); len(organizers) > 0 {
		return organizers[0], true
	}
	if len(g.people) > 0 {
		return g.people[0], true
	}
	return nil, false
}

// All returns every person in insertion order
func (g *PersonGroup) All() []*Person {
	return append([]*Person(nil), g.people...)
}

// Len returns the number of people
func (g *PersonGroup) Len() int {
	return len(g.people)
}

// Clone returns a deep copy
func (g *PersonGroup) Clone() *PersonGroup {
	out := &PersonGroup{people: make([]*Person, len(g.people))}
	for i, p := range g.people {
		out.people[i] = p.clone()
	}
	return out
}
