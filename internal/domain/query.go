package domain

// Pagination bounds for list queries.
const (
	DefaultPageLimit = 30
	MaxPageLimit     = 100
)

// Filter narrows a catalog listing. Zero values match everything.
type Filter struct {
	Status       Status
	Type         string
	Source       string
	NameContains string
	// Tags are case-insensitive substrings; an entry matches only when every
	// pattern is satisfied by at least one of its tags.
	Tags []string
}

// Page is a limit/offset window.
type Page struct {
	Limit  int
	Offset int
}

// Normalize clamps the window: a non-positive limit takes the default, a
// limit above MaxPageLimit is capped and a negative offset becomes 0.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
