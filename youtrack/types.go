package youtrack

import "encoding/xml"

// User represents a YouTrack user account
type User struct {
	XMLName  xml.Name `json:"-" xml:"user"`
	Username string   `json:"login,omitempty" xml:"login,attr,omitempty"`
	FullName string   `json:"fullName" xml:"fullName,attr"`
	Email    string   `json:"email" xml:"email,attr"`
}

// GetDisplayName returns the best available display name for the user
func (u *User) GetDisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

// Filter is a saved search: a name bound to a query string
type Filter struct {
	Name  string `json:"name" xml:"name,attr"`
	Query string `json:"query" xml:"query,attr"`
}

// Envelope is implemented by response types whose only job is to wrap a
// list of inner records.
type Envelope[T any] interface {
	Items() []T
}

// MultipleFilters is the envelope returned by user/filters/{login}
type MultipleFilters struct {
	XMLName xml.Name `json:"-" xml:"queries"`
	Filters []Filter `json:"query" xml:"query"`
}

// Items returns the wrapped filters
func (m MultipleFilters) Items() []Filter {
	return m.Filters
}
