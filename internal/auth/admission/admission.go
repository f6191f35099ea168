// Package admission decides whether an otherwise-valid authenticated
// user is permitted to use an identity provider for this deployment.
// Policies make no user-visible formatting decisions; they return a
// DeniedError carrying the facts and leave wording to the provider.
package admission

import "strings"

// Policy is the admission strategy interface. Implementations must
// be pure: same inputs, same outcome, no I/O.
type Policy interface {
	// Admit returns nil when the user may authenticate, or a
	// *DeniedError describing why not.
	Admit(email string, groups []string) error
}

// DeniedError reports an admission rejection. Exactly one of Groups
// or Domain is meaningful depending on the policy that produced it.
type DeniedError struct {
	Groups []string
	Domain string
}

func (e *DeniedError) Error() string {
	return "admission denied: " + e.Detail()
}

// Detail renders the offending groups or domain for inclusion in the
// user-visible rejection message.
func (e *DeniedError) Detail() string {
	if e.Domain != "" {
		return e.Domain
	}
	if len(e.Groups) == 0 {
		return "no groups"
	}
	return strings.Join(e.Groups, ", ")
}

// SplitList parses a comma-separated configuration value into a list,
// trimming whitespace and dropping empty entries. An empty value
// yields an empty list.
func SplitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
