package admission

// OrganizationAllowlist admits a user iff the allowed set is empty
// (open policy) or the user's groups intersect it. Membership is
// exact string equality: no case folding, no wildcards. Nil or
// absent groups are treated as an empty list, so a non-empty
// allowlist rejects users who belong to no organization at all.
type OrganizationAllowlist struct {
	allowed map[string]struct{}
}

func NewOrganizationAllowlist(orgs []string) *OrganizationAllowlist {
	allowed := make(map[string]struct{}, len(orgs))
	for _, org := range orgs {
		allowed[org] = struct{}{}
	}
	return &OrganizationAllowlist{allowed: allowed}
}

func (p *OrganizationAllowlist) Admit(_ string, groups []string) error {
	if len(p.allowed) == 0 {
		return nil
	}
	for _, g := range groups {
		if _, ok := p.allowed[g]; ok {
			return nil
		}
	}
	return &DeniedError{Groups: groups}
}

// Open reports whether the allowlist admits everyone. Used by the
// config diagnostic endpoint to render an explicit sentinel instead
// of an empty list.
func (p *OrganizationAllowlist) Open() bool {
	return len(p.allowed) == 0
}
