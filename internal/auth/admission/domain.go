package admission

import "strings"

// defaultBlockedDomains applies when the operator configured no
// blocklist of their own.
var defaultBlockedDomains = []string{"gmail.com"}

// DomainBlocklist is the earlier-generation admission strategy:
// reject a user when their email domain appears on a blocklist.
type DomainBlocklist struct {
	blocked map[string]struct{}
}

// NewDomainBlocklist builds the policy. An empty domains list falls
// back to the default blocklist rather than admitting everything.
func NewDomainBlocklist(domains []string) *DomainBlocklist {
	if len(domains) == 0 {
		domains = defaultBlockedDomains
	}
	blocked := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		blocked[d] = struct{}{}
	}
	return &DomainBlocklist{blocked: blocked}
}

func (p *DomainBlocklist) Admit(email string, _ []string) error {
	domain := ExtractDomain(email)
	if _, ok := p.blocked[domain]; ok {
		return &DeniedError{Domain: domain}
	}
	return nil
}

// ExtractDomain returns the substring after the last "@". An email
// with no "@" is returned unchanged.
func ExtractDomain(email string) string {
	if i := strings.LastIndex(email, "@"); i >= 0 {
		return email[i+1:]
	}
	return email
}
