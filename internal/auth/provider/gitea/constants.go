package gitea

// see https://docs.gitea.io/en-us/oauth2-provider/#endpoints
const (
	AuthorizeEndpoint   = "/login/oauth/authorize"
	AccessTokenEndpoint = "/login/oauth/access_token"
	UserInfoEndpoint    = "/login/oauth/userinfo"

	Scope = "email"

	DataVersion = "1"
)

// Option keys read through the injected config accessor. Each may be
// empty; disk values take priority over the environment.
const (
	OptionBaseURL              = "AUTH_GITEA_BASE_URL"
	OptionClientID             = "AUTH_GITEA_CLIENT_ID"
	OptionClientSecret         = "AUTH_GITEA_CLIENT_SECRET"
	OptionAllowedOrganizations = "AUTH_GITEA_ALLOWED_ORGANIZATIONS"

	// OptionAdmissionPolicy selects the admission strategy:
	// "organization" (default) or "domain".
	OptionAdmissionPolicy = "AUTH_GITEA_ADMISSION_POLICY"
	OptionBlockedDomains  = "AUTH_GITEA_BLOCKED_DOMAINS"

	// OptionRequireUsername controls the strict field policy. Set to
	// "false" to accept payloads without preferred_username.
	OptionRequireUsername = "AUTH_GITEA_REQUIRE_USERNAME"
)

// EnvSkipTLSVerify disables TLS verification for provider-facing
// requests. Insecure; intended only for self-signed internal
// deployments.
const EnvSkipTLSVerify = "GITEA_SKIP_TLS_VERIFY"

// User-visible error templates. errInvalidOrganization deliberately
// names the rejecting groups or domain so an operator can diagnose
// the denial; errInvalidResponse stays generic and the detail goes
// to the server log only.
const (
	errInvalidResponse     = "Unable to fetch user information from Gitea. Please check the log."
	errInvalidOrganization = "The organization for your Gitea account (%s) is not allowed to authenticate with this provider."
)
