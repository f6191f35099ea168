package gitea

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/ttys3/gitea-sso/internal/auth/pipeline"
	"github.com/ttys3/gitea-sso/internal/config"
)

func testProvider(opts config.Static) *Provider {
	return New(opts, "https://sso.example.com/oauth/callback/gitea")
}

func TestAuthCodeURLParams(t *testing.T) {
	p := testProvider(config.Static{
		OptionBaseURL:  "https://git.example.com",
		OptionClientID: "client-123",
	})

	u, err := url.Parse(p.AuthCodeURL("state-abc"))
	require.NoError(t, err)

	assert.Equal(t, "https", u.Scheme)
	assert.Equal(t, "git.example.com", u.Host)
	assert.Equal(t, AuthorizeEndpoint, u.Path)

	q := u.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "client-123", q.Get("client_id"))
	assert.Equal(t, "state-abc", q.Get("state"))
	assert.Equal(t, Scope, q.Get("scope"))
	assert.Equal(t, "https://sso.example.com/oauth/callback/gitea", q.Get("redirect_uri"))

	// Hardened extensions: always present regardless of config.
	assert.Equal(t, "force", q.Get("approval_prompt"))
	assert.Equal(t, "offline", q.Get("access_type"))
}

func TestAuthCodeURLParamsEmptyConfig(t *testing.T) {
	p := testProvider(config.Static{
		OptionBaseURL:  "https://git.example.com",
		OptionClientID: "",
	})

	u, err := url.Parse(p.AuthCodeURL("s"))
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "force", q.Get("approval_prompt"))
	assert.Equal(t, "offline", q.Get("access_type"))
}

// userinfoServer serves a fixed status and body on the userinfo
// endpoint and records the Authorization header it saw.
func userinfoServer(t *testing.T, status int, body string) (*httptest.Server, *string) {
	t.Helper()
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UserInfoEndpoint, r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &gotAuth
}

func fetchState() *pipeline.State {
	return &pipeline.State{
		Provider: "gitea",
		Token:    &oauth2.Token{AccessToken: "tok-123"},
	}
}

const validPayload = `{
	"sub": "1",
	"name": "MyDisplayName",
	"preferred_username": "ttys3",
	"email": "admin@example.com",
	"picture": "https://git.example.com/avatar/x",
	"groups": ["devops", "devops:owners"]
}`

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// The boundary cases use a fake transport: a real server cannot emit
// 1xx final statuses, Go's client treats those as informational.
func TestFetchUserStatusBoundary(t *testing.T) {
	tests := []struct {
		status int
		ok     bool
	}{
		{199, false},
		{200, true},
		{299, true},
		{300, false},
		{401, false},
		{500, false},
	}

	for _, tt := range tests {
		var gotAuth string
		p := testProvider(config.Static{OptionBaseURL: "https://git.example.com"})
		p.http = &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			gotAuth = r.Header.Get("Authorization")
			return &http.Response{
				StatusCode: tt.status,
				Header:     http.Header{},
				Body:       io.NopCloser(strings.NewReader(validPayload)),
			}, nil
		})}

		st := fetchState()
		res := p.fetchUser(context.Background(), st)

		assert.Equal(t, "token tok-123", gotAuth)
		if tt.ok {
			assert.False(t, res.Terminal(), "status %d should proceed", tt.status)
			require.NotNil(t, st.User)
			assert.Equal(t, "1", st.User.Sub)
		} else {
			assert.True(t, res.Terminal(), "status %d should fail", tt.status)
			assert.Equal(t, errInvalidResponse, res.Message())
			assert.Nil(t, st.User)
		}
	}
}

func TestFetchUserTransportError(t *testing.T) {
	srv, _ := userinfoServer(t, 200, validPayload)
	srv.Close() // connection refused from here on

	p := testProvider(config.Static{OptionBaseURL: srv.URL})

	res := p.fetchUser(context.Background(), fetchState())
	assert.True(t, res.Terminal())
	assert.Equal(t, errInvalidResponse, res.Message())
}

func TestFetchUserUndecodableBody(t *testing.T) {
	srv, _ := userinfoServer(t, 200, "<html>not json</html>")
	p := testProvider(config.Static{OptionBaseURL: srv.URL})

	res := p.fetchUser(context.Background(), fetchState())
	assert.True(t, res.Terminal())
	assert.Equal(t, errInvalidResponse, res.Message())
}

func TestFetchUserRequiredFields(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing sub", `{"email":"a@b.c","preferred_username":"a"}`},
		{"missing email", `{"sub":"1","preferred_username":"a"}`},
		{"missing preferred_username", `{"sub":"1","email":"a@b.c"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := userinfoServer(t, 200, tt.body)
			// The allowlist would also reject this user; the field
			// check must short-circuit first and keep the error
			// generic.
			p := testProvider(config.Static{
				OptionBaseURL:              srv.URL,
				OptionAllowedOrganizations: "some-org",
			})

			res := p.fetchUser(context.Background(), fetchState())
			assert.True(t, res.Terminal())
			assert.Equal(t, errInvalidResponse, res.Message())
		})
	}
}

func TestFetchUserLaxFieldPolicy(t *testing.T) {
	srv, _ := userinfoServer(t, 200, `{"sub":"1","email":"a@b.c"}`)
	p := testProvider(config.Static{
		OptionBaseURL:         srv.URL,
		OptionRequireUsername: "false",
	})

	st := fetchState()
	res := p.fetchUser(context.Background(), st)
	assert.False(t, res.Terminal())
	require.NotNil(t, st.User)
}

func TestFetchUserAdmission(t *testing.T) {
	t.Run("allowed organization admitted", func(t *testing.T) {
		srv, _ := userinfoServer(t, 200, validPayload)
		p := testProvider(config.Static{
			OptionBaseURL:              srv.URL,
			OptionAllowedOrganizations: "devops,other",
		})

		st := fetchState()
		res := p.fetchUser(context.Background(), st)
		assert.False(t, res.Terminal())
	})

	t.Run("rejection names the user's groups", func(t *testing.T) {
		srv, _ := userinfoServer(t, 200, validPayload)
		p := testProvider(config.Static{
			OptionBaseURL:              srv.URL,
			OptionAllowedOrganizations: "finance",
		})

		st := fetchState()
		res := p.fetchUser(context.Background(), st)
		assert.True(t, res.Terminal())
		assert.Contains(t, res.Message(), "devops, devops:owners")
		assert.Contains(t, res.Message(), "not allowed")
		assert.Nil(t, st.User)
	})

	t.Run("null groups rejected by non-empty allowlist", func(t *testing.T) {
		srv, _ := userinfoServer(t, 200,
			`{"sub":"1","email":"a@b.c","preferred_username":"a","groups":null}`)
		p := testProvider(config.Static{
			OptionBaseURL:              srv.URL,
			OptionAllowedOrganizations: "devops",
		})

		res := p.fetchUser(context.Background(), fetchState())
		assert.True(t, res.Terminal())
	})

	t.Run("domain policy selected by option", func(t *testing.T) {
		srv, _ := userinfoServer(t, 200,
			`{"sub":"1","email":"a@gmail.com","preferred_username":"a"}`)
		p := testProvider(config.Static{
			OptionBaseURL:         srv.URL,
			OptionAdmissionPolicy: "domain",
		})

		res := p.fetchUser(context.Background(), fetchState())
		assert.True(t, res.Terminal())
		assert.Contains(t, res.Message(), "gmail.com")
	})
}

func TestBuildIdentity(t *testing.T) {
	token := &oauth2.Token{
		AccessToken:  "at",
		RefreshToken: "rt",
		TokenType:    "bearer",
	}

	t.Run("nickname fallback order", func(t *testing.T) {
		tests := []struct {
			name              string
			displayName       string
			preferredUsername string
			want              string
		}{
			{"display name wins", "Display", "bob", "Display"},
			{"preferred_username next", "", "bob", "bob"},
			{"email last", "", "", "b@x.com"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				id := BuildIdentity(&pipeline.UserInfo{
					Sub:               "42",
					Email:             "b@x.com",
					Name:              tt.displayName,
					PreferredUsername: tt.preferredUsername,
				}, token)
				assert.Equal(t, tt.want, id.Name)
			})
		}
	})

	t.Run("migrating dual id and token blob", func(t *testing.T) {
		id := BuildIdentity(&pipeline.UserInfo{
			Sub:   "42",
			Email: "b@x.com",
		}, token)

		assert.Equal(t, "gitea", id.Provider)
		assert.Equal(t, "42", id.ID)
		assert.Equal(t, "b@x.com", id.LegacyID)
		assert.Equal(t, "b@x.com", id.Email)
		assert.False(t, id.EmailVerified)
		assert.Equal(t, "at", id.Data.AccessToken)
		assert.Equal(t, "rt", id.Data.RefreshToken)
	})

	t.Run("idempotent", func(t *testing.T) {
		user := &pipeline.UserInfo{Sub: "42", Email: "b@x.com", Name: "n"}
		first := BuildIdentity(user, token)
		second := BuildIdentity(user, token)
		assert.Equal(t, first, second)
		assert.False(t, second.EmailVerified)
	})
}

func TestPipelineOrder(t *testing.T) {
	p := testProvider(config.Static{})
	assert.Len(t, p.Pipeline(), 3)
}

func TestPublicConfig(t *testing.T) {
	t.Run("empty allowlist shows sentinel", func(t *testing.T) {
		p := testProvider(config.Static{OptionBaseURL: "https://git.example.com"})
		cfg := p.PublicConfig()
		assert.Equal(t, "https://git.example.com", cfg["base_url"])
		assert.Equal(t, "organization", cfg["admission_policy"])
		assert.Contains(t, cfg["allowed_organizations"], "allow any")
		assert.Equal(t, DataVersion, cfg["version"])
	})

	t.Run("configured allowlist listed", func(t *testing.T) {
		p := testProvider(config.Static{OptionAllowedOrganizations: "a,b"})
		cfg := p.PublicConfig()
		assert.Equal(t, []string{"a", "b"}, cfg["allowed_organizations"])
	})
}
