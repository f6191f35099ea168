// Package pipeline runs the staged authentication flow a provider
// defines: code exchange, user-info fetch, identity build. Stages
// share a typed State threaded as an explicit argument; values flow
// strictly forward, a stage only reads what earlier stages bound.
package pipeline

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/ttys3/gitea-sso/internal/auth"
)

// State is the request-scoped context shared by the stages of one
// authentication attempt. It lives for a single callback request;
// nothing in it is shared across users or requests.
type State struct {
	// Bound by the handler before the pipeline runs.
	Provider string
	Code     string

	// Bound by the exchange stage.
	Token *oauth2.Token

	// Bound by the fetch stage after validation and admission.
	User *UserInfo

	// Bound by the identity stage; the pipeline's terminal artifact.
	Identity *auth.Identity
}

// UserInfo is the provider's validated user-info payload.
// Groups is nil when the user belongs to no organization.
type UserInfo struct {
	Sub               string   `json:"sub"`
	Email             string   `json:"email"`
	PreferredUsername string   `json:"preferred_username"`
	Name              string   `json:"name"`
	Picture           string   `json:"picture"`
	Groups            []string `json:"groups"`
}

// MissingFields lists required fields that are empty. sub and email
// are always required; preferred_username only under the strict
// field policy.
func (u *UserInfo) MissingFields(requireUsername bool) []string {
	var missing []string
	if u.Sub == "" {
		missing = append(missing, "sub")
	}
	if u.Email == "" {
		missing = append(missing, "email")
	}
	if requireUsername && u.PreferredUsername == "" {
		missing = append(missing, "preferred_username")
	}
	return missing
}

// Result is the outcome of one stage: continue to the next stage, or
// terminate the attempt with a user-visible message.
type Result struct {
	terminal bool
	message  string
}

// Continue advances to the next stage.
func Continue() Result {
	return Result{}
}

// Fail terminates the pipeline. message is shown to the user, so it
// must never contain payload contents beyond what the policy already
// discloses (group names).
func Fail(message string) Result {
	return Result{terminal: true, message: message}
}

func (r Result) Terminal() bool  { return r.terminal }
func (r Result) Message() string { return r.message }

// Stage is one step of the flow. Stages do not retry: a failure is
// terminal for the attempt and the user restarts the login.
type Stage func(ctx context.Context, st *State) Result

// Run executes stages in order, stopping at the first terminal
// result. It returns the user-visible error message and ok=false on
// failure, or ok=true when every stage continued.
func Run(ctx context.Context, stages []Stage, st *State) (string, bool) {
	for _, stage := range stages {
		if res := stage(ctx, st); res.Terminal() {
			return res.Message(), false
		}
	}
	return "", true
}
