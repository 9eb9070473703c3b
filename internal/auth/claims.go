package auth

import (
	"strings"

	"infinite-experiment/fmsuplink/internal/common"
	"infinite-experiment/fmsuplink/internal/constants"
)

// UserClaims identifies the caller of a request
type UserClaims interface {
	Subject() string
	Source() string
	HasScope(scope string) bool
}

// TokenClaims are the claims of a validated bearer token
type TokenClaims struct {
	Claims *common.APIClaims
}

func (c *TokenClaims) Subject() string { return c.Claims.Subject }
func (c *TokenClaims) Source() string  { return string(constants.RequestSourceAPI) }

func (c *TokenClaims) HasScope(scope string) bool {
	for _, s := range strings.Fields(c.Claims.Scope) {
		if s == scope || s == constants.ScopeAdmin {
			return true
		}
	}
	return false
}

// LocalClaims is used when authentication is disabled, and by the CLI.
type LocalClaims struct {
	Name string
}

func (c *LocalClaims) Subject() string      { return c.Name }
func (c *LocalClaims) Source() string       { return string(constants.RequestSourceCLI) }
func (c *LocalClaims) HasScope(string) bool { return true }
