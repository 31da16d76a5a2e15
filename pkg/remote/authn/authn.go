package authn

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/octohelm/courier/pkg/courierhttp/client"
)

type Token struct {
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`

	ExpiredAt time.Time `json:"-"`
}

type TokenGetFunc = func() (*Token, error)

// Authn exchanges and caches bearer tokens per scope.
//
// Without a username, token endpoints are hit anonymously, which public
// registries accept for pull scopes.
type Authn struct {
	Username string
	Password string

	scopeTokens Map[string, TokenGetFunc]
}

// Token returns a token for the scope, exchanging one against the challenge
// realm on first use and caching it until it expires.
func (a *Authn) Token(ctx context.Context, challenge *WwwAuthenticate, scope string) (*Token, error) {
	realm, ok := challenge.Params["realm"]
	if !ok || realm == "" {
		return nil, &ErrUnauthorized{
			Reason: errors.New("challenge carries no realm: " + challenge.String()),
		}
	}

	realmURL, err := url.Parse(realm)
	if err != nil {
		return nil, &ErrUnauthorized{Reason: err}
	}

	q := &url.Values{}
	q.Set("scope", scope)
	for k, v := range challenge.Params {
		if k != "realm" {
			q.Set(k, v)
		}
	}
	realmURL.RawQuery = q.Encode()

	for range 2 {
		getToken, loaded := a.scopeTokens.LoadOrStore(scope, sync.OnceValues(func() (*Token, error) {
			return a.exchangeToken(ctx, realmURL)
		}))

		tok, err := getToken()
		if err != nil {
			a.scopeTokens.Delete(scope)
			return nil, err
		}

		// a freshly exchanged token is usable no matter how short its ttl
		if !loaded || tok.ExpiredAt.After(time.Now()) {
			return tok, nil
		}

		a.scopeTokens.Delete(scope)
	}

	return nil, &ErrUnauthorized{
		Reason: errors.New("token for scope " + scope + " expired immediately"),
	}
}

// Cached returns the unexpired cached token for a scope, if any, without
// triggering an exchange.
func (a *Authn) Cached(scope string) *Token {
	getToken, ok := a.scopeTokens.Load(scope)
	if !ok {
		return nil
	}
	tok, err := getToken()
	if err != nil || !tok.ExpiredAt.After(time.Now()) {
		return nil
	}
	return tok
}

// Evict drops the cached token for a scope, forcing the next Token call to
// exchange a fresh one.
func (a *Authn) Evict(scope string) {
	a.scopeTokens.Delete(scope)
}

func (a *Authn) exchangeToken(ctx context.Context, realm *url.URL) (*Token, error) {
	c := client.GetShortConnClientContext(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, realm.String(), nil)
	if err != nil {
		return nil, err
	}

	if a.Username != "" {
		req.SetBasicAuth(a.Username, a.Password)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		tok := &Token{}
		if err := json.Unmarshal(data, tok); err != nil {
			return nil, err
		}

		if tok.AccessToken == "" {
			tok2 := &struct {
				Token string `json:"token,omitempty"`
			}{}
			if err := json.Unmarshal(data, tok2); err != nil {
				return nil, err
			}
			tok.AccessToken = tok2.Token
		}

		if tok.AccessToken == "" {
			return nil, &ErrUnauthorized{
				Reason: errors.New("token endpoint returned no token: " + string(data)),
			}
		}

		if tok.TokenType == "" {
			tok.TokenType = "Bearer"
		}
		if tok.ExpiresIn == 0 {
			tok.ExpiresIn = 60
		}

		// the refresh margin must leave a positive ttl, or short-lived
		// tokens would be born expired
		margin := min(tok.ExpiresIn/2, 60)
		tok.ExpiredAt = time.Now().Add(time.Duration(tok.ExpiresIn-margin) * time.Second)

		return tok, nil
	}

	return nil, &ErrUnauthorized{
		Reason: errors.New(string(data)),
	}
}
