package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-courier/logr"
	"github.com/octohelm/courier/pkg/courierhttp/client"
	"github.com/opencontainers/go-digest"

	manifestv1 "github.com/octohelm/mirrorkit/pkg/apis/manifest/v1"
	"github.com/octohelm/mirrorkit/pkg/remote/authn"
)

// Client fetches manifests, tags and blobs from a token-authenticated
// registry over the v2 distribution protocol.
type Client struct {
	Registry

	authn *authn.Authn
}

func (c *Client) Init(ctx context.Context) error {
	if c.authn == nil {
		c.authn = &authn.Authn{
			Username: c.Username,
			Password: c.Password,
		}
	}
	return nil
}

// FetchManifest resolves a tag or digest reference into a parsed manifest
// payload. The payload digest is computed from the returned bytes, never
// trusted from response headers.
func (c *Client) FetchManifest(ctx context.Context, name string, ref string) (*manifestv1.Payload, error) {
	resp, err := c.fetch(ctx, c.ManifestURL(name, ref), manifestv1.MediaTypes())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	payload := &manifestv1.Payload{}
	if err := payload.UnmarshalJSON(raw); err != nil {
		return nil, err
	}

	if dgst := resp.Header.Get("Docker-Content-Digest"); dgst != "" {
		if _, computed, err := payload.Payload(); err == nil && computed.String() != dgst {
			logr.FromContext(ctx).Warn(fmt.Errorf("declared digest %s differs from content digest %s", dgst, computed))
		}
	}

	return payload, nil
}

// FetchBlob opens a blob by digest. The caller owns the returned reader and
// should verify the digest while consuming it.
func (c *Client) FetchBlob(ctx context.Context, name string, dgst digest.Digest) (io.ReadCloser, error) {
	resp, err := c.fetch(ctx, c.BlobURL(name, dgst), nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Fetch performs an authenticated GET against any v2 API url, streaming the
// response body.
func (c *Client) Fetch(ctx context.Context, u string) (io.ReadCloser, error) {
	resp, err := c.fetch(ctx, u, manifestv1.MediaTypes())
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) FetchBytes(ctx context.Context, u string) ([]byte, error) {
	r, err := c.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (c *Client) Tags(ctx context.Context, name string) (*TagList, error) {
	resp, err := c.fetch(ctx, c.TagsURL(name), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	tags := &TagList{}
	if err := json.NewDecoder(resp.Body).Decode(tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// fetch performs a GET with transient-failure retries. Connection errors and
// 5xx responses are retried with exponential backoff; 4xx responses fail
// immediately.
func (c *Client) fetch(ctx context.Context, u string, accept []string) (*http.Response, error) {
	return backoff.Retry(ctx, func() (*http.Response, error) {
		resp, err := c.roundTrip(ctx, u, accept)
		if err != nil {
			failed := &ErrAuthenticationFailed{}
			if errors.As(err, &failed) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			_ = resp.Body.Close()
			return nil, &ErrRegistryFetch{StatusCode: resp.StatusCode, URL: u}
		}

		if resp.StatusCode >= http.StatusBadRequest {
			_ = resp.Body.Close()
			return nil, backoff.Permanent(&ErrRegistryFetch{StatusCode: resp.StatusCode, URL: u})
		}

		return resp, nil
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(3),
	)
}

// roundTrip sends the request, answering at most one bearer challenge with a
// cached token and one with a freshly exchanged token. A rejection after the
// fresh exchange means the credentials are wrong, not that the token aged out.
func (c *Client) roundTrip(ctx context.Context, u string, accept []string) (*http.Response, error) {
	httpc := client.GetShortConnClientContext(ctx)

	scope := ScopeFor(u)

	tok := c.authn.Cached(scope)
	fresh := false

	for range 3 {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		for _, mt := range accept {
			req.Header.Add("Accept", mt)
		}
		if tok != nil {
			req.Header.Set("Authorization", fmt.Sprintf("%s %s", tok.TokenType, tok.AccessToken))
		}

		resp, err := httpc.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusUnauthorized {
			return resp, nil
		}

		wwwAuthenticate := resp.Header.Get("WWW-Authenticate")
		_ = resp.Body.Close()

		challenge, err := authn.ParseWwwAuthenticate(wwwAuthenticate)
		if err != nil {
			return nil, &ErrAuthenticationFailed{Endpoint: c.Endpoint, Scope: scope, Reason: err}
		}

		if tok != nil {
			if fresh {
				// the registry rejected a token it just issued
				break
			}
			// stale cached token, drop it and exchange once more
			c.authn.Evict(scope)
		}

		tok, err = c.authn.Token(ctx, challenge, scope)
		if err != nil {
			return nil, &ErrAuthenticationFailed{Endpoint: c.Endpoint, Scope: scope, Reason: err}
		}
		fresh = true
	}

	return nil, &ErrAuthenticationFailed{
		Endpoint: c.Endpoint,
		Scope:    scope,
		Reason:   fmt.Errorf("registry kept responding 401 after a fresh token exchange"),
	}
}

// ScopeFor derives the pull scope a registry will demand for a v2 API url.
func ScopeFor(u string) string {
	l := strings.Index(u, "/v2/")
	if l < 0 {
		return ""
	}
	path := u[l+len("/v2/"):]

	for _, v := range []string{
		"/manifests/",
		"/blobs/",
		"/tags/",
	} {
		if r := strings.Index(path, v); r > 0 {
			return fmt.Sprintf("repository:%s:pull", path[0:r])
		}
	}

	return ""
}
