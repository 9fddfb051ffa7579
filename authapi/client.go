package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/rewine-client/internal/errors"
	"github.com/pkg/errors"
)

const DefaultBaseURL = "http://localhost:8080/api/v1"

// outboundRequest models one call against the auth API.
type outboundRequest struct {
	method  string
	path    string
	body    any
	respObj any
}

// Client talks to the rewine auth endpoints. It does no token handling of its
// own: bearer attachment and 401 recovery belong to the http.Client it is given.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	resp := &AuthResponse{}
	if err := c.execute(ctx, outboundRequest{method: http.MethodPost, path: LoginPath, body: req, respObj: resp}); err != nil {
		return nil, errors.Wrap(err, "[Client.Login]")
	}
	return resp, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	resp := &AuthResponse{}
	if err := c.execute(ctx, outboundRequest{method: http.MethodPost, path: RegisterPath, body: req, respObj: resp}); err != nil {
		return nil, errors.Wrap(err, "[Client.Register]")
	}
	return resp, nil
}

// Refresh exchanges a refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	resp := &RefreshResponse{}
	req := outboundRequest{
		method:  http.MethodPost,
		path:    RefreshPath,
		body:    RefreshRequest{RefreshToken: refreshToken},
		respObj: resp,
	}
	if err := c.execute(ctx, req); err != nil {
		return nil, errors.Wrap(err, "[Client.Refresh]")
	}
	if resp.AccessToken == "" {
		return nil, &apperrors.APIError{
			Status:    http.StatusUnauthorized,
			Code:      apperrors.CodeTokenInvalid,
			Message:   "refresh response carried no access token",
			Path:      RefreshPath,
			Timestamp: time.Now().UTC(),
		}
	}
	return resp, nil
}

func (c *Client) Logout(ctx context.Context) error {
	if err := c.execute(ctx, outboundRequest{method: http.MethodPost, path: LogoutPath}); err != nil {
		return errors.Wrap(err, "[Client.Logout]")
	}
	return nil
}

// Me returns the current user as the server sees it.
func (c *Client) Me(ctx context.Context) (*MeResponse, error) {
	resp := &MeResponse{}
	if err := c.execute(ctx, outboundRequest{method: http.MethodGet, path: MePath, respObj: resp}); err != nil {
		return nil, errors.Wrap(err, "[Client.Me]")
	}
	return resp, nil
}

func (c *Client) ForgotPassword(ctx context.Context, email string) (*MessageResponse, error) {
	return c.message(ctx, ForgotPasswordPath, ForgotPasswordRequest{Email: email})
}

func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) (*MessageResponse, error) {
	return c.message(ctx, ResetPasswordPath, ResetPasswordRequest{Token: token, NewPassword: newPassword})
}

func (c *Client) VerifyEmail(ctx context.Context, token string) (*MessageResponse, error) {
	return c.message(ctx, VerifyEmailPath, VerifyEmailRequest{Token: token})
}

func (c *Client) ResendVerification(ctx context.Context) (*MessageResponse, error) {
	return c.message(ctx, ResendVerificationPath, nil)
}

func (c *Client) message(ctx context.Context, path string, body any) (*MessageResponse, error) {
	resp := &MessageResponse{}
	if err := c.execute(ctx, outboundRequest{method: http.MethodPost, path: path, body: body, respObj: resp}); err != nil {
		return nil, errors.Wrapf(err, "[Client] POST %s", path)
	}
	return resp, nil
}

// execute sends req and decodes a 2xx body into req.respObj. Every failure comes
// back as an *APIError, or as the session expired error the transport produced.
func (c *Client) execute(ctx context.Context, req outboundRequest) error {
	var body io.Reader
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return errors.Wrap(err, "error marshaling request body")
		}
		body = bytes.NewReader(b)
	}

	r, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return errors.Wrapf(err, "error creating request %s %s", req.method, req.path)
	}
	if req.body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	r.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(r)
	if err != nil {
		return classifyTransportError(err, req.path)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyTransportError(err, req.path)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return NormalizeResponse(resp.StatusCode, respBody, req.path)
	}

	if req.respObj != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, req.respObj); err != nil {
			return errors.Wrap(err, "error unmarshaling response body")
		}
	}
	return nil
}
