// Package register reads courts from the court register.
package register

import (
	"context"
	"net/url"

	"github.com/agentstation/courtsync/internal/transport"
	"github.com/agentstation/courtsync/pkg/courts"
	"github.com/agentstation/courtsync/pkg/errors"
)

// ServiceName identifies the register in errors, logs and health output.
const ServiceName = "court-register"

// Client is a read-only court register client.
type Client struct {
	transport *transport.Client
}

// New creates a register client rooted at baseURL.
func New(baseURL string, auth transport.Authenticator, opts ...transport.Option) *Client {
	return &Client{transport: transport.New(ServiceName, baseURL, auth, opts...)}
}

// Court fetches one court. A court the register does not know is returned as nil.
func (c *Client) Court(ctx context.Context, courtID string) (*courts.RegisterCourt, error) {
	var court courts.RegisterCourt
	if err := c.transport.Get(ctx, "/courts/id/"+url.PathEscape(courtID), &court); err != nil {
		if errors.IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.WrapResource("fetch", "register court", courtID, err)
	}
	return &court, nil
}

// ActiveCourts lists every active court.
func (c *Client) ActiveCourts(ctx context.Context) ([]courts.RegisterCourt, error) {
	var list []courts.RegisterCourt
	if err := c.transport.Get(ctx, "/courts", &list); err != nil {
		if errors.IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.WrapResource("fetch", "register courts", "", err)
	}
	return list, nil
}

// Ping checks the register's liveness endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.transport.Ping(ctx)
}
