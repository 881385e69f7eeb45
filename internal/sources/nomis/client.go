// Package nomis reads and writes courts (agencies of type CRT) in the legacy
// prison system and serves its reference data.
//
// A 404 from any call is treated as "absent": reads return nil and writes
// return nil without error. A 409 on agency insert is treated the same way.
// All other failures are returned as errors.
package nomis

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/agentstation/courtsync/internal/transport"
	"github.com/agentstation/courtsync/pkg/courts"
	"github.com/agentstation/courtsync/pkg/errors"
	"github.com/agentstation/courtsync/pkg/logging"
)

// ServiceName identifies the prison API in errors, logs and health output.
const ServiceName = "prison-api"

// referenceDataPageLimit is sent as Page-Limit so a domain listing is never truncated.
const referenceDataPageLimit = "10000"

var agencyQuery = url.Values{
	"withAddresses":      {"true"},
	"activeOnly":         {"false"},
	"skipFormatLocation": {"true"},
}

// Client talks to the prison API.
type Client struct {
	transport *transport.Client
}

// New creates a prison API client rooted at baseURL.
func New(baseURL string, auth transport.Authenticator, opts ...transport.Option) *Client {
	return &Client{transport: transport.New(ServiceName, baseURL, auth, opts...)}
}

// Agency fetches one court with its addresses, active or not.
func (c *Client) Agency(ctx context.Context, agencyID string) (*courts.Agency, error) {
	var agency courts.Agency
	out, err := orAbsent(&agency, c.transport.Get(ctx, agencyPath(agencyID), &agency, transport.WithQuery(agencyQuery)))
	if err != nil {
		return nil, errors.WrapResource("fetch", "agency", agencyID, err)
	}
	return out, nil
}

// Courts lists every court agency, active and inactive.
func (c *Client) Courts(ctx context.Context) ([]courts.Agency, error) {
	var list []courts.Agency
	err := c.transport.Get(ctx, "/api/agencies/type/"+courts.AgencyTypeCourt, &list, transport.WithQuery(agencyQuery))
	if err = absent(err); err != nil {
		return nil, errors.WrapResource("fetch", "agencies", courts.AgencyTypeCourt, err)
	}
	return list, nil
}

// InsertAgency creates a court. A conflict means it already exists and yields nil.
func (c *Client) InsertAgency(ctx context.Context, agency courts.Agency) (*courts.Agency, error) {
	logging.Ctx(ctx).Debug().Str("court_id", agency.AgencyID).Msg("Inserting agency")

	var out courts.Agency
	err := c.transport.Post(ctx, "/api/agencies", agency, &out)
	if errors.IsAlreadyExists(err) {
		return nil, nil
	}
	return orAbsent(&out, err)
}

// UpdateAgency replaces the court-level fields of an agency.
func (c *Client) UpdateAgency(ctx context.Context, agency courts.Agency) (*courts.Agency, error) {
	logging.Ctx(ctx).Debug().Str("court_id", agency.AgencyID).Msg("Updating agency")

	var out courts.Agency
	return orAbsent(&out, c.transport.Put(ctx, agencyPath(agency.AgencyID), agency, &out))
}

// InsertAddress adds an address to a court and returns it with its new id.
func (c *Client) InsertAddress(ctx context.Context, agencyID string, address courts.AgencyAddress) (*courts.AgencyAddress, error) {
	var out courts.AgencyAddress
	return orAbsent(&out, c.transport.Post(ctx, agencyPath(agencyID)+"/addresses", address, &out))
}

// UpdateAddress replaces an existing address.
func (c *Client) UpdateAddress(ctx context.Context, agencyID string, address courts.AgencyAddress) (*courts.AgencyAddress, error) {
	if address.AddressID == nil {
		return nil, errors.NewValidationError("addressId", nil, "cannot update an address without an id")
	}
	var out courts.AgencyAddress
	return orAbsent(&out, c.transport.Put(ctx, addressPath(agencyID, *address.AddressID), address, &out))
}

// RemoveAddress deletes an address and its phones.
func (c *Client) RemoveAddress(ctx context.Context, agencyID string, addressID int64) error {
	return absent(c.transport.Delete(ctx, addressPath(agencyID, addressID)))
}

// InsertPhone adds a phone to an address.
func (c *Client) InsertPhone(ctx context.Context, agencyID string, addressID int64, phone courts.Phone) (*courts.Phone, error) {
	var out courts.Phone
	return orAbsent(&out, c.transport.Post(ctx, addressPath(agencyID, addressID)+"/phones", phone, &out))
}

// UpdatePhone replaces an existing phone.
func (c *Client) UpdatePhone(ctx context.Context, agencyID string, addressID int64, phone courts.Phone) (*courts.Phone, error) {
	if phone.ID == nil {
		return nil, errors.NewValidationError("phoneId", nil, "cannot update a phone without an id")
	}
	var out courts.Phone
	return orAbsent(&out, c.transport.Put(ctx, phonePath(agencyID, addressID, *phone.ID), phone, &out))
}

// RemovePhone deletes a phone from an address.
func (c *Client) RemovePhone(ctx context.Context, agencyID string, addressID, phoneID int64) error {
	return absent(c.transport.Delete(ctx, phonePath(agencyID, addressID, phoneID)))
}

// ReferenceCodes lists every code of a reference domain.
func (c *Client) ReferenceCodes(ctx context.Context, domain string) ([]courts.ReferenceCode, error) {
	var codes []courts.ReferenceCode
	err := c.transport.Get(ctx, "/api/reference-domains/domains/"+url.PathEscape(domain), &codes,
		transport.WithHeader("Page-Limit", referenceDataPageLimit))
	if err = absent(err); err != nil {
		return nil, err
	}
	return codes, nil
}

// LookupReferenceCodes finds the codes of domain whose description matches.
func (c *Client) LookupReferenceCodes(ctx context.Context, domain, description string, wildcard bool) ([]courts.ReferenceCode, error) {
	var codes []courts.ReferenceCode
	err := c.transport.Get(ctx, "/api/reference-domains/domains/"+url.PathEscape(domain)+"/reverse-lookup", &codes,
		transport.WithQuery(url.Values{
			"description": {description},
			"wildcard":    {strconv.FormatBool(wildcard)},
		}))
	if err = absent(err); err != nil {
		return nil, err
	}
	return codes, nil
}

// Ping checks the prison API liveness endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.transport.Ping(ctx)
}

// orAbsent returns out, or nil when err is a not-found.
func orAbsent[T any](out *T, err error) (*T, error) {
	switch {
	case err == nil:
		return out, nil
	case errors.IsNotFound(err):
		return nil, nil
	default:
		return nil, err
	}
}

// absent drops not-found errors.
func absent(err error) error {
	if errors.IsNotFound(err) {
		return nil
	}
	return err
}

func agencyPath(agencyID string) string {
	return "/api/agencies/" + url.PathEscape(agencyID)
}

func addressPath(agencyID string, addressID int64) string {
	return fmt.Sprintf("%s/addresses/%d", agencyPath(agencyID), addressID)
}

func phonePath(agencyID string, addressID, phoneID int64) string {
	return fmt.Sprintf("%s/phones/%d", addressPath(agencyID, addressID), phoneID)
}
