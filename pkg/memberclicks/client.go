// Package memberclicks is the membership-profile service adapter. It
// authenticates with the OAuth2 client-credentials grant and exposes the
// two queries the sync engine needs: the open vacation-patrol requests for
// a patrol date, and the profiles matching a street address.
package memberclicks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/lwedwards3/dhp-sync/pkg/config"
	"github.com/lwedwards3/dhp-sync/pkg/model"
)

// serviceDateLayout is the profile service's date format, distinct from
// the task list's ISO dates.
const serviceDateLayout = "01/02/2006"

// Search window bounds for the departure/return date filter. The service
// requires closed ranges, so the far ends are fixed sentinels.
const (
	windowStart = "01/01/2019"
	windowEnd   = "12/31/2030"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	cutoffHour int
	log        *zap.Logger

	now func() time.Time
}

// New builds a client around an auto-refreshing OAuth2 HTTP client, so
// token expiry never has to be tracked by callers.
func New(cfg config.ProfileCreds, cutoffHour int, logger *zap.Logger) *Client {
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.BaseURL + "/oauth/v1/token",
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: cc.Client(context.Background()),
		cutoffHour: cutoffHour,
		log:        logger,
		now:        time.Now,
	}
}

// PatrolDate computes the patrol date for a run: today, rolled forward one
// day once the local hour reaches the configured cutoff. Requests entered
// in the late evening are for the following day's patrol.
func (c *Client) PatrolDate() string {
	now := c.now()
	if now.Hour() >= c.cutoffHour {
		now = now.AddDate(0, 0, 1)
	}
	return now.Format(model.DateLayout)
}

// GetOpenRequests returns one request per profile whose declared vacation
// window contains patrolDate. The service's search is a two-step protocol:
// post the filter to obtain a search id, then page through the results.
func (c *Client) GetOpenRequests(ctx context.Context, patrolDate string) ([]*model.Request, error) {
	day, err := time.Parse(model.DateLayout, patrolDate)
	if err != nil {
		return nil, fmt.Errorf("invalid patrol date %q: %w", patrolDate, err)
	}
	serviceDate := day.Format(serviceDateLayout)

	filter := map[string]any{
		attrDepartureDate: map[string]string{"startDate": windowStart, "endDate": serviceDate},
		attrReturnDate:    map[string]string{"startDate": serviceDate, "endDate": windowEnd},
	}
	profiles, err := c.searchProfiles(ctx, filter)
	if err != nil {
		return nil, err
	}

	requests := make([]*model.Request, 0, len(profiles))
	for _, p := range profiles {
		requests = append(requests, p.toRequest(patrolDate))
	}
	c.log.Info("open requests retrieved",
		zap.String("patrol_date", patrolDate),
		zap.Int("count", len(requests)))
	return requests, nil
}

// GetMatchingProfiles searches profiles by primary street address. It is
// used to enrich tasks that were created by hand on the task list; the
// engine only acts when exactly one profile matches.
func (c *Client) GetMatchingProfiles(ctx context.Context, address string) ([]*model.Request, error) {
	profiles, err := c.searchProfiles(ctx, map[string]any{attrAddressLine1: address})
	if err != nil {
		return nil, err
	}
	requests := make([]*model.Request, 0, len(profiles))
	for _, p := range profiles {
		requests = append(requests, p.toRequest(""))
	}
	return requests, nil
}

func (c *Client) searchProfiles(ctx context.Context, filter map[string]any) ([]Profile, error) {
	searchID, err := c.createSearch(ctx, filter)
	if err != nil {
		return nil, err
	}

	var profiles []Profile
	next := c.baseURL + "/api/v1/profile?searchId=" + url.QueryEscape(searchID)
	for next != "" {
		var page profilePage
		if err := c.getJSON(ctx, next, &page); err != nil {
			return nil, fmt.Errorf("could not retrieve search results: %w", err)
		}
		profiles = append(profiles, page.Profiles...)
		next = page.NextPageURL
	}
	return profiles, nil
}

func (c *Client) createSearch(ctx context.Context, filter map[string]any) (string, error) {
	body, err := json.Marshal(filter)
	if err != nil {
		return "", fmt.Errorf("could not encode search filter: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/profile/search", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("profile search failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("profile search failed: status %d", resp.StatusCode)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("could not decode search response: %w", err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("profile search returned no search id")
	}
	return result.ID, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", rawURL, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type profilePage struct {
	Profiles    []Profile `json:"profiles"`
	NextPageURL string    `json:"nextPageUrl"`
}

// Master-data endpoints, kept for operational use (attribute discovery and
// membership reporting from the same credentials).

func (c *Client) GetAttributes(ctx context.Context) (json.RawMessage, error) {
	return c.getRaw(ctx, "/api/v1/attribute")
}

func (c *Client) GetGroups(ctx context.Context) (json.RawMessage, error) {
	return c.getRaw(ctx, "/api/v1/group")
}

func (c *Client) GetMemberStatuses(ctx context.Context) (json.RawMessage, error) {
	return c.getRaw(ctx, "/api/v1/member-status")
}

func (c *Client) GetMemberTypes(ctx context.Context) (json.RawMessage, error) {
	return c.getRaw(ctx, "/api/v1/member-type")
}

func (c *Client) getRaw(ctx context.Context, endpoint string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, c.baseURL+endpoint, &raw); err != nil {
		return nil, fmt.Errorf("GET %s: %w", endpoint, err)
	}
	return raw, nil
}

// joinAddress builds the canonical one-line street address from the two
// profile address lines.
func joinAddress(line1, line2 string) string {
	return strings.TrimSpace(strings.TrimSpace(line1) + " " + strings.TrimSpace(line2))
}
