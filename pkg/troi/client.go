package troi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zeitblick/zeitblick/pkg/calendar"
	"github.com/zeitblick/zeitblick/pkg/session"
)

// ErrUnauthenticated is returned when Troi rejects the session's
// credentials. The cache layer matches on it to evict session state.
var ErrUnauthenticated = fmt.Errorf("troi rejected the session credentials")

const dateLayout = "2006-01-02"

type Client interface {
	GetClientId(ctx context.Context) (int, error)
	GetEmployeeId(ctx context.Context, clientId int) (int, error)
	GetCalendarEvents(ctx context.Context, from, to time.Time) ([]calendar.RawEvent, error)
	GetCalculationPositions(ctx context.Context, clientId int) ([]CalculationPosition, error)
	GetTimeEntries(ctx context.Context, calculationPositionId int, from, to time.Time) ([]TimeEntry, error)
	PostTimeEntry(ctx context.Context, entry TimeEntry) (TimeEntry, error)
	UpdateTimeEntry(ctx context.Context, entry TimeEntry) (TimeEntry, error)
	DeleteTimeEntry(ctx context.Context, id int) error
}

// CredentialsProvider resolves the Troi credentials of the session in
// context. Implemented by the session service.
type CredentialsProvider interface {
	Credentials(ctx context.Context) (session.Record, error)
}

type ClientImpl struct {
	baseURL     string
	httpClient  *http.Client
	credentials CredentialsProvider
}

func NewClient(baseURL string, credentials CredentialsProvider) *ClientImpl {
	return &ClientImpl{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		credentials: credentials,
	}
}

// doRequest executes an authenticated request against the Troi API. Troi
// uses basic auth with the username and the MD5 digest of the API token as
// password. A 401 or 403 maps to ErrUnauthenticated.
func (c *ClientImpl) doRequest(ctx context.Context, method, path string, query url.Values, body any) (io.ReadCloser, error) {
	record, err := c.credentials.Credentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get session credentials: %w", err)
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		log.Errorf("Failed to create request: %v", err)
		return nil, err
	}
	req.SetBasicAuth(record.TroiUsername, record.TroiTokenMd5)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Errorf("Failed to execute request: %v", err)
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d on %s", ErrUnauthenticated, resp.StatusCode, path)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		resp.Body.Close()
		err := fmt.Errorf("troi API returned non-OK status: %d on %s", resp.StatusCode, path)
		log.Error(err)
		return nil, err
	}

	return resp.Body, nil
}

func (c *ClientImpl) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	body, err := c.doRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := json.NewDecoder(body).Decode(out); err != nil {
		log.Errorf("Failed to decode response: %v", err)
		return err
	}
	return nil
}

// GetClientId resolves the Troi client (tenant) the session user belongs to.
func (c *ClientImpl) GetClientId(ctx context.Context) (int, error) {
	var clients []struct {
		Id int `json:"id"`
	}
	if err := c.getJSON(ctx, "/clients", nil, &clients); err != nil {
		return 0, err
	}
	if len(clients) == 0 {
		return 0, fmt.Errorf("troi returned no clients for this user")
	}
	return clients[0].Id, nil
}

// GetEmployeeId resolves the employee behind the session's Troi username.
func (c *ClientImpl) GetEmployeeId(ctx context.Context, clientId int) (int, error) {
	record, err := c.credentials.Credentials(ctx)
	if err != nil {
		return 0, err
	}

	query := url.Values{}
	query.Set("clientId", fmt.Sprintf("%d", clientId))
	query.Set("employeeLoginName", record.TroiUsername)
	var employees []struct {
		Id int `json:"id"`
	}
	if err := c.getJSON(ctx, "/employees", query, &employees); err != nil {
		return 0, err
	}
	if len(employees) == 0 {
		return 0, fmt.Errorf("troi returned no employee for username %s", record.TroiUsername)
	}
	return employees[0].Id, nil
}

// GetCalendarEvents fetches the raw (possibly multi-day) absence events of
// the session's employee within [from, to].
func (c *ClientImpl) GetCalendarEvents(ctx context.Context, from, to time.Time) ([]calendar.RawEvent, error) {
	query := url.Values{}
	query.Set("start", from.Format(dateLayout))
	query.Set("end", to.Format(dateLayout))
	var events []calendar.RawEvent
	if err := c.getJSON(ctx, "/calendarEvents", query, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// GetCalculationPositions lists the bookable project positions of the client.
func (c *ClientImpl) GetCalculationPositions(ctx context.Context, clientId int) ([]CalculationPosition, error) {
	query := url.Values{}
	query.Set("clientId", fmt.Sprintf("%d", clientId))
	query.Set("favoritesOnly", "true")
	var positions []CalculationPosition
	if err := c.getJSON(ctx, "/calculationPositions", query, &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

// GetTimeEntries fetches the billed hours of one calculation position within
// [from, to]. Troi folds postings with equal descriptions into one line
// item; the day cache mirrors that rule.
func (c *ClientImpl) GetTimeEntries(ctx context.Context, calculationPositionId int, from, to time.Time) ([]TimeEntry, error) {
	query := url.Values{}
	query.Set("calculationPositionId", fmt.Sprintf("%d", calculationPositionId))
	query.Set("startDate", from.Format(dateLayout))
	query.Set("endDate", to.Format(dateLayout))
	var entries []TimeEntry
	if err := c.getJSON(ctx, "/billings/hours", query, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *ClientImpl) PostTimeEntry(ctx context.Context, entry TimeEntry) (TimeEntry, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/billings/hours", nil, entry)
	if err != nil {
		return TimeEntry{}, err
	}
	defer body.Close()

	var created TimeEntry
	if err := json.NewDecoder(body).Decode(&created); err != nil {
		log.Errorf("Failed to decode response: %v", err)
		return TimeEntry{}, err
	}
	return created, nil
}

func (c *ClientImpl) UpdateTimeEntry(ctx context.Context, entry TimeEntry) (TimeEntry, error) {
	path := fmt.Sprintf("/billings/hours/%d", entry.Id)
	body, err := c.doRequest(ctx, http.MethodPut, path, nil, entry)
	if err != nil {
		return TimeEntry{}, err
	}
	defer body.Close()

	var updated TimeEntry
	if err := json.NewDecoder(body).Decode(&updated); err != nil {
		log.Errorf("Failed to decode response: %v", err)
		return TimeEntry{}, err
	}
	return updated, nil
}

func (c *ClientImpl) DeleteTimeEntry(ctx context.Context, id int) error {
	path := fmt.Sprintf("/billings/hours/%d", id)
	body, err := c.doRequest(ctx, http.MethodDelete, path, nil, nil)
	if err != nil {
		return err
	}
	return body.Close()
}
