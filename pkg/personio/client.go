package personio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zeitblick/zeitblick/internal/config"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrUnauthenticated is returned when Personio rejects the configured
// client credentials.
var ErrUnauthenticated = fmt.Errorf("personio rejected the client credentials")

const dateLayout = "2006-01-02"

// Employee is the profile served to the UI layer.
type Employee struct {
	Id                  int     `json:"id"`
	FirstName           string  `json:"firstName"`
	LastName            string  `json:"lastName"`
	Email               string  `json:"email"`
	WorkingHoursPerWeek float64 `json:"workingHoursPerWeek"`
}

// Attendance is one tracked working period.
type Attendance struct {
	Id           int    `json:"id"`
	Date         string `json:"date"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	BreakMinutes int    `json:"break"`
}

type Client interface {
	GetEmployee(ctx context.Context, employeeId int) (Employee, error)
	GetAttendances(ctx context.Context, employeeId int, from, to time.Time) ([]Attendance, error)
}

type ClientImpl struct {
	baseURL     string
	oauthConfig *clientcredentials.Config
}

func NewClient(cfg config.Personio) *ClientImpl {
	return &ClientImpl{
		baseURL: cfg.BaseURL,
		oauthConfig: &clientcredentials.Config{
			ClientID:     cfg.ClientId,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.BaseURL + "/auth",
		},
	}
}

func (c *ClientImpl) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	client := c.oauthConfig.Client(ctx)
	client.Timeout = 30 * time.Second

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		log.Errorf("Failed to create request: %v", err)
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		log.Errorf("Failed to execute request: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: status %d on %s", ErrUnauthenticated, resp.StatusCode, path)
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("personio API returned non-OK status: %d on %s", resp.StatusCode, path)
		log.Error(err)
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		log.Errorf("Failed to decode response: %v", err)
		return err
	}
	return nil
}

func (c *ClientImpl) GetEmployee(ctx context.Context, employeeId int) (Employee, error) {
	var response struct {
		Data struct {
			Id         int `json:"id"`
			Attributes struct {
				FirstName          string  `json:"first_name"`
				LastName           string  `json:"last_name"`
				Email              string  `json:"email"`
				WeeklyWorkingHours float64 `json:"weekly_working_hours"`
			} `json:"attributes"`
		} `json:"data"`
	}
	path := fmt.Sprintf("/company/employees/%d", employeeId)
	if err := c.getJSON(ctx, path, nil, &response); err != nil {
		return Employee{}, err
	}
	return Employee{
		Id:                  response.Data.Id,
		FirstName:           response.Data.Attributes.FirstName,
		LastName:            response.Data.Attributes.LastName,
		Email:               response.Data.Attributes.Email,
		WorkingHoursPerWeek: response.Data.Attributes.WeeklyWorkingHours,
	}, nil
}

func (c *ClientImpl) GetAttendances(ctx context.Context, employeeId int, from, to time.Time) ([]Attendance, error) {
	query := url.Values{}
	query.Set("employees[]", fmt.Sprintf("%d", employeeId))
	query.Set("start_date", from.Format(dateLayout))
	query.Set("end_date", to.Format(dateLayout))

	var response struct {
		Data []struct {
			Id         int        `json:"id"`
			Attributes Attendance `json:"attributes"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, "/company/attendances", query, &response); err != nil {
		return nil, err
	}

	attendances := make([]Attendance, 0, len(response.Data))
	for _, item := range response.Data {
		attendance := item.Attributes
		attendance.Id = item.Id
		attendances = append(attendances, attendance)
	}
	return attendances, nil
}
