// Package dashboard is the client side of the booking API: a typed HTTP client,
// role views derived from the authorization policy, a generic filterable list,
// a periodic refresher and text rendering.
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sipitali-server/internal/apperr"
	"sipitali-server/internal/models"
	"sipitali-server/internal/services"
)

// FallbackMessage is shown when the server gives no reason for a failure.
const FallbackMessage = "Something went wrong. Please try again."

// APIError is a failed call. Message is the server's message, verbatim.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Unwrap maps the statuses that identify a single failure class to the apperr
// sentinels, so callers can test errors.Is(err, apperr.ErrAuthentication).
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return apperr.ErrAuthentication
	case http.StatusForbidden:
		return apperr.ErrAuthorization
	case http.StatusNotFound:
		return apperr.ErrNotFound
	}
	return nil
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client calls the booking API on behalf of one signed-in user.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// NewClient creates a client for baseURL, e.g. http://localhost:5000/api.
// A nil httpClient gets a default with a 15 second timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) Token() string {
	return c.token
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && err != io.EOF {
		if resp.StatusCode >= 400 {
			return &APIError{Status: resp.StatusCode, Message: FallbackMessage}
		}
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}

	if resp.StatusCode >= 400 || !env.Success {
		msg := env.Message
		if msg == "" {
			msg = FallbackMessage
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return nil
}

// Login signs in and keeps the returned access token.
func (c *Client) Login(ctx context.Context, email, password string) (*services.AuthResult, error) {
	var result services.AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", services.LoginInput{Email: email, Password: password}, &result); err != nil {
		return nil, err
	}
	c.token = result.Token
	return &result, nil
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (*models.UserSanitized, error) {
	var data struct {
		User models.UserSanitized `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &data); err != nil {
		return nil, err
	}
	return &data.User, nil
}

type appointmentList struct {
	Appointments []services.AppointmentView `json:"appointments"`
	Count        int                        `json:"count"`
}

func (c *Client) listAppointments(ctx context.Context, path string) ([]services.AppointmentView, error) {
	var data appointmentList
	if err := c.do(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	return data.Appointments, nil
}

func (c *Client) AllAppointments(ctx context.Context) ([]services.AppointmentView, error) {
	return c.listAppointments(ctx, "/appointments")
}

func (c *Client) MyAppointments(ctx context.Context) ([]services.AppointmentView, error) {
	return c.listAppointments(ctx, "/appointments/my-appointments")
}

func (c *Client) PendingAppointments(ctx context.Context) ([]services.AppointmentView, error) {
	return c.listAppointments(ctx, "/appointments/pending")
}

// DoctorSchedule lists confirmed appointments. An empty doctorID means the caller.
func (c *Client) DoctorSchedule(ctx context.Context, doctorID string) ([]services.AppointmentView, error) {
	path := "/appointments/doctor/schedule"
	if doctorID != "" {
		path += "?doctorId=" + url.QueryEscape(doctorID)
	}
	return c.listAppointments(ctx, path)
}

type appointmentData struct {
	Appointment services.AppointmentView `json:"appointment"`
}

func (c *Client) BookAppointment(ctx context.Context, in services.CreateAppointmentInput) (*services.AppointmentView, error) {
	var data appointmentData
	if err := c.do(ctx, http.MethodPost, "/appointments", in, &data); err != nil {
		return nil, err
	}
	return &data.Appointment, nil
}

func (c *Client) ConfirmAppointment(ctx context.Context, id string) (*services.AppointmentView, error) {
	var data appointmentData
	if err := c.do(ctx, http.MethodPut, "/appointments/"+url.PathEscape(id)+"/confirm", nil, &data); err != nil {
		return nil, err
	}
	return &data.Appointment, nil
}

func (c *Client) CancelAppointment(ctx context.Context, id string) (*services.AppointmentView, error) {
	var data appointmentData
	if err := c.do(ctx, http.MethodPut, "/appointments/"+url.PathEscape(id)+"/cancel", nil, &data); err != nil {
		return nil, err
	}
	return &data.Appointment, nil
}

func (c *Client) Stats(ctx context.Context) (*services.AppointmentStats, error) {
	var data struct {
		Stats services.AppointmentStats `json:"stats"`
	}
	if err := c.do(ctx, http.MethodGet, "/appointments/stats", nil, &data); err != nil {
		return nil, err
	}
	return &data.Stats, nil
}

// Users lists users, optionally of a single role.
func (c *Client) Users(ctx context.Context, role models.Role) ([]models.UserSanitized, error) {
	path := "/users"
	if role != "" {
		path += "?role=" + url.QueryEscape(string(role))
	}
	var data struct {
		Users []models.UserSanitized `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	return data.Users, nil
}

// CreateUser adds a user of any role, with a doctor profile when one is given.
func (c *Client) CreateUser(ctx context.Context, in services.CreateUserInput) (*services.UserDetail, error) {
	var data struct {
		User services.UserDetail `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/users", in, &data); err != nil {
		return nil, err
	}
	return &data.User, nil
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Doctors(ctx context.Context) ([]services.DoctorSummary, error) {
	var data struct {
		Doctors []services.DoctorSummary `json:"doctors"`
	}
	if err := c.do(ctx, http.MethodGet, "/users/doctors", nil, &data); err != nil {
		return nil, err
	}
	return data.Doctors, nil
}
