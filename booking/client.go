package booking

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

	"github.com/ariebrainware/mindery/slot"
)

// APIError is a failed call: a non-2xx status or a success=false envelope.
type APIError struct {
	StatusCode int
	Msg        string
	Err        string
}

func (e *APIError) Error() string {
	switch {
	case e.Msg != "" && e.Err != "":
		return fmt.Sprintf("api error %d: %s: %s", e.StatusCode, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Msg)
	default:
		return fmt.Sprintf("api error %d", e.StatusCode)
	}
}

// Appointment is the API's view of a booked session.
type Appointment struct {
	ID        uint      `json:"ID"`
	Reference string    `json:"reference"`
	DoctorID  uint      `json:"doctorId"`
	StudentID uint      `json:"studentId"`
	SlotStart time.Time `json:"slotStart"`
	SlotEnd   time.Time `json:"slotEnd"`
	Mode      string    `json:"mode"`
	Notes     string    `json:"notes"`
	Status    string    `json:"status"`
}

type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
}

// Client calls the Mindery API. Calls are not retried.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client with a 15s timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sets the bearer token sent on every call.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// NewClient returns a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
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

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Msg: env.Msg, Err: env.Error}
	}
	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if !env.Success {
		return &APIError{StatusCode: resp.StatusCode, Msg: env.Msg, Err: env.Error}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// AvailableDates lists the next days with bookable slots of a doctor.
func (c *Client) AvailableDates(ctx context.Context, doctorID uint, days int) ([]slot.DayAvailability, error) {
	q := url.Values{}
	if days > 0 {
		q.Set("days", fmt.Sprintf("%d", days))
	}
	path := fmt.Sprintf("/api/doctors/%d/available-dates", doctorID)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []slot.DayAvailability
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Availability lists the bookable slots of a doctor on date.
func (c *Client) Availability(ctx context.Context, doctorID uint, date string) ([]slot.Slot, error) {
	var out struct {
		Slots []slot.Slot `json:"slots"`
	}
	path := fmt.Sprintf("/api/doctors/%d/availability/%s", doctorID, url.PathEscape(date))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out.Slots == nil {
		out.Slots = []slot.Slot{}
	}
	return out.Slots, nil
}

// Book creates an appointment.
func (c *Client) Book(ctx context.Context, req Request) (Appointment, error) {
	var out Appointment
	err := c.do(ctx, http.MethodPost, "/api/sessions", req, &out)
	return out, err
}

// UpdateStatus moves an appointment to status.
func (c *Client) UpdateStatus(ctx context.Context, appointmentID uint, status string) (Appointment, error) {
	var out Appointment
	path := fmt.Sprintf("/api/appointments/%d/status", appointmentID)
	err := c.do(ctx, http.MethodPatch, path, map[string]string{"status": status}, &out)
	return out, err
}
