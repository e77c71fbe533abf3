package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"time"

	"mace/internal/gateway"
)

// LogUser is the log's user reference, which the backend sends either as
// a bare id or as a populated record.
type LogUser struct {
	ID    string `json:"_id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

func (u *LogUser) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte(`"`)) {
		return json.Unmarshal(data, &u.ID)
	}
	type plain LogUser
	return json.Unmarshal(data, (*plain)(u))
}

func (u *LogUser) String() string {
	if u == nil {
		return ""
	}
	name := u.Name
	if name == "" {
		name = "Unknown"
	}
	ref := u.Email
	if ref == "" {
		ref = u.ID
	}
	return name + " (" + ref + ")"
}

type LogEntry struct {
	ID           string          `json:"_id"`
	Type         string          `json:"type"`
	Action       string          `json:"action"`
	Status       string          `json:"status"`
	Platform     string          `json:"platform,omitempty"`
	User         *LogUser        `json:"userId,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	Details      json.RawMessage `json:"details,omitempty"`
	IPAddress    string          `json:"ipAddress,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// LogFilter values of "all" or "" mean no filter.
type LogFilter struct {
	Type   string
	Status string
	UserID string
}

func (f LogFilter) query() url.Values {
	q := url.Values{}
	if f.Type != "" && f.Type != "all" {
		q.Set("type", f.Type)
	}
	if f.Status != "" && f.Status != "all" {
		q.Set("status", f.Status)
	}
	if f.UserID != "" {
		q.Set("userId", f.UserID)
	}
	return q
}

type AdminService struct {
	gw *gateway.Client
}

func (s *AdminService) Logs(ctx context.Context, f LogFilter) ([]LogEntry, error) {
	var resp struct {
		Logs []LogEntry `json:"logs"`
	}
	if err := s.gw.Get(ctx, "/admin/logs", f.query(), &resp); err != nil {
		return nil, err
	}
	return resp.Logs, nil
}
