package api

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mace/internal/gateway"
)

type PostStatus string

const (
	PostPending   PostStatus = "pending"
	PostPublished PostStatus = "published"
	PostFailed    PostStatus = "failed"
)

type PublishResult struct {
	Platform string `json:"platform"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	PostURL  string `json:"postUrl,omitempty"`
}

type Post struct {
	ID             string          `json:"_id"`
	Caption        string          `json:"caption"`
	Hashtags       []string        `json:"hashtags"`
	Platforms      []string        `json:"platforms"`
	ScheduledTime  time.Time       `json:"scheduledTime"`
	Status         PostStatus      `json:"status"`
	PublishResults []PublishResult `json:"publishResults,omitempty"`
}

type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page,omitempty"`
	Pages int `json:"pages,omitempty"`
}

type PostList struct {
	Posts      []Post      `json:"posts"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Total prefers the server's pagination count.
func (l PostList) Total() int {
	if l.Pagination != nil {
		return l.Pagination.Total
	}
	return len(l.Posts)
}

type ScheduleRequest struct {
	Caption       string    `json:"caption"`
	Hashtags      []string  `json:"hashtags"`
	Platforms     []string  `json:"platforms"`
	ScheduledTime time.Time `json:"scheduledTime"`
}

type ListOptions struct {
	Status PostStatus
	Limit  int
}

// SplitHashtags splits free text on whitespace, dropping empty entries.
func SplitHashtags(raw string) []string {
	tags := strings.Fields(raw)
	if tags == nil {
		return []string{}
	}
	return tags
}

type PostService struct {
	gw *gateway.Client
}

func (s *PostService) Schedule(ctx context.Context, req ScheduleRequest) (*Post, error) {
	if strings.TrimSpace(req.Caption) == "" {
		return nil, errors.New("caption is required")
	}
	if len(req.Platforms) == 0 {
		return nil, errors.New("select at least one platform")
	}
	if req.ScheduledTime.IsZero() {
		return nil, errors.New("scheduled time is required")
	}
	req.ScheduledTime = req.ScheduledTime.UTC()
	if req.Hashtags == nil {
		req.Hashtags = []string{}
	}

	var resp struct {
		Post *Post `json:"post"`
	}
	if err := s.gw.Post(ctx, "/posts/schedule", req, &resp); err != nil {
		return nil, err
	}
	return resp.Post, nil
}

func (s *PostService) ListScheduled(ctx context.Context, opts ListOptions) (*PostList, error) {
	q := url.Values{}
	if opts.Status != "" && opts.Status != "all" {
		q.Set("status", string(opts.Status))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}

	var list PostList
	if err := s.gw.Get(ctx, "/posts/scheduled", q, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (s *PostService) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("post id is required")
	}
	return s.gw.Delete(ctx, "/posts/"+url.PathEscape(id), nil)
}
