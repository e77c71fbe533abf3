package api

import (
	"context"
	"errors"
	"strings"

	"mace/internal/gateway"
)

type CaptionRequest struct {
	Prompt   string `json:"prompt"`
	Tone     string `json:"tone"`
	Platform string `json:"platform"`
}

type HashtagRequest struct {
	Content  string `json:"content"`
	Platform string `json:"platform"`
	Count    int    `json:"count"`
}

type AIService struct {
	gw *gateway.Client
}

func (s *AIService) GenerateCaption(ctx context.Context, req CaptionRequest) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", errors.New("prompt is required")
	}
	if req.Tone == "" {
		req.Tone = "professional"
	}
	if req.Platform == "" {
		req.Platform = "instagram"
	}

	var resp struct {
		Caption string `json:"caption"`
	}
	if err := s.gw.Post(ctx, "/ai/generate-caption", req, &resp); err != nil {
		return "", err
	}
	return resp.Caption, nil
}

func (s *AIService) GenerateHashtags(ctx context.Context, req HashtagRequest) ([]string, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, errors.New("content is required")
	}
	if req.Platform == "" {
		req.Platform = "instagram"
	}
	if req.Count <= 0 {
		req.Count = 10
	}

	var resp struct {
		Hashtags []string `json:"hashtags"`
	}
	if err := s.gw.Post(ctx, "/ai/generate-hashtags", req, &resp); err != nil {
		return nil, err
	}
	return resp.Hashtags, nil
}
