// Package source talks to the experience content API.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"tripcast/pkg/config"
	"tripcast/pkg/model"
	"tripcast/pkg/request"
)

const cachePrefix = "experience:"

var (
	// ErrNotFound is returned when the API answers without an experience.
	ErrNotFound = errors.New("experience not found")
	// ErrNoRandom is returned when the random endpoint yields no URL.
	ErrNoRandom = errors.New("random endpoint returned no experience url")
)

// Client fetches experiences.
type Client struct {
	rc  *request.Client
	cfg config.SourceConfig
}

// NewClient creates a content API client.
func NewClient(rc *request.Client, cfg config.SourceConfig) *Client {
	return &Client{rc: rc, cfg: cfg}
}

type randomRequest struct {
	URLs []string `json:"urls"`
}

type randomResponse struct {
	Experience struct {
		URL string `json:"url"`
	} `json:"experience"`
}

// Random asks the API for a random experience drawn from the given substance
// pages (the configured candidates when empty) and returns its URL.
func (c *Client) Random(ctx context.Context, candidates []string) (string, error) {
	if len(candidates) == 0 {
		candidates = c.cfg.Candidates
	}
	body, err := json.Marshal(randomRequest{URLs: candidates})
	if err != nil {
		return "", err
	}

	slog.Info("Fetching random experience", "candidates", len(candidates))
	resp, err := c.rc.PostWithHeaders(ctx, c.cfg.RandomURL, body, jsonHeaders)
	if err != nil {
		return "", fmt.Errorf("random experience: %w", err)
	}

	var rr randomResponse
	if err := json.Unmarshal(resp, &rr); err != nil {
		return "", fmt.Errorf("random experience: decode: %w", err)
	}
	u := strings.TrimSpace(rr.Experience.URL)
	if u == "" {
		c.rc.Tracker().TrackAPIZero("content-api")
		return "", ErrNoRandom
	}
	return u, nil
}

// flexString accepts JSON strings, numbers and null. The API reports age
// either way.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type experienceResponse struct {
	Data *struct {
		Title    flexString `json:"title"`
		Author   flexString `json:"author"`
		Content  flexString `json:"content"`
		Metadata struct {
			Gender flexString `json:"gender"`
			Age    flexString `json:"age"`
		} `json:"metadata"`
	} `json:"data"`
}

var jsonHeaders = map[string]string{"Content-Type": "application/json"}

// Fetch retrieves one experience by URL. Successful responses are cached.
func (c *Client) Fetch(ctx context.Context, experienceURL string) (*model.Experience, error) {
	experienceURL = Unquote(strings.TrimSpace(experienceURL))
	if experienceURL == "" {
		return nil, fmt.Errorf("experience url is empty")
	}

	body, err := json.Marshal(map[string]string{"url": experienceURL})
	if err != nil {
		return nil, err
	}

	cacheKey := ""
	if c.cfg.Cache {
		cacheKey = cachePrefix + experienceURL
	}

	slog.Info("Fetching experience details", "url", experienceURL)
	resp, err := c.rc.PostWithCache(ctx, c.cfg.ExperienceURL, body, jsonHeaders, cacheKey)
	if err != nil {
		return nil, fmt.Errorf("fetch experience: %w", err)
	}

	exp, err := parseExperience(resp)
	if err != nil {
		return nil, err
	}
	exp.URL = experienceURL

	if exp.Content == "" {
		slog.Warn("Experience has no content", "url", experienceURL)
	}
	return exp, nil
}

func parseExperience(b []byte) (*model.Experience, error) {
	var er experienceResponse
	if err := json.Unmarshal(b, &er); err != nil {
		return nil, fmt.Errorf("fetch experience: decode: %w", err)
	}
	if er.Data == nil {
		return nil, ErrNotFound
	}
	d := er.Data
	return &model.Experience{
		Title:   strings.TrimSpace(string(d.Title)),
		Author:  strings.TrimSpace(string(d.Author)),
		Gender:  strings.TrimSpace(string(d.Metadata.Gender)),
		Age:     strings.TrimSpace(string(d.Metadata.Age)),
		Content: string(d.Content),
	}, nil
}

// Unquote percent-decodes a URL passed on the command line. Plus signs are
// kept. Invalid escapes leave the input unchanged.
func Unquote(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	out, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return out
}

// ExperienceID extracts the numeric ID from an erowid exp.php?ID=N URL, or "".
func ExperienceID(experienceURL string) string {
	u, err := url.Parse(experienceURL)
	if err != nil {
		return ""
	}
	id := u.Query().Get("ID")
	if _, err := strconv.Atoi(id); err != nil {
		return ""
	}
	return id
}
