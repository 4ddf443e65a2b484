// Package firebase updates a Firebase Realtime Database node over its REST API.
package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"farmwatch/internal/model"
)

var scopes = []string{
	"https://www.googleapis.com/auth/firebase.database",
	"https://www.googleapis.com/auth/userinfo.email",
}

// Sink merges every summary into one database node with a PATCH request,
// so fields not part of the summary are left alone.
type Sink struct {
	endpoint string
	client   *http.Client
}

// New creates a sink for databaseURL. With a service-account credentials
// file requests are authorized with OAuth2; without one they are sent
// unauthenticated, which suits the emulator and open rules.
func New(ctx context.Context, databaseURL, path, credentialsFile string) (*Sink, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("firebase database URL is empty")
	}

	client := http.DefaultClient
	if credentialsFile != "" {
		data, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read firebase credentials: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, scopes...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse firebase credentials: %w", err)
		}
		client = oauth2.NewClient(ctx, creds.TokenSource)
	}

	return NewWithClient(databaseURL, path, client), nil
}

// NewWithClient creates a sink that sends requests through client.
func NewWithClient(databaseURL, path string, client *http.Client) *Sink {
	return &Sink{
		endpoint: Endpoint(databaseURL, path),
		client:   client,
	}
}

// Endpoint builds the REST URL of the node at path, e.g.
// https://db.firebaseio.com/farm/status.json.
func Endpoint(databaseURL, path string) string {
	base := strings.TrimRight(databaseURL, "/")
	node := strings.Trim(path, "/")
	if node == "" {
		return base + "/.json"
	}
	return base + "/" + node + ".json"
}

func (s *Sink) Name() string {
	return "firebase"
}

func (s *Sink) Publish(ctx context.Context, summary model.FrameSummary) error {
	body, err := json.Marshal(summary.Fields())
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	io.Copy(io.Discard, resp.Body)
	return nil
}
