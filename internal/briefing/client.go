// Package briefing calls the external text-generation service that turns
// current stats and recent records into a short security briefing. The
// collaborator is best-effort: callers substitute Unavailable on any
// error and never let a briefing failure block the dashboard.
package briefing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"premisewatch/internal/access"
)

// Unavailable is the fixed degradation text used when the service errors.
const Unavailable = "System offline. Unable to generate security briefing."

// NotConfigured is returned as briefing text when no API key is set.
const NotConfigured = "Briefing service not configured. Unable to generate briefing."

// Client calls the narrative summary service.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client. Skip short-circuits to canned text for dev and
// tests without the service.
func New(baseURL, apiKey, model string, skip bool) *Client {
	if model == "" {
		model = "gemini-3-flash-preview"
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		Skip:    skip,
		HTTP: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

// Generate produces a briefing from the current stats and up to five
// recent records.
func (c *Client) Generate(ctx context.Context, stats access.DashboardStats, recent []access.AccessRecord) (string, error) {
	if c.Skip {
		return "All zones report normal operation. No anomalies detected in recent access activity.", nil
	}
	if c.APIKey == "" {
		return NotConfigured, nil
	}

	body, _ := json.Marshal(map[string]string{
		"model":  c.Model,
		"prompt": buildPrompt(stats, recent),
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("briefing service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("briefing service error %s: %s", resp.Status, string(bodyBytes))
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Text == "" {
		return "No insights available.", nil
	}
	return out.Text, nil
}

func buildPrompt(stats access.DashboardStats, recent []access.AccessRecord) string {
	var b strings.Builder
	b.WriteString("Act as a senior security analyst for an auxiliary police unit. ")
	b.WriteString("Analyze the following current premise data and provide a concise, professional security briefing (max 100 words).\n\n")
	fmt.Fprintf(&b, "Current stats:\n- Total entries today: %d\n- Active staff on-site: %d\n- Security alerts: %d\n- Avg visit duration: %s\n\n",
		stats.TotalEntriesToday, stats.ActiveOnSiteCount, stats.AlertCount, stats.AvgVisitDuration)
	b.WriteString("Recent access logs:\n")
	if len(recent) > 5 {
		recent = recent[:5]
	}
	for _, rec := range recent {
		fmt.Fprintf(&b, "- %s (%s): %s at %s\n", rec.SubjectName, rec.Role, rec.Status, rec.LocationName)
	}
	b.WriteString("\nHighlight any anomalies or confirm normal operation status.")
	return b.String()
}
