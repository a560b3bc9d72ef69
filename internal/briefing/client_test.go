package briefing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"premisewatch/internal/access"
)

func TestGenerate(t *testing.T) {
	var gotAuth string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "All quiet on the premises."})
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", "", false)
	stats := access.DashboardStats{TotalEntriesToday: 12, AlertCount: 1}
	recent := []access.AccessRecord{
		{SubjectName: "Maria Santos", Role: access.RoleVisitor, Status: access.StatusGranted, LocationName: "Main Lobby"},
	}

	text, err := c.Generate(context.Background(), stats, recent)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "All quiet on the premises." {
		t.Errorf("text = %q", text)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotBody["model"] != "gemini-3-flash-preview" {
		t.Errorf("model = %q", gotBody["model"])
	}
	prompt := gotBody["prompt"]
	for _, want := range []string{"Total entries today: 12", "Security alerts: 1", "Maria Santos"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestGenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", "", false)
	if _, err := c.Generate(context.Background(), access.DashboardStats{}, nil); err == nil {
		t.Fatal("expected error on 429 response")
	}
}

func TestGenerateSkipMode(t *testing.T) {
	c := New("http://unreachable.invalid", "", "", true)
	text, err := c.Generate(context.Background(), access.DashboardStats{}, nil)
	if err != nil {
		t.Fatalf("skip mode must not error: %v", err)
	}
	if text == "" {
		t.Error("skip mode returned empty text")
	}
}

func TestGenerateNotConfigured(t *testing.T) {
	c := New("http://unreachable.invalid", "", "", false)
	text, err := c.Generate(context.Background(), access.DashboardStats{}, nil)
	if err != nil {
		t.Fatalf("missing key must degrade, not error: %v", err)
	}
	if text != NotConfigured {
		t.Errorf("text = %q", text)
	}
}

func TestPromptCapsRecentRecords(t *testing.T) {
	recent := make([]access.AccessRecord, 8)
	for i := range recent {
		recent[i] = access.AccessRecord{SubjectName: "Person", Role: access.RoleVisitor, Status: access.StatusGranted}
	}
	prompt := buildPrompt(access.DashboardStats{}, recent)
	if got := strings.Count(prompt, "Person"); got != 5 {
		t.Errorf("prompt lists %d records, want 5", got)
	}
}
