package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.HTTPPort != "8081" {
		t.Errorf("HTTPPort = %q", cfg.HTTPPort)
	}
	if cfg.AccessWindow != 8*time.Hour {
		t.Errorf("AccessWindow = %s", cfg.AccessWindow)
	}
	if cfg.LivePollInterval != 10*time.Second {
		t.Errorf("LivePollInterval = %s", cfg.LivePollInterval)
	}
	if cfg.DashboardPollInterval != 30*time.Second {
		t.Errorf("DashboardPollInterval = %s", cfg.DashboardPollInterval)
	}
	if cfg.RecordFetchLimit != 50 {
		t.Errorf("RecordFetchLimit = %d", cfg.RecordFetchLimit)
	}
	if !cfg.BriefingSkip {
		t.Error("BriefingSkip should default to true")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ACCESS_WINDOW", "12h")
	t.Setenv("LIVE_POLL_INTERVAL", "5s")
	t.Setenv("RECORD_FETCH_LIMIT", "200")
	t.Setenv("BRIEFING_SKIP", "false")

	cfg := Load()
	if cfg.AccessWindow != 12*time.Hour {
		t.Errorf("AccessWindow = %s", cfg.AccessWindow)
	}
	if cfg.LivePollInterval != 5*time.Second {
		t.Errorf("LivePollInterval = %s", cfg.LivePollInterval)
	}
	if cfg.RecordFetchLimit != 200 {
		t.Errorf("RecordFetchLimit = %d", cfg.RecordFetchLimit)
	}
	if cfg.BriefingSkip {
		t.Error("BriefingSkip override ignored")
	}
}

func TestLoadBadValuesFallBack(t *testing.T) {
	t.Setenv("ACCESS_WINDOW", "not-a-duration")
	t.Setenv("RECORD_FETCH_LIMIT", "not-a-number")
	t.Setenv("BRIEFING_SKIP", "maybe")

	cfg := Load()
	if cfg.AccessWindow != 8*time.Hour {
		t.Errorf("AccessWindow = %s", cfg.AccessWindow)
	}
	if cfg.RecordFetchLimit != 50 {
		t.Errorf("RecordFetchLimit = %d", cfg.RecordFetchLimit)
	}
	if !cfg.BriefingSkip {
		t.Error("bad bool should fall back to default true")
	}
}
