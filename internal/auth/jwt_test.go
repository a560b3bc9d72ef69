package auth

import (
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	pair, err := Issue("op-1", "operator", "premisewatch", "secret-key", 15*time.Minute, 24*time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("empty tokens")
	}
	if !pair.RefreshExp.After(pair.AccessExp) {
		t.Error("refresh expiry should outlive access expiry")
	}

	claims, err := Parse(pair.AccessToken, "secret-key", "premisewatch")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.OperatorID != "op-1" || claims.Role != "operator" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseWrongKey(t *testing.T) {
	pair, err := Issue("op-1", "operator", "premisewatch", "secret-key", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := Parse(pair.AccessToken, "other-key", "premisewatch"); err == nil {
		t.Fatal("expected signature verification failure")
	}
}

func TestParseIssuerMismatch(t *testing.T) {
	pair, err := Issue("op-1", "operator", "someone-else", "secret-key", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := Parse(pair.AccessToken, "secret-key", "premisewatch"); err == nil {
		t.Fatal("expected issuer mismatch")
	}
}

func TestParseExpired(t *testing.T) {
	pair, err := Issue("op-1", "operator", "premisewatch", "secret-key", -time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := Parse(pair.AccessToken, "secret-key", "premisewatch"); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}
