package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DIGEST_CRON_SPEC", "")
	t.Setenv("REPORT_CACHE_TTL_SECONDS", "not-a-number")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.DigestCronSpec != "0 7 * * *" {
		t.Fatalf("expected default digest cron spec, got %q", cfg.DigestCronSpec)
	}
	if cfg.ReportCacheTTLSeconds != 300 {
		t.Fatalf("expected cache TTL fallback 300, got %d", cfg.ReportCacheTTLSeconds)
	}
}

func TestEmailConfigured(t *testing.T) {
	cfg := Config{SMTPHost: "smtp.example.com", SenderEmail: "pos@example.com", OwnerEmail: "owner@example.com"}
	if !cfg.EmailConfigured() {
		t.Fatalf("expected email to be configured")
	}

	cfg.OwnerEmail = ""
	if cfg.EmailConfigured() {
		t.Fatalf("expected missing owner email to disable the digest")
	}
}
