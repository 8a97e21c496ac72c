package config

import (
	"testing"
	"time"
)

func TestEnvInt_Unset(t *testing.T) {
	if got := envInt("FACE_ATTENDANCE_TEST_UNSET", 42); got != 42 {
		t.Errorf("expected default 42, got %d", got)
	}
}

func TestEnvInt_Valid(t *testing.T) {
	t.Setenv("FACE_ATTENDANCE_TEST_INT", "7")
	if got := envInt("FACE_ATTENDANCE_TEST_INT", 42); got != 7 {
		t.Errorf("expected 7, got %d", got)
	}
}

func TestEnvInt_Invalid(t *testing.T) {
	t.Setenv("FACE_ATTENDANCE_TEST_INT", "not-a-number")
	if got := envInt("FACE_ATTENDANCE_TEST_INT", 42); got != 42 {
		t.Errorf("expected default 42 for invalid value, got %d", got)
	}
}

func TestEnvInt_Negative(t *testing.T) {
	t.Setenv("FACE_ATTENDANCE_TEST_INT", "-3")
	if got := envInt("FACE_ATTENDANCE_TEST_INT", 42); got != 42 {
		t.Errorf("expected default 42 for negative value, got %d", got)
	}
}

func TestEnvFloat_Valid(t *testing.T) {
	t.Setenv("FACE_ATTENDANCE_TEST_FLOAT", "0.35")
	if got := envFloat("FACE_ATTENDANCE_TEST_FLOAT", 0.5); got != 0.35 {
		t.Errorf("expected 0.35, got %f", got)
	}
}

func TestEnvSeconds_Valid(t *testing.T) {
	t.Setenv("FACE_ATTENDANCE_TEST_SECONDS", "5")
	if got := envSeconds("FACE_ATTENDANCE_TEST_SECONDS", time.Minute); got != 5*time.Second {
		t.Errorf("expected 5s, got %v", got)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Ledger.Path != "attendance.json" {
		t.Errorf("expected default ledger path 'attendance.json', got '%s'", cfg.Ledger.Path)
	}
	if cfg.Verifier.Timeout != 30*time.Second {
		t.Errorf("expected default verify timeout 30s, got %v", cfg.Verifier.Timeout)
	}
	if cfg.Report.WorkdayStart != "09:00" {
		t.Errorf("expected default workday start '09:00', got '%s'", cfg.Report.WorkdayStart)
	}
	if cfg.Report.GraceMinutes != 15 {
		t.Errorf("expected default grace 15 minutes, got %d", cfg.Report.GraceMinutes)
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("GALLERY_DIR", "/srv/gallery")
	t.Setenv("LEDGER_PATH", "/var/lib/attendance/ledger.json")
	t.Setenv("VERIFIER_URL", "http://verifier:5000")
	t.Setenv("VERIFIER_TIMEOUT_SECONDS", "10")

	cfg := Load()

	if cfg.Gallery.Dir != "/srv/gallery" {
		t.Errorf("unexpected gallery dir '%s'", cfg.Gallery.Dir)
	}
	if cfg.Ledger.Path != "/var/lib/attendance/ledger.json" {
		t.Errorf("unexpected ledger path '%s'", cfg.Ledger.Path)
	}
	if cfg.Verifier.URL != "http://verifier:5000" {
		t.Errorf("unexpected verifier URL '%s'", cfg.Verifier.URL)
	}
	if cfg.Verifier.Timeout != 10*time.Second {
		t.Errorf("unexpected verifier timeout %v", cfg.Verifier.Timeout)
	}
}
