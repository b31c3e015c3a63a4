package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hydroscan/hydroscan/internal/config"
)

func TestExitErrorCarriesCode(t *testing.T) {
	inner := errors.New("boom")
	err := exitWith(exitNoData, inner)

	var ee *exitError
	if !errors.As(err, &ee) {
		t.Fatalf("errors.As failed on %v", err)
	}
	if ee.code != exitNoData {
		t.Fatalf("code = %d, want %d", ee.code, exitNoData)
	}
	if !errors.Is(err, inner) {
		t.Fatal("exitError must unwrap to the inner error")
	}
}

func TestResolveCredentialsFromConfig(t *testing.T) {
	cfg := config.Config{Username: "jane", Password: "hunter2"}
	if err := resolveCredentials(&cfg); err != nil {
		t.Fatalf("resolveCredentials: %v", err)
	}
}

func TestResolveCredentialsMissing(t *testing.T) {
	t.Setenv("HYDROSCAN_CREDENTIALS_KEY", "")

	cfg := config.Config{}
	err := resolveCredentials(&cfg)

	var ee *exitError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want exitError", err)
	}
	if ee.code != exitBadInput {
		t.Fatalf("code = %d, want %d", ee.code, exitBadInput)
	}
}

func TestResolveCredentialsFromSealedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.json")
	if err := config.SaveCredentials(path, "jane", "hunter2", "key"); err != nil {
		t.Fatal(err)
	}

	// CredentialsPath derives from the config dir; point HOME at the temp
	// dir so the test never touches the real one.
	t.Setenv("HOME", dir)
	real := filepath.Join(dir, ".config", "hydroscan")
	if err := os.MkdirAll(real, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(path, filepath.Join(real, "credentials.json")); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HYDROSCAN_CREDENTIALS_KEY", "key")

	cfg := config.Config{}
	if err := resolveCredentials(&cfg); err != nil {
		t.Fatalf("resolveCredentials: %v", err)
	}
	if cfg.Username != "jane" || cfg.Password != "hunter2" {
		t.Fatalf("cfg = %+v", cfg)
	}
}
