// cmd/fbscrapexter/main_test.go
package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/valpere/FBScrapexter/internal/config"
	"github.com/valpere/FBScrapexter/internal/extract"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root, _ := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCLIVersion(t *testing.T) {
	version = "test-version"
	buildTime = "2025-06-23"
	gitCommit = "abc123"

	output, err := execute(t, "version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"test-version", "2025-06-23", "abc123"} {
		if !strings.Contains(output, want) {
			t.Errorf("version output should contain %q, got: %s", want, output)
		}
	}
}

func TestCLIHelp(t *testing.T) {
	output, err := execute(t, "--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	commands := []string{"posts", "group", "hashtag", "search", "urls", "photos", "profile",
		"page-info", "group-info", "friends", "shop", "validate", "template", "version"}
	for _, cmd := range commands {
		if !strings.Contains(output, cmd) {
			t.Errorf("help output should contain command %q, got: %s", cmd, output)
		}
	}
}

func TestCLITemplateValidates(t *testing.T) {
	output, err := execute(t, "template")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(output), 0644); err != nil {
		t.Fatal(err)
	}

	output, err = execute(t, "validate", path)
	if err != nil {
		t.Fatalf("template should validate: %v", err)
	}
	if !strings.Contains(output, "is valid") {
		t.Errorf("expected validation message, got: %s", output)
	}
}

func TestCLIValidateRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("output:\n  format: pdf\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "validate", path); err == nil {
		t.Error("expected an error for an unsupported format")
	}
}

func TestCLIRequiresTarget(t *testing.T) {
	if _, err := execute(t, "posts"); err == nil {
		t.Error("expected an error without an account")
	}
}

func TestLoadConfig_Flags(t *testing.T) {
	root, flags := newRootCommand()
	cmd, _, err := root.Find([]string{"posts"})
	if err != nil {
		t.Fatal(err)
	}
	args := []string{
		"--proxy", "http://127.0.0.1:8080",
		"--timeout", "5s",
		"-vv",
		"--format", "csv",
		"--filename", "out.csv",
		"--pages", "3",
		"--noscript",
		"--no-extra-requests",
		"--comments", "25",
		"--keys", "post_id,text",
	}
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatal(err)
	}

	cfg, err := flags.loadConfig(cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Session.Proxy != "http://127.0.0.1:8080" {
		t.Errorf("expected proxy to be set, got %q", cfg.Session.Proxy)
	}
	if cfg.Session.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", cfg.Session.Timeout)
	}
	if !cfg.Session.Noscript {
		t.Error("expected noscript")
	}
	if cfg.Output.Format != "csv" || cfg.Output.File != "out.csv" {
		t.Errorf("expected csv to out.csv, got %s to %s", cfg.Output.Format, cfg.Output.File)
	}
	if cfg.Scrape.Pages != 3 {
		t.Errorf("expected 3 pages, got %d", cfg.Scrape.Pages)
	}
	if cfg.Scrape.ExtraRequests == nil || *cfg.Scrape.ExtraRequests {
		t.Error("expected extra requests to be disabled")
	}
	if cfg.Scrape.Comments != extract.Capped(25) {
		t.Errorf("expected comments capped at 25, got %v", cfg.Scrape.Comments)
	}
	if strings.Join(cfg.Scrape.Keys, ",") != "post_id,text" {
		t.Errorf("expected keys post_id,text, got %v", cfg.Scrape.Keys)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug logging, got %s", cfg.Logging.Level)
	}
}

func TestLoadConfig_FileThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "scrape:\n  pages: 7\n  matching: mario\noutput:\n  format: yaml\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	root, flags := newRootCommand()
	cmd, _, _ := root.Find([]string{"posts"})
	if err := cmd.ParseFlags([]string{"--config", path, "--format", "ndjson"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := flags.loadConfig(cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Scrape.Pages != 7 {
		t.Errorf("expected pages from file, got %d", cfg.Scrape.Pages)
	}
	if cfg.Scrape.Matching != "mario" {
		t.Errorf("expected matching from file, got %q", cfg.Scrape.Matching)
	}
	if cfg.Output.Format != "ndjson" {
		t.Errorf("expected the flag to win, got %s", cfg.Output.Format)
	}
}

func TestLoadConfig_InvalidMode(t *testing.T) {
	root, flags := newRootCommand()
	cmd, _, _ := root.Find([]string{"posts"})
	if err := cmd.ParseFlags([]string{"--reactors", "sometimes"}); err != nil {
		t.Fatal(err)
	}
	if _, err := flags.loadConfig(cmd); err == nil {
		t.Error("expected an error for an invalid mode")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	root, flags := newRootCommand()
	cmd, _, _ := root.Find([]string{"posts"})
	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatal(err)
	}
	cfg, err := flags.loadConfig(cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Output.File != config.Default().Output.File {
		t.Errorf("expected default output file, got %q", cfg.Output.File)
	}
}
