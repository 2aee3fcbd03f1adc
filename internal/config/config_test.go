package config

import (
	"path/filepath"
	"testing"
)

func TestLoadGlobalConfigMissingFileReturnsEmpty(t *testing.T) {
	cfg, err := LoadGlobalConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadGlobalConfig: %v", err)
	}
	if len(cfg.Sessions) != 0 {
		t.Fatalf("expected no sessions, got %d", len(cfg.Sessions))
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := &GlobalConfig{
		Sessions: []*SessionConfig{
			{Name: "office", Endpoint: "wss://vnc.example.com/rfb", Password: "hunter2"},
		},
		ActiveID: "office",
	}
	if err := cfg.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := LoadGlobalConfig(dir)
	if err != nil {
		t.Fatalf("LoadGlobalConfig: %v", err)
	}
	if len(got.Sessions) != 1 || got.Sessions[0].Endpoint != "wss://vnc.example.com/rfb" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Sessions[0].Scale != 1 {
		t.Fatalf("expected default scale 1, got %v", got.Sessions[0].Scale)
	}
	if got.ActiveID != "office" {
		t.Fatalf("active id mismatch: %q", got.ActiveID)
	}
}

func TestFindSessionByNameAndIndex(t *testing.T) {
	cfg := &GlobalConfig{Sessions: []*SessionConfig{
		{Name: "a", Endpoint: "ws://a"},
		{Name: "b", Endpoint: "ws://b"},
	}}

	byName, err := FindSession(cfg, "b")
	if err != nil || byName.Endpoint != "ws://b" {
		t.Fatalf("FindSession(b) = %+v, %v", byName, err)
	}
	byIndex, err := FindSession(cfg, "1")
	if err != nil || byIndex.Name != "a" {
		t.Fatalf("FindSession(1) = %+v, %v", byIndex, err)
	}
	if _, err := FindSession(cfg, "nope"); err == nil {
		t.Fatalf("expected error for unknown session")
	}
}

func TestSessionConfigValidate(t *testing.T) {
	valid := &SessionConfig{Endpoint: "ws://host"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := (&SessionConfig{}).Validate(); err != errEmptyEndpoint {
		t.Fatalf("expected errEmptyEndpoint, got %v", err)
	}
	if err := (&SessionConfig{Endpoint: "ws://h", Scale: -1}).Validate(); err != errNegativeScale {
		t.Fatalf("expected errNegativeScale, got %v", err)
	}
}

func TestConfigFileNameIsYAML(t *testing.T) {
	if filepath.Ext(configFileName) != ".yaml" {
		t.Fatalf("expected a .yaml config file name, got %q", configFileName)
	}
}
