package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return p
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "router.yaml", `
asn: 1
service:
  log_level: debug
links:
  - port: 9000
    neighbor: 192.168.0.2
    relation: cust
  - port: 9001
    neighbor: 192.168.0.3
    relation: peer
`)
	cfg, err := Load(p, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ASN != 1 {
		t.Errorf("ASN = %d, want 1", cfg.ASN)
	}
	if cfg.Service.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.Service.LogLevel)
	}
	if len(cfg.Links) != 2 {
		t.Fatalf("Links = %d, want 2", len(cfg.Links))
	}
	if cfg.Links[0].Relation != "cust" {
		t.Errorf("Links[0].Relation = %q, want cust", cfg.Links[0].Relation)
	}
}

func TestLoadLinksFlagEndToEnd(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "router.yaml", "asn: 65000\n")
	cfg, err := Load(p, "9000=192.168.0.2=cust,9001=192.168.0.3=peer")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Links) != 2 {
		t.Fatalf("Links = %d, want 2", len(cfg.Links))
	}
	if cfg.Links[1].Port != 9001 || cfg.Links[1].Relation != "peer" {
		t.Errorf("Links[1] = %+v", cfg.Links[1])
	}
}

func TestValidateRejectsMissingASN(t *testing.T) {
	cfg := &Config{Links: []LinkConfig{{Port: 1, Neighbor: "1.2.3.4", Relation: "peer"}}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing asn")
	}
}

func TestValidateRejectsNoLinks(t *testing.T) {
	cfg := &Config{ASN: 1}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for no links")
	}
}

func TestValidateRejectsBadRelation(t *testing.T) {
	cfg := &Config{ASN: 1, Links: []LinkConfig{{Port: 1, Neighbor: "1.2.3.4", Relation: "frenemy"}}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for bad relation")
	}
}

func TestValidateRejectsDuplicateNeighbor(t *testing.T) {
	cfg := &Config{ASN: 1, Links: []LinkConfig{
		{Port: 1, Neighbor: "1.2.3.4", Relation: "peer"},
		{Port: 2, Neighbor: "1.2.3.4", Relation: "cust"},
	}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for duplicate neighbor")
	}
}
