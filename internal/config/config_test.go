package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		Cluster: ClusterConfig{WOServer: "engine:6334"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 19531 {
		t.Errorf("expected default port 19531, got %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.MetricsPort != 19532 {
		t.Errorf("expected default metrics port 19532, got %d", cfg.HTTP.MetricsPort)
	}
	if cfg.Search.MaxTopK != 2048 {
		t.Errorf("expected default max_topk 2048, got %d", cfg.Search.MaxTopK)
	}
	if cfg.Tracing.Type != "none" {
		t.Errorf("expected tracing disabled by default, got %q", cfg.Tracing.Type)
	}
}

func TestValidate_MissingWOServer(t *testing.T) {
	cfg := validConfig()
	cfg.Cluster.WOServer = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing woserver")
	}
}

func TestValidate_PortCollision(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.MetricsPort = cfg.HTTP.Port

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for colliding ports")
	}
}

func TestValidate_BadDiscovery(t *testing.T) {
	cfg := validConfig()
	cfg.Cluster.Discovery = "dns"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown discovery provider")
	}
}

func TestValidate_FileDiscoveryNeedsPath(t *testing.T) {
	cfg := validConfig()
	cfg.Cluster.Discovery = "file"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for file discovery without hosts_file")
	}

	cfg.Cluster.HostsFile = "/etc/vecshard/hosts"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_TracingContract(t *testing.T) {
	cfg := validConfig()
	cfg.Tracing.Type = "jaeger"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for jaeger tracing without reporting host")
	}

	cfg.Tracing.ReportingHost = "tracing"
	cfg.Tracing.ReportingPort = 4317
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Tracing.Endpoint() != "tracing:4317" {
		t.Errorf("unexpected endpoint %q", cfg.Tracing.Endpoint())
	}
}

func TestValidate_UnknownTracingType(t *testing.T) {
	cfg := validConfig()
	cfg.Tracing.Type = "zipkin"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown tracing type")
	}
	if !strings.Contains(err.Error(), "tracing.type") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestStaticHostList(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"empty", "", 0},
		{"single", "ro1:6334", 1},
		{"multiple with spaces", "ro1:6334, ro2:6334 ,ro3:6334", 3},
		{"trailing comma", "ro1:6334,", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ClusterConfig{StaticHosts: tt.in}
			if got := c.StaticHostList(); len(got) != tt.want {
				t.Errorf("expected %d hosts, got %v", tt.want, got)
			}
		})
	}
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("SERVER_PORT", "19531")
	t.Setenv("WOSERVER", "tcp://engine:6334")
	t.Setenv("SD_STATIC_HOSTS", "ro1:6334,ro2:6334")

	raw := []byte(`
http:
  port: ${SERVER_PORT}
cluster:
  woserver: ${WOSERVER}
  static_hosts: ${SD_STATIC_HOSTS}
tracing:
  type: ${TRACING_TYPE:-none}
`)

	cfg, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 19531 {
		t.Errorf("expected port 19531, got %d", cfg.HTTP.Port)
	}
	if cfg.Cluster.WOServer != "tcp://engine:6334" {
		t.Errorf("unexpected woserver %q", cfg.Cluster.WOServer)
	}
	if got := cfg.Cluster.StaticHostList(); len(got) != 2 {
		t.Errorf("expected 2 static hosts, got %v", got)
	}
	if cfg.Tracing.Type != "none" {
		t.Errorf("expected default tracing type none, got %q", cfg.Tracing.Type)
	}
}
