package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "streamgate.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
version: "1"
modules:
  store.memory: {}
  gateway.http:
    bind: "127.0.0.1:8080"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Version != "1" {
		t.Errorf("Version = %q, want %q", cfg.Version, "1")
	}
	if len(cfg.Modules) != 2 {
		t.Errorf("len(Modules) = %d, want 2", len(cfg.Modules))
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load() = nil, want error for missing file")
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("SG_TEST_TOKEN", "123:abc")

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{
			name: "set variable",
			in:   "token: ${SG_TEST_TOKEN}",
			want: "token: 123:abc",
		},
		{
			name: "default used when unset",
			in:   "bind: ${SG_TEST_UNSET:-0.0.0.0:8080}",
			want: "bind: 0.0.0.0:8080",
		},
		{
			name: "set variable wins over default",
			in:   "token: ${SG_TEST_TOKEN:-fallback}",
			want: "token: 123:abc",
		},
		{
			name:    "unset without default errors",
			in:      "token: ${SG_TEST_UNSET}",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := expandEnv([]byte(tt.in))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expandEnv() = nil, want error")
				}
				if !strings.Contains(err.Error(), "SG_TEST_UNSET") {
					t.Errorf("error %q does not name the unresolved variable", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expandEnv() error: %v", err)
			}
			if string(out) != tt.want {
				t.Errorf("expandEnv() = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	path := writeConfig(t, `
version: "2"
modules: {}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	err = Validate(cfg)
	if err == nil {
		t.Fatal("Validate() = nil, want errors")
	}
	msg := err.Error()
	if !strings.Contains(msg, "unsupported version") {
		t.Errorf("error %q missing version complaint", msg)
	}
	if !strings.Contains(msg, "at least one module") {
		t.Errorf("error %q missing empty-modules complaint", msg)
	}
}

func TestValidateUnknownModule(t *testing.T) {
	path := writeConfig(t, `
version: "1"
modules:
  not.a.module: {}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if err := Validate(cfg); err == nil {
		t.Fatal("Validate() = nil, want unknown module error")
	}
}

func TestResolveSorted(t *testing.T) {
	path := writeConfig(t, `
version: "1"
modules:
  store.memory: {}
  channel.telegram: {}
  gateway.http: {}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	ids := Resolve(cfg)
	want := []string{"channel.telegram", "gateway.http", "store.memory"}
	if len(ids) != len(want) {
		t.Fatalf("Resolve() = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}
