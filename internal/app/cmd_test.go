package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand(&bytes.Buffer{})

	want := []string{"serve", "worker", "migrate", "rotate", "reconcile", "seed", "healthcheck"}
	for _, name := range want {
		sub, _, err := cmd.Find([]string{name})
		if err != nil || sub.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestNewRootCommand_Flags(t *testing.T) {
	cmd := NewRootCommand(&bytes.Buffer{})

	tests := []struct {
		sub  string
		flag string
	}{
		{"reconcile", "repair"},
		{"seed", "file"},
		{"seed", "reset"},
		{"migrate", "rollback"},
		{"migrate", "version"},
		{"healthcheck", "url"},
	}
	for _, tt := range tests {
		sub, _, err := cmd.Find([]string{tt.sub})
		if err != nil {
			t.Fatalf("Find(%q) error: %v", tt.sub, err)
		}
		if sub.Flags().Lookup(tt.flag) == nil {
			t.Errorf("%s should have --%s flag", tt.sub, tt.flag)
		}
	}
}

func TestRun_WithMissingEnv_ReturnsError(t *testing.T) {
	for _, args := range [][]string{{}, {"serve"}, {"worker"}, {"rotate"}, {"reconcile", "--repair"}, {"migrate"}} {
		t.Run(strings.Join(append([]string{"beefboard"}, args...), " "), func(t *testing.T) {
			clearRequiredEnv(t)

			var buf bytes.Buffer
			err := Run(&buf, args)
			if err == nil {
				t.Fatal("Run with missing env should return error")
			}
			if !strings.Contains(err.Error(), "initialization failed") {
				t.Errorf("error = %v, want initialization failure", err)
			}
		})
	}
}

func TestRun_SeedRequiresFile(t *testing.T) {
	setTestEnv(t)

	err := Run(&bytes.Buffer{}, []string{"seed"})
	if err == nil {
		t.Fatal("seed without --file should return error")
	}
	if !strings.Contains(err.Error(), "file") {
		t.Errorf("error = %v, want mention of --file", err)
	}
}

func TestRun_UnknownSubcommand(t *testing.T) {
	if err := Run(&bytes.Buffer{}, []string{"explode"}); err == nil {
		t.Fatal("unknown subcommand should return error")
	}
}

func TestHealthcheck(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"healthy", http.StatusOK, false},
		{"store down", http.StatusServiceUnavailable, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/health" {
					http.NotFound(w, r)
					return
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			cmd := NewRootCommand(&bytes.Buffer{})
			cmd.SetArgs([]string{"healthcheck", "--url", srv.URL + "/health"})
			err := cmd.ExecuteContext(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("healthcheck error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHealthcheck_DefaultsToServerPort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	port := srv.URL[strings.LastIndex(srv.URL, ":")+1:]
	t.Setenv("SERVER_PORT", port)

	if err := Run(&bytes.Buffer{}, []string{"healthcheck"}); err != nil {
		t.Errorf("healthcheck against SERVER_PORT failed: %v", err)
	}
}
