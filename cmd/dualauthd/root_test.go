package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/MrEthical07/dualauth/password"
)

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	for _, sub := range []string{"serve", "hash", "version", "loadtest", "benchcheck", "--config"} {
		if !strings.Contains(buf.String(), sub) {
			t.Errorf("help missing %q", sub)
		}
	}
}

func TestServeCommand_Flags(t *testing.T) {
	cmd := NewServeCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	for _, flag := range []string{
		"--addr",
		"--log-format",
		"--log-level",
		"--session-backend",
		"--redis-addr",
		"--credentials-backend",
		"--postgres-dsn",
		"--jwt-algorithm",
	} {
		if !strings.Contains(buf.String(), flag) {
			t.Errorf("help missing %q flag", flag)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := NewRootCmd()
	cmd.Version = "1.2.3 (commit: abc, built: today)"
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "dualauthd 1.2.3 (commit: abc, built: today)" {
		t.Fatalf("version output = %q", got)
	}
}

func runHash(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"hash"}, args...))
	err := cmd.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestHashCommand(t *testing.T) {
	verifier := password.NewAuto()

	tests := []struct {
		name   string
		stdin  string
		args   []string
		prefix string
	}{
		{"bcrypt flag", "", []string{"--password", "s3cret", "--cost", "4"}, "$2"},
		{"bcrypt stdin", "s3cret\n", []string{"--cost", "4"}, "$2"},
		{"argon2id stdin", "s3cret\r\n", []string{"--algorithm", "argon2id"}, "$argon2id$"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := runHash(t, tt.stdin, tt.args...)
			if err != nil {
				t.Fatalf("hash error = %v", err)
			}
			if !strings.HasPrefix(hash, tt.prefix) {
				t.Fatalf("hash %q lacks prefix %q", hash, tt.prefix)
			}
			if !verifier.Verify("s3cret", hash) {
				t.Fatalf("hash %q does not verify", hash)
			}
		})
	}
}

func TestHashCommand_Errors(t *testing.T) {
	if _, err := runHash(t, ""); err == nil {
		t.Fatal("expected error for empty stdin")
	}
	if _, err := runHash(t, "\n"); err == nil {
		t.Fatal("expected error for empty password")
	}
	if _, err := runHash(t, "", "--password", "x", "--algorithm", "md5"); err == nil {
		t.Fatal("expected error for unknown algorithm")
	}
	if _, err := runHash(t, "", "--password", "x", "--cost", "99"); err == nil {
		t.Fatal("expected error for out of range cost")
	}
}
