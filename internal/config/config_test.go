package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func fromValues(t *testing.T, values map[string]string) (*Config, error) {
	t.Helper()
	v := viper.New()
	for k, val := range values {
		v.Set(k, val)
	}
	return FromViper(v)
}

func TestDefaults(t *testing.T) {
	cfg, err := fromValues(t, nil)
	if err != nil {
		t.Fatalf("FromViper err: %v", err)
	}

	if cfg.Server.Addr != ":8080" || cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Fatalf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Database.Driver != "memory" || cfg.Database.DSN != "" {
		t.Fatalf("unexpected database config: %+v", cfg.Database)
	}
	if cfg.AI.ReplyTimeout != 30*time.Second || cfg.AI.HistoryWindow != 0 {
		t.Fatalf("unexpected ai config: %+v", cfg.AI)
	}
	if got := cfg.AI.ResolvedProvider(); got != "echo" {
		t.Fatalf("expected echo provider without credentials, got %q", got)
	}
	if cfg.Speech.Enabled {
		t.Fatal("speech must be disabled without credentials")
	}
	if cfg.Speech.Voices["en"] == "" {
		t.Fatal("expected a default english voice")
	}
	if cfg.Log.Level != "info" || cfg.Log.Development {
		t.Fatalf("unexpected log config: %+v", cfg.Log)
	}
}

func TestServerAddr(t *testing.T) {
	cases := map[string]string{
		"9000":           ":9000",
		":7000":          ":7000",
		"127.0.0.1:6000": "127.0.0.1:6000",
	}
	for port, want := range cases {
		cfg, err := fromValues(t, map[string]string{"PORT": port})
		if err != nil {
			t.Fatalf("PORT=%q: %v", port, err)
		}
		if cfg.Server.Addr != want {
			t.Fatalf("PORT=%q: got %q want %q", port, cfg.Server.Addr, want)
		}
	}

	if _, err := fromValues(t, map[string]string{"PORT": "80 80"}); err == nil {
		t.Fatal("expected error for PORT with spaces")
	}
}

func TestDatabaseSelection(t *testing.T) {
	cfg, err := fromValues(t, map[string]string{"DATABASE_URL": "postgres://u:p@db:5432/mood?sslmode=disable"})
	if err != nil {
		t.Fatalf("FromViper err: %v", err)
	}
	if cfg.Database.Driver != "postgres" || !strings.HasPrefix(cfg.Database.DSN, "postgres://") {
		t.Fatalf("DATABASE_URL should select postgres: %+v", cfg.Database)
	}

	cfg, err = fromValues(t, map[string]string{"DATABASE_DRIVER": "postgres", "DB_HOST": "pg", "DB_NAME": "mood", "DB_USER": "app", "DB_PASS": "secret"})
	if err != nil {
		t.Fatalf("FromViper err: %v", err)
	}
	want := "host=pg port=5432 user=app password=secret dbname=mood sslmode=disable"
	if cfg.Database.DSN != want {
		t.Fatalf("unexpected dsn %q", cfg.Database.DSN)
	}

	cfg, err = fromValues(t, map[string]string{"DATABASE_DRIVER": "SQLite", "SQLITE_PATH": "/tmp/m.db"})
	if err != nil {
		t.Fatalf("FromViper err: %v", err)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN != "/tmp/m.db" {
		t.Fatalf("unexpected sqlite config: %+v", cfg.Database)
	}

	if _, err := fromValues(t, map[string]string{"DATABASE_DRIVER": "mongo"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestInvalidNumbersAbort(t *testing.T) {
	for _, key := range []string{"AI_REPLY_TIMEOUT", "AI_HISTORY_WINDOW", "AI_TEMPERATURE", "AI_MAX_TOKENS", "DB_MAX_OPEN_CONNS", "SPEECH_TTS_SPEED", "SHUTDOWN_TIMEOUT"} {
		if _, err := fromValues(t, map[string]string{key: "abc"}); err == nil {
			t.Errorf("%s=abc: expected error", key)
		}
	}
	if _, err := fromValues(t, map[string]string{"AI_HISTORY_WINDOW": "-1"}); err == nil {
		t.Error("negative history window should be rejected")
	}
	if _, err := fromValues(t, map[string]string{"AI_PROVIDER": "llama"}); err == nil {
		t.Error("unknown provider should be rejected")
	}
}

func TestProviderResolution(t *testing.T) {
	cases := []struct {
		name   string
		values map[string]string
		want   string
	}{
		{name: "ark credentials", values: map[string]string{"ARK_API_KEY": "k", "ARK_MODEL": "ep-1"}, want: "ark"},
		{name: "ark key without model", values: map[string]string{"ARK_API_KEY": "k", "OPENAI_API_KEY": "o"}, want: "openai"},
		{name: "gemini", values: map[string]string{"GEMINI_API_KEY": "g"}, want: "gemini"},
		{name: "explicit wins", values: map[string]string{"AI_PROVIDER": "Echo", "GEMINI_API_KEY": "g"}, want: "echo"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := fromValues(t, tc.values)
			if err != nil {
				t.Fatalf("FromViper err: %v", err)
			}
			if got := cfg.AI.ResolvedProvider(); got != tc.want {
				t.Fatalf("ResolvedProvider = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSpeechConfig(t *testing.T) {
	cfg, err := fromValues(t, map[string]string{
		"SPEECH_APP_ID":       "app",
		"SPEECH_API_KEY":      "legacy-token",
		"SPEECH_TTS_VOICE_HI": "hi_voice",
		"SPEECH_TTS_SPEED":    "1.2",
		"SPEECH_TIMEOUT":      "5",
	})
	if err != nil {
		t.Fatalf("FromViper err: %v", err)
	}
	s := cfg.Speech
	if !s.Enabled || s.AccessToken != "legacy-token" {
		t.Fatalf("expected speech enabled via legacy key: %+v", s)
	}
	if s.Voices["hi"] != "hi_voice" || s.Speed != float32(1.2) || s.Timeout != 5*time.Second {
		t.Fatalf("unexpected speech config: %+v", s)
	}
	if m := s.Model(); m.AppID != "app" || m.VoiceFor("hi") != "hi_voice" || m.VoiceFor("fr") != m.Voices["en"] || m.Timeout != s.Timeout {
		t.Fatalf("unexpected model config: %+v", m)
	}

	cfg, err = fromValues(t, map[string]string{"SPEECH_APP_ID": "app", "SPEECH_ACCESS_TOKEN": "t", "SPEECH_ENABLED": "false"})
	if err != nil {
		t.Fatalf("FromViper err: %v", err)
	}
	if cfg.Speech.Enabled {
		t.Fatal("SPEECH_ENABLED=false should disable speech")
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mindmate.yaml")
	if err := os.WriteFile(path, []byte("port: \"9100\"\njwt_secret: from-file\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != ":9100" || cfg.Auth.Secret != "from-file" {
		t.Fatalf("config file values not applied: server=%+v auth=%+v", cfg.Server, cfg.Auth)
	}
}
