package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("unexpected shutdown timeout: %s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Store.Driver != DriverSQLite || cfg.Store.SQLitePath != defaultSQLitePath {
		t.Errorf("unexpected store config: %+v", cfg.Store)
	}
	if cfg.PDF.Timeout != defaultPDFTimeout {
		t.Errorf("unexpected pdf timeout: %s", cfg.PDF.Timeout)
	}
	if cfg.Import.MaxUploadBytes != defaultMaxUploadBytes {
		t.Errorf("unexpected max upload: %d", cfg.Import.MaxUploadBytes)
	}
	if cfg.Idempotency.Header != defaultIdempotencyHeader || cfg.Idempotency.TTL != defaultIdempotencyTTL {
		t.Errorf("unexpected idempotency config: %+v", cfg.Idempotency)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Path != "/metrics" {
		t.Errorf("unexpected metrics config: %+v", cfg.Metrics)
	}
	if cfg.Build.Environment != "local" || cfg.Build.Version != "dev" {
		t.Errorf("unexpected build config: %+v", cfg.Build)
	}
	if cfg.Storage.ExportsBucket != "" {
		t.Errorf("expected archiving disabled by default, got %q", cfg.Storage.ExportsBucket)
	}
}

func TestLoadFirestoreDriverWithSecrets(t *testing.T) {
	env := map[string]string{
		"LABELS_SERVER_PORT":            "9090",
		"LABELS_SERVER_READ_TIMEOUT":    "20s",
		"LABELS_STORE_DRIVER":           "Firestore",
		"LABELS_FIRESTORE_PROJECT_ID":   "labels-prod",
		"LABELS_STORAGE_EXPORTS_BUCKET": "labels-exports",
		"LABELS_PDF_BROWSER_URL":        "ws://chrome:9222",
		"LABELS_PDF_BROWSER_TOKEN":      "sm://pdf/token",
		"LABELS_RENDER_SEARCH_URL":      "https://shop.test/?q=%s",
		"LABELS_METRICS_ENABLED":        "off",
	}
	var refs []string
	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		refs = append(refs, ref)
		return "resolved-token", nil
	})

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""),
		WithSecretResolver(resolver), WithRequiredSecrets("PDF.BrowserToken"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" || cfg.Server.ReadTimeout != 20*time.Second {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Store.Driver != DriverFirestore {
		t.Errorf("expected driver to be normalised, got %s", cfg.Store.Driver)
	}
	if cfg.PubSub.ProjectID != "labels-prod" || cfg.Secrets.DefaultProject != "labels-prod" {
		t.Errorf("expected project fallbacks, got pubsub=%s secrets=%s", cfg.PubSub.ProjectID, cfg.Secrets.DefaultProject)
	}
	if cfg.PDF.BrowserToken != "resolved-token" {
		t.Errorf("expected resolved token, got %q", cfg.PDF.BrowserToken)
	}
	if cfg.PDF.BrowserURL != "ws://chrome:9222" {
		t.Errorf("plain values must pass through, got %q", cfg.PDF.BrowserURL)
	}
	if !reflect.DeepEqual(refs, []string{"secret://pdf/token"}) {
		t.Errorf("unexpected resolver calls: %v", refs)
	}
	if cfg.Metrics.Enabled {
		t.Errorf("expected metrics disabled")
	}
	if cfg.Render.SearchURL != "https://shop.test/?q=%s" {
		t.Errorf("unexpected search url %q", cfg.Render.SearchURL)
	}
}

func TestLoadValidation(t *testing.T) {
	env := map[string]string{
		"LABELS_STORE_DRIVER":              "postgres",
		"LABELS_IDEMPOTENCY_CLEANUP_BATCH": "0",
	}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	want := []string{"Store.Driver", "Idempotency.CleanupBatchSize"}
	if !reflect.DeepEqual(vErr.Fields(), want) {
		t.Fatalf("expected fields %v, got %v", want, vErr.Fields())
	}

	_, err = Load(context.Background(), WithEnvMap(map[string]string{"LABELS_STORE_DRIVER": "firestore"}), WithoutSystemEnv(), WithEnvFile(""))
	if !errors.As(err, &vErr) || !reflect.DeepEqual(vErr.Fields(), []string{"Firestore.ProjectID"}) {
		t.Fatalf("expected firestore project validation, got %v", err)
	}
}

func TestLoadSecretErrors(t *testing.T) {
	env := map[string]string{"LABELS_PDF_BROWSER_TOKEN": "secret://pdf/token"}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var sErr *SecretError
	if !errors.As(err, &sErr) || !errors.Is(err, errSecretResolverNotConfigured) {
		t.Fatalf("expected resolver not configured, got %v", err)
	}

	_, err = Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""),
		WithRequiredSecrets("PDF.BrowserToken", "PDF.BrowserToken"))
	var mErr *MissingSecretsError
	if !errors.As(err, &mErr) {
		t.Fatalf("expected missing secrets error, got %v", err)
	}
	if !reflect.DeepEqual(mErr.Names(), []string{"PDF.BrowserToken"}) {
		t.Fatalf("unexpected missing names %v", mErr.Names())
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "# local overrides\nexport LABELS_SERVER_PORT=7000\nLABELS_STORE_SQLITE_PATH=\"/tmp/from-dotenv.db\"\n"
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("LABELS_SERVER_PORT", "7100")

	cfg, err := Load(context.Background(), WithEnvFile(envFile), WithEnvMap(map[string]string{"LABELS_PDF_TIMEOUT": "5s"}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "7100" {
		t.Errorf("expected OS env to win over .env, got %s", cfg.Server.Port)
	}
	if cfg.Store.SQLitePath != "/tmp/from-dotenv.db" {
		t.Errorf("expected .env value, got %s", cfg.Store.SQLitePath)
	}
	if cfg.PDF.Timeout != 5*time.Second {
		t.Errorf("expected explicit map value, got %s", cfg.PDF.Timeout)
	}

	values, err := EnvironmentValues(WithEnvFile(envFile), WithoutSystemEnv())
	if err != nil {
		t.Fatalf("EnvironmentValues returned error: %v", err)
	}
	if values["LABELS_SERVER_PORT"] != "7000" {
		t.Errorf("expected .env port without system env, got %s", values["LABELS_SERVER_PORT"])
	}
}

func TestNormalizeSecretReference(t *testing.T) {
	if got := NormalizeSecretReference(" sm://a/b "); got != "secret://a/b" {
		t.Fatalf("unexpected normalisation %q", got)
	}
	if IsSecretReference("https://x") {
		t.Fatalf("plain url is not a secret reference")
	}
}
