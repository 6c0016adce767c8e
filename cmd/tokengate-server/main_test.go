package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tokengate "github.com/chimerakang/tokengate-go"
	"github.com/chimerakang/tokengate-go/metrics"
	"github.com/chimerakang/tokengate-go/store"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func init() {
	gin.SetMode(gin.TestMode)
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("TOKENGATE_SIGNING_SECRET", testSecret)
	t.Setenv("TOKENGATE_PREVIOUS_KEYS", "old="+strings.Repeat("x", 32))

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.HTTPAddr != ":8080" || cfg.GRPCAddr != "" || cfg.RedisAddr != "" {
		t.Errorf("addresses = %q %q %q", cfg.HTTPAddr, cfg.GRPCAddr, cfg.RedisAddr)
	}
	if cfg.Token.TokenExpiry != 24*time.Hour || cfg.Token.ClockSkew != 5*time.Minute {
		t.Errorf("token windows = %s / %s", cfg.Token.TokenExpiry, cfg.Token.ClockSkew)
	}
	if cfg.Token.Scheme != "Bearer" || cfg.Token.APIRole != "ApiUserRole" || cfg.Token.APIDisabled {
		t.Errorf("token config = %+v", cfg.Token)
	}
	if strings.Join(cfg.Token.Requirements, ",") != "api-enabled,bearer-scheme,api-role" {
		t.Errorf("requirements = %v", cfg.Token.Requirements)
	}
	if cfg.logLevel() != slog.LevelInfo {
		t.Errorf("log level = %v", cfg.logLevel())
	}

	ring, err := cfg.keyRing()
	if err != nil {
		t.Fatalf("keyRing: %v", err)
	}
	verify, _ := ring.VerificationKeys(context.Background())
	if len(verify) != 2 || verify[0].ID != "primary" || verify[1].ID != "old" {
		t.Errorf("verification keys = %+v", verify)
	}
}

func TestLoadConfig_MissingSecret(t *testing.T) {
	t.Setenv("TOKENGATE_SIGNING_SECRET", "")

	if _, err := loadConfig(""); err == nil {
		t.Fatal("expected error without a signing secret")
	}
}

func TestLoadConfig_EnvFile(t *testing.T) {
	for _, k := range []string{"TOKENGATE_SIGNING_SECRET", "TOKENGATE_HTTP_ADDR", "TOKENGATE_LOG_LEVEL"} {
		if _, ok := os.LookupEnv(k); ok {
			t.Skipf("%s already set in the environment", k)
		}
		key := k
		t.Cleanup(func() { os.Unsetenv(key) })
	}

	path := filepath.Join(t.TempDir(), ".env")
	content := "TOKENGATE_SIGNING_SECRET=" + testSecret + "\nTOKENGATE_HTTP_ADDR=:9999\nTOKENGATE_LOG_LEVEL=debug\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.HTTPAddr != ":9999" || cfg.logLevel() != slog.LevelDebug {
		t.Errorf("cfg = %q %v", cfg.HTTPAddr, cfg.logLevel())
	}
}

func TestLoadConfig_MissingEnvFileIsIgnored(t *testing.T) {
	t.Setenv("TOKENGATE_SIGNING_SECRET", testSecret)

	if _, err := loadConfig(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("missing env file should be ignored: %v", err)
	}
}

type testServer struct {
	router *gin.Engine
	client *tokengate.Client
	store  *store.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	t.Setenv("TOKENGATE_SIGNING_SECRET", testSecret)
	t.Setenv("TOKENGATE_DATABASE_DSN", fmt.Sprintf("file:server-%d?mode=memory&cache=shared", time.Now().UnixNano()))

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	db, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		t.Fatal(err)
	}
	hostStore := store.New(db, store.WithBcryptCost(4), store.WithDefaultSettings(tokengate.SettingsFromConfig(cfg.Token)))

	ctx := context.Background()
	if err := hostStore.EnsureAPIRole(ctx, cfg.Token.APIRole); err != nil {
		t.Fatal(err)
	}
	if _, err := hostStore.CreateCustomer(ctx, store.NewCustomer{
		Email:    "alice@example.com",
		Password: "s3cret",
		Active:   true,
		Roles:    []string{store.RoleRegistered, cfg.Token.APIRole},
	}); err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := newClient(ctx, cfg, logger, hostStore)
	if err != nil {
		t.Fatal(err)
	}
	reg := prometheus.NewRegistry()
	return &testServer{
		router: newRouter(client, metrics.New(reg), reg),
		client: client,
		store:  hostStore,
	}
}

func (s *testServer) do(method, path, body, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestServer_EndToEnd(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/token", `{"username":"alice@example.com","password":"s3cret"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("POST /token = %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data struct {
			Token     string `json:"token"`
			SubjectID int64  `json:"subjectId"`
			Username  string `json:"username"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.Username != "alice@example.com" {
		t.Errorf("username = %q", resp.Data.Username)
	}

	w = s.do(http.MethodGet, "/token/check", "", "Bearer "+resp.Data.Token)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"Authorized"`) {
		t.Fatalf("GET /token/check = %d %s", w.Code, w.Body.String())
	}

	w = s.do(http.MethodGet, "/metrics", "", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "tokengate_tokens_issued_total 1") {
		t.Errorf("metrics missing issuance counter: %d", w.Code)
	}

	if err := s.client.Close(); err != nil {
		t.Fatal(err)
	}
	acts, err := s.store.Activities(context.Background(), resp.Data.SubjectID)
	if err != nil {
		t.Fatal(err)
	}
	if len(acts) != 1 || acts[0].EventName != "Api.TokenRequest" {
		t.Errorf("activities = %+v", acts)
	}
}

func TestServer_DeniesAfterRoleUninstall(t *testing.T) {
	s := newTestServer(t)
	defer s.client.Close()

	w := s.do(http.MethodPost, "/token", `{"username":"alice@example.com","password":"s3cret"}`, "")
	var resp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)

	if err := s.store.DeactivateAPIRole(context.Background(), tokengate.DefaultAPIRole); err != nil {
		t.Fatal(err)
	}

	w = s.do(http.MethodGet, "/token/check", "", "Bearer "+resp.Data.Token)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestServer_APIDisabledSetting(t *testing.T) {
	s := newTestServer(t)
	defer s.client.Close()

	w := s.do(http.MethodPost, "/token", `{"username":"alice@example.com","password":"s3cret"}`, "")
	var resp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)

	if err := s.store.SetSetting(context.Background(), store.SettingAPIEnabled, "false"); err != nil {
		t.Fatal(err)
	}
	if w := s.do(http.MethodGet, "/token/check", "", "Bearer "+resp.Data.Token); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestServer_Routes(t *testing.T) {
	s := newTestServer(t)
	defer s.client.Close()

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, "/nope", "", http.StatusNotFound},
		{http.MethodPost, "/token", `{"username":"alice@example.com","password":"wrong"}`, http.StatusBadRequest},
		{http.MethodPost, "/token", `not json`, http.StatusBadRequest},
		{http.MethodGet, "/token/check", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			if w := s.do(tt.method, tt.path, tt.body, ""); w.Code != tt.status {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.status, w.Body.String())
			}
		})
	}
}

func TestNewGRPCServer_RegistersHealth(t *testing.T) {
	s := newTestServer(t)
	defer s.client.Close()

	srv := newGRPCServer(s.client, nil)
	defer srv.Stop()
	if _, ok := srv.GetServiceInfo()["grpc.health.v1.Health"]; !ok {
		t.Error("health service not registered")
	}
}
