package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cargolinq/freight-auth-service/internal/domain"
	"github.com/cargolinq/freight-auth-service/internal/http/handler"
	"github.com/cargolinq/freight-auth-service/internal/http/router"
	"github.com/cargolinq/freight-auth-service/internal/repository"
	"github.com/cargolinq/freight-auth-service/internal/security"
	"github.com/cargolinq/freight-auth-service/internal/service"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testBackend struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	hasher   *security.PasswordHasher
	db       *gorm.DB
}

// newAuthTestServer boots the full router on an in-memory database and an
// embedded Redis, returning a base URL and a cookie-jar client.
func newAuthTestServer(t *testing.T) (string, *http.Client, *testBackend) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.User{}, &domain.Session{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	redisServer := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: redisServer.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	users := repository.NewUserRepository(db)
	sessions := repository.NewSessionRepository(db)
	hasher := security.NewPasswordHasher(bcrypt.MinCost)
	tokens := security.NewJWTManager("freight-auth-it", "access-secret", "refresh-secret", 15*time.Minute, time.Hour)
	guard := service.NewRedisIPGuard(client, "", service.IPGuardPolicy{})
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	auth := service.NewAuthService(users, sessions, hasher, tokens, guard, service.LockoutPolicy{}, log)
	reaper := service.NewSessionReaper(sessions, 0, 0, log)

	h := router.NewRouter(router.Dependencies{
		AuthHandler:        handler.NewAuthHandler(auth, time.Hour, false),
		MaintenanceHandler: handler.NewMaintenanceHandler(reaper, "sweep-secret"),
		JWTManager:         tokens,
		AuthRateLimitRPM:   1000,
		APIRateLimitRPM:    1000,
	})

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return srv.URL, &http.Client{Jar: jar}, &testBackend{users: users, sessions: sessions, hasher: hasher, db: db}
}

func (b *testBackend) seedUser(t *testing.T, username, password string) *domain.User {
	t.Helper()
	hash, err := b.hasher.Hash(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &domain.User{Username: username, PasswordHash: hash, Role: domain.RoleOperator}
	if err := b.users.Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp, env
}

func accessTokenFrom(t *testing.T, env envelope) string {
	t.Helper()
	var data struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode login data: %v", err)
	}
	if data.AccessToken == "" {
		t.Fatal("no access token in response")
	}
	return data.AccessToken
}
