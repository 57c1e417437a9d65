package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/carpenike/fitrecs/internal/database"
	"github.com/carpenike/fitrecs/internal/lifecycle"
	"github.com/carpenike/fitrecs/internal/llm"
	"github.com/carpenike/fitrecs/internal/metrics"
	"github.com/carpenike/fitrecs/internal/middleware"
	"github.com/carpenike/fitrecs/internal/models"
	"github.com/carpenike/fitrecs/internal/recommend"
)

const testUser = "user-1"

var testJWTSecret = []byte("handlers-test-secret")

// testDB creates a fresh in-memory SQLite database with migrations applied.
func testDB(t testing.TB) *sqlx.DB {
	t.Helper()

	db, err := database.Open(database.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := database.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("run migrations: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// recordingNotifier captures broadcast notifications.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	testErr  error
}

func (n *recordingNotifier) Notify(title, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, title+": "+message)
}

func (n *recordingNotifier) Enabled() bool { return true }

func (n *recordingNotifier) TestConnection() error { return n.testErr }

func (n *recordingNotifier) sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

type testEnv struct {
	t        *testing.T
	db       *sqlx.DB
	srv      *httptest.Server
	client   *http.Client
	provider *llm.MockProvider
	notifier *recordingNotifier
	metrics  *metrics.Manager
	hasher   *models.TokenHasher
	token    string
}

type envOption func(*RouterDeps)

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	db := testDB(t)
	log, _ := test.NewNullLogger()

	_, err := models.UpsertProfile(db, testUser, "alice", models.LevelIntermediate, "build strength")
	require.NoError(t, err)

	hasher, err := models.NewTokenHasher("token-secret")
	require.NoError(t, err)

	provider := llm.NewMockProvider(recommend.ToolName, validArguments(3))
	notifier := &recordingNotifier{}
	m, reg := metrics.NewTestManagerAndRegistry()

	gen := &recommend.Generator{
		DB:       db,
		Provider: func() (llm.Provider, error) { return provider, nil },
		Log:      log,
		Observer: m,
	}
	manager := &lifecycle.Manager{DB: db, Generator: gen, Notifier: notifier, Observer: m, Log: log}

	sessions := scs.New()
	sessions.Lifetime = time.Hour

	deps := RouterDeps{
		Sessions: sessions,
		Auth:     &middleware.Authenticator{JWTSecret: testJWTSecret, DB: db, Hasher: hasher, Log: log},
		ClientIP: middleware.NewClientIP(),
		Metrics:  m,
		Gatherer: reg,
		Log:      log,

		Functions:       &Functions{Generator: gen, Log: log},
		Recommendations: &Recommendations{Manager: manager, Sessions: sessions, Log: log},
		Completions:     &Completions{DB: db, Log: log},
		Tokens:          &Tokens{DB: db, Hasher: hasher, Log: log},
		Imports:         &Imports{DB: db, Log: log},
		Dashboard:       &Dashboard{DB: db, Log: log},
		System: &System{
			DB:        db,
			Providers: func() (llm.Provider, error) { return provider, nil },
			Notifier:  notifier,
			Log:       log,
		},
	}
	for _, opt := range opts {
		opt(&deps)
	}

	srv := httptest.NewServer(NewRouter(deps))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testEnv{
		t:        t,
		db:       db,
		srv:      srv,
		client:   &http.Client{Jar: jar},
		provider: provider,
		notifier: notifier,
		metrics:  m,
		hasher:   hasher,
		token:    signJWT(t, testUser),
	}
}

func signJWT(t testing.TB, sub string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(testJWTSecret)
	require.NoError(t, err)
	return s
}

// do sends a request as the test user. A nil body sends no body.
func (e *testEnv) do(method, path string, body any) (*http.Response, []byte) {
	return e.doAs(e.token, method, path, body)
}

// doAs sends a request with the given bearer token; "" sends none.
func (e *testEnv) doAs(token, method, path string, body any) (*http.Response, []byte) {
	e.t.Helper()

	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(e.t, err)
		rdr = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, e.srv.URL+path, rdr)
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.client.Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	return resp, data
}

func decode[T any](t testing.TB, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

// validArguments returns tool arguments holding n well-formed plans.
func validArguments(n int) string {
	type exercise struct {
		Name  string `json:"name"`
		Sets  string `json:"sets"`
		Reps  string `json:"reps"`
		Notes string `json:"notes,omitempty"`
	}
	type plan struct {
		Title       string     `json:"title"`
		Description string     `json:"description"`
		Duration    string     `json:"duration"`
		Difficulty  string     `json:"difficulty"`
		Exercises   []exercise `json:"exercises"`
		Benefits    []string   `json:"benefits"`
	}
	plans := make([]plan, 0, n)
	for i := 0; i < n; i++ {
		plans = append(plans, plan{
			Title:       "Plan " + string(rune('A'+i)),
			Description: "Strength focus",
			Duration:    "45 minutes",
			Difficulty:  "intermediate",
			Exercises: []exercise{
				{Name: "Squat", Sets: "3", Reps: "8-10"},
				{Name: "Squat", Sets: "2", Reps: "12", Notes: "lighter"},
				{Name: "Plank", Sets: "3", Reps: "45 seconds"},
			},
			Benefits: []string{"strength"},
		})
	}
	raw, _ := json.Marshal(map[string]any{"recommendations": plans})
	return string(raw)
}
