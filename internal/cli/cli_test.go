package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/placeskit/pkg/config"
	"github.com/matzehuels/placeskit/pkg/errors"
	"github.com/matzehuels/placeskit/pkg/observability"
	"github.com/matzehuels/placeskit/pkg/observability/prom"
	"github.com/matzehuels/placeskit/pkg/quota"
)

type testEnv struct {
	dir     string
	tracker string
	keys    string
}

// newTestEnv writes a config, a key file and a tracker file into a temp dir
// and points PLACESKIT_CONFIG at it.
func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	env := testEnv{
		dir:     dir,
		tracker: filepath.Join(dir, quota.DefaultFile),
		keys:    filepath.Join(dir, "keys.txt"),
	}

	writeTestFile(t, env.keys, "GooglePlaces: AIzaSyTESTKEY00001234\nBackup:AIzaSyBACKUP000005678\n")
	writeTestFile(t, env.tracker, "Date\tCount\n")
	cfg := fmt.Sprintf(`keys_file = %q

[quota]
file = %q

[fetch]
max_tries = 2
delay = "0s"
transport_backoff = "0s"
max_transport_retries = 3
`, env.keys, env.tracker)
	path := filepath.Join(dir, "config.toml")
	writeTestFile(t, path, cfg)
	t.Setenv(config.EnvConfig, path)
	return env
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// run executes the CLI with args and returns what it printed to stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	orig := stdout
	stdout = &out
	defer func() { stdout = orig }()

	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// placesServer answers with body and records the raw query of each request.
func placesServer(t *testing.T, body string) (*httptest.Server, *atomic.Int32, *atomic.Value) {
	t.Helper()
	var hits atomic.Int32
	var lastQuery atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		lastQuery.Store(r.URL.RawQuery)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits, &lastQuery
}

const searchBody = `{"status":"OK","results":[
  {"name":"Cafe Sydney","vicinity":"31 Alfred St","geometry":{"location":{"lat":-33.861,"lng":151.210}},"rating":4.4,"user_ratings_total":2000},
  {"name":"Opera Bar","formatted_address":"Macquarie St, Sydney","geometry":{"location":{"lat":-33.857,"lng":151.214}}}
]}`

func today() string { return time.Now().Format(quota.DayFormat) }

func TestRootCommand(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	want := map[string]bool{"get": false, "quota": false, "keys": false, "config": false, "completion": false}
	for _, cmd := range root.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Error("missing --config flag")
	}
}

func TestGetBuildsQueryInOrder(t *testing.T) {
	newTestEnv(t)
	srv, hits, lastQuery := placesServer(t, searchBody)

	out, err := run(t, "get", srv.URL+"/json",
		"-p", "location=-33.8670522,151.1957362",
		"-p", "radius=500",
		"-p", "keyword=coffee & cake",
	)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}
	want := "location=-33.8670522%2C151.1957362&radius=500&keyword=coffee+%26+cake&key=AIzaSyTESTKEY00001234"
	if got := lastQuery.Load(); got != want {
		t.Errorf("query = %q, want %q", got, want)
	}
	if !strings.Contains(out, `"name": "Cafe Sydney"`) {
		t.Errorf("output should contain the indented payload:\n%s", out)
	}
}

func TestGetRawNoKey(t *testing.T) {
	newTestEnv(t)
	srv, _, lastQuery := placesServer(t, searchBody)

	if _, err := run(t, "get", srv.URL, "--no-key", "--raw", "-p", "location=1,2"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := lastQuery.Load(); got != "location=1,2" {
		t.Errorf("query = %q, want location=1,2", got)
	}
}

func TestGetKeyName(t *testing.T) {
	newTestEnv(t)
	srv, _, lastQuery := placesServer(t, searchBody)

	if _, err := run(t, "get", srv.URL, "--key-name", "Backup"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := lastQuery.Load(); got != "key=AIzaSyBACKUP000005678" {
		t.Errorf("query = %q", got)
	}

	_, err := run(t, "get", srv.URL, "--key-name", "Nope")
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("unknown key error = %v, want NOT_FOUND", err)
	}
}

func TestGetCountsQuota(t *testing.T) {
	env := newTestEnv(t)
	srv, _, _ := placesServer(t, searchBody)

	for i := 0; i < 2; i++ {
		if _, err := run(t, "get", srv.URL, "--quota"); err != nil {
			t.Fatalf("get: %v", err)
		}
	}
	data, err := os.ReadFile(env.tracker)
	if err != nil {
		t.Fatal(err)
	}
	if want := "Date\tCount\n" + today() + "\t2\n"; string(data) != want {
		t.Errorf("tracker = %q, want %q", data, want)
	}
}

func TestGetQuotaExceeded(t *testing.T) {
	env := newTestEnv(t)
	writeTestFile(t, env.tracker, "Date\tCount\n"+today()+"\t149999\n")
	srv, hits, _ := placesServer(t, searchBody)

	out, err := run(t, "get", srv.URL, "--quota")
	if !errors.Is(err, errors.ErrCodeQuotaExceeded) {
		t.Fatalf("get error = %v, want QUOTA_EXCEEDED", err)
	}
	if hits.Load() != 0 {
		t.Errorf("server hits = %d, want 0", hits.Load())
	}
	if !strings.Contains(out, "Daily quota of 150000 requests reached") {
		t.Errorf("output = %q", out)
	}
}

func TestGetGivesUp(t *testing.T) {
	newTestEnv(t)
	srv, hits, _ := placesServer(t, `{"status":"REQUEST_DENIED","error_message":"The provided API key is invalid."}`)

	_, err := run(t, "get", srv.URL)
	if !errors.Is(err, errors.ErrCodeAPIStatus) {
		t.Fatalf("get error = %v, want API_STATUS", err)
	}
	if !strings.Contains(err.Error(), "The provided API key is invalid.") {
		t.Errorf("error %q should carry the API message", err)
	}
	if hits.Load() != 2 {
		t.Errorf("server hits = %d, want max_tries from config (2)", hits.Load())
	}

	_, err = run(t, "get", srv.URL, "--max-tries", "3")
	if err == nil || hits.Load() != 5 {
		t.Errorf("--max-tries 3: err = %v, total hits = %d, want 5", err, hits.Load())
	}
}

func TestGetOutputFormats(t *testing.T) {
	newTestEnv(t)
	srv, _, _ := placesServer(t, searchBody)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"field array", []string{"--field", "results.#.name"}, []string{`["Cafe Sydney","Opera Bar"]`}},
		{"field string", []string{"--field", "results.1.formatted_address"}, []string{"Macquarie St, Sydney"}},
		{"places", []string{"--places"}, []string{"Cafe Sydney", "31 Alfred St", "Opera Bar", "4.4 (2000)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, append([]string{"get", srv.URL}, tt.args...)...)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output should contain %q:\n%s", w, out)
				}
			}
		})
	}

	_, err := run(t, "get", srv.URL, "--field", "results.9.name")
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("missing field error = %v, want NOT_FOUND", err)
	}
}

func TestGetRejectsBadInput(t *testing.T) {
	newTestEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"relative url", []string{"get", "/json"}},
		{"param without value", []string{"get", "http://example.com", "-p", "radius"}},
		{"bad param name", []string{"get", "http://example.com", "-p", "a&b=1"}},
		{"bad header", []string{"get", "http://example.com", "-H", "nocolon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			if !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("error = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"query=pizza in new york", "type=restaurant", "empty="}, true)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"query", "pizza+in+new+york", "type", "restaurant", "empty", ""}
	for i, p := range params {
		if p.Name != want[2*i] || p.Value != want[2*i+1] {
			t.Errorf("param %d = %+v", i, p)
		}
	}
}

func TestParseHeaders(t *testing.T) {
	h, err := parseHeaders([]string{"x-goog-fieldmask: places.id", "Accept:application/json"})
	if err != nil {
		t.Fatal(err)
	}
	if h["X-Goog-Fieldmask"] != "places.id" || h["Accept"] != "application/json" {
		t.Errorf("headers = %v", h)
	}
	if !strings.HasPrefix(h["User-Agent"], "placeskit/") {
		t.Errorf("User-Agent = %q", h["User-Agent"])
	}
}

func TestQuotaCommands(t *testing.T) {
	env := newTestEnv(t)
	writeTestFile(t, env.tracker, "Date\tCount\n20240101\t150000\n20240102\t12\n"+today()+"\t75000\n")

	out, err := run(t, "quota", "status")
	if err != nil {
		t.Fatalf("quota status: %v", err)
	}
	for _, w := range []string{today(), "75000", "/ 150000", "74999", "50.0%"} {
		if !strings.Contains(out, w) {
			t.Errorf("status output should contain %q:\n%s", w, out)
		}
	}

	out, err = run(t, "quota", "history", "-n", "2")
	if err != nil {
		t.Fatalf("quota history: %v", err)
	}
	if strings.Contains(out, "20240101") || !strings.Contains(out, "20240102") {
		t.Errorf("history -n 2 should show the last two days:\n%s", out)
	}

	data, _ := os.ReadFile(env.tracker)
	if !strings.HasSuffix(string(data), today()+"\t75000\n") {
		t.Errorf("read-only commands changed the tracker: %q", data)
	}
}

func TestQuotaInit(t *testing.T) {
	env := newTestEnv(t)
	if err := os.Remove(env.tracker); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "quota", "init")
	if err != nil {
		t.Fatalf("quota init: %v", err)
	}
	if !strings.Contains(out, env.tracker) {
		t.Errorf("output should name the file:\n%s", out)
	}
	data, _ := os.ReadFile(env.tracker)
	if string(data) != "Date\tCount\n" {
		t.Errorf("tracker = %q", data)
	}

	out, err = run(t, "quota", "history")
	if err != nil || !strings.Contains(out, "No requests recorded yet") {
		t.Errorf("history on empty tracker = %q, %v", out, err)
	}
}

func TestKeysList(t *testing.T) {
	newTestEnv(t)

	out, err := run(t, "keys", "list")
	if err != nil {
		t.Fatalf("keys list: %v", err)
	}
	if !strings.Contains(out, "Backup") || !strings.Contains(out, "GooglePlaces") {
		t.Errorf("output should list both keys:\n%s", out)
	}
	if strings.Contains(out, "TESTKEY") || !strings.Contains(out, "1234") {
		t.Errorf("secrets should be masked to the last four characters:\n%s", out)
	}
}

func TestConfigCommands(t *testing.T) {
	env := newTestEnv(t)

	out, err := run(t, "config", "path")
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if strings.TrimSpace(out) != filepath.Join(env.dir, "config.toml") {
		t.Errorf("config path = %q", out)
	}

	out, err = run(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	for _, w := range []string{"max_tries = 2", `delay = "0s"`, "limit = 150000", env.keys} {
		if !strings.Contains(out, w) {
			t.Errorf("config show should contain %q:\n%s", w, out)
		}
	}
}

func TestConfigInvalid(t *testing.T) {
	env := newTestEnv(t)
	writeTestFile(t, filepath.Join(env.dir, "config.toml"), "[quota]\nlimit = -5\n")

	_, err := run(t, "quota", "status")
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("error = %v, want INVALID_INPUT", err)
	}
}

func TestMetricsRouter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := prom.New(reg)
	m.OnAttempt(context.Background(), "maps.googleapis.com", 1, 200, "OK", 50*time.Millisecond)

	srv := httptest.NewServer(newMetricsRouter(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/healthz status = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), `placeskit_fetch_attempts_total{api_status="OK",code="200",host="maps.googleapis.com"} 1`) {
		t.Errorf("/metrics missing attempt series:\n%s", body)
	}
}

func TestStartMetrics(t *testing.T) {
	defer observability.Reset()
	c := New(io.Discard, LogInfo)

	stop, err := c.startMetrics("127.0.0.1:0")
	if err != nil {
		t.Fatalf("startMetrics: %v", err)
	}
	if _, ok := observability.Fetch().(*prom.Metrics); !ok {
		t.Errorf("fetch hooks = %T, want *prom.Metrics", observability.Fetch())
	}
	stop()
	if _, ok := observability.Fetch().(observability.NoopFetchHooks); !ok {
		t.Errorf("hooks not reset after stop: %T", observability.Fetch())
	}
}

func TestHostOf(t *testing.T) {
	tests := []struct{ in, want string }{
		{"https://maps.googleapis.com/maps/api/place/json?key=x", "maps.googleapis.com"},
		{"http://127.0.0.1:8080?x=1", "127.0.0.1:8080"},
		{"example.com/path", "example.com"},
	}
	for _, tt := range tests {
		if got := hostOf(tt.in); got != tt.want {
			t.Errorf("hostOf(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUsageBar(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{0, "[..........]"},
		{50, "[#####.....]"},
		{100, "[##########]"},
		{120, "[##########]"},
	}
	for _, tt := range tests {
		if got := usageBar(tt.pct, 10); got != tt.want {
			t.Errorf("usageBar(%v) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}
