package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gameworld/internal/config"
	"gameworld/internal/game"
)

func newTestEngine(t *testing.T) *game.Engine {
	t.Helper()
	cfg := config.DefaultWorld()
	cfg.MaxEntities = 128
	cfg.MaxClients = 8
	cfg.FragLimit = 0
	cfg.Seed = 1
	e := game.NewEngine(game.EngineConfig{World: cfg, Limits: config.DefaultLimits()})
	if err := e.LoadDefaultLevel(); err != nil {
		t.Fatalf("LoadDefaultLevel failed: %v", err)
	}
	return e
}

func newTestServer(t *testing.T, e *game.Engine, adminToken string) *httptest.Server {
	t.Helper()
	router := NewRouter(RouterConfig{
		Engine: e,
		RateLimitConfig: &RateLimitConfig{
			RequestsPerSecond: 1000,
			Burst:             1000,
			CleanupInterval:   time.Hour,
		},
		AdminToken:     adminToken,
		DisableLogging: true,
	})
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func post(t *testing.T, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// TestAPIGetState checks the state endpoint reflects the loaded level
func TestAPIGetState(t *testing.T) {
	e := newTestEngine(t)
	e.Tick()
	ts := newTestServer(t, e, "")

	var state map[string]interface{}
	if code := getJSON(t, ts.URL+"/api/state", &state); code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	if state["mapName"] != game.DefaultMapName {
		t.Errorf("Expected map %q, got %v", game.DefaultMapName, state["mapName"])
	}
	if state["message"] != "The Proving Grounds" {
		t.Errorf("Expected level message, got %v", state["message"])
	}
	if state["frameNum"].(float64) != 1 {
		t.Errorf("Expected frame 1, got %v", state["frameNum"])
	}
}

// TestAPIEntityQueries checks classname and targetname filters
func TestAPIEntityQueries(t *testing.T) {
	ts := newTestServer(t, newTestEngine(t), "")

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{name: "by classname", query: "?classname=info_player_deathmatch", want: 4},
		{name: "by targetname", query: "?name=tele_dest", want: 2},
		{name: "both filters", query: "?name=tele_dest&classname=info_notnull", want: 2},
		{name: "mismatched filters", query: "?name=tele_dest&classname=item_armor", want: 0},
		{name: "unknown classname", query: "?classname=monster_shambler", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var list []entityJSON
			if code := getJSON(t, ts.URL+"/api/entities"+tt.query, &list); code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", code)
			}
			if len(list) != tt.want {
				t.Errorf("Expected %d entities, got %d", tt.want, len(list))
			}
		})
	}
}

// TestAPIGetEntity checks single entity lookup with key/values
func TestAPIGetEntity(t *testing.T) {
	ts := newTestServer(t, newTestEngine(t), "")

	var list []entityJSON
	getJSON(t, ts.URL+"/api/entities?classname=worldspawn", &list)
	if len(list) != 1 {
		t.Fatalf("Expected one worldspawn, got %d", len(list))
	}

	var ws entityJSON
	if code := getJSON(t, fmt.Sprintf("%s/api/entities/%d", ts.URL, list[0].Index), &ws); code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	found := false
	for _, kv := range ws.KeyValues {
		if kv.Key == "music" && kv.Value == "music/arena.mus" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected worldspawn key/values, got %+v", ws.KeyValues)
	}

	if code := getJSON(t, ts.URL+"/api/entities/127", nil); code != http.StatusNotFound {
		t.Errorf("Expected 404 for an empty slot, got %d", code)
	}
	if code := getJSON(t, ts.URL+"/api/entities/9999", nil); code != http.StatusNotFound {
		t.Errorf("Expected 404 out of range, got %d", code)
	}
	if code := getJSON(t, ts.URL+"/api/entities/abc", nil); code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a bad index, got %d", code)
	}
}

// TestAPIClientLifecycle checks connect, command, and disconnect over HTTP
func TestAPIClientLifecycle(t *testing.T) {
	e := newTestEngine(t)
	ts := newTestServer(t, e, "secret")

	resp := post(t, ts.URL+"/api/clients", "", `{"name": "alice"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without a token, got %d", resp.StatusCode)
	}

	resp = post(t, ts.URL+"/api/clients", "secret", `{"name": "alice"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	var created map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&created)
	if created["index"].(float64) != 0 {
		t.Errorf("Expected slot 0, got %v", created["index"])
	}

	resp = post(t, ts.URL+"/api/clients/0/command", "", `{"command": "team spectator"}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("Expected 202, got %d", resp.StatusCode)
	}
	e.Tick()

	var client game.ClientSnapshot
	if code := getJSON(t, ts.URL+"/api/clients/0", &client); code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	if client.Name != "alice" || client.Team != "spectator" {
		t.Errorf("Expected alice on spectator, got %s on %s", client.Name, client.Team)
	}

	resp = post(t, ts.URL+"/api/clients/0/command", "", `{"command": "dance"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for an unknown command, got %d", resp.StatusCode)
	}

	resp = post(t, ts.URL+"/api/clients/0/disconnect", "secret", ``)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	resp = post(t, ts.URL+"/api/clients/0/disconnect", "secret", ``)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for a second disconnect, got %d", resp.StatusCode)
	}
}

// TestAPIConnectValidation tests validation on client connect
func TestAPIConnectValidation(t *testing.T) {
	ts := newTestServer(t, newTestEngine(t), "")

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "empty name", body: `{"name": ""}`, wantStatus: http.StatusBadRequest},
		{name: "missing name", body: `{}`, wantStatus: http.StatusBadRequest},
		{name: "invalid json", body: `{invalid}`, wantStatus: http.StatusBadRequest},
		{name: "valid bot", body: `{"name": "robot", "bot": true}`, wantStatus: http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, ts.URL+"/api/clients", "", tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("Expected %d, got %d", tt.wantStatus, resp.StatusCode)
			}
		})
	}
}

// TestAPIServerFull checks connect reports a full server
func TestAPIServerFull(t *testing.T) {
	ts := newTestServer(t, newTestEngine(t), "")
	for i := 0; i < 8; i++ {
		if resp := post(t, ts.URL+"/api/clients", "", fmt.Sprintf(`{"name": "p%d"}`, i)); resp.StatusCode != http.StatusCreated {
			t.Fatalf("Expected 201 for client %d, got %d", i, resp.StatusCode)
		}
	}
	if resp := post(t, ts.URL+"/api/clients", "", `{"name": "late"}`); resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", resp.StatusCode)
	}
}

// TestAPIHaltedLevel checks a halted level refuses clients and input
func TestAPIHaltedLevel(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.Connect("alice", false); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := e.LoadLevel("broken", strings.NewReader(`{ "classname" "info_player_start" }`)); err == nil {
		t.Fatal("Expected LoadLevel to fail")
	}
	ts := newTestServer(t, e, "")

	requests := []struct {
		path string
		body string
	}{
		{path: "/api/clients", body: `{"name": "late"}`},
		{path: "/api/clients/0/command", body: `{"command": "kill"}`},
		{path: "/api/clients/0/usercmd", body: `{"forward": 127}`},
	}
	for _, req := range requests {
		if resp := post(t, ts.URL+req.path, "", req.body); resp.StatusCode != http.StatusConflict {
			t.Errorf("%s: expected 409, got %d", req.path, resp.StatusCode)
		}
	}
}

// TestAPIScoreboardAndEvents checks the scoreboard and audit endpoints
func TestAPIScoreboardAndEvents(t *testing.T) {
	e := newTestEngine(t)
	if err := e.StartEventLog(""); err != nil {
		t.Fatalf("StartEventLog failed: %v", err)
	}
	defer e.EventLog().Stop()
	if _, err := e.Connect("alice", false); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	e.Tick()
	ts := newTestServer(t, e, "")

	var scores []map[string]interface{}
	if code := getJSON(t, ts.URL+"/api/scoreboard", &scores); code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	if len(scores) != 1 || scores[0]["name"] != "alice" {
		t.Errorf("Expected alice on the scoreboard, got %v", scores)
	}

	var events []game.AuditEvent
	if code := getJSON(t, ts.URL+"/api/events?limit=10", &events); code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	if len(events) == 0 {
		t.Error("Expected audit records")
	}
	if code := getJSON(t, ts.URL+"/api/events?limit=-1", nil); code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a bad limit, got %d", code)
	}
}

// TestAPIOverview checks the debug overview renders a PNG
func TestAPIOverview(t *testing.T) {
	e := newTestEngine(t)
	e.Tick()
	ts := newTestServer(t, e, "")

	resp, err := http.Get(ts.URL + "/api/debug/overview.png?size=64")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Expected image/png, got %s", ct)
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("Failed to decode PNG: %v", err)
	}
	if img.Bounds().Dx() != 64 {
		t.Errorf("Expected 64px, got %d", img.Bounds().Dx())
	}

	if code := getJSON(t, ts.URL+"/api/debug/overview.png?size=99999", nil); code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an oversized image, got %d", code)
	}
}

// TestRateLimitMiddleware checks requests beyond the burst are rejected
func TestRateLimitMiddleware(t *testing.T) {
	router := NewRouter(RouterConfig{
		Engine: newTestEngine(t),
		RateLimitConfig: &RateLimitConfig{
			RequestsPerSecond: 0.001,
			Burst:             2,
			CleanupInterval:   time.Hour,
		},
		DisableLogging: true,
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("Expected 200, 200, 429, got %v", codes)
	}
}

// TestOriginChecker checks wildcard and exact origin patterns
func TestOriginChecker(t *testing.T) {
	oc := NewOriginChecker([]string{"http://localhost:*", "https://viewer.example.com"})

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:3000", true},
		{"https://viewer.example.com", true},
		{"https://evil.example.com", false},
		{"http://localhost.evil.com", false},
	}
	for _, tt := range tests {
		if got := oc.Allowed(tt.origin); got != tt.want {
			t.Errorf("Allowed(%q): expected %v, got %v", tt.origin, tt.want, got)
		}
	}

	if !NewOriginChecker([]string{"*"}).Allowed("https://anything.example") {
		t.Error("Expected * to allow any origin")
	}
}

// TestWebSocketRateLimiter checks per-IP slots are reserved and released
func TestWebSocketRateLimiter(t *testing.T) {
	wrl := NewWebSocketRateLimiter(2)

	if !wrl.Allow("10.0.0.1") || !wrl.Allow("10.0.0.1") {
		t.Fatal("Expected two connections to be allowed")
	}
	if wrl.Allow("10.0.0.1") {
		t.Error("Expected the third connection to be refused")
	}
	if !wrl.Allow("10.0.0.2") {
		t.Error("Expected another IP to be allowed")
	}
	if wrl.Rejected() != 1 {
		t.Errorf("Expected 1 rejection, got %d", wrl.Rejected())
	}

	wrl.Release("10.0.0.1")
	if got := wrl.GetConnectionCount("10.0.0.1"); got != 1 {
		t.Errorf("Expected 1 open connection, got %d", got)
	}
	wrl.Release("10.0.0.1")
	wrl.Release("10.0.0.1") // extra release is ignored
	if got := wrl.GetConnectionCount("10.0.0.1"); got != 0 {
		t.Errorf("Expected 0 open connections, got %d", got)
	}
	if !wrl.Allow("10.0.0.1") {
		t.Error("Expected a slot after release")
	}
}

// TestGetClientIP checks forwarded headers take precedence
func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:5555"
	if ip := GetClientIP(r); ip != "192.0.2.1" {
		t.Errorf("Expected 192.0.2.1, got %s", ip)
	}

	r.Header.Set("X-Real-IP", "198.51.100.7")
	if ip := GetClientIP(r); ip != "198.51.100.7" {
		t.Errorf("Expected X-Real-IP, got %s", ip)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if ip := GetClientIP(r); ip != "203.0.113.9" {
		t.Errorf("Expected first forwarded IP, got %s", ip)
	}
}

// TestTokenAuth checks bearer and header tokens
func TestTokenAuth(t *testing.T) {
	if !NewTokenAuth("").Validate(httptest.NewRequest(http.MethodPost, "/", nil)) {
		t.Error("Expected an empty token to allow everything")
	}

	auth := NewTokenAuth("secret")
	tests := []struct {
		name   string
		header string
		value  string
		want   bool
	}{
		{name: "none", want: false},
		{name: "bearer", header: "Authorization", value: "Bearer secret", want: true},
		{name: "wrong bearer", header: "Authorization", value: "Bearer nope", want: false},
		{name: "basic scheme", header: "Authorization", value: "Basic secret", want: false},
		{name: "admin header", header: AdminTokenHeader, value: "secret", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				r.Header.Set(tt.header, tt.value)
			}
			if got := auth.Validate(r); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}
