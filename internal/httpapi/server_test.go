package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kioskpad/internal/input"
	"kioskpad/internal/logging"
	"kioskpad/internal/mapping"
	"kioskpad/internal/navigator"
	"kioskpad/internal/service"
	"kioskpad/internal/store"
)

func discardLogger() *slog.Logger { return logging.Discard() }

// testServer runs a real input service over one static pad and returns the
// API router in front of it.
func testServer(t *testing.T) http.Handler {
	t.Helper()
	src := &input.StaticSource{Readings: []input.Reading{{
		Slot:    0,
		Name:    "Generic Pad",
		Axes:    make([]float64, 2),
		Buttons: make([]input.RawButton, 16),
	}}}
	layouts := navigator.NewLayoutStore()
	svc := service.New(service.Options{
		Source:       src,
		Store:        store.NewMemory(),
		Layouts:      layouts,
		Scope:        "main",
		PollInterval: 5 * time.Millisecond,
		Logger:       discardLogger(),
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = svc.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	srv, err := New(Deps{Backend: svc, Layouts: layouts, Logger: discardLogger(), Version: "test"})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	h := srv.Handler()

	deadline := time.Now().Add(2 * time.Second)
	for {
		st, err := svc.Snapshot(ctx)
		if err == nil && len(st.Devices) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for the pad to attach")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return h
}

func request(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

const twoItems = `{"items":[
	{"id":"a","rect":{"left":0,"top":0,"right":100,"bottom":100}},
	{"id":"b","rect":{"left":120,"top":0,"right":220,"bottom":100}}
]}`

func TestHealth(t *testing.T) {
	h := testServer(t)
	w := request(t, h, http.MethodGet, "/api/v1/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := decode[map[string]string](t, w); body["version"] != "test" {
		t.Fatalf("expected version test, got %v", body)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected a request id header")
	}
}

func TestFocusLifecycle(t *testing.T) {
	h := testServer(t)

	if w := request(t, h, http.MethodPut, "/api/v1/layout/main", twoItems); w.Code != http.StatusNoContent {
		t.Fatalf("put layout: expected 204, got %d: %s", w.Code, w.Body)
	}

	w := request(t, h, http.MethodPut, "/api/v1/focus/a", "")
	if w.Code != http.StatusOK {
		t.Fatalf("focus: expected 200, got %d: %s", w.Code, w.Body)
	}
	if f := decode[focusResponse](t, w); f.Focused != "a" || f.Item == nil || f.Item.Rect.Right != 100 {
		t.Fatalf("expected focus on a with its rect, got %+v", f)
	}

	w = request(t, h, http.MethodPost, "/api/v1/focus/move/right", "")
	if f := decode[focusResponse](t, w); w.Code != http.StatusOK || f.Focused != "b" {
		t.Fatalf("move right: expected b, got %d %+v", w.Code, f)
	}

	w = request(t, h, http.MethodGet, "/api/v1/focus", "")
	if f := decode[focusResponse](t, w); f.Scope != "main" || f.Focused != "b" {
		t.Fatalf("get focus: expected main/b, got %+v", f)
	}

	if w := request(t, h, http.MethodPost, "/api/v1/focus/move/sideways", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad direction, got %d", w.Code)
	}

	w = request(t, h, http.MethodPut, "/api/v1/focus/zzz", "")
	if w.Code != http.StatusNotFound || decode[Error](t, w).Code != ErrCodeNotFound {
		t.Fatalf("expected 404 not_found for an unknown item, got %d %s", w.Code, w.Body)
	}

	if w := request(t, h, http.MethodPost, "/api/v1/focus/activate", ""); w.Code != http.StatusNoContent {
		t.Fatalf("activate: expected 204, got %d", w.Code)
	}
}

func TestLayoutValidation(t *testing.T) {
	h := testServer(t)
	w := request(t, h, http.MethodPut, "/api/v1/layout/main", `{"items":[{"id":"a"},{"id":"a"}]}`)
	if w.Code != http.StatusBadRequest || decode[Error](t, w).Code != ErrCodeValidation {
		t.Fatalf("expected 400 validation_error, got %d %s", w.Code, w.Body)
	}
	if w := request(t, h, http.MethodPut, "/api/v1/layout/main", `{`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid JSON, got %d", w.Code)
	}

	request(t, h, http.MethodPut, "/api/v1/layout/settings", twoItems)
	request(t, h, http.MethodPut, "/api/v1/layout/main", twoItems)
	w = request(t, h, http.MethodGet, "/api/v1/layouts", "")
	scopes := decode[map[string][]string](t, w)["scopes"]
	if len(scopes) != 2 || scopes[0] != "main" || scopes[1] != "settings" {
		t.Fatalf("expected [main settings], got %v", scopes)
	}
}

func TestVisibility(t *testing.T) {
	h := testServer(t)
	if w := request(t, h, http.MethodPut, "/api/v1/visibility", `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without visible, got %d", w.Code)
	}
	if w := request(t, h, http.MethodPut, "/api/v1/visibility", `{"visible":false}`); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	w := request(t, h, http.MethodGet, "/api/v1/state", "")
	if st := decode[service.State](t, w); st.Visible {
		t.Fatalf("expected hidden state, got %+v", st)
	}
}

func TestConfiguratorEndpoints(t *testing.T) {
	h := testServer(t)

	w := request(t, h, http.MethodPost, "/api/v1/configurator", `{"slot":0}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("start: expected 201, got %d: %s", w.Code, w.Body)
	}
	info := decode[service.ConfiguratorInfo](t, w)
	if info.Session == "" || info.Current != mapping.Up || info.Total != 10 {
		t.Fatalf("unexpected configurator info %+v", info)
	}

	if w := request(t, h, http.MethodPost, "/api/v1/configurator", `{"slot":0}`); w.Code != http.StatusConflict {
		t.Fatalf("second start: expected 409, got %d", w.Code)
	}
	if w := request(t, h, http.MethodPost, "/api/v1/configurator/reset", ""); w.Code != http.StatusNoContent {
		t.Fatalf("reset: expected 204, got %d", w.Code)
	}
	if w := request(t, h, http.MethodDelete, "/api/v1/configurator", ""); w.Code != http.StatusNoContent {
		t.Fatalf("abort: expected 204, got %d", w.Code)
	}
	if w := request(t, h, http.MethodDelete, "/api/v1/configurator", ""); w.Code != http.StatusNotFound {
		t.Fatalf("second abort: expected 404, got %d", w.Code)
	}
	if w := request(t, h, http.MethodPost, "/api/v1/configurator", `{"slot":4}`); w.Code != http.StatusNotFound {
		t.Fatalf("unknown slot: expected 404, got %d", w.Code)
	}
	if w := request(t, h, http.MethodPost, "/api/v1/configurator", `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("missing slot: expected 400, got %d", w.Code)
	}
}

func TestDevicesAndMappings(t *testing.T) {
	h := testServer(t)

	w := request(t, h, http.MethodGet, "/api/v1/devices", "")
	var devices struct {
		Devices []service.DeviceInfo `json:"devices"`
		Count   int                  `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &devices); err != nil {
		t.Fatalf("decode devices: %v", err)
	}
	if devices.Count != 1 || devices.Devices[0].Key != "Generic Pad" || devices.Devices[0].Origin != mapping.OriginStandard {
		t.Fatalf("unexpected devices %+v", devices)
	}

	w = request(t, h, http.MethodGet, "/api/v1/mappings/Generic%20Pad", "")
	if w.Code != http.StatusOK {
		t.Fatalf("mapping: expected 200, got %d", w.Code)
	}
	info := decode[service.MappingInfo](t, w)
	if info.DeviceKey != "Generic Pad" || info.Buttons[mapping.A].Key != "button_0" {
		t.Fatalf("unexpected mapping info %+v", info)
	}
}
