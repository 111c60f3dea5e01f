package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sweeney/plant-irrigator/internal/logic"
	"github.com/sweeney/plant-irrigator/internal/metrics"
	"github.com/sweeney/plant-irrigator/internal/status"
)

var testSchedule = logic.Schedule{
	SensorsOn:          3000 * time.Millisecond,
	PumpOn:             6315 * time.Millisecond,
	NextCheck:          86_396_685 * time.Millisecond,
	NextCheckMinutes:   1439,
	NextCheckRemainder: 56_685 * time.Millisecond,
}

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker, *metrics.Metrics) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		PinSensors: 23,
		PinPump:    24,
		I2CBus:     "1",
		Broker:     "tcp://192.168.1.200:1883",
		HTTPAddr:   ":80",
	}
	tr := status.NewTracker(start, testSchedule, cfg)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	srv := New(":0", tr, reg)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr, m
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func getBody(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.Observe(logic.Event{Type: logic.EventSensing, Cycle: 1, Sample: logic.Sample{Water: 150, Moisture: 600}})
	tr.Observe(logic.Event{Type: logic.EventDecision, Cycle: 1, Decision: logic.DecisionNeedsWater})
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.Decision != "NEEDS_WATER" {
		t.Errorf("Decision: got %q, want NEEDS_WATER", sj.Status.Decision)
	}
	if sj.Status.Readings == nil || sj.Status.Readings.Moisture != 600 {
		t.Errorf("Readings: got %+v", sj.Status.Readings)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.Config.PinPump != 24 {
		t.Errorf("Config.PinPump: got %d, want 24", sj.Status.Config.PinPump)
	}
	if sj.Status.Schedule.PumpOnMs != 6315 {
		t.Errorf("Schedule.PumpOnMs: got %d, want 6315", sj.Status.Schedule.PumpOnMs)
	}
}

func TestJSONBeforeFirstCycle(t *testing.T) {
	ts, _, _ := newTestServer(t)

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.Phase != "STARTING" {
		t.Errorf("Phase: got %q, want STARTING", sj.Status.Phase)
	}
	if sj.Status.Decision != "UNKNOWN" {
		t.Errorf("Decision: got %q, want UNKNOWN", sj.Status.Decision)
	}
}

func TestHTMLShowsDisplayRows(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.Observe(logic.Event{Type: logic.EventCountdown, MinutesLeft: 7*60 + 23})

	resp, body := getBody(t, ts.URL+"/")
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}
	if !strings.Contains(body, "Measures in\n07h:23min") {
		t.Error("page should mirror the display rows")
	}
}

func TestHTMLDecisionRows(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.Observe(logic.Event{Type: logic.EventDecision, Decision: logic.DecisionSensorNotInSoil})

	_, body := getBody(t, ts.URL+"/index.html")
	if !strings.Contains(body, "Moisture sensor\nnot in soil") {
		t.Error("page should show the sensor-not-in-soil message")
	}
	if !strings.Contains(body, "SENSOR_NOT_IN_SOIL") {
		t.Error("page should show the decision")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _, m := newTestServer(t)
	m.Observe(logic.Event{Type: logic.EventDecision, Decision: logic.DecisionSufficientWater})

	resp, body := getBody(t, ts.URL+"/metrics")
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(body, `irrigator_decisions_total{decision="SUFFICIENT_WATER"} 1`) {
		t.Errorf("metrics body missing decision counter:\n%s", body)
	}
}

func TestMetricsDisabled(t *testing.T) {
	tr := status.NewTracker(time.Now(), testSchedule, status.Config{})
	ts := httptest.NewServer(New(":0", tr, nil).Handler())
	defer ts.Close()

	resp, _ := getBody(t, ts.URL+"/metrics")
	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404 without a registry", resp.StatusCode)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, _ := getBody(t, ts.URL+"/nonexistent")
	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr, _ := newTestServer(t)

	if sj := getJSON(t, ts.URL+"/index.json"); sj.Status.Cycle != 0 {
		t.Errorf("Cycle: got %d, want 0 initially", sj.Status.Cycle)
	}

	tr.Observe(logic.Event{Type: logic.EventCountdown, Cycle: 2, MinutesLeft: 90})

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.Cycle != 2 {
		t.Errorf("Cycle: got %d, want 2", sj.Status.Cycle)
	}
	if sj.Status.Countdown != "01h:30min" {
		t.Errorf("Countdown: got %q, want 01h:30min", sj.Status.Countdown)
	}
}

func TestScreen(t *testing.T) {
	tests := []struct {
		name string
		snap status.Snapshot
		want logic.Message
	}{
		{"starting", status.Snapshot{}, logic.Message{}},
		{"sensing", status.Snapshot{Phase: logic.EventSensing}, logic.MsgSensorsOn},
		{"dry", status.Snapshot{Phase: logic.EventDecision, LastDecision: logic.DecisionNeedsWater}, logic.MsgNeedsWater},
		{"overflow", status.Snapshot{Phase: logic.EventCountdown, MinutesLeft: 6000}, logic.MsgCountdownError},
		{"countdown error", status.Snapshot{Phase: logic.EventCountdownError}, logic.MsgCountdownError},
		{"countdown", status.Snapshot{Phase: logic.EventCountdown, MinutesLeft: 5}, logic.Message{Row0: "Measures in", Row1: "00h:05min"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := screen(tt.snap); got != tt.want {
				t.Errorf("screen: got %+v, want %+v", got, tt.want)
			}
		})
	}
}
