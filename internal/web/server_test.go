package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/trigger-loop/internal/loop"
	"github.com/sweeney/trigger-loop/internal/status"
	"github.com/sweeney/trigger-loop/internal/task"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	cfg := status.Config{
		Path:        "/etc/trigger-loop/config.yaml",
		PollMs:      100,
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
		HTTPAddr:    ":80",
		Bindings:    2,
	}
	tr := status.NewTracker(start, cfg)
	ts := httptest.NewServer(New(":0", tr).Handler())
	t.Cleanup(ts.Close)
	return ts, tr
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(
		map[string]bool{"arm": true, "estop": false},
		nil,
		[]task.State{{Name: "pump", Active: true, StartedAt: start}},
		task.Counts{Started: 5, TimedOut: 2},
		loop.Stats{Cycles: 12},
	)
	tr.SetMQTTConnected(true)

	resp, body := get(t, ts.URL+"/index.json")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var sj status.StatusJSON
	require.NoError(t, json.Unmarshal([]byte(body), &sj))
	assert.True(t, sj.Status.Ready)
	assert.Equal(t, map[string]bool{"arm": true, "estop": false}, sj.Status.Inputs)
	require.Len(t, sj.Status.Tasks, 1)
	assert.True(t, sj.Status.Tasks[0].Active)
	assert.Equal(t, 5, sj.Status.Counts.Started)
	assert.Equal(t, 2, sj.Status.Counts.TimedOut)
	assert.True(t, sj.Status.MQTT.Connected)
	assert.Equal(t, "tcp://192.168.1.200:1883", sj.Status.MQTT.Broker)
	assert.Equal(t, int64(12), sj.Status.Loop.Cycles)
	assert.Equal(t, 2, sj.Status.Config.Bindings)
}

func TestJSONBeforeFirstCycle(t *testing.T) {
	ts, _ := newTestServer(t)

	_, body := get(t, ts.URL+"/index.json")

	var sj status.StatusJSON
	require.NoError(t, json.Unmarshal([]byte(body), &sj))
	assert.False(t, sj.Status.Ready)
	assert.Empty(t, sj.Status.Inputs)
	assert.NotEmpty(t, sj.Status.RunID)
}

func TestHTMLEndpoints(t *testing.T) {
	for _, path := range []string{"/", "/index.html"} {
		t.Run(path, func(t *testing.T) {
			ts, tr := newTestServer(t)
			tr.Update(
				map[string]bool{"arm": true},
				nil,
				[]task.State{{Name: "pump"}},
				task.Counts{},
				loop.Stats{Cycles: 1},
			)

			resp, body := get(t, ts.URL+path)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
			assert.Contains(t, body, "Trigger Loop")
			assert.Contains(t, body, "<th>arm</th>")
			assert.Contains(t, body, "HIGH")
			assert.Contains(t, body, "<th>pump</th>")
			assert.Contains(t, body, "idle")
		})
	}
}

func TestHTMLShowsInputError(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(nil, errors.New("gpio read: line busy"), nil, task.Counts{}, loop.Stats{Cycles: 1, Failed: 1, LastError: "reaction 0: gpio read: line busy"})

	_, body := get(t, ts.URL+"/")
	assert.Contains(t, body, "gpio read: line busy")
	assert.Contains(t, body, "no sample yet")
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := get(t, ts.URL+"/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/index.json", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	ts, tr := newTestServer(t)

	resp, _ := get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	tr.Update(map[string]bool{"arm": false}, nil, nil, task.Counts{}, loop.Stats{Cycles: 1})
	resp, body := get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok\n", body)
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t)

	tr.Update(map[string]bool{"arm": false}, nil, nil, task.Counts{}, loop.Stats{Cycles: 1})
	_, body := get(t, ts.URL+"/index.json")
	assert.Contains(t, body, `"arm": false`)

	tr.Update(map[string]bool{"arm": true}, nil, nil, task.Counts{}, loop.Stats{Cycles: 2})
	_, body = get(t, ts.URL+"/index.json")
	assert.Contains(t, body, `"arm": true`)
}
