package cmd

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/LeventeLantos/freesms-notify/internal/config"
	"github.com/LeventeLantos/freesms-notify/internal/model"
)

func TestRun_ShutdownWithOpenEventStreamWritesStatus(t *testing.T) {
	mr := miniredis.RunT(t)

	sms := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer sms.Close()

	cfg := &config.Config{
		Server:  config.ServerConfig{Address: "127.0.0.1:0"},
		Redis:   config.RedisConfig{Enabled: true, Address: mr.Addr(), TTL: time.Hour},
		FreeSMS: config.FreeSMSConfig{APIURL: sms.URL, Timeout: time.Second, VerifyOnCreate: true},
		Sync:    config.SyncConfig{Interval: time.Hour},
		Log:     config.LogConfig{Level: "error", Format: "text"},
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	base := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, ln) }()

	hc := &http.Client{Timeout: 5 * time.Second}

	resp, err := hc.Post(base+"/v1/entries", "application/json",
		strings.NewReader(`{"username":"12345678","access_token":"tok","name":"phone"}`))
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	var created struct {
		ID string `json:"id"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated || created.ID == "" {
		t.Fatalf("expected 201 with an id, got %d %+v", resp.StatusCode, created)
	}

	resp, err = hc.Post(base+"/v1/notify/phone", "application/json", strings.NewReader(`{"message":"hi"}`))
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	resp.Body.Close()

	streamCtx, cancelStream := context.WithCancel(context.Background())
	defer cancelStream()
	req, _ := http.NewRequestWithContext(streamCtx, http.MethodGet, base+"/v1/events", nil)
	stream, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open event stream: %v", err)
	}
	defer stream.Body.Close()

	start := time.Now()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("shutdown blocked by the open event stream")
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("shutdown took %s", elapsed)
	}

	raw, err := mr.Get("freesms:status:" + created.ID)
	if err != nil {
		t.Fatalf("expected status snapshot in redis: %v (keys=%v)", err, mr.Keys())
	}
	var st model.Status
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if st.EntryID != created.ID || st.Attempts != 1 {
		t.Fatalf("unexpected snapshot %+v", st)
	}
}
