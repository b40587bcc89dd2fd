package sponsorblock

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func seg(start, end float64) Segment {
	return Segment{Segment: [2]float64{start, end}}
}

func TestMergeSegments(t *testing.T) {
	got := MergeSegments([]Segment{seg(50, 60), seg(0, 10), seg(5, 20), seg(60, 65)})
	want := [][2]float64{{0, 20}, {50, 65}}
	if len(got) != len(want) {
		t.Fatalf("got %d segments, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Segment != want[i] {
			t.Fatalf("segment %d = %v, want %v", i, got[i].Segment, want[i])
		}
	}
}

func TestSkipTarget(t *testing.T) {
	segs := []Segment{seg(0, 10), seg(30, 40)}
	tests := []struct {
		pos  float64
		to   float64
		skip bool
	}{
		{0, 10, true},
		{9.5, 0, false},
		{10, 0, false},
		{31, 40, true},
		{25, 0, false},
	}
	for _, tt := range tests {
		to, skip := SkipTarget(segs, tt.pos)
		if skip != tt.skip || to != tt.to {
			t.Errorf("SkipTarget(%v) = %v, %v; want %v, %v", tt.pos, to, skip, tt.to, tt.skip)
		}
	}
}

func TestGetSegments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("videoID") {
		case "none":
			http.NotFound(w, r)
		case "busy":
			w.WriteHeader(http.StatusGatewayTimeout)
		default:
			if cats := r.URL.Query()["category"]; len(cats) != len(Categories) {
				t.Errorf("categories = %v", cats)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[{"category":"sponsor","segment":[1,5],"actionType":"skip"},{"category":"sponsor","segment":[7,9],"actionType":"mute"}]`))
		}
	}))
	defer srv.Close()

	c := NewClient()
	c.base = srv.URL

	segs, err := c.GetSegments(context.Background(), "vid", Categories)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segs) != 1 || segs[0].Start() != 1 {
		t.Fatalf("got %+v, want only the skip segment", segs)
	}

	segs, err = c.GetSegments(context.Background(), "none", Categories)
	if err != nil || len(segs) != 0 {
		t.Fatalf("404: got %v, %v", segs, err)
	}

	if _, err := c.GetSegments(context.Background(), "busy", Categories); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("504 err = %v, want ErrUnavailable", err)
	}
}

func TestSkipperSuspendsWhenBusy(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer srv.Close()

	s := NewSkipper(5)
	s.client.base = srv.URL

	if segs := s.Segments(context.Background(), "a"); segs != nil {
		t.Fatalf("got %v, want nil", segs)
	}
	s.Segments(context.Background(), "b")
	if got := calls.Load(); got != 1 {
		t.Fatalf("api called %d times, want 1 while suspended", got)
	}

	s.mu.Lock()
	s.disabledUntil = time.Now().Add(-time.Second)
	s.mu.Unlock()
	s.Segments(context.Background(), "b")
	if got := calls.Load(); got != 2 {
		t.Fatalf("api called %d times after suspension, want 2", got)
	}
}

func TestSkipperCaches(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`[{"segment":[0,3]}]`))
	}))
	defer srv.Close()

	s := NewSkipper(5)
	s.client.base = srv.URL
	for range 3 {
		if segs := s.Segments(context.Background(), "v"); len(segs) != 1 {
			t.Fatalf("got %v", segs)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("api called %d times, want 1", got)
	}
}
