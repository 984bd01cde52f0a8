package progress

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"hls-downloader/internal/platform/logger"

	"github.com/go-chi/chi/v5"
)

func newTestRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/runs", h.ListRuns)
	r.Get("/runs/{manifest}", h.GetRun)
	return r
}

func TestHandler_ListRuns(t *testing.T) {
	tr := NewTracker()
	tr.Queue("b.m3u8")
	tr.Start("a.m3u8", "a.mp4")
	r := newTestRouter(NewHandler(tr, logger.Discard()))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type %q", ct)
	}
	var runs []Run
	if err := json.NewDecoder(rec.Body).Decode(&runs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(runs) != 2 || runs[0].State != StateRunning || runs[1].State != StatePending {
		t.Errorf("unexpected runs %+v", runs)
	}
}

func TestHandler_GetRun(t *testing.T) {
	tr := NewTracker()
	tr.Start("clip.m3u8", "clip.mp4")
	_ = tr.SetTotal("clip.m3u8", 3)
	r := newTestRouter(NewHandler(tr, logger.Discard()))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/clip.m3u8", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var run Run
	if err := json.NewDecoder(rec.Body).Decode(&run); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if run.Manifest != "clip.m3u8" || run.SegmentsTotal != 3 || run.Output != "clip.mp4" {
		t.Errorf("unexpected run %+v", run)
	}
}

func TestHandler_GetRun_not_found(t *testing.T) {
	r := newTestRouter(NewHandler(NewTracker(), logger.Discard()))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/missing.m3u8", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
