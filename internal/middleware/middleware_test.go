package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func newRouter(log *logrus.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestID(), Logging(log), Recover(log))
	r.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fine"))
	})
	r.HandleFunc("/bad", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	})
	r.HandleFunc("/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	return r
}

func TestLogging(t *testing.T) {
	log, hook := test.NewNullLogger()
	r := newRouter(log)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("expected a log entry")
	}
	if entry.Level != logrus.InfoLevel || entry.Data["status"] != http.StatusOK || entry.Data["path"] != "/ok" {
		t.Errorf("entry: %v %+v", entry.Level, entry.Data)
	}
	if entry.Data["bytes"] != 4 {
		t.Errorf("bytes: got %v", entry.Data["bytes"])
	}

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/bad", nil))
	if hook.LastEntry().Level != logrus.WarnLevel {
		t.Errorf("4xx should log at warn, got %v", hook.LastEntry().Level)
	}
}

func TestRequestID(t *testing.T) {
	log, hook := test.NewNullLogger()
	r := newRouter(log)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	id := rec.Header().Get(RequestIDHeader)
	if id == "" {
		t.Fatal("expected a generated request id")
	}
	if hook.LastEntry().Data["request_id"] != id {
		t.Errorf("logged id %v, header %s", hook.LastEntry().Data["request_id"], id)
	}

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("caller id should be kept, got %q", got)
	}
}

func TestRecover(t *testing.T) {
	log, hook := test.NewNullLogger()
	r := newRouter(log)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d", rec.Code)
	}
	if hook.LastEntry().Level != logrus.ErrorLevel {
		t.Errorf("expected the 500 to be logged as an error")
	}
}
