package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"boulder-editor/internal/domain"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var body Response
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("expected JSON body, got %v", err)
	}
	return body
}

func TestWithNotice(t *testing.T) {
	rec := httptest.NewRecorder()
	WithNotice(rec, http.StatusOK, map[string]int{"count": 2}, domain.NewNotice(domain.NoticeSuccess, "Imported %d", 2))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}
	body := decode(t, rec)
	if !body.Success {
		t.Error("expected success")
	}
	if body.Notice == nil || body.Notice.Message != "Imported 2" {
		t.Errorf("unexpected notice %+v", body.Notice)
	}
}

func TestCodedError(t *testing.T) {
	rec := httptest.NewRecorder()
	CodedError(rec, http.StatusUnprocessableEntity, "missing_start", "Cannot save: Mark Start hold(s).")

	body := decode(t, rec)
	if body.Success {
		t.Error("expected failure")
	}
	if body.Code != "missing_start" {
		t.Errorf("expected code missing_start, got %s", body.Code)
	}
	if body.Notice == nil || body.Notice.Level != domain.NoticeError {
		t.Errorf("expected error notice, got %+v", body.Notice)
	}
}
