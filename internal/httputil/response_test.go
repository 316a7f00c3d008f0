package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRespondErrorWithExtras(t *testing.T) {
	w := httptest.NewRecorder()
	RespondErrorWithExtras(w, http.StatusConflict, "request in flight", map[string]interface{}{"notice": "busy"})

	if w.Code != http.StatusConflict || w.Header().Get("Content-Type") != "application/problem+json" {
		t.Fatalf("status = %d, content type = %q", w.Code, w.Header().Get("Content-Type"))
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["title"] != "Conflict" || body["detail"] != "request in flight" || body["notice"] != "busy" {
		t.Errorf("body = %v", body)
	}
	if !strings.HasSuffix(body["type"].(string), "section-6.5.8") {
		t.Errorf("type = %v", body["type"])
	}
}

func TestRespondJSONEncodingFailure(t *testing.T) {
	w := httptest.NewRecorder()
	RespondJSON(w, http.StatusOK, map[string]interface{}{"bad": make(chan int)})
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", w.Code)
	}
}

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		optional bool
		wantErr  bool
	}{
		{"valid", `{"text":"hi"}`, false, false},
		{"unknown field", `{"txt":"hi"}`, false, true},
		{"malformed", `{"text":`, false, true},
		{"empty required", ``, false, true},
		{"empty optional", ``, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dest struct {
				Text string `json:"text"`
			}
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			parse := ParseJSON
			if tt.optional {
				parse = ParseOptionalJSON
			}
			err := parse(w, r, &dest)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
