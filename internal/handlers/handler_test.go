package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"sensor_node/internal/models"
	"sensor_node/internal/service"

	"github.com/gin-gonic/gin"
)

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewHandler(&service.Service{}, nil).InitRoutes()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", w.Code, http.StatusOK)
	}
	var out struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil || out.Status != statusOK {
		t.Fatalf("body = %s (err %v)", w.Body.String(), err)
	}
}

func TestListAlarms(t *testing.T) {
	gin.SetMode(gin.TestMode)
	alarms := newMockAlarms()
	alarms.Record(models.AlarmFrame{ID: "a", Serial: "SN-0001", Event: models.EventStartup})
	alarms.Record(models.AlarmFrame{ID: "b", Serial: "SN-0001", Event: models.EventHiWarn, Reading: 31})
	s := &service.Service{Alarms: alarms, Tokens: &mockTokens{serial: "SN-0001"}}
	r := NewHandler(s, nil).InitRoutes()

	cases := []struct {
		name       string
		target     string
		auth       string
		wantCode   int
		wantSerial string
	}{
		{"all", "/api/v1/alarms", "Bearer good", http.StatusOK, ""},
		{"filtered", "/api/v1/alarms?serial=SN-0001", "Bearer good", http.StatusOK, "SN-0001"},
		{"unauthenticated", "/api/v1/alarms", "", http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			r.ServeHTTP(w, req)

			if w.Code != tc.wantCode {
				t.Fatalf("status: got %d, want %d (body=%s)", w.Code, tc.wantCode, w.Body.String())
			}
			if tc.wantCode != http.StatusOK {
				return
			}
			var out struct {
				Count  int                 `json:"count"`
				Alarms []models.AlarmFrame `json:"alarms"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if out.Count != 2 || len(out.Alarms) != 2 || out.Alarms[1].ID != "b" {
				t.Fatalf("unexpected body: %+v", out)
			}
			if alarms.lastSerial != tc.wantSerial {
				t.Fatalf("List serial = %q, want %q", alarms.lastSerial, tc.wantSerial)
			}
		})
	}
}
