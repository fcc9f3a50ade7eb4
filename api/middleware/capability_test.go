package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/storedesk-backend/pkg/enums"
)

func TestRequireCapability(t *testing.T) {
	tests := []struct {
		name       string
		role       string
		capability enums.Capability
		want       int
	}{
		{"admin manages backups", "admin", enums.CapabilityManageBackups, http.StatusOK},
		{"admin operates store", "admin", enums.CapabilityOperateStore, http.StatusOK},
		{"employee operates store", "employee", enums.CapabilityOperateStore, http.StatusOK},
		{"employee cannot manage users", "employee", enums.CapabilityManageUsers, http.StatusForbidden},
		{"employee cannot run reports", "employee", enums.CapabilityManageReports, http.StatusForbidden},
		{"unknown role", "owner", enums.CapabilityOperateStore, http.StatusForbidden},
		{"anonymous", "", enums.CapabilityOperateStore, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireCapability(tt.capability, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(WithRole(context.Background(), tt.role))
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)
			if resp.Code != tt.want {
				t.Fatalf("expected %d got %d", tt.want, resp.Code)
			}
		})
	}
}
