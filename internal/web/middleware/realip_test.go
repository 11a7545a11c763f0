package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func realIPProbe(trusted []string, remoteAddr string, headers map[string]string) string {
	var seen string
	handler := TrustedRealIP(trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.RemoteAddr
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return seen
}

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name       string
		trusted    []string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "untrusted proxy cannot spoof",
			trusted:    nil,
			remoteAddr: "203.0.113.9:4321",
			headers:    map[string]string{"X-Real-IP": "10.0.0.1"},
			want:       "203.0.113.9:4321",
		},
		{
			name:       "trusted proxy real ip",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "10.1.2.3:443",
			headers:    map[string]string{"X-Real-IP": "198.51.100.4"},
			want:       "198.51.100.4",
		},
		{
			name:       "trusted proxy forwarded for chain",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "10.1.2.3:443",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.4, 10.1.2.3"},
			want:       "198.51.100.4",
		},
		{
			name:       "bare ip accepted as trusted network",
			trusted:    []string{"10.1.2.3"},
			remoteAddr: "10.1.2.3:443",
			headers:    map[string]string{"X-Real-IP": "198.51.100.4"},
			want:       "198.51.100.4",
		},
		{
			name:       "garbage header ignored",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "10.1.2.3:443",
			headers:    map[string]string{"X-Real-IP": "not-an-ip"},
			want:       "10.1.2.3:443",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := realIPProbe(tt.trusted, tt.remoteAddr, tt.headers); got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}
