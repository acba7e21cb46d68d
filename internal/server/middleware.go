package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long an IP's bucket survives without traffic before
// a sweep drops it.
const limiterIdleTTL = 10 * time.Minute

// ipLimiter keeps one token bucket per client IP. Idle entries are swept so
// the map stays bounded by recent traffic, not process lifetime.
type ipLimiter struct {
	mu        sync.Mutex
	perMin    int
	entries   map[string]*limiterEntry
	lastSweep time.Time

	now func() time.Time
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(perMin int) *ipLimiter {
	if perMin <= 0 {
		perMin = 60
	}
	return &ipLimiter{
		perMin:  perMin,
		entries: make(map[string]*limiterEntry),
		now:     time.Now,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= limiterIdleTTL {
		for key, e := range l.entries {
			if now.Sub(e.lastSeen) >= limiterIdleTTL {
				delete(l.entries, key)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.entries[ip]
	if !ok {
		e = &limiterEntry{
			lim: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMin)), l.perMin),
		}
		l.entries[ip] = e
	}
	e.lastSeen = now
	return e.lim.Allow()
}

func (s *Server) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(clientIP(r)) {
			writeError(w, http.StatusTooManyRequests, "Terlalu banyak request. Coba lagi sebentar.")
			return
		}
		next(w, r)
	}
}

// clientIP trusts proxy headers first, falling back to the socket peer.
func clientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		if first, _, ok := strings.Cut(xf, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(xf)
	}
	if xr := r.Header.Get("X-Real-Ip"); xr != "" {
		return strings.TrimSpace(xr)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) cors(next http.Handler) http.Handler {
	allowed := s.config.CORSAllowOrigins
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allow := corsOrigin(allowed, origin); allow != "" {
			w.Header().Set("Access-Control-Allow-Origin", allow)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func corsOrigin(allowed []string, origin string) string {
	for _, a := range allowed {
		if a == "*" {
			return "*"
		}
		if origin != "" && a == origin {
			return origin
		}
	}
	return ""
}
