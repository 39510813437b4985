package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	applog "tourledger/internal/log"
)

type DetectionMetrics struct {
	SuspiciousRequests int64
	BlockedRequests    int64
}

// Detector flags probing traffic and resolves the client address behind
// trusted proxies.
type Detector struct {
	metrics        *DetectionMetrics
	trustedProxies []*net.IPNet
}

var suspiciousPatterns = []string{
	"../", "..\\", ".env", ".git", ".ssh", "wp-admin", "phpmyadmin",
	"admin.php", "config.php", "etc/passwd", "cmd.exe",
	"<script", "javascript:", "union select", "eval(",
}

var scannerAgents = []string{
	"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "zgrab",
}

// NewDetector trusts loopback and private ranges as proxies.
func NewDetector() *Detector {
	return &Detector{
		metrics: &DetectionMetrics{},
		trustedProxies: []*net.IPNet{
			mustParseCIDR("127.0.0.0/8"),
			mustParseCIDR("10.0.0.0/8"),
			mustParseCIDR("172.16.0.0/12"),
			mustParseCIDR("192.168.0.0/16"),
			mustParseCIDR("::1/128"),
		},
	}
}

func mustParseCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("failed to parse trusted proxy CIDR %s: %v", cidr, err))
	}
	return network
}

func (d *Detector) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.trustedProxies = append(d.trustedProxies, network)
	return nil
}

// DetectSuspiciousRequest reports probing patterns in the path or query,
// known scanner user agents, and oversized URLs.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	suspicious := len(r.URL.String()) > 2048 || isTraceMethod(r.Method)

	query, err := url.QueryUnescape(r.URL.RawQuery)
	if err != nil {
		query = r.URL.RawQuery
	}
	target := strings.ToLower(r.URL.Path + "?" + query)
	for _, pattern := range suspiciousPatterns {
		if suspicious {
			break
		}
		suspicious = strings.Contains(target, pattern)
	}

	userAgent := strings.ToLower(r.Header.Get("User-Agent"))
	for _, agent := range scannerAgents {
		if suspicious {
			break
		}
		suspicious = strings.Contains(userAgent, agent)
	}

	if suspicious {
		atomic.AddInt64(&d.metrics.SuspiciousRequests, 1)
	}
	return suspicious
}

func isTraceMethod(method string) bool {
	return method == "TRACE" || method == "TRACK"
}

// Middleware logs suspicious requests and rejects TRACE and TRACK outright.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d.DetectSuspiciousRequest(r) {
			applog.FromContext(r.Context()).WithComponent(applog.ComponentSecurity).WarnContext(r.Context(),
				"Suspicious request",
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldClientIP, d.ExtractClientIP(r),
				applog.FieldUserAgent, r.Header.Get("User-Agent"))
		}
		if isTraceMethod(r.Method) {
			atomic.AddInt64(&d.metrics.BlockedRequests, 1)
			w.Header().Set("Allow", "GET, POST, OPTIONS")
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ExtractClientIP trusts X-Forwarded-For and X-Real-IP only when the direct
// peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsed := net.ParseIP(directIP)
	if parsed == nil || !d.isTrustedProxy(parsed) {
		return directIP
	}

	if ip := d.forwardedClient(r.Header.Get("X-Forwarded-For")); ip != "" {
		return ip
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return directIP
}

// forwardedClient walks X-Forwarded-For from the right, skipping hops that
// are trusted proxies. Entries left of the first untrusted hop are client
// supplied and ignored.
func (d *Detector) forwardedClient(xff string) string {
	if xff == "" {
		return ""
	}
	hops := strings.Split(xff, ",")
	last := ""
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		ip := net.ParseIP(hop)
		if ip == nil {
			break
		}
		if !d.isTrustedProxy(ip) {
			return hop
		}
		last = hop
	}
	return last
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{
		SuspiciousRequests: atomic.LoadInt64(&d.metrics.SuspiciousRequests),
		BlockedRequests:    atomic.LoadInt64(&d.metrics.BlockedRequests),
	}
}
