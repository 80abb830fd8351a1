package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
)

var probePatterns = []string{
	"../", "..\\", ".env", ".git", ".ssh", "wp-admin", "phpmyadmin",
	"etc/passwd", "cmd.exe", "<script", "javascript:", "union select",
}

var scannerAgents = []string{"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan"}

const maxURLLength = 2048

// Detector flags probing requests and resolves client addresses behind
// trusted proxies.
type Detector struct {
	suspicious atomic.Int64
	proxies    []*net.IPNet
}

// NewDetector trusts loopback and RFC 1918 ranges plus any extra CIDRs.
func NewDetector(extraProxies ...string) (*Detector, error) {
	d := &Detector{}
	for _, cidr := range append([]string{"127.0.0.0/8", "::1/128", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}, extraProxies...) {
		_, network, err := net.ParseCIDR(strings.TrimSpace(cidr))
		if err != nil {
			return nil, fmt.Errorf("invalid proxy CIDR %q: %w", cidr, err)
		}
		d.proxies = append(d.proxies, network)
	}
	return d, nil
}

// Suspicious reports whether r looks like a scanner or path probe and
// returns the reason.
func (d *Detector) Suspicious(r *http.Request) (bool, string) {
	reason := classify(r)
	if reason == "" {
		return false, ""
	}
	d.suspicious.Add(1)
	return true, reason
}

func classify(r *http.Request) string {
	switch r.Method {
	case "TRACE", "TRACK", "DEBUG", http.MethodConnect:
		return "method"
	}
	if len(r.URL.String()) > maxURLLength {
		return "url_length"
	}
	target := strings.ToLower(r.URL.Path + "?" + r.URL.RawQuery)
	for _, p := range probePatterns {
		if strings.Contains(target, p) {
			return "path_probe"
		}
	}
	ua := strings.ToLower(r.UserAgent())
	for _, a := range scannerAgents {
		if strings.Contains(ua, a) {
			return "scanner_agent"
		}
	}
	if strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5 {
		return "forwarded_chain"
	}
	return ""
}

// ClientIP returns the peer address, or the first forwarded address when
// the peer is a trusted proxy.
func (d *Detector) ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer := net.ParseIP(host)
	if peer == nil || !d.trusted(peer) {
		return host
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return host
}

func (d *Detector) trusted(ip net.IP) bool {
	for _, n := range d.proxies {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// SuspiciousCount is the number of flagged requests so far.
func (d *Detector) SuspiciousCount() int64 {
	return d.suspicious.Load()
}

// Middleware answers flagged requests with 404 and hands them to onFlag
// for logging.
func (d *Detector) Middleware(onFlag func(r *http.Request, reason string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bad, reason := d.Suspicious(r); bad {
				if onFlag != nil {
					onFlag(r, reason)
				}
				http.NotFound(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
