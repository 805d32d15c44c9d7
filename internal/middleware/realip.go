package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// NewRealIPMiddleware は信頼済みプロキシ経由のリクエストに限り、
// X-Forwarded-ForまたはX-Real-IPから求めたクライアントIPをRemoteAddrに反映するミドルウェアを返す。
// trustedが空の場合はヘッダーを一切信用しない。
func NewRealIPMiddleware(trusted []string) func(next http.Handler) http.Handler {
	prefixes := parseTrustedProxies(trusted)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(prefixes) > 0 && isTrustedProxy(ClientIP(r), prefixes) {
				if ip, ok := forwardedIP(r, prefixes); ok {
					r.RemoteAddr = ip
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP はRemoteAddrからポートを除いたクライアントIPを返す。
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func parseTrustedProxies(trusted []string) []netip.Prefix {
	var prefixes []netip.Prefix
	for _, raw := range trusted {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		if prefix, err := netip.ParsePrefix(raw); err == nil {
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		// 単一IP（"10.0.0.1"）も受け付ける
		if addr, err := netip.ParseAddr(raw); err == nil {
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}

		slog.Warn("invalid trusted proxy, skipping", slog.String("value", raw))
	}
	return prefixes
}

func isTrustedProxy(ip string, prefixes []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// forwardedIP はプロキシヘッダーから元のクライアントIPを取り出す。
// X-Forwarded-Forは右端から辿り、信頼済みプロキシでない最初のアドレスを使う。
// 左側はクライアントが自由に書けるため参照しない。全て信頼済みプロキシの場合は左端を使う。
// X-Forwarded-Forがない場合のみX-Real-IPを使う。不正な値に当たった場合は何も返さない。
func forwardedIP(r *http.Request, prefixes []netip.Prefix) (string, bool) {
	var hops []string
	for _, line := range r.Header.Values("X-Forwarded-For") {
		for _, hop := range strings.Split(line, ",") {
			if hop = strings.TrimSpace(hop); hop != "" {
				hops = append(hops, hop)
			}
		}
	}

	if len(hops) == 0 {
		return parseForwardedAddr(r.Header.Get("X-Real-IP"))
	}

	for i := len(hops) - 1; i >= 0; i-- {
		ip, ok := parseForwardedAddr(hops[i])
		if !ok {
			return "", false
		}
		if i == 0 || !isTrustedProxy(ip, prefixes) {
			return ip, true
		}
	}
	return "", false
}

func parseForwardedAddr(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return "", false
	}
	return addr.Unmap().String(), true
}
