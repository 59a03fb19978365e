package transport

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"

	"golang.org/x/net/http/httpproxy"
)

// resolveProxyURL returns the CONNECT proxy to use for a wss:// target, or
// nil if none is configured. It reuses golang.org/x/net/http/httpproxy's env
// parsing (HTTPS_PROXY/https_proxy, plus NO_PROXY) — the same source the
// standard library's transport draws from — and falls back to
// ALL_PROXY/all_proxy when neither HTTPS variant is set. The actual CONNECT
// handshake is performed by this package, since httpproxy only resolves the
// URL.
func resolveProxyURL(targetURL string) (*url.URL, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("transport: bad target url: %w", err)
	}
	// httpproxy.Config keys its decision off the request scheme; wss targets
	// are treated as https for proxy-selection purposes.
	reqURL := *u
	reqURL.Scheme = "https"

	cfg := httpproxy.FromEnvironment()
	if cfg.HTTPSProxy == "" {
		// httpproxy does not read ALL_PROXY itself; use it as the fallback.
		for _, k := range []string{"ALL_PROXY", "all_proxy"} {
			if v := os.Getenv(k); v != "" {
				cfg.HTTPSProxy = v
				break
			}
		}
	}
	return cfg.ProxyFunc()(&reqURL)
}

// dialWithOptionalProxy opens a raw TCP connection to host:port, tunneling
// through an HTTP/1.1 CONNECT proxy first when one is configured in the
// environment. The returned conn is ready for a TLS handshake.
func dialWithOptionalProxy(targetURL, hostPort string) (net.Conn, error) {
	proxyURL, err := resolveProxyURL(targetURL)
	if err != nil {
		return nil, err
	}
	if proxyURL == nil {
		return net.Dial("tcp", hostPort)
	}
	return connectThroughProxy(proxyURL, hostPort)
}

// connectThroughProxy performs the HTTP/1.1 CONNECT handshake by hand: dial
// the proxy, send a CONNECT request line with an optional Proxy-Authorization
// header derived from the proxy URL's userinfo, await a "HTTP/1.x 200"
// status line, then drain header lines up to the blank line terminator.
// Passwords may legitimately contain colons, so userinfo is split on the
// first colon only.
func connectThroughProxy(proxyURL *url.URL, hostPort string) (net.Conn, error) {
	conn, err := net.Dial("tcp", proxyURL.Host)
	if err != nil {
		return nil, fmt.Errorf("transport: proxy dial: %w", err)
	}

	req := fmt.Sprintf("CONNECT %s HTTP/1.1\r\nHost: %s\r\n", hostPort, hostPort)
	if proxyURL.User != nil {
		user := proxyURL.User.Username()
		creds := user
		if pass, ok := proxyURL.User.Password(); ok {
			creds = user + ":" + pass
		}
		encoded := base64.StdEncoding.EncodeToString([]byte(creds))
		req += "Proxy-Authorization: Basic " + encoded + "\r\n"
	}
	req += "\r\n"

	if _, err := conn.Write([]byte(req)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("transport: proxy CONNECT write: %w", err)
	}

	reader := bufio.NewReader(conn)
	statusLine, err := reader.ReadString('\n')
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("transport: proxy CONNECT read status: %w", err)
	}
	if !strings.Contains(statusLine, " 200") {
		conn.Close()
		return nil, fmt.Errorf("transport: proxy CONNECT rejected: %s", strings.TrimSpace(statusLine))
	}
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("transport: proxy CONNECT read headers: %w", err)
		}
		if strings.TrimSpace(line) == "" {
			break
		}
	}
	return conn, nil
}
