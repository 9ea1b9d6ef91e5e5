// ABOUTME: This file guards outbound fetches against SSRF-style targets.
// ABOUTME: Private hosts, metadata endpoints and infrastructure ports are refused.
package service

import (
	"errors"
	"net"
	"net/url"
	"strings"
)

// URL scheme constants
const (
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
)

var blockedPorts = map[string]bool{
	"22": true, "23": true, "25": true, "53": true, "110": true,
	"143": true, "993": true, "995": true, "1433": true, "3306": true,
	"5432": true, "6379": true, "11211": true,
}

var internalSuffixes = []string{".local", ".internal", ".corp", ".lan"}

// ValidateURL checks that a URL is a safe public http(s) target. It is
// applied at seed time and again on every cross-host redirect hop.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return errors.New("URL cannot be empty")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return err
	}

	if parsed.Scheme != SchemeHTTP && parsed.Scheme != SchemeHTTPS {
		return errors.New("only HTTP or HTTPS schemes allowed")
	}

	if parsed.Hostname() == "" {
		return errors.New("URL must contain a host")
	}

	if isPrivateHost(parsed.Hostname()) {
		return errors.New("access to private networks not allowed")
	}

	if port := parsed.Port(); port != "" && blockedPorts[port] {
		return errors.New("access to this port is not allowed")
	}

	return nil
}

func isPrivateHost(hostname string) bool {
	if ip := net.ParseIP(hostname); ip != nil {
		return isPrivateIPAddress(ip)
	}

	hostname = strings.ToLower(hostname)
	if hostname == "localhost" || strings.HasPrefix(hostname, "127.") {
		return true
	}

	if hostname == "169.254.169.254" || hostname == "metadata.google.internal" {
		return true
	}

	for _, suffix := range internalSuffixes {
		if strings.HasSuffix(hostname, suffix) {
			return true
		}
	}

	return false
}

func isPrivateIPAddress(ip net.IP) bool {
	if ip4 := ip.To4(); ip4 != nil {
		switch {
		case ip4[0] == 10:
			return true
		case ip4[0] == 172 && ip4[1] >= 16 && ip4[1] <= 31:
			return true
		case ip4[0] == 192 && ip4[1] == 168:
			return true
		case ip4[0] == 127:
			return true
		case ip4[0] == 169 && ip4[1] == 254:
			return true
		}

		return false
	}

	if ip6 := ip.To16(); ip6 != nil {
		if ip.IsLoopback() {
			return true
		}

		if ip6[0] == 0xfe && ip6[1]&0xc0 == 0x80 {
			return true
		}

		if ip6[0]&0xfe == 0xfc {
			return true
		}
	}

	return false
}
