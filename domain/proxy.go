// ABOUTME: This file defines the proxy record used for browser-based fetching.
// ABOUTME: Proxies are validated before use and retired after repeated failures.
package domain

import (
	"fmt"
	"time"
)

// DefaultProxyProtocol is assumed when a proxy list entry carries no scheme.
const DefaultProxyProtocol = "http"

// ProxyRecord describes one upstream proxy and its health counters.
type ProxyRecord struct {
	ID                  int64      `json:"id"`
	Host                string     `json:"host"`
	Port                int        `json:"port"`
	Protocol            string     `json:"protocol"`
	LastValidatedAt     *time.Time `json:"last_validated_at,omitempty"`
	SuccessCount        int        `json:"success_count"`
	ConsecutiveFailures int        `json:"consecutive_failure_count"`
	Active              bool       `json:"is_active"`
}

// Addr returns the host:port form used as the pool key.
func (p ProxyRecord) Addr() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

// URL returns the proxy in scheme://host:port form for http.Transport.
func (p ProxyRecord) URL() string {
	protocol := p.Protocol
	if protocol == "" {
		protocol = DefaultProxyProtocol
	}
	return fmt.Sprintf("%s://%s:%d", protocol, p.Host, p.Port)
}
