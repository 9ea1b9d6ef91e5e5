// ABOUTME: This file implements proxy persistence queries.
// ABOUTME: Validated proxies are upserted and their health counters updated after each use.
package driver

import (
	"context"
	"fmt"

	"news-harvester/domain"
)

const proxyColumns = `id, host, port, protocol, last_validated_at,
	success_count, consecutive_failure_count, is_active`

// UpsertProxy stores a freshly validated proxy. Re-validating an existing
// proxy reactivates it and clears its failure streak.
func UpsertProxy(ctx context.Context, q Queryer, proxy domain.ProxyRecord) error {
	if q == nil {
		return fmt.Errorf("database connection not initialized")
	}

	query := `
		INSERT INTO proxies (host, port, protocol, last_validated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (host, port) DO UPDATE SET
			protocol = EXCLUDED.protocol,
			last_validated_at = now(),
			consecutive_failure_count = 0,
			is_active = TRUE`

	protocol := proxy.Protocol
	if protocol == "" {
		protocol = domain.DefaultProxyProtocol
	}

	if _, err := q.Exec(ctx, query, proxy.Host, proxy.Port, protocol); err != nil {
		return fmt.Errorf("upsert proxy %s: %w", proxy.Addr(), err)
	}

	return nil
}

// RecordProxyOutcome updates health counters for one proxy. A success resets
// the failure streak. A failure extends it and deactivates the proxy once the
// streak reaches retireThreshold.
func RecordProxyOutcome(ctx context.Context, q Queryer, host string, port int, success bool, retireThreshold int) error {
	if q == nil {
		return fmt.Errorf("database connection not initialized")
	}

	var query string
	var args []any

	if success {
		query = `
			UPDATE proxies SET
				success_count = success_count + 1,
				consecutive_failure_count = 0
			WHERE host = $1 AND port = $2`
		args = []any{host, port}
	} else {
		query = `
			UPDATE proxies SET
				consecutive_failure_count = consecutive_failure_count + 1,
				is_active = (consecutive_failure_count + 1) < $3
			WHERE host = $1 AND port = $2`
		args = []any{host, port, retireThreshold}
	}

	if _, err := q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("record proxy outcome %s:%d: %w", host, port, err)
	}

	return nil
}

// RetireProxy deactivates a proxy regardless of its failure streak.
func RetireProxy(ctx context.Context, q Queryer, host string, port int) error {
	if q == nil {
		return fmt.Errorf("database connection not initialized")
	}

	query := `UPDATE proxies SET is_active = FALSE WHERE host = $1 AND port = $2`

	if _, err := q.Exec(ctx, query, host, port); err != nil {
		return fmt.Errorf("retire proxy %s:%d: %w", host, port, err)
	}

	return nil
}

// ListActiveProxies returns every proxy still eligible for use.
func ListActiveProxies(ctx context.Context, q Queryer) ([]domain.ProxyRecord, error) {
	if q == nil {
		return nil, fmt.Errorf("database connection not initialized")
	}

	query := `SELECT ` + proxyColumns + ` FROM proxies WHERE is_active ORDER BY id`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active proxies: %w", err)
	}
	defer rows.Close()

	var proxies []domain.ProxyRecord

	for rows.Next() {
		var p domain.ProxyRecord

		err := rows.Scan(&p.ID, &p.Host, &p.Port, &p.Protocol, &p.LastValidatedAt,
			&p.SuccessCount, &p.ConsecutiveFailures, &p.Active)
		if err != nil {
			return nil, fmt.Errorf("scan proxy row: %w", err)
		}

		proxies = append(proxies, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate proxy rows: %w", err)
	}

	return proxies, nil
}
