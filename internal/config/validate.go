package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"chbridge/internal/mapping"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks opening the catalog.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single validation finding. Path names the config key.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate lints c without mutating it. Callers decide whether warnings
// are fatal.
func (c Config) Validate() []Issue {
	var issues []Issue
	issues = append(issues, c.validateConnection()...)
	issues = append(issues, c.validateDecimal()...)
	issues = append(issues, c.validateSession()...)
	issues = append(issues, c.validateMetrics()...)
	return issues
}

func (c Config) validateConnection() []Issue {
	var issues []Issue

	if strings.TrimSpace(c.Catalog) == "" {
		issues = append(issues, Issue{SeverityError, "catalog", "catalog must not be empty; it labels logs and metrics"})
	}

	known := map[string]struct{}{"clickhouse": {}, "sqlite": {}}
	switch kind := strings.TrimSpace(c.StorageKind); {
	case kind == "":
		issues = append(issues, Issue{SeverityError, "storage-kind", "storage-kind must not be empty"})
	default:
		if _, ok := known[kind]; !ok {
			issues = append(issues, Issue{SeverityWarning, "storage-kind",
				fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", kind)})
		}
	}

	if strings.TrimSpace(c.ConnectionURL) == "" {
		issues = append(issues, Issue{SeverityError, "connection-url", "connection-url must not be empty"})
	} else if c.StorageKind == "clickhouse" && !strings.Contains(c.ConnectionURL, "clickhouse://") &&
		!strings.Contains(c.ConnectionURL, "@tcp(") {
		issues = append(issues, Issue{SeverityWarning, "connection-url",
			"connection-url is neither a clickhouse:// URL nor a driver DSN"})
	}

	if c.ConnectionTimeout <= 0 {
		issues = append(issues, Issue{SeverityError, "clickhouse.connection-timeout",
			fmt.Sprintf("connection timeout must be positive, got %s", c.ConnectionTimeout)})
	} else if c.ConnectionTimeout < time.Second {
		issues = append(issues, Issue{SeverityWarning, "clickhouse.connection-timeout",
			fmt.Sprintf("connection timeout %s is unusually short", c.ConnectionTimeout)})
	}
	return issues
}

func (c Config) validateDecimal() []Issue {
	var issues []Issue

	dm, err := mapping.ParseDecimalMapping(c.DecimalMapping)
	if err != nil {
		issues = append(issues, Issue{SeverityError, "decimal-mapping", err.Error()})
	}
	if c.DecimalDefaultScale < 0 || c.DecimalDefaultScale > 38 {
		issues = append(issues, Issue{SeverityError, "decimal-default-scale",
			fmt.Sprintf("decimal-default-scale=%d must be within 0..38", c.DecimalDefaultScale)})
	}
	rm, err := mapping.ParseRoundingMode(c.DecimalRoundingMode)
	if err != nil {
		issues = append(issues, Issue{SeverityError, "decimal-rounding-mode", err.Error()})
	} else if dm == mapping.DecimalAllowOverflow && rm == mapping.RoundUnnecessary {
		issues = append(issues, Issue{SeverityWarning, "decimal-rounding-mode",
			"UNNECESSARY fails on every value that loses digits under allow_overflow"})
	}

	for i, p := range strings.Split(c.TypesMappedToVarchar, ",") {
		if strings.TrimSpace(p) == "" && strings.TrimSpace(c.TypesMappedToVarchar) != "" {
			issues = append(issues, Issue{SeverityWarning, "jdbc-types-mapped-to-varchar",
				fmt.Sprintf("entry %d is blank", i)})
		}
	}
	return issues
}

func (c Config) validateSession() []Issue {
	if c.TimeZone == "" {
		return nil
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return []Issue{{SeverityError, "session.time-zone", err.Error()}}
	}
	return nil
}

func (c Config) validateMetrics() []Issue {
	var issues []Issue

	switch c.MetricsKind {
	case "", "none":
	case "prompush":
		if c.MetricsGateway == "" {
			issues = append(issues, Issue{SeverityError, "metrics.pushgateway-url",
				"metrics.kind=prompush requires metrics.pushgateway-url"})
		} else if u, err := url.Parse(c.MetricsGateway); err != nil || u.Scheme == "" || u.Host == "" {
			issues = append(issues, Issue{SeverityError, "metrics.pushgateway-url",
				fmt.Sprintf("invalid pushgateway URL %q", c.MetricsGateway)})
		}
	case "datadog":
		if c.MetricsDatadog == "" {
			issues = append(issues, Issue{SeverityError, "metrics.datadog-addr",
				"metrics.kind=datadog requires metrics.datadog-addr"})
		}
	default:
		issues = append(issues, Issue{SeverityError, "metrics.kind",
			fmt.Sprintf("unknown metrics kind %q; want none, prompush or datadog", c.MetricsKind)})
	}
	return issues
}
