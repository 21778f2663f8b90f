package clickhouse

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// DefaultConnectTimeout applies when the configuration leaves it unset.
const DefaultConnectTimeout = 10 * time.Second

// Config holds the connection settings for the ClickHouse backend.
type Config struct {
	// URL is either a clickhouse://host:port/database URL (the jdbc: prefix
	// is accepted) or a go-sql-driver DSN such as user:pw@tcp(host:9004)/db.
	// ClickHouse must expose its MySQL protocol port.
	URL      string
	User     string
	Password string

	ConnectTimeout       time.Duration
	UseInformationSchema bool
}

// driverConfig translates c into a go-sql-driver configuration.
//
// Connection properties:
//   - charset utf8
//   - connect timeout from Config
//   - parameters are interpolated client side; the ClickHouse MySQL
//     interface does not support server-side prepared statements
//   - DATE/DATETIME arrive as time.Time
func (c Config) driverConfig() (*mysql.Config, error) {
	dsn, err := toDSN(c.URL)
	if err != nil {
		return nil, err
	}
	cfg, err := mysql.ParseDSN(withDefaultParam(dsn, "charset", "utf8"))
	if err != nil {
		return nil, fmt.Errorf("clickhouse: parse dsn: %w", err)
	}
	if c.User != "" {
		cfg.User = c.User
	}
	if c.Password != "" {
		cfg.Passwd = c.Password
	}
	cfg.Timeout = c.ConnectTimeout
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConnectTimeout
	}
	cfg.InterpolateParams = true
	cfg.ParseTime = true
	return cfg, nil
}

// toDSN accepts a clickhouse:// URL and rewrites it into DSN form. Anything
// else is passed through.
func toDSN(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("clickhouse: connection url must not be empty")
	}
	raw = strings.TrimPrefix(raw, "jdbc:")
	if !strings.HasPrefix(raw, "clickhouse://") {
		return raw, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("clickhouse: parse url: %w", err)
	}
	var sb strings.Builder
	if u.User != nil {
		sb.WriteString(u.User.Username())
		if pw, ok := u.User.Password(); ok {
			sb.WriteByte(':')
			sb.WriteString(pw)
		}
		sb.WriteByte('@')
	}
	fmt.Fprintf(&sb, "tcp(%s)/%s", u.Host, strings.TrimPrefix(u.Path, "/"))
	if u.RawQuery != "" {
		sb.WriteByte('?')
		sb.WriteString(u.RawQuery)
	}
	return sb.String(), nil
}

func withDefaultParam(dsn, key, value string) string {
	if strings.Contains(dsn, "?"+key+"=") || strings.Contains(dsn, "&"+key+"=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + key + "=" + value
}
