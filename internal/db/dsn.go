package db

import (
	"net/url"
	"regexp"
	"strings"
)

var kvPairRegex = regexp.MustCompile(`(?i)\b(host|user|password|dbname|port|sslmode)=`)

// NormalizeDSN accepts either a URL style DSN (postgres://...) or a key=value list.
// It trims quotes and whitespace and, for key=value form, collapses spaces and
// defaults sslmode to disable.
func NormalizeDSN(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "\"'")
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return s
	}
	// Not key=value pairs either: return unchanged and let the driver complain.
	if !kvPairRegex.MatchString(s) {
		return s
	}
	cleaned := strings.Join(strings.Fields(s), " ")
	if !strings.Contains(strings.ToLower(cleaned), "sslmode=") {
		cleaned += " sslmode=disable"
	}
	return cleaned
}

var passwordRegex = regexp.MustCompile(`(password=)([^\s&]+)`)

// MaskDSN hides the password of a DSN for logging.
func MaskDSN(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "***")
			return u.String()
		}
	}
	return passwordRegex.ReplaceAllString(dsn, `${1}***`)
}

// IsMemorySQLite reports whether path names an in-memory SQLite database.
func IsMemorySQLite(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory") || strings.HasPrefix(path, "file::memory:")
}

// SQLiteDSN adds the connection pragmas every SQLite connection needs:
// foreign keys on, a busy timeout and, for files, WAL journaling with
// immediate write transactions.
func SQLiteDSN(path string) string {
	params := url.Values{}
	params.Set("_foreign_keys", "on")
	params.Set("_busy_timeout", "5000")
	if !IsMemorySQLite(path) {
		params.Set("_journal_mode", "WAL")
		params.Set("_txlock", "immediate")
	}

	base, query, _ := strings.Cut(path, "?")
	if query != "" {
		existing, err := url.ParseQuery(query)
		if err == nil {
			for k, v := range existing {
				params[k] = v
			}
		}
	}
	return base + "?" + params.Encode()
}
