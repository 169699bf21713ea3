package apiclient

import (
	"net/url"
	"strings"
	"time"

	"github.com/xeze-org/nutriplan-web/internal/models"
)

// query collects optional parameters in insertion order.
type query struct {
	parts []string
}

func (q *query) add(key, value string) {
	q.parts = append(q.parts, key+"="+encodeComponent(value))
}

// addString appends key only for a non-empty value.
func (q *query) addString(key, value string) {
	if value != "" {
		q.add(key, value)
	}
}

// addTime appends key only for a non-zero time.
func (q *query) addTime(key string, t time.Time) {
	if !t.IsZero() {
		q.add(key, models.FormatISO(t))
	}
}

// endpoint joins path and parameters; no "?" when nothing was added.
func (q *query) endpoint(path string) string {
	if len(q.parts) == 0 {
		return path
	}
	return path + "?" + strings.Join(q.parts, "&")
}

// componentUnescaper undoes the QueryEscape escapes that encodeURIComponent
// leaves alone.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// encodeComponent escapes like encodeURIComponent: only A-Z a-z 0-9 and
// - _ . ! ~ * ' ( ) are left as is.
func encodeComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}
