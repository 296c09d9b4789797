// Package export renders dashboard data as CSV documents: ticket reports
// with derived SLA metrics, statistics summaries and warranty risk lists.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrNoRows is returned instead of writing a document with only a header.
var ErrNoRows = errors.New("export: no rows to export")

// Placeholders used for missing values.
const (
	NA         = "N/A"
	Unassigned = "Unassigned"
)

const dateLayout = "Jan 2, 2006, 03:04 PM"

// Escape renders v as a CSV field. Values containing a comma, a double
// quote or a newline are quoted with inner quotes doubled; nil is empty.
func Escape(v any) string {
	var s string
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		s = x
	case fmt.Stringer:
		s = x.String()
	default:
		s = fmt.Sprint(x)
	}
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

// rowWriter writes escaped rows separated by newlines.
type rowWriter struct {
	w   *bufio.Writer
	err error
}

func newRowWriter(w io.Writer) *rowWriter {
	return &rowWriter{w: bufio.NewWriter(w)}
}

func (rw *rowWriter) row(fields ...any) {
	if rw.err != nil {
		return
	}
	for i, f := range fields {
		if i > 0 {
			if rw.err = rw.w.WriteByte(','); rw.err != nil {
				return
			}
		}
		if _, rw.err = rw.w.WriteString(Escape(f)); rw.err != nil {
			return
		}
	}
	rw.err = rw.w.WriteByte('\n')
}

func (rw *rowWriter) flush() error {
	if rw.err == nil {
		rw.err = rw.w.Flush()
	}
	return errors.Wrap(rw.err, "write csv")
}

func orNA(s string) string {
	return orDefault(s, NA)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return NA
	}
	return t.Format(dateLayout)
}

func formatDatePtr(t *time.Time) string {
	if t == nil {
		return NA
	}
	return formatDate(*t)
}

// Filename builds "<prefix>_<tokens...>_<YYYY-MM-DD>.csv". Whitespace and
// path separators inside tokens become underscores.
func Filename(prefix string, now time.Time, tokens ...string) string {
	parts := []string{prefix}
	for _, t := range tokens {
		if t = sanitize(t); t != "" {
			parts = append(parts, t)
		}
	}
	parts = append(parts, now.Format("2006-01-02"))
	return strings.Join(parts, "_") + ".csv"
}

func sanitize(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '/', '\\', '"', ';':
			return '_'
		}
		return r
	}, s)
}
