package sqlstore

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/phrazzld/revision-scheduler/internal/domain"
	"github.com/phrazzld/revision-scheduler/internal/store"
)

// Dialect captures what differs between the SQL engines the stores run on.
type Dialect interface {
	// Name is the engine name, also used as the goose dialect.
	Name() string

	// Rebind rewrites a query written with ? placeholders into the engine's
	// placeholder syntax.
	Rebind(query string) string

	// TimeValue converts an instant into a query argument. Implementations
	// must preserve ordering under the engine's comparison rules.
	TimeValue(t time.Time) any

	// MapError translates driver errors into store errors.
	MapError(err error) error
}

// TextTimeLayout is the fixed-width layout used by engines that keep instants
// as text. Equal width keeps lexical order equal to chronological order.
const TextTimeLayout = "2006-01-02T15:04:05.000000Z"

// FormatTextTime renders t in TextTimeLayout after normalizing it.
func FormatTextTime(t time.Time) string {
	return domain.NormalizeTime(t).Format(TextTimeLayout)
}

// RebindDollar rewrites ? placeholders as $1, $2, ... It does not look
// inside string literals, so queries must not contain a literal '?'.
func RebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// timeScanner reads an instant stored either natively or as text.
type timeScanner struct {
	dst   *time.Time
	valid bool
}

func (s *timeScanner) Scan(src any) error {
	if src == nil {
		s.valid = false
		return nil
	}
	t, err := parseTime(src)
	if err != nil {
		return err
	}
	*s.dst = t
	s.valid = true
	return nil
}

func parseTime(src any) (time.Time, error) {
	switch v := src.(type) {
	case time.Time:
		return domain.NormalizeTime(v), nil
	case string:
		return parseTextTime(v)
	case []byte:
		return parseTextTime(string(v))
	default:
		return time.Time{}, fmt.Errorf("unsupported time value of type %T", src)
	}
}

func parseTextTime(s string) (time.Time, error) {
	if t, err := time.Parse(TextTimeLayout, s); err == nil {
		return domain.NormalizeTime(t), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time value %q: %w", s, err)
	}
	return domain.NormalizeTime(t), nil
}

// nullTimeArg converts an optional instant into a query argument.
func nullTimeArg(d Dialect, t *time.Time) any {
	if t == nil {
		return nil
	}
	return d.TimeValue(*t)
}

// storeError wraps a failed statement in a store.StoreError after the
// dialect has mapped the driver error.
func storeError(d Dialect, entity, operation, message string, err error) error {
	return store.NewStoreError(entity, operation, message, d.MapError(err))
}
