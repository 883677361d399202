package docxgen

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dfir-iris/docx-generator/pkg/docxgen/logging"
)

// DefaultDateFormat is the strftime format of timestampToDate.
const DefaultDateFormat = "%d/%m/%Y"

// strftime directives and the Go layouts producing them
var strftimeLayouts = map[byte]string{
	'a': "Mon",
	'A': "Monday",
	'b': "Jan",
	'B': "January",
	'd': "02",
	'H': "15",
	'I': "03",
	'm': "01",
	'M': "04",
	'p': "PM",
	'S': "05",
	'y': "06",
	'Y': "2006",
	'Z': "MST",
	'z': "-0700",
}

// strftime formats t with a strftime format string. Each directive is
// formatted on its own so literal text never reaches time.Format.
// Unknown directives are kept as written.
func strftime(t time.Time, format string) string {
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 == len(format) {
			b.WriteByte(c)
			continue
		}
		i++
		d := format[i]
		switch d {
		case '%':
			b.WriteByte('%')
		case 'j':
			fmt.Fprintf(&b, "%03d", t.YearDay())
		case 'f':
			fmt.Fprintf(&b, "%06d", t.Nanosecond()/1000)
		case 'w':
			b.WriteString(strconv.Itoa(int(t.Weekday())))
		default:
			layout, ok := strftimeLayouts[d]
			if !ok {
				b.WriteByte('%')
				b.WriteByte(d)
				continue
			}
			b.WriteString(t.Format(layout))
		}
	}
	return b.String()
}

// timestampMillis converts a template value holding milliseconds since the
// epoch. Strings must hold an integer.
func timestampMillis(v interface{}) (int64, bool) {
	switch ts := v.(type) {
	case int:
		return int64(ts), true
	case int32:
		return int64(ts), true
	case int64:
		return ts, true
	case float64:
		if math.IsNaN(ts) || math.IsInf(ts, 0) {
			return 0, false
		}
		return int64(ts), true
	case float32:
		return int64(ts), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(ts), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// timestampToDate formats a millisecond timestamp in UTC. Invalid input is
// logged and formatted as the epoch.
func timestampToDate(log *logging.Logger, ts interface{}, format string) string {
	ms, ok := timestampMillis(ts)
	if !ok {
		log.Warn("Cannot convert timestamp to human date. %v is not a valid timestamp", ts)
		ms = 0
	}
	out := strftime(time.UnixMilli(ms).UTC(), format)
	log.Info("Adding timestamp: %s", out)
	return out
}
