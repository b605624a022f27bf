package kvfile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cinderdb/cinder/internal/record"
)

// Records are single lines. A live value is written as
//
//	set "key" "value"
//
// and a tombstone as
//
//	del "key"
//
// Keys and values are Go-quoted, which escapes newlines and quote characters
// and keeps spaces inside the quotes, so a record is always exactly one line
// and parses from any recorded offset. The del tag keeps tombstones distinct from every present
// value, the empty string included.
const (
	tagPresent = "set"
	tagDeleted = "del"
)

func encodeRecord(key string, status record.Status[string]) string {
	if status.Deleted {
		return tagDeleted + " " + strconv.Quote(key) + "\n"
	}
	return tagPresent + " " + strconv.Quote(key) + " " + strconv.Quote(status.Value) + "\n"
}

func parseRecord(line string) (string, record.Status[string], error) {
	tag, rest, found := strings.Cut(line, " ")
	if !found {
		return "", record.Status[string]{}, fmt.Errorf("record %q has no tag separator", line)
	}

	quotedKey, err := strconv.QuotedPrefix(rest)
	if err != nil {
		return "", record.Status[string]{}, fmt.Errorf("record has unparsable key: %w", err)
	}
	key, err := strconv.Unquote(quotedKey)
	if err != nil {
		return "", record.Status[string]{}, fmt.Errorf("record has unparsable key: %w", err)
	}
	rest = rest[len(quotedKey):]

	switch tag {
	case tagDeleted:
		if rest != "" {
			return "", record.Status[string]{}, fmt.Errorf("tombstone record carries trailing bytes %q", rest)
		}
		return key, record.Tombstone[string](), nil

	case tagPresent:
		if !strings.HasPrefix(rest, " ") {
			return "", record.Status[string]{}, fmt.Errorf("record %q is missing its value", line)
		}
		quotedValue, err := strconv.QuotedPrefix(rest[1:])
		if err != nil {
			return "", record.Status[string]{}, fmt.Errorf("record has unparsable value: %w", err)
		}
		if rest[1:] != quotedValue {
			return "", record.Status[string]{}, fmt.Errorf("record carries trailing bytes after value")
		}
		value, err := strconv.Unquote(quotedValue)
		if err != nil {
			return "", record.Status[string]{}, fmt.Errorf("record has unparsable value: %w", err)
		}
		return key, record.Present(value), nil

	default:
		return "", record.Status[string]{}, fmt.Errorf("record has unknown tag %q", tag)
	}
}
