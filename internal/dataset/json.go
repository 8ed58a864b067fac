package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/theblitlabs/tinyml-runner/internal/utils/errorutil"
	"github.com/theblitlabs/tinyml-runner/pkg/logger"
)

// ParseJSON reads an array of flat objects. The header is the key order of
// the first object; objects with a different key count are dropped.
func ParseJSON(content string) (*Profile, error) {
	log := logger.WithComponent("profiler")

	dec := json.NewDecoder(strings.NewReader(content))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, errorutil.Parse(err, "malformed JSON dataset")
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, errorutil.Parse(nil, "JSON dataset must be an array of objects")
	}

	var header []string
	var rows []Row
	skipped := 0

	for index := 0; dec.More(); index++ {
		keys, values, err := decodeObject(dec)
		if err != nil {
			return nil, errorutil.Parse(err, "malformed JSON dataset record %d", index)
		}

		if header == nil {
			header = keys
		} else if len(keys) != len(header) {
			log.Warn().
				Int("record", index).
				Int("fields", len(keys)).
				Int("expected", len(header)).
				Msg("Dropping record with mismatched field count")
			skipped++
			continue
		}

		row := make(Row, len(header))
		for _, col := range header {
			row[col] = values[col]
		}
		rows = append(rows, row)
	}

	if _, err := dec.Token(); err != nil && !errors.Is(err, io.EOF) {
		return nil, errorutil.Parse(err, "malformed JSON dataset")
	}

	if header == nil {
		return nil, errorutil.Parse(nil, "empty file")
	}
	return newProfile(header, rows, skipped), nil
}

func decodeObject(dec *json.Decoder) ([]string, map[string]string, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected object, got %v", tok)
	}

	var keys []string
	values := map[string]string{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected key, got %v", keyTok)
		}

		var v interface{}
		if err := dec.Decode(&v); err != nil {
			return nil, nil, err
		}
		if _, seen := values[key]; !seen {
			keys = append(keys, key)
		}
		values[key] = stringify(v)
	}

	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return keys, values, nil
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
