package log

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// JSONFormatter renders an Entry as a single line of JSON.
type JSONFormatter struct{}

func (JSONFormatter) Format(entry *Entry) ([]byte, error) {
	rec := make(map[string]interface{}, len(entry.Fields)+4)
	for k, v := range entry.Fields {
		rec[k] = v
	}
	rec["level"] = entry.Level.String()
	rec["msg"] = entry.Message
	rec["ts"] = entry.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	if entry.Caller != "" {
		rec["caller"] = entry.Caller
	}
	if entry.Error != nil {
		rec["error"] = entry.Error.Error()
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// TextFormatter renders an Entry as a human-readable line.
type TextFormatter struct{}

func (TextFormatter) Format(entry *Entry) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s [%s] %s", entry.Timestamp.Format("15:04:05.000"), entry.Level.String(), entry.Message)
	for k, v := range entry.Fields {
		fmt.Fprintf(&buf, " %s=%v", k, v)
	}
	if entry.Error != nil {
		fmt.Fprintf(&buf, " error=%v", entry.Error)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
