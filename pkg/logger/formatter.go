package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// ServiceFormatter renders entries as flat JSON with the service name and
// version stamped on every line, matching what the log pipeline expects.
type ServiceFormatter struct {
	TimestampFormat string
	AppName         string
	Version         string
}

func (f *ServiceFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	data := make(map[string]interface{}, len(entry.Data)+5)

	timestampFormat := f.TimestampFormat
	if timestampFormat == "" {
		timestampFormat = time.RFC3339
	}
	data["timestamp"] = entry.Time.Format(timestampFormat)
	data["level"] = entry.Level.String()
	data["message"] = entry.Message

	if f.AppName != "" {
		data["app"] = f.AppName
	}
	if f.Version != "" {
		data["version"] = f.Version
	}

	for k, v := range entry.Data {
		data[k] = v
	}

	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	if err := json.NewEncoder(b).Encode(data); err != nil {
		return nil, fmt.Errorf("failed to marshal log fields to JSON: %w", err)
	}

	return b.Bytes(), nil
}
