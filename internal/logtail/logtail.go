package logtail

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Line is one log record as shown in the log view.
type Line struct {
	Text  string
	Level logrus.Level
	// Parsed is false when no level could be found; Level is then InfoLevel.
	Parsed bool
}

// Read returns at most maxLines from the end of the file at path. A missing
// file yields no lines.
func Read(path string, maxLines int) ([]string, error) {
	if maxLines <= 0 {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	ring := make([]string, maxLines)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	next, n := 0, 0
	for scanner.Scan() {
		ring[next] = scanner.Text()
		next = (next + 1) % maxLines
		if n < maxLines {
			n++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	if n < maxLines {
		return append([]string(nil), ring[:n]...), nil
	}
	return append(append([]string(nil), ring[next:]...), ring[:next]...), nil
}

// Tail reads the last maxLines records and keeps those at or above min
// severity. Lines without a recognizable level are always kept.
func Tail(path string, maxLines int, min logrus.Level) ([]Line, error) {
	raw, err := Read(path, maxLines)
	if err != nil {
		return nil, err
	}
	out := make([]Line, 0, len(raw))
	for _, text := range raw {
		line := Parse(text)
		if line.Parsed && line.Level > min {
			continue
		}
		out = append(out, line)
	}
	return out, nil
}

// Parse extracts the level from a logrus text (level=warn) or JSON
// ("level":"warning") record.
func Parse(text string) Line {
	line := Line{Text: text, Level: logrus.InfoLevel}
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") {
		var rec struct {
			Level string `json:"level"`
		}
		if json.Unmarshal([]byte(trimmed), &rec) == nil && rec.Level != "" {
			if lvl, err := logrus.ParseLevel(rec.Level); err == nil {
				line.Level, line.Parsed = lvl, true
			}
		}
		return line
	}
	for _, field := range strings.Fields(trimmed) {
		value, ok := strings.CutPrefix(field, "level=")
		if !ok {
			continue
		}
		if lvl, err := logrus.ParseLevel(strings.Trim(value, `"`)); err == nil {
			line.Level, line.Parsed = lvl, true
		}
		break
	}
	return line
}
