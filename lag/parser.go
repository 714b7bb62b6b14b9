package lag

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// HeaderMarker identifies the header row printed by kafka-consumer-groups.sh. Any line containing it is skipped.
	HeaderMarker = "GROUP, TOPIC, PARTITION"

	columnDelimiter = ", "
	minColumnCount  = 6
)

// ParseError describes the first line that could not be parsed into a Record.
type ParseError struct {
	// Line is the 1-based position of the offending line in the collector output
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse line %d (%q): %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse turns the describe output of kafka-consumer-groups.sh into lag records. Header rows and blank lines are
// skipped, every other line must have at least six comma separated columns. The first malformed line aborts parsing
// and no records are returned at all.
func Parse(lines []string) ([]Record, error) {
	records := make([]Record, 0, len(lines))
	for i, line := range lines {
		if strings.Contains(line, HeaderMarker) {
			continue
		}
		// Blank lines carry no columns, they are not malformed rows
		if strings.TrimSpace(line) == "" {
			continue
		}

		record, err := parseLine(line)
		if err != nil {
			return nil, &ParseError{Line: i + 1, Text: line, Err: err}
		}
		records = append(records, record)
	}

	return records, nil
}

func parseLine(line string) (Record, error) {
	columns := strings.Split(line, columnDelimiter)
	if len(columns) < minColumnCount {
		return Record{}, fmt.Errorf("expected at least %d columns, got %d", minColumnCount, len(columns))
	}

	partition, err := strconv.ParseInt(strings.TrimSpace(columns[2]), 10, 32)
	if err != nil {
		return Record{}, fmt.Errorf("invalid partition: %w", err)
	}

	// Offsets and lag share the same treatment, only the field they end up in differs
	var metrics [3]int64
	for i, name := range []string{"current offset", "log end offset", "lag"} {
		metrics[i], err = strconv.ParseInt(strings.TrimSpace(columns[3+i]), 10, 64)
		if err != nil {
			return Record{}, fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	return Record{
		Group:         columns[0],
		Topic:         columns[1],
		Partition:     int32(partition),
		CurrentOffset: metrics[0],
		LogEndOffset:  metrics[1],
		Lag:           metrics[2],
	}, nil
}
