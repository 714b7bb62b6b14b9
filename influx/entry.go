package influx

import (
	"strconv"
	"time"

	"github.com/cloudhut/kafka-lag-reporter/lag"
)

// Measurement is the name all lag entries are written to
const Measurement = "kafka.consumer_offset"

// Entry is a single measurement of the outbound write batch
type Entry struct {
	Measurement string
	Tags        map[string]string
	Fields      map[string]interface{}
	Time        time.Time
}

// BuildEntries converts lag records into measurement entries, one per record and in the same order. now is evaluated
// once for every record, entries of the same run may therefore carry slightly different timestamps.
func BuildEntries(records []lag.Record, now func() time.Time) []Entry {
	entries := make([]Entry, len(records))
	for i, record := range records {
		entries[i] = Entry{
			Measurement: Measurement,
			Tags: map[string]string{
				"topic":     record.Topic,
				"group":     record.Group,
				"partition": strconv.Itoa(int(record.Partition)),
			},
			Fields: map[string]interface{}{
				"current_offset": record.CurrentOffset,
				"log_end_offset": record.LogEndOffset,
				"lag":            record.Lag,
			},
			Time: now(),
		}
	}

	return entries
}
