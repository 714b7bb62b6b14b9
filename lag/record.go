package lag

// Record is the lag state of one consumer group on one topic partition, as
// reported at the time of a single collection run.
type Record struct {
	Group         string
	Topic         string
	Partition     int32
	CurrentOffset int64
	LogEndOffset  int64
	Lag           int64
}
