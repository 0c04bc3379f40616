package outbox

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType and the message key is AggregateID,
// so one appointment's events stay ordered on a single partition.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}
