package observability

// EventEnvelope is the body of a domain event published to the message
// bus. TenantID, when known at the emit site, lets consumers filter one
// tenant's stream without parsing the payload.
type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	TenantID  string      `json:"tenant_id,omitempty"`
	Payload   interface{} `json:"payload"`
}

// BuildHeaders assembles the AMQP headers propagated with every event.
func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
