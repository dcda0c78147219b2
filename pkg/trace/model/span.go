package model

// SpanReference points at another span within the same or a different trace.
type SpanReference struct {
	TraceID string `json:"trace_id"`
	SpanID  string `json:"span_id"`
}

// Span is a finished span as handed to the processing pipeline. Timestamps and
// durations are in microseconds to match the resolution of the derived
// duration metrics.
type Span struct {
	TraceID         string            `json:"trace_id"`
	TraceIDNum      uint64            `json:"trace_id_num"`
	SpanID          string            `json:"span_id"`
	ServiceName     string            `json:"service_name"`
	OperationName   string            `json:"operation_name"`
	Parents         []SpanReference   `json:"parents,omitempty"`
	Follows         []SpanReference   `json:"follows,omitempty"`
	StartTimeMicros int64             `json:"start_time_micros"`
	DurationMicros  int64             `json:"duration_micros"`
	Error           bool              `json:"error"`
	Component       string            `json:"component"`
	Attributes      map[string]string `json:"attributes,omitempty"`
}

// IsRoot reports whether the span is the entry point of its trace, i.e. it has
// neither parent nor follows-from references.
func (s *Span) IsRoot() bool {
	return len(s.Parents) == 0 && len(s.Follows) == 0
}

// FinishTimeMicros is the span's start time plus its duration.
func (s *Span) FinishTimeMicros() int64 {
	return s.StartTimeMicros + s.DurationMicros
}
