package reporting

import (
	"errors"
	"github.com/telemetryworks/tracemetrics/pkg/trace/model"
)

// Reporter ships kept spans to a backend or proxy. Implementations own the
// transport; the span processor only logs reporting failures and never
// retries.
type Reporter interface {
	Report(span *model.Span) error
	Close() error
}

// CompositeReporter fans a span out to several reporters, e.g. a console
// reporter next to the real backend one.
type CompositeReporter struct {
	reporters []Reporter
}

func NewCompositeReporter(reporters ...Reporter) *CompositeReporter {
	return &CompositeReporter{reporters: reporters}
}

func (cr *CompositeReporter) Report(span *model.Span) error {
	var errs []error
	for _, reporter := range cr.reporters {
		if err := reporter.Report(span); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (cr *CompositeReporter) Close() error {
	var errs []error
	for _, reporter := range cr.reporters {
		if err := reporter.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reporters exposes the wrapped reporters.
func (cr *CompositeReporter) Reporters() []Reporter {
	return cr.reporters
}
