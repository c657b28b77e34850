package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Tracer returns the service tracer from the globally configured provider.
// Exporter wiring is an operational concern outside this repository; with no
// provider installed the returned tracer is a no-op.
func Tracer(service string) trace.Tracer {
	return otel.Tracer("sagapay/" + service)
}
