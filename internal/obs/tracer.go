package obs

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Tracer and Meter are the package-wide instrumentation handles every
// component pulls from, mirroring the teacher's `otel.Tracer("...")`
// package-scope var in internal/storage/dolt/store.go rather than
// threading a tracer through every constructor.
var (
	Tracer = otel.Tracer(instrumentationName)
	Meter  = otel.Meter(instrumentationName)
)

var (
	_ trace.Tracer = Tracer
	_ metric.Meter = Meter
)
