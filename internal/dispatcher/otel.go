package dispatcher

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Instrumentation scope for the depot event pipeline's queue and
// dispatch metrics.
const instrumentationName = "github.com/zrfleet/depotsim/internal/dispatcher"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
