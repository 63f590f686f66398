package dispatcher

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/krpc/spacecenter/internal/dispatcher"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
