package telemetry

import (
	"fmt"
	"math"

	"github.com/novahq/nova/model"
)

// Threshold constants. These must not drift: the alert strings and status
// boundaries are consumed by the monitor and by stored notifications.
const (
	gpuWarnThreshold = 85
	cpuWarnThreshold = 90
	memWarnThreshold = 90
	critThreshold    = 95
)

// DeriveStatus classifies one set of load readings and returns the health
// status plus the alert messages describing which metrics triggered it.
// gpu is nil when no GPU reading is available.
//
// CRITICAL when any of cpu/mem/gpu >= 95; else WARNING when cpu >= 90,
// mem >= 90, or gpu >= 85; else NOMINAL. The returned messages are non-empty
// exactly when the status is not NOMINAL.
func DeriveStatus(cpu, mem float64, gpu *float64) (model.HealthStatus, []string) {
	status := model.StatusNominal
	var alerts []string

	if gpu != nil && *gpu >= gpuWarnThreshold {
		status = model.StatusWarning
		alerts = append(alerts, usageAlert("GPU", *gpu))
	}
	if cpu >= cpuWarnThreshold {
		status = model.StatusWarning
		alerts = append(alerts, usageAlert("CPU", cpu))
	}
	if mem >= memWarnThreshold {
		status = model.StatusWarning
		alerts = append(alerts, usageAlert("Memory", mem))
	}

	if cpu >= critThreshold || mem >= critThreshold || (gpu != nil && *gpu >= critThreshold) {
		status = model.StatusCritical
	}

	return status, alerts
}

func usageAlert(metric string, pct float64) string {
	return fmt.Sprintf("%s usage is high at %d percent", metric, int(math.Round(pct)))
}
