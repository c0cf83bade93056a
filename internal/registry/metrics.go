package registry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	opCreate     = "create"
	opUpdate     = "update"
	opDelete     = "delete"
	opSetActive  = "set_active"
	opSetDefault = "set_default"

	resultOK = "ok"
)

var operations = promauto.NewCounterVec( //nolint:gochecknoglobals
	prometheus.CounterOpts{
		Name: "role_registry_operations_total",
		Help: "Number of mutating role registry operations, by operation and result.",
	},
	[]string{"operation", "result"},
)

func observe(op string, err error) {
	operations.WithLabelValues(op, kind(err)).Inc()
}
