package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var catalogLoadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_catalog_loads_total",
		Help: "Catalog loads by result.",
	},
	[]string{"result"},
)
