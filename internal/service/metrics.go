package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	purchasesConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_purchases_confirmed_total",
		Help: "Confirmed item purchases.",
	})

	viewsMountedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_views_mounted_total",
			Help: "Mounted views by catalog status.",
		},
		[]string{"catalog_status"},
	)
)
