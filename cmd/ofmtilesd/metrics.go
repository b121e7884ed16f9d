package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	versionGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ofmtiles",
		Name:      "version",
		Help:      "App version.",
	}, []string{"version"})

	archiveGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ofmtiles",
		Name:      "archive_info",
		Help:      "Served archive name and bounds.",
	}, []string{"name", "bounds"})
)
