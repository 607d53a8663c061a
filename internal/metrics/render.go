package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	previewsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "phfolio",
			Subsystem: "render",
			Name:      "previews_total",
			Help:      "按视口统计的预览渲染次数。",
		},
		[]string{"viewport"},
	)

	placeholdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "phfolio",
			Subsystem: "render",
			Name:      "placeholders_total",
			Help:      "渲染为占位节点的 section 数量。",
		},
		[]string{"viewport"},
	)

	themeDiagnosticsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "phfolio",
			Subsystem: "render",
			Name:      "theme_diagnostics_total",
			Help:      "被忽略或回退的主题输入数量。",
		},
	)

	exportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "phfolio",
			Subsystem: "export",
			Name:      "results_total",
			Help:      "导出请求按结果统计。",
		},
		[]string{"result"},
	)
)

// ObservePreview 记录一次预览渲染。
func ObservePreview(viewport string, placeholders, diagnostics int) {
	previewsTotal.WithLabelValues(viewport).Inc()
	if placeholders > 0 {
		placeholdersTotal.WithLabelValues(viewport).Add(float64(placeholders))
	}
	if diagnostics > 0 {
		themeDiagnosticsTotal.Add(float64(diagnostics))
	}
}

// ObserveExport 记录导出结果：enqueued/limited/succeeded/failed。
func ObserveExport(result string) {
	exportsTotal.WithLabelValues(result).Inc()
}
