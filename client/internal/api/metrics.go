package api

import (
	"bytes"
	"net/http"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/mallfront/storefront/client/internal/store"
	"github.com/mallfront/storefront/pkg/health"
)

// Metric names exposed on GET /metrics.
const (
	MetricServiceUp     = "storefront_service_up"
	MetricProbeSeconds  = "storefront_service_probe_seconds"
	MetricUptimeRatio   = "storefront_service_uptime_ratio"
	MetricServicesTotal = "storefront_services"
)

// metrics returns GET /metrics in the Prometheus text format.
func (h *Handler) metrics(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	for _, mf := range BuildMetricFamilies(h.store) {
		if len(mf.Metric) == 0 {
			continue // the text encoder rejects empty families
		}
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			jsonErr(w, http.StatusInternalServerError, "encode metrics")
			return
		}
	}
	w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck
}

// BuildMetricFamilies converts the store into metric families. Services whose
// latest status is unknown report up=0 like unhealthy ones; the per-status
// gauge tells them apart.
func BuildMetricFamilies(st *store.Store) []*dto.MetricFamily {
	states := st.List()

	up := gaugeFamily(MetricServiceUp, "1 if the last probe of the service succeeded.")
	probe := gaugeFamily(MetricProbeSeconds, "Duration of the last probe in seconds.")
	uptime := gaugeFamily(MetricUptimeRatio, "Share of healthy probes in the recent window, 0-1.")
	for _, s := range states {
		var v float64
		if s.Health.Status == health.StatusHealthy {
			v = 1
		}
		up.Metric = append(up.Metric, gauge(v, "service", s.Name))
		probe.Metric = append(probe.Metric, gauge(s.Health.Latency.Seconds(), "service", s.Name))
		uptime.Metric = append(uptime.Metric, gauge(s.UptimePct/100, "service", s.Name))
	}

	counts := map[health.Status]int{}
	for _, s := range states {
		counts[s.Health.Status]++
	}
	total := gaugeFamily(MetricServicesTotal, "Number of tracked services by last status.")
	for _, status := range []health.Status{health.StatusHealthy, health.StatusUnhealthy, health.StatusUnknown} {
		total.Metric = append(total.Metric, gauge(float64(counts[status]), "status", string(status)))
	}

	return []*dto.MetricFamily{up, probe, uptime, total}
}

func gaugeFamily(name, help string) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(help),
		Type: dto.MetricType_GAUGE.Enum(),
	}
}

func gauge(v float64, labelName, labelValue string) *dto.Metric {
	return &dto.Metric{
		Label: []*dto.LabelPair{{Name: proto.String(labelName), Value: proto.String(labelValue)}},
		Gauge: &dto.Gauge{Value: proto.Float64(v)},
	}
}
