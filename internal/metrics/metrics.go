// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jeevandhara/bloodbank/internal/models"
)

// Collector gathers the application's Prometheus metrics.
type Collector struct {
	httpStatus      *prometheus.CounterVec
	httpLatency     *prometheus.HistogramVec
	donorsTotal     prometheus.Counter
	appointments    *prometheus.CounterVec
	unitsAdmitted   prometheus.Counter
	unitsExpired    prometheus.Counter
	requestsTotal   *prometheus.CounterVec
	stockAvailable  *prometheus.GaugeVec
	alertsBroadcast prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodbank_http_status_total",
			Help: "HTTP responses by status code.",
		}, []string{"status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bloodbank_http_latency_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		donorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bloodbank_donors_registered_total",
			Help: "Total donor registrations.",
		}),
		appointments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodbank_appointments_total",
			Help: "Appointment transitions by resulting status.",
		}, []string{"status"}),
		unitsAdmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bloodbank_units_admitted_total",
			Help: "Blood units admitted into inventory.",
		}),
		unitsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bloodbank_units_expired_total",
			Help: "Blood units marked expired by the sweep.",
		}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodbank_blood_requests_total",
			Help: "Blood request transitions by resulting status.",
		}, []string{"status"}),
		stockAvailable: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bloodbank_stock_available",
			Help: "Available blood units by blood type.",
		}, []string{"blood_type"}),
		alertsBroadcast: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bloodbank_emergency_alerts_total",
			Help: "Emergency alerts broadcast.",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.httpLatency,
		c.donorsTotal,
		c.appointments,
		c.unitsAdmitted,
		c.unitsExpired,
		c.requestsTotal,
		c.stockAvailable,
		c.alertsBroadcast,
	)

	return c
}

// RecordHTTPStatus counts a response by status code.
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordHTTPLatency observes a request duration for a route pattern.
func (c *Collector) RecordHTTPLatency(route string, duration time.Duration) {
	c.httpLatency.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordDonorRegistered counts a donor signup.
func (c *Collector) RecordDonorRegistered() {
	c.donorsTotal.Inc()
}

// RecordAppointment counts an appointment reaching the given status.
func (c *Collector) RecordAppointment(status models.AppointmentStatus) {
	c.appointments.WithLabelValues(status.String()).Inc()
}

// RecordUnitAdmitted counts a unit entering inventory.
func (c *Collector) RecordUnitAdmitted() {
	c.unitsAdmitted.Inc()
}

// RecordUnitsExpired counts units expired by a sweep.
func (c *Collector) RecordUnitsExpired(count int) {
	c.unitsExpired.Add(float64(count))
}

// RecordRequest counts a blood request reaching the given status.
func (c *Collector) RecordRequest(status models.RequestStatus) {
	c.requestsTotal.WithLabelValues(status.String()).Inc()
}

// SetStockLevel sets the available unit gauge for a blood type.
func (c *Collector) SetStockLevel(bloodType models.BloodType, available int) {
	c.stockAvailable.WithLabelValues(bloodType.String()).Set(float64(available))
}

// RecordAlertBroadcast counts an emergency alert.
func (c *Collector) RecordAlertBroadcast() {
	c.alertsBroadcast.Inc()
}

// Handler returns the Prometheus scrape handler for the gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
