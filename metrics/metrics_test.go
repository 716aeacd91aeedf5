package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Metrics", func() {
	It("counts resolutions by outcome", func() {
		reg := prometheus.NewRegistry()
		m := New(reg)

		m.Observe(OutcomeFound, 4, time.Millisecond)
		m.Observe(OutcomeFound, 4, time.Millisecond)
		m.Observe(OutcomeNotFound, 1, time.Millisecond)

		Expect(testutil.ToFloat64(m.resolutions.WithLabelValues(OutcomeFound))).To(Equal(2.0))
		Expect(testutil.ToFloat64(m.resolutions.WithLabelValues(OutcomeNotFound))).To(Equal(1.0))
		Expect(testutil.CollectAndCount(m.duration)).To(Equal(1))
	})

	It("ignores observations without collectors", func() {
		var m *Metrics
		Expect(func() { m.Observe(OutcomeError, 0, 0) }).NotTo(Panic())
	})
})
