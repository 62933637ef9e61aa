package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

// Metrics はパイプラインの処理件数を保持する小さなカウンタ集合です
type Metrics struct {
	received  atomic.Int64
	rejected  atomic.Int64
	persisted atomic.Int64
	notified  atomic.Int64
	forwarded atomic.Int64
	failed    atomic.Int64
}

// New はゼロ初期化されたMetricsを返します
func New() *Metrics {
	return &Metrics{}
}

func (m *Metrics) IncReceived()  { m.received.Add(1) }
func (m *Metrics) IncRejected()  { m.rejected.Add(1) }
func (m *Metrics) IncPersisted() { m.persisted.Add(1) }
func (m *Metrics) IncNotified()  { m.notified.Add(1) }
func (m *Metrics) IncForwarded() { m.forwarded.Add(1) }
func (m *Metrics) IncFailed()    { m.failed.Add(1) }

// Handler はカウンタをJSONで公開します
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
  "received": %d,
  "rejected": %d,
  "persisted": %d,
  "notified": %d,
  "forwarded": %d,
  "failed": %d
}`,
			m.received.Load(),
			m.rejected.Load(),
			m.persisted.Load(),
			m.notified.Load(),
			m.forwarded.Load(),
			m.failed.Load())
	})
}
