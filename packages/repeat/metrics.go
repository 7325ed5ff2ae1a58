package repeat

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/abdul-hamid-achik/httpdebug/packages/http"
)

const maxLatencyUs = 60_000_000

// Metrics aggregates exchange results. Latencies are kept in microseconds.
type Metrics struct {
	mu sync.RWMutex

	total      int64
	success    int64
	httpErrors int64
	failures   int64
	timeouts   int64

	histogram  *hdrhistogram.Histogram
	statuses   map[int]int64
	errorCodes map[int]int64

	startTime time.Time
	endTime   time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{
		// 1us to 60s, 3 significant digits
		histogram:  hdrhistogram.New(1, maxLatencyUs, 3),
		statuses:   make(map[int]int64),
		errorCodes: make(map[int]int64),
	}
}

func (m *Metrics) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startTime = time.Now()
}

func (m *Metrics) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.endTime = time.Now()
}

// Record adds one exchange. Failed exchanges count by error code; the rest
// count by status, with 4xx and 5xx treated as errors.
func (m *Metrics) Record(res *http.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	if err := res.Err(); err != nil {
		m.failures++
		m.errorCodes[err.Code]++
		if err.Code == http.CodeTimeout {
			m.timeouts++
		}
		if res.Duration() > 0 {
			m.recordLatency(res.Duration())
		}
		return
	}

	code, _ := res.Status()
	m.statuses[code]++
	if code >= 400 || code == 0 {
		m.httpErrors++
	} else {
		m.success++
	}
	m.recordLatency(res.Duration())
}

func (m *Metrics) recordLatency(d time.Duration) {
	us := d.Microseconds()
	if us < 1 {
		us = 1
	}
	if us > maxLatencyUs {
		us = maxLatencyUs
	}
	_ = m.histogram.RecordValue(us)
}

// Count is the number of exchanges recorded so far.
func (m *Metrics) Count() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.total
}

// StatusCount is one row of the status distribution.
type StatusCount struct {
	Code  int
	Count int64
}

// Summary is the final view of a run.
type Summary struct {
	Duration       time.Duration
	TotalRequests  int64
	SuccessCount   int64
	HTTPErrorCount int64
	FailureCount   int64
	TimeoutCount   int64
	RPS            float64
	SuccessRate    float64
	ErrorRate      float64
	P50            time.Duration
	P95            time.Duration
	P99            time.Duration
	Min            time.Duration
	Max            time.Duration
	Mean           time.Duration
	StdDev         time.Duration
	Statuses       []StatusCount
	ErrorCodes     []StatusCount
}

func (m *Metrics) GetSummary() *Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	duration := m.endTime.Sub(m.startTime)
	if m.endTime.IsZero() {
		duration = time.Since(m.startTime)
	}

	s := &Summary{
		Duration:       duration,
		TotalRequests:  m.total,
		SuccessCount:   m.success,
		HTTPErrorCount: m.httpErrors,
		FailureCount:   m.failures,
		TimeoutCount:   m.timeouts,
		P50:            quantile(m.histogram, 50),
		P95:            quantile(m.histogram, 95),
		P99:            quantile(m.histogram, 99),
		Min:            time.Duration(m.histogram.Min()) * time.Microsecond,
		Max:            time.Duration(m.histogram.Max()) * time.Microsecond,
		Mean:           time.Duration(m.histogram.Mean()) * time.Microsecond,
		StdDev:         time.Duration(m.histogram.StdDev()) * time.Microsecond,
		Statuses:       sortedCounts(m.statuses),
		ErrorCodes:     sortedCounts(m.errorCodes),
	}
	if duration.Seconds() > 0 {
		s.RPS = float64(m.total) / duration.Seconds()
	}
	if m.total > 0 {
		s.SuccessRate = float64(m.success) / float64(m.total)
		s.ErrorRate = float64(m.httpErrors+m.failures) / float64(m.total)
	}
	return s
}

func quantile(h *hdrhistogram.Histogram, q float64) time.Duration {
	return time.Duration(h.ValueAtQuantile(q)) * time.Microsecond
}

func sortedCounts(m map[int]int64) []StatusCount {
	out := make([]StatusCount, 0, len(m))
	for code, n := range m {
		out = append(out, StatusCount{Code: code, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// EvaluateThresholds evaluates the thresholds against the summary.
func EvaluateThresholds(summary *Summary, t Thresholds) []ThresholdResult {
	var results []ThresholdResult

	latency := func(name string, limit, actual time.Duration) {
		if limit <= 0 {
			return
		}
		results = append(results, ThresholdResult{
			Name:     name,
			Passed:   actual <= limit,
			Expected: "< " + limit.String(),
			Actual:   actual.String(),
		})
	}
	latency("p50", t.P50, summary.P50)
	latency("p95", t.P95, summary.P95)
	latency("p99", t.P99, summary.P99)
	latency("max latency", t.MaxLatency, summary.Max)

	if t.ErrorRate > 0 {
		results = append(results, ThresholdResult{
			Name:     "error rate",
			Passed:   summary.ErrorRate <= t.ErrorRate,
			Expected: formatPercent(t.ErrorRate),
			Actual:   formatPercent(summary.ErrorRate),
		})
	}

	if t.MinRPS > 0 {
		results = append(results, ThresholdResult{
			Name:     "min RPS",
			Passed:   summary.RPS >= t.MinRPS,
			Expected: "> " + formatFloat(t.MinRPS),
			Actual:   formatFloat(summary.RPS),
		})
	}

	return results
}

func formatPercent(f float64) string {
	return formatFloat(f*100) + "%"
}

func formatFloat(f float64) string {
	if f == float64(int(f)) {
		return strconv.Itoa(int(f))
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}
