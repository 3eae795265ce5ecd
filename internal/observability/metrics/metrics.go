package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

type requestLabel struct {
	method string
	path   string
	status string
}

// Recorder aggregates in-memory counters for HTTP requests, credential
// lifecycle events, video lifecycle events, and playback views. It coordinates
// concurrent writers via a RWMutex and renders Prometheus text format on
// demand.
type Recorder struct {
	mu              sync.RWMutex
	requestCount    map[requestLabel]uint64
	requestDuration map[requestLabel]time.Duration
	authEvents      map[string]uint64
	videoEvents     map[string]uint64
	playbackViews   uint64
	viewsFlushed    uint64
	storeHealth     map[string]float64
	storeState      map[string]string
}

var defaultRecorder = New()

// New constructs an empty Recorder with initialized backing maps so callers
// can immediately record metrics without additional setup.
func New() *Recorder {
	return &Recorder{
		requestCount:    make(map[requestLabel]uint64),
		requestDuration: make(map[requestLabel]time.Duration),
		authEvents:      make(map[string]uint64),
		videoEvents:     make(map[string]uint64),
		storeHealth:     make(map[string]float64),
		storeState:      make(map[string]string),
	}
}

// Default returns the singleton Recorder shared across helper functions for
// packages that do not require a custom instrumentation pipeline.
func Default() *Recorder {
	return defaultRecorder
}

// ObserveRequest normalizes the request label set and accumulates totals for
// request count and cumulative duration by HTTP method, normalized path, and
// status code.
func (r *Recorder) ObserveRequest(method, path string, status int, duration time.Duration) {
	label := requestLabel{
		method: strings.ToUpper(method),
		path:   normalizePath(path),
		status: fmt.Sprintf("%d", status),
	}
	r.mu.Lock()
	r.requestCount[label]++
	r.requestDuration[label] += duration
	r.mu.Unlock()
}

// ObserveAuthEvent records a credential lifecycle event such as
// "login_success", "refresh_rotated", or "refresh_rejected".
func (r *Recorder) ObserveAuthEvent(event string) {
	normalized := normalizeName(event)
	r.mu.Lock()
	r.authEvents[normalized]++
	r.mu.Unlock()
}

// ObserveVideoEvent records a video lifecycle event such as "created",
// "published", or "deleted".
func (r *Recorder) ObserveVideoEvent(event string) {
	normalized := normalizeName(event)
	r.mu.Lock()
	r.videoEvents[normalized]++
	r.mu.Unlock()
}

// ObservePlaybackView counts a single playback view event as it enters the
// view counter.
func (r *Recorder) ObservePlaybackView() {
	r.mu.Lock()
	r.playbackViews++
	r.mu.Unlock()
}

// ObserveViewsFlushed counts view deltas folded into the repository by the
// background flusher.
func (r *Recorder) ObserveViewsFlushed(count int64) {
	if count <= 0 {
		return
	}
	r.mu.Lock()
	r.viewsFlushed += uint64(count)
	r.mu.Unlock()
}

// SetStoreHealth maps a dependency status string to a numeric health value
// and stores both representations for export.
func (r *Recorder) SetStoreHealth(component, status string) {
	normalizedComponent := normalizeName(component)
	normalizedStatus := strings.ToLower(strings.TrimSpace(status))
	value := -1.0
	switch normalizedStatus {
	case "ok", "healthy":
		value = 1
	case "disabled":
		value = 0
	}
	r.mu.Lock()
	r.storeHealth[normalizedComponent] = value
	r.storeState[normalizedComponent] = normalizedStatus
	r.mu.Unlock()
}

// AuthEventCounts returns a copy of the credential event counters for testing
// and reporting purposes.
func (r *Recorder) AuthEventCounts() map[string]uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]uint64, len(r.authEvents))
	for k, v := range r.authEvents {
		counts[k] = v
	}
	return counts
}

// VideoEventCounts returns a copy of the video event counters.
func (r *Recorder) VideoEventCounts() map[string]uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]uint64, len(r.videoEvents))
	for k, v := range r.videoEvents {
		counts[k] = v
	}
	return counts
}

// Reset clears all counters on the recorder. It is intended for test setups.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requestCount = make(map[requestLabel]uint64)
	r.requestDuration = make(map[requestLabel]time.Duration)
	r.authEvents = make(map[string]uint64)
	r.videoEvents = make(map[string]uint64)
	r.playbackViews = 0
	r.viewsFlushed = 0
	r.storeHealth = make(map[string]float64)
	r.storeState = make(map[string]string)
}

// Handler returns an http.Handler that renders the recorder's metrics in
// Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		r.Write(w)
	})
}

// Write renders the Recorder's metrics, sorting label sets to provide stable
// output for scrapes and tests.
func (r *Recorder) Write(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	requestLabels := r.sortedRequestLabels()
	authEvents := sortedKeys(r.authEvents)
	videoEvents := sortedKeys(r.videoEvents)
	storeComponents := make([]string, 0, len(r.storeHealth))
	for component := range r.storeHealth {
		storeComponents = append(storeComponents, component)
	}
	sort.Strings(storeComponents)

	fmt.Fprintln(w, "# HELP clipstream_http_requests_total Total number of HTTP requests processed by the API")
	fmt.Fprintln(w, "# TYPE clipstream_http_requests_total counter")
	for _, label := range requestLabels {
		count := r.requestCount[label]
		fmt.Fprintf(w, "clipstream_http_requests_total{method=\"%s\",path=\"%s\",status=\"%s\"} %d\n", label.method, label.path, label.status, count)
	}

	fmt.Fprintln(w, "# HELP clipstream_http_request_duration_seconds_sum Cumulative duration of HTTP requests in seconds")
	fmt.Fprintln(w, "# TYPE clipstream_http_request_duration_seconds_sum counter")
	for _, label := range requestLabels {
		duration := r.requestDuration[label].Seconds()
		fmt.Fprintf(w, "clipstream_http_request_duration_seconds_sum{method=\"%s\",path=\"%s\",status=\"%s\"} %f\n", label.method, label.path, label.status, duration)
	}

	fmt.Fprintln(w, "# HELP clipstream_http_request_duration_seconds_count Total number of observations for request durations")
	fmt.Fprintln(w, "# TYPE clipstream_http_request_duration_seconds_count counter")
	for _, label := range requestLabels {
		count := r.requestCount[label]
		fmt.Fprintf(w, "clipstream_http_request_duration_seconds_count{method=\"%s\",path=\"%s\",status=\"%s\"} %d\n", label.method, label.path, label.status, count)
	}

	fmt.Fprintln(w, "# HELP clipstream_auth_events_total Credential lifecycle events by type")
	fmt.Fprintln(w, "# TYPE clipstream_auth_events_total counter")
	for _, event := range authEvents {
		fmt.Fprintf(w, "clipstream_auth_events_total{event=\"%s\"} %d\n", event, r.authEvents[event])
	}

	fmt.Fprintln(w, "# HELP clipstream_video_events_total Video lifecycle events by type")
	fmt.Fprintln(w, "# TYPE clipstream_video_events_total counter")
	for _, event := range videoEvents {
		fmt.Fprintf(w, "clipstream_video_events_total{event=\"%s\"} %d\n", event, r.videoEvents[event])
	}

	fmt.Fprintln(w, "# HELP clipstream_playback_views_total Playback view events accepted by the API")
	fmt.Fprintln(w, "# TYPE clipstream_playback_views_total counter")
	fmt.Fprintf(w, "clipstream_playback_views_total %d\n", r.playbackViews)

	fmt.Fprintln(w, "# HELP clipstream_views_flushed_total Playback view deltas folded into the repository")
	fmt.Fprintln(w, "# TYPE clipstream_views_flushed_total counter")
	fmt.Fprintf(w, "clipstream_views_flushed_total %d\n", r.viewsFlushed)

	fmt.Fprintln(w, "# HELP clipstream_store_health Health reported by storage dependencies (1=ok,0=disabled,-1=degraded)")
	fmt.Fprintln(w, "# TYPE clipstream_store_health gauge")
	for _, component := range storeComponents {
		fmt.Fprintf(w, "clipstream_store_health{component=\"%s\",status=\"%s\"} %f\n", component, r.storeState[component], r.storeHealth[component])
	}
}

func (r *Recorder) sortedRequestLabels() []requestLabel {
	labels := make([]requestLabel, 0, len(r.requestCount))
	for label := range r.requestCount {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].method != labels[j].method {
			return labels[i].method < labels[j].method
		}
		if labels[i].path != labels[j].path {
			return labels[i].path < labels[j].path
		}
		return labels[i].status < labels[j].status
	})
	return labels
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// normalizePath collapses identifier-looking path segments so per-resource
// URLs share one label set.
func normalizePath(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || trimmed == "/" {
		return "/"
	}
	segments := strings.Split(trimmed, "/")
	for i, segment := range segments {
		if looksLikeIdentifier(segment) {
			segments[i] = ":id"
		}
	}
	normalized := strings.Join(segments, "/")
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	return normalized
}

func looksLikeIdentifier(segment string) bool {
	if len(segment) < 16 {
		return false
	}
	for _, char := range segment {
		switch {
		case char >= '0' && char <= '9':
		case char >= 'a' && char <= 'f':
		case char >= 'A' && char <= 'F':
		case char == '-':
		default:
			return false
		}
	}
	return true
}

func normalizeName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return "unknown"
	}
	return strings.ReplaceAll(normalized, " ", "_")
}

// ObserveRequest records to the default recorder.
func ObserveRequest(method, path string, status int, duration time.Duration) {
	defaultRecorder.ObserveRequest(method, path, status, duration)
}

// ObserveAuthEvent records to the default recorder.
func ObserveAuthEvent(event string) {
	defaultRecorder.ObserveAuthEvent(event)
}

// ObserveVideoEvent records to the default recorder.
func ObserveVideoEvent(event string) {
	defaultRecorder.ObserveVideoEvent(event)
}

// Handler serves the default recorder.
func Handler() http.Handler {
	return defaultRecorder.Handler()
}
