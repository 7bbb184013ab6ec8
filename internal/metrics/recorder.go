package metrics

import "time"

// Remote call outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeTransient = "transient"
	OutcomePermanent = "permanent"
	OutcomeMalformed = "malformed"
	OutcomeCanceled  = "canceled"
)

// FrameRead counts a frame from the source.
func (m *Metrics) FrameRead() {
	if m == nil {
		return
	}
	m.framesRead.Inc()
}

// FrameSkipped counts a frame that got no OCR pass.
func (m *Metrics) FrameSkipped() {
	if m == nil {
		return
	}
	m.framesSkipped.Inc()
}

// OCRPass records a completed OCR pass and the size of what it published.
func (m *Metrics) OCRPass(d time.Duration, detections, words int) {
	if m == nil {
		return
	}
	m.framesProcessed.Inc()
	m.ocrDuration.Observe(d.Seconds())
	m.detections.Set(float64(detections))
	m.words.Set(float64(words))
}

// OCRFailed counts a failed OCR pass.
func (m *Metrics) OCRFailed() {
	if m == nil {
		return
	}
	m.framesProcessed.Inc()
	m.ocrFailures.Inc()
}

// Command counts a consumed command.
func (m *Metrics) Command(name string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(name).Inc()
}

// RemoteCall records the outcome of one remote extraction call.
func (m *Metrics) RemoteCall(mode, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.remoteRequests.WithLabelValues(mode, outcome).Inc()
	m.remoteDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// RemoteRetry counts a retryable failed attempt.
func (m *Metrics) RemoteRetry(mode string) {
	if m == nil {
		return
	}
	m.remoteRetries.WithLabelValues(mode).Inc()
}

// RemoteRejected counts a remote command dropped while another was in flight.
func (m *Metrics) RemoteRejected() {
	if m == nil {
		return
	}
	m.remoteRejected.Inc()
}

// StreamClientConnected tracks live-stream clients; call the returned
// func on disconnect.
func (m *Metrics) StreamClientConnected() func() {
	if m == nil {
		return func() {}
	}
	m.streamClients.Inc()
	return m.streamClients.Dec
}
