package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

type webhookPayload struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	ReportID string `json:"report_id,omitempty"`
	SentAt   int64  `json:"sent_at"`
}

// Webhook POSTs notifications as JSON to a fixed URL from a single worker.
// Notify only enqueues; when the queue is full the notice is dropped.
type Webhook struct {
	httpc *resty.Client
	url   string
	queue chan webhookPayload
	done  chan struct{}
	once  sync.Once
}

func NewWebhook(url string, queueSize int, timeout time.Duration) *Webhook {
	if queueSize <= 0 {
		queueSize = 64
	}
	httpc := resty.New()
	httpc.SetTimeout(timeout)
	httpc.SetHeader("Content-Type", "application/json")

	w := &Webhook{
		httpc: httpc,
		url:   url,
		queue: make(chan webhookPayload, queueSize),
		done:  make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *Webhook) Notify(title, body, reportID string) {
	payload := webhookPayload{Title: title, Body: body, ReportID: reportID, SentAt: time.Now().UnixMilli()}
	select {
	case w.queue <- payload:
	default:
		slog.Warn("notification queue full, dropping notice", "title", title, "report_id", reportID)
	}
}

func (w *Webhook) run() {
	defer close(w.done)
	for payload := range w.queue {
		w.deliver(payload)
	}
}

func (w *Webhook) deliver(payload webhookPayload) {
	resp, err := w.httpc.R().SetBody(payload).Post(w.url)
	if err != nil {
		slog.Warn("notification delivery failed", "report_id", payload.ReportID, "error", err)
		return
	}
	if resp.IsError() {
		slog.Warn("notification endpoint rejected notice", "report_id", payload.ReportID, "status", resp.StatusCode())
	}
}

// Close stops accepting notices, drains the queue and waits for the worker.
// Notify must not be called after Close.
func (w *Webhook) Close() {
	w.once.Do(func() {
		close(w.queue)
	})
	<-w.done
	w.httpc.GetClient().CloseIdleConnections()
}
