// Package notify fans user-visible notices out to connected UI clients.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"cvbuilder/internal/capture"
)

// 统一的 WebSocket 消息协议，字段名与前端解析保持一致。
type Message struct {
	Kind          string   `json:"kind"`
	Level         string   `json:"level"`
	Code          int      `json:"code"`
	Message       string   `json:"message"`
	CorrelationID string   `json:"correlation_id,omitempty"`
	Filename      string   `json:"filename,omitempty"`
	MissingKeys   []string `json:"missing_keys,omitempty"`
}

const (
	KindExport      = "export"
	KindWarning     = "warning"
	KindPersistence = "persistence"
)

// Hub publishes messages and lets clients subscribe to the encoded stream.
type Hub interface {
	Publish(ctx context.Context, msg Message)
	Subscribe(ctx context.Context) (<-chan []byte, error)
}

// ExportNotifier adapts a Hub to capture.Notifier.
type ExportNotifier struct {
	Hub Hub
}

func (n ExportNotifier) Notify(notice capture.Notice) {
	n.Hub.Publish(context.Background(), Message{
		Kind:          KindExport,
		Level:         string(notice.Level),
		Code:          notice.Code,
		Message:       notice.Message,
		CorrelationID: notice.CorrelationID,
		Filename:      notice.Filename,
	})
}

// Local is an in-process Hub. Slow subscribers drop messages instead of
// blocking publishers.
type Local struct {
	logger *slog.Logger

	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

func NewLocal(logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.Default()
	}
	return &Local{logger: logger, subs: map[chan []byte]struct{}{}}
}

func (l *Local) Publish(_ context.Context, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		l.logger.Error("Notify: encode message failed", slog.Any("error", err))
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for ch := range l.subs {
		select {
		case ch <- payload:
		default:
			l.logger.Warn("Notify: subscriber too slow, message dropped", slog.String("kind", msg.Kind))
		}
	}
}

// Subscribe returns a channel that is closed when ctx ends.
func (l *Local) Subscribe(ctx context.Context) (<-chan []byte, error) {
	ch := make(chan []byte, 16)
	l.mu.Lock()
	l.subs[ch] = struct{}{}
	l.mu.Unlock()

	go func() {
		<-ctx.Done()
		l.mu.Lock()
		delete(l.subs, ch)
		close(ch)
		l.mu.Unlock()
	}()
	return ch, nil
}
