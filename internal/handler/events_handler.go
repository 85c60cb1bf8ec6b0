package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Olamidayoo/harvest-helping-hands/internal/model"
)

// heartbeatInterval はSSE接続維持のためのコメント送信間隔。
// 中間プロキシのアイドルタイムアウトより短く設定する。
const heartbeatInterval = 25 * time.Second

// EventSubscriber は寄付変更イベントの購読インターフェース。
type EventSubscriber interface {
	// Subscribe はctxがキャンセルされるまで有効なイベントチャネルを返す。
	Subscribe(ctx context.Context) <-chan model.DonationEvent
	// SubscriberCount は現在の購読者数を返す。
	SubscriberCount() int
}

// SubscriberGauge は現在の購読者数を記録するメトリクスインターフェース。
type SubscriberGauge interface {
	SetEventSubscribers(count int)
}

// EventsHandler は寄付変更通知をServer-Sent Eventsで配信するハンドラー。
// イベントはクライアントの再取得トリガーであり、差分データは含まない。
type EventsHandler struct {
	hub     EventSubscriber
	metrics SubscriberGauge
}

// NewEventsHandler はEventsHandlerを生成する。
func NewEventsHandler(hub EventSubscriber, metrics SubscriberGauge) *EventsHandler {
	return &EventsHandler{
		hub:     hub,
		metrics: metrics,
	}
}

// Stream はSSE接続を開始しイベントを配信する。
// GET /api/events
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		slog.Error("response writer does not support flushing")
		writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
			Code:     "INTERNAL_ERROR",
			Message:  "ストリーミングがサポートされていません。",
			Category: "system",
			Action:   "しばらく待ってから再度お試しください。",
		})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := h.hub.Subscribe(r.Context())
	if h.metrics != nil {
		h.metrics.SetEventSubscribers(h.hub.SubscriberCount())
		defer func() {
			h.metrics.SetEventSubscribers(h.hub.SubscriberCount())
		}()
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				// ctxキャンセルでチャネルが閉じられた
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				slog.Error("failed to marshal event", slog.String("error", err.Error()))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			flusher.Flush()
		case <-heartbeat.C:
			// コメント行で接続を維持する
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
