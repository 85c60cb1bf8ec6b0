// Package realtime は寄付変更イベントの配信基盤を提供する。
//
// データベースの寄付テーブルに対する挿入・更新・削除を購読者へ通知し、
// ブラウザ側は通知を受けて一覧を再取得する。イベント自体は再取得の
// トリガーであり、一覧の内容はAPI応答を唯一の正とする。
package realtime

import (
	"context"
	"sync"

	"github.com/Olamidayoo/harvest-helping-hands/internal/model"
)

// subscriberBuffer は購読者ごとのイベントバッファ数。
// バッファが埋まっている購読者へのイベントは破棄される。
// 破棄されても次のイベントで再取得が走るため一覧の整合性は保たれる。
const subscriberBuffer = 16

// Hub は寄付イベントのファンアウトを行う。
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan model.DonationEvent]struct{}
}

// NewHub はHubを生成する。
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[chan model.DonationEvent]struct{}),
	}
}

// Subscribe はイベントチャネルを返す。
// ctxがキャンセルされると購読は解除され、チャネルはクローズされる。
func (h *Hub) Subscribe(ctx context.Context) <-chan model.DonationEvent {
	ch := make(chan model.DonationEvent, subscriberBuffer)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subscribers, ch)
		h.mu.Unlock()
		close(ch)
	}()

	return ch
}

// Publish は全購読者にイベントを配信する。
// 受信が追いつかない購読者はスキップし、配信全体をブロックしない。
func (h *Hub) Publish(event model.DonationEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// SubscriberCount は現在の購読者数を返す。メトリクス用。
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
