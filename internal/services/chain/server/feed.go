package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	apperrors "github.com/louisbranch/cairn/internal/platform/errors"
	"github.com/louisbranch/cairn/internal/services/chain/api"
	"github.com/louisbranch/cairn/internal/services/chain/app"
	"github.com/louisbranch/cairn/internal/services/chain/storage"
)

const (
	maxFeedPayloadBytes    = 16 * 1024
	maxFeedFramesPerSecond = 40
	maxFeedDecodeErrors    = 3
)

type feedPeer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func newFeedPeer(encoder *json.Encoder) *feedPeer {
	return &feedPeer{encoder: encoder}
}

func (p *feedPeer) writeFrame(frame api.FeedFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(frame)
}

type feedHub struct {
	mu          sync.Mutex
	subscribers map[*feedPeer]struct{}
}

func newFeedHub() *feedHub {
	return &feedHub{subscribers: make(map[*feedPeer]struct{})}
}

func (h *feedHub) join(peer *feedPeer) {
	h.mu.Lock()
	h.subscribers[peer] = struct{}{}
	h.mu.Unlock()
}

func (h *feedHub) leave(peer *feedPeer) {
	h.mu.Lock()
	delete(h.subscribers, peer)
	h.mu.Unlock()
}

func (h *feedHub) snapshot() []*feedPeer {
	h.mu.Lock()
	defer h.mu.Unlock()
	peers := make([]*feedPeer, 0, len(h.subscribers))
	for peer := range h.subscribers {
		peers = append(peers, peer)
	}
	return peers
}

// broadcastReceipt pushes one journaled receipt to every feed subscriber.
func (h *feedHub) broadcastReceipt(receipt storage.BlockReceipt) {
	frame := api.FeedFrame{
		Type:    api.FeedFrameReceipt,
		Payload: mustJSON(api.ReceiptFromStorage(receipt)),
	}
	for _, peer := range h.snapshot() {
		_ = peer.writeFrame(frame)
	}
}

// handleFeedConn serves one feed subscriber. The feed is push-only: the
// peer gets a head snapshot on connect, then every journaled receipt.
// Inbound frames are tolerated but not interpreted.
func handleFeedConn(conn *websocket.Conn, hub *feedHub, service *app.Service) {
	defer func() {
		_ = conn.Close()
	}()

	peer := newFeedPeer(json.NewEncoder(conn))

	// Subscribe before the snapshot so a receipt journaled right after the
	// snapshot height cannot slip between the two.
	hub.join(peer)
	defer hub.leave(peer)

	head := service.Head()
	if err := peer.writeFrame(api.FeedFrame{
		Type: api.FeedFrameHead,
		Payload: mustJSON(api.HeadResponse{
			Height:      uint64(head.Height),
			GenesisHash: head.GenesisHash,
		}),
	}); err != nil {
		return
	}

	decoder := json.NewDecoder(conn)
	windowStart := time.Now()
	framesInWindow := 0
	decodeErrors := 0

	for {
		var frame api.FeedFrame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			decodeErrors++
			_ = writeFeedError(peer, "invalid frame payload")
			if decodeErrors >= maxFeedDecodeErrors {
				return
			}
			continue
		}
		decodeErrors = 0

		if len(frame.Payload) > maxFeedPayloadBytes {
			_ = writeFeedError(peer, "payload too large")
			continue
		}

		now := time.Now()
		if now.Sub(windowStart) >= time.Second {
			windowStart = now
			framesInWindow = 0
		}
		framesInWindow++
		if framesInWindow > maxFeedFramesPerSecond {
			_ = writeFeedError(peer, "rate limit exceeded")
			return
		}

		_ = writeFeedError(peer, "unsupported frame type")
	}
}

func writeFeedError(peer *feedPeer, message string) error {
	return peer.writeFrame(api.FeedFrame{
		Type: api.FeedFrameError,
		Payload: mustJSON(api.Error{
			Code:    string(apperrors.CodeCallInvalid),
			Message: message,
		}),
	})
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("failed to marshal feed frame payload: %v", err)
		return nil
	}
	return b
}
