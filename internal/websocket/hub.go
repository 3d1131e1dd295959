package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/ikkim/storefront-backend/pkg/logger"
)

// TopicAnalytics carries sync/rollup/order-status events for dashboards.
const TopicAnalytics = "analytics"

// ClientMessage 클라이언트로부터 받은 메시지
type ClientMessage struct {
	Type  string `json:"type"` // subscribe, unsubscribe
	Topic string `json:"topic"`
}

// Event 구독자에게 전달되는 이벤트
type Event struct {
	Type    string      `json:"type"`
	Topic   string      `json:"topic"`
	Payload interface{} `json:"payload,omitempty"`
	SentAt  time.Time   `json:"sent_at"`
}

// Client WebSocket 클라이언트
type Client struct {
	Hub           *Hub
	Conn          *Conn
	ID            string
	Send          chan []byte
	topics        map[string]bool // 구독 중인 토픽
	mu            sync.RWMutex
	MessageCount  int       // 최근 1초간 받은 메시지 수
	LastResetTime time.Time // 마지막 카운터 리셋 시간
	RateMu        sync.Mutex
}

func NewClient(hub *Hub, conn *Conn, id string) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		ID:     id,
		Send:   make(chan []byte, 256),
		topics: make(map[string]bool),
	}
}

// Hub WebSocket 연결 관리자
type Hub struct {
	clients    map[*Client]bool
	topics     map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	mu         sync.RWMutex
}

// BroadcastMessage 브로드캐스트 메시지
type BroadcastMessage struct {
	Topic   string
	Message []byte
}

// NewHub Hub 생성
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		topics:     make(map[string]map[*Client]bool),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan *BroadcastMessage, 1024),
	}
}

// Run Hub 실행
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			logger.Info("WebSocket client registered", map[string]interface{}{
				"client_id":      client.ID,
				"total_sessions": total,
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.mu.RLock()
				for topic := range client.topics {
					if subs, ok := h.topics[topic]; ok {
						delete(subs, client)
						if len(subs) == 0 {
							delete(h.topics, topic)
						}
					}
				}
				client.mu.RUnlock()
				close(client.Send)
			}
			remaining := len(h.clients)
			h.mu.Unlock()
			logger.Info("WebSocket client unregistered", map[string]interface{}{
				"client_id":          client.ID,
				"remaining_sessions": remaining,
			})

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.topics[message.Topic] {
				select {
				case client.Send <- message.Message:
				default:
					// Send 채널이 막혀있음 - 비동기로 정리
					go h.Unregister(client)
					logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
						"client_id": client.ID,
					})
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Subscribe 토픽 구독
func (h *Hub) Subscribe(client *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	client.mu.Lock()
	client.topics[topic] = true
	client.mu.Unlock()

	if _, ok := h.topics[topic]; !ok {
		h.topics[topic] = make(map[*Client]bool)
	}
	h.topics[topic][client] = true

	logger.Debug("Client subscribed", map[string]interface{}{
		"client_id": client.ID,
		"topic":     topic,
	})
}

// Unsubscribe 토픽 구독 해제
func (h *Hub) Unsubscribe(client *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.mu.Lock()
	delete(client.topics, topic)
	client.mu.Unlock()

	if subs, ok := h.topics[topic]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
}

// Publish 토픽 구독자에게 이벤트 전송. 버퍼가 가득 차면 이벤트를 버림.
func (h *Hub) Publish(topic, eventType string, payload interface{}) error {
	data, err := json.Marshal(Event{
		Type:    eventType,
		Topic:   topic,
		Payload: payload,
		SentAt:  time.Now().UTC(),
	})
	if err != nil {
		logger.Error("Failed to marshal event", err, map[string]interface{}{
			"topic": topic,
			"type":  eventType,
		})
		return err
	}

	select {
	case h.broadcast <- &BroadcastMessage{Topic: topic, Message: data}:
	default:
		logger.Warn("Broadcast channel full, event dropped", map[string]interface{}{
			"topic": topic,
			"type":  eventType,
		})
	}
	return nil
}

// Register 클라이언트 등록
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister 클라이언트 등록 해제
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// SubscriberCount 토픽 구독자 수
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// HandleClientMessage 클라이언트 메시지 처리
func (h *Hub) HandleClientMessage(client *Client, message []byte) {
	client.RateMu.Lock()
	now := time.Now()
	if now.Sub(client.LastResetTime) >= time.Second {
		client.MessageCount = 0
		client.LastResetTime = now
	}
	client.MessageCount++
	count := client.MessageCount
	client.RateMu.Unlock()

	if count > maxMessagesPerSecond {
		logger.Warn("Rate limit exceeded", map[string]interface{}{
			"client_id": client.ID,
			"count":     count,
		})
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Warn("Failed to parse client message", map[string]interface{}{
			"client_id": client.ID,
			"error":     err.Error(),
		})
		return
	}

	switch msg.Type {
	case "subscribe":
		if msg.Topic != TopicAnalytics {
			logger.Warn("Unknown topic", map[string]interface{}{
				"client_id": client.ID,
				"topic":     msg.Topic,
			})
			return
		}
		h.Subscribe(client, msg.Topic)
	case "unsubscribe":
		h.Unsubscribe(client, msg.Topic)
	}
}
