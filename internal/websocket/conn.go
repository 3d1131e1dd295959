package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/ikkim/storefront-backend/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10 // pongWait보다 짧아야 함

	// 대시보드는 구독 프레임만 보냄
	maxFrameSize = 4 * 1024

	// 클라이언트당 1초에 처리하는 최대 프레임 수
	maxMessagesPerSecond = 10
)

// Conn is the upgraded socket of one dashboard.
type Conn struct {
	*websocket.Conn
}

func (c *Conn) extendReadDeadline() error {
	return c.SetReadDeadline(time.Now().Add(pongWait))
}

func (c *Conn) writeFrame(messageType int, data []byte) error {
	if err := c.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.WriteMessage(messageType, data)
}

// Listen reads frames until the peer goes away. Text frames are subscribe or
// unsubscribe requests and go straight to Hub.HandleClientMessage, so a client
// receives nothing until it has subscribed to a topic over this socket.
func (c *Client) Listen() {
	defer c.detach()

	c.Conn.SetReadLimit(maxFrameSize)
	if err := c.Conn.extendReadDeadline(); err != nil {
		return
	}
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.extendReadDeadline()
	})

	for {
		messageType, frame, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn("Dashboard stream closed unexpectedly", map[string]interface{}{
					"client_id": c.ID,
					"error":     err.Error(),
				})
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		c.Hub.HandleClientMessage(c, frame)
	}
}

func (c *Client) detach() {
	c.Hub.Unregister(c)
	c.Conn.Close()
}

// Deliver writes hub events to the socket and pings the peer while idle.
// It returns once the hub closes Send or a write fails.
func (c *Client) Deliver() {
	keepAlive := time.NewTicker(pingPeriod)
	defer func() {
		keepAlive.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			if !ok {
				closing := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
				c.Conn.writeFrame(websocket.CloseMessage, closing)
				return
			}
			if err := c.flush(event); err != nil {
				logger.Error("Failed to deliver analytics event", err, map[string]interface{}{
					"client_id": c.ID,
				})
				return
			}
		case <-keepAlive.C:
			if err := c.Conn.writeFrame(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// flush writes event and every event already queued behind it, one frame each.
func (c *Client) flush(event []byte) error {
	if err := c.Conn.writeFrame(websocket.TextMessage, event); err != nil {
		return err
	}
	for queued := len(c.Send); queued > 0; queued-- {
		if err := c.Conn.writeFrame(websocket.TextMessage, <-c.Send); err != nil {
			return err
		}
	}
	return nil
}
