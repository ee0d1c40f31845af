package ws

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/jps1990/Night-Shade-V2/internal/event"
	"github.com/jps1990/Night-Shade-V2/internal/metrics"
)

// Hub 维护全部在线会话并把事件扇出给它们。所有注册/注销/广播都经由
// 同一个 goroutine 串行处理，因此事件到达每个会话的顺序与发布顺序一致。
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
	}
}

// Publish 实现 event.Publisher，把事件序列化后交给广播循环。
func (h *Hub) Publish(evt event.Event) {
	b, err := json.Marshal(evt)
	if err != nil {
		log.Error().Err(err).Str("event", evt.Type).Msg("marshal event")
		return
	}
	h.broadcast <- b
}

// Run 是 Hub 的主循环，应在独立 goroutine 中运行。
// 新会话注册时先收到自己的快照，随后才可能收到增量事件；
// 发送缓冲写满的慢消费者会被直接踢掉，由客户端重连拿新快照。
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			metrics.WsConnections.Inc()
			if c.snapshot != nil {
				select {
				case c.send <- c.snapshot():
				default:
					close(c.send)
					delete(h.clients, c)
					metrics.WsConnections.Dec()
				}
			}
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				metrics.WsConnections.Dec()
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					close(c.send)
					delete(h.clients, c)
					metrics.WsConnections.Dec()
				}
			}
		}
	}
}
