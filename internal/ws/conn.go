package ws

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/jps1990/Night-Shade-V2/internal/auth"
	"github.com/jps1990/Night-Shade-V2/internal/config"
	"github.com/jps1990/Night-Shade-V2/internal/event"
	"github.com/jps1990/Night-Shade-V2/internal/store"
)

// BotNotifier 是机器人编排对同步通道暴露的最小接口。
type BotNotifier interface {
	OnMessage(roomID string, msg store.MessageDTO)
	ResetRoom(roomID string)
}

type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	store    *store.Store
	bots     BotNotifier
	snapshot func() []byte

	userID     string
	registered bool
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// inboundEvent 是客户端上行事件的统一信封。
type inboundEvent struct {
	Type    string              `json:"type"`
	User    *store.UserDTO      `json:"user"`
	Room    *store.RoomSpec     `json:"room"`
	RoomID  string              `json:"roomId"`
	Updates *store.RoomPatch    `json:"updates"`
	Message *store.MessageInput `json:"message"`
}

// Serve 升级连接并接入 Hub。连接建立后客户端立刻收到 init 快照；
// 携带有效 profile token 的连接在收到快照前就已登记在线。
func Serve(h *Hub, st *store.Store, bots BotNotifier, cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var identity *store.UserDTO
		if token := c.Query("token"); token != "" {
			if claims, err := auth.ParseProfileToken(token, cfg.JWTSecret); err == nil {
				identity = &store.UserDTO{ID: claims.UserID, Name: claims.Name, Avatar: claims.Avatar}
			}
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		client := &Client{
			hub:   h,
			conn:  conn,
			send:  make(chan []byte, 256),
			store: st,
			bots:  bots,
		}
		client.snapshot = func() []byte {
			b, err := json.Marshal(event.Event{Type: event.Init, Payload: st.Snapshot()})
			if err != nil {
				return []byte(`{"type":"init"}`)
			}
			return b
		}

		if identity != nil {
			if err := st.RegisterConnection(*identity); err == nil {
				client.userID = identity.ID
				client.registered = true
			}
		}

		h.register <- client
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		if c.registered {
			c.store.UnregisterConnection(c.userID)
		}
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(1 << 20) // 1MB
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var ev inboundEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		c.handle(ev)
	}
}

// handle 处理一条上行事件。未登记发送者的请求（register 除外）一律
// 静默丢弃：不变更状态、不广播、也不向发送方回传错误。
func (c *Client) handle(ev inboundEvent) {
	if ev.Type == "register" {
		if ev.User == nil || ev.User.ID == "" {
			return
		}
		// 在线计数按物理连接记账，断开时只减一次：同一连接重复 register
		// （包括带 token 预登记后的常规 register）只刷新资料不重复计数，
		// 换身份则先释放旧身份的那一份计数。
		if c.registered {
			if ev.User.ID == c.userID {
				if strings.TrimSpace(ev.User.Name) != "" {
					if _, err := c.store.SaveProfile(*ev.User); err != nil {
						log.Warn().Err(err).Str("user_id", ev.User.ID).Msg("refresh profile")
					}
				}
				return
			}
			c.store.UnregisterConnection(c.userID)
			c.registered = false
		}
		if err := c.store.RegisterConnection(*ev.User); err != nil {
			log.Warn().Err(err).Str("user_id", ev.User.ID).Msg("register connection")
			return
		}
		c.userID = ev.User.ID
		c.registered = true
		return
	}
	if !c.registered {
		return
	}

	switch ev.Type {
	case "createRoom":
		if ev.Room == nil {
			return
		}
		spec := *ev.Room
		// 永久房间与机器人房间只在启动时播种，客户端无权铸造。
		spec.IsPermanent = false
		spec.IsBot = false
		spec.Bot = ""
		if _, err := c.store.CreateRoom(spec); err != nil {
			log.Warn().Err(err).Str("user_id", c.userID).Msg("create room")
		}
	case "updateRoom":
		if ev.RoomID == "" || ev.Updates == nil {
			return
		}
		_, _ = c.store.UpdateRoom(ev.RoomID, *ev.Updates)
	case "deleteRoom":
		if ev.RoomID == "" {
			return
		}
		_ = c.store.DeleteRoom(ev.RoomID)
	case "joinRoom":
		if ev.RoomID == "" {
			return
		}
		if _, err := c.store.Join(ev.RoomID, store.UserDTO{ID: c.userID}); err != nil {
			return
		}
		// 用户切入房间即重置该房间全部机器人状态
		c.bots.ResetRoom(ev.RoomID)
	case "leaveRoom":
		if ev.RoomID == "" {
			return
		}
		_ = c.store.Leave(ev.RoomID, c.userID)
	case "message":
		if ev.RoomID == "" || ev.Message == nil {
			return
		}
		in := *ev.Message
		// 发送方身份以连接为准，客户端不能伪造机器人消息
		in.UserID = c.userID
		in.IsBot = false
		in.BotName = ""
		msg, err := c.store.AppendMessage(ev.RoomID, in)
		if err != nil {
			return
		}
		c.bots.OnMessage(ev.RoomID, msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)
			_ = w.Close()
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
