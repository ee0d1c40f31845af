package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jps1990/Night-Shade-V2/internal/auth"
	"github.com/jps1990/Night-Shade-V2/internal/config"
	"github.com/jps1990/Night-Shade-V2/internal/store"
)

// Handler 聚合所有 HTTP handler，依赖注入 Store。
type Handler struct {
	store *store.Store
	cfg   config.Config
}

func NewHandler(st *store.Store, cfg config.Config) *Handler {
	return &Handler{store: st, cfg: cfg}
}

// SaveProfile 保存用户资料并签发身份 token。
func (h *Handler) SaveProfile(c *gin.Context) {
	var req struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Avatar string `json:"avatar"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || len(req.Name) > 64 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid name"})
		return
	}

	user, err := h.store.SaveProfile(store.UserDTO{ID: req.ID, Name: req.Name, Avatar: req.Avatar})
	if err != nil {
		log.Error().Err(err).Str("name", req.Name).Msg("save profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save profile"})
		return
	}
	token, err := auth.GenerateProfileToken(user.ID, user.Name, user.Avatar, h.cfg.JWTSecret, h.cfg.ProfileTokenTTLHours)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("generate profile token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}

// ListRooms 返回全部房间（含成员与消息）。
func (h *Handler) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.store.Rooms()})
}

// ListMessages 返回指定房间的消息，按追加顺序。
func (h *Handler) ListMessages(c *gin.Context) {
	msgs, err := h.store.Messages(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// CreateRoom 建立普通房间。永久/机器人房间只在启动时播种。
func (h *Handler) CreateRoom(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
		Icon string `json:"icon"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || len(req.Name) > 128 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room name"})
		return
	}
	room, err := h.store.CreateRoom(store.RoomSpec{Name: req.Name, Icon: req.Icon})
	if err != nil {
		log.Error().Err(err).Str("user_id", auth.GetUserID(c)).Str("name", req.Name).Msg("create room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": room})
}

// UpdateRoom 修改普通房间的名称或图标，永久房间拒绝且状态不变。
func (h *Handler) UpdateRoom(c *gin.Context) {
	var patch store.RoomPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	room, err := h.store.UpdateRoom(c.Param("id"), patch)
	if err != nil {
		h.roomError(c, err, "update room")
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": room})
}

// DeleteRoom 删除普通房间并连带其消息，永久房间拒绝。
func (h *Handler) DeleteRoom(c *gin.Context) {
	if err := h.store.DeleteRoom(c.Param("id")); err != nil {
		h.roomError(c, err, "delete room")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) roomError(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, store.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
	case errors.Is(err, store.ErrImmutableRoom):
		c.JSON(http.StatusForbidden, gin.H{"error": "room is permanent"})
	default:
		log.Error().Err(err).Str("room_id", c.Param("id")).Msg(op)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
	}
}
