package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"chatsync/internal/auth"
	"chatsync/internal/metrics"
	"chatsync/internal/models"
	"chatsync/internal/page"
	"chatsync/internal/service"
)

// Handler 聚合所有 HTTP handler，依赖注入 service 层。
type Handler struct {
	users *service.UserService
	rooms *service.RoomService
	msgs  *service.MessageService
}

func NewHandler(users *service.UserService, rooms *service.RoomService, msgs *service.MessageService) *Handler {
	return &Handler{users: users, rooms: rooms, msgs: msgs}
}

// statusOf 把业务错误码映射到 HTTP 状态，映射只发生在传输层。
func statusOf(code service.Code) int {
	switch code {
	case service.CodeParse, service.CodeInvalid:
		return http.StatusBadRequest
	case service.CodeUnauthorized:
		return http.StatusUnauthorized
	case service.CodeForbidden:
		return http.StatusForbidden
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeDuplicate:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		c.JSON(statusOf(svcErr.Code), gin.H{
			"errors": []gin.H{{"code": string(svcErr.Code), "message": svcErr.Message}},
		})
		return
	}
	if errors.Is(err, page.ErrBadQuery) {
		writeCode(c, service.CodeParse, "Invalid pagination query")
		return
	}
	log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("internal error")
	c.JSON(http.StatusInternalServerError, gin.H{
		"errors": []gin.H{{"code": "internal", "message": "Internal server error"}},
	})
}

// writeAuthError 用于登录和续期端点：凭证类失败统一返回 401，
// 区别于普通字段校验的 400。
func writeAuthError(c *gin.Context, err error) {
	var svcErr *service.Error
	if errors.As(err, &svcErr) && svcErr.Code == service.CodeInvalid {
		c.JSON(http.StatusUnauthorized, gin.H{
			"errors": []gin.H{{"code": string(svcErr.Code), "message": svcErr.Message}},
		})
		return
	}
	writeError(c, err)
}

func writeCode(c *gin.Context, code service.Code, message string) {
	c.JSON(statusOf(code), gin.H{
		"errors": []gin.H{{"code": string(code), "message": message}},
	})
}

type roomDTO struct {
	ID          uint      `json:"id"`
	OwnerID     uint      `json:"ownerId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toRoomDTO(r models.Room) roomDTO {
	return roomDTO{ID: r.ID, OwnerID: r.OwnerID, Name: r.Name, Description: r.Description, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

type messageDTO struct {
	ID        uint      `json:"id"`
	RoomID    uint      `json:"roomId"`
	Sender    uint      `json:"sender"`
	Content   string    `json:"content"`
	Edited    bool      `json:"edited"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toMessageDTO(m models.Message) messageDTO {
	return messageDTO{ID: m.ID, RoomID: m.RoomID, Sender: m.SenderID, Content: m.Content, Edited: m.Edited, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func subject(c *gin.Context) (auth.Subject, bool) {
	sub, ok := auth.GetSubject(c)
	if !ok {
		writeCode(c, service.CodeUnauthorized, "Missing request subject")
	}
	return sub, ok
}

func pathID(c *gin.Context) (uint, bool) {
	v, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || v == 0 {
		writeCode(c, service.CodeParse, "Invalid id")
		return 0, false
	}
	return uint(v), true
}

// Register 处理用户注册。
func (h *Handler) Register(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeCode(c, service.CodeParse, "Invalid payload")
		return
	}
	user, err := h.users.Register(req.Name, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": gin.H{"id": user.ID, "name": user.Username}})
}

// Login 处理登录，成功时返回完整的凭证对。
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeCode(c, service.CodeParse, "Invalid payload")
		return
	}
	result, err := h.users.Login(req.Name, req.Password)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RenewAccess 用 refresh token 换发新 access token。
func (h *Handler) RenewAccess(c *gin.Context) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Refresh == "" {
		writeCode(c, service.CodeParse, "Invalid payload")
		return
	}
	result, err := h.users.RenewAccess(req.Refresh)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RenewRefresh 用 refresh token 换发新的完整凭证对。
func (h *Handler) RenewRefresh(c *gin.Context) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Refresh == "" {
		writeCode(c, service.CodeParse, "Invalid payload")
		return
	}
	result, err := h.users.RenewRefresh(req.Refresh)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListRooms 分页列出房间，允许匿名访问。不带分页参数时取最新一页。
func (h *Handler) ListRooms(c *gin.Context) {
	var (
		q   page.Query
		err error
	)
	if c.Query("first") == "" && c.Query("last") == "" {
		q = page.Last(page.DefaultSize, 0)
	} else {
		q, err = page.Parse(c.Query("first"), c.Query("after"), c.Query("last"), c.Query("before"))
		if err != nil {
			writeError(c, err)
			return
		}
	}
	rooms, err := h.rooms.List(q)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]roomDTO, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, toRoomDTO(r))
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// CreateRoom 创建房间。
func (h *Handler) CreateRoom(c *gin.Context) {
	sub, ok := subject(c)
	if !ok {
		return
	}
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeCode(c, service.CodeParse, "Invalid payload")
		return
	}
	room, err := h.rooms.Create(sub.ID, req.Name, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": toRoomDTO(*room)})
}

// UpdateRoom 修改房间，仅房主可操作。
func (h *Handler) UpdateRoom(c *gin.Context) {
	sub, ok := subject(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeCode(c, service.CodeParse, "Invalid payload")
		return
	}
	room, err := h.rooms.Update(sub.ID, id, req.Name, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toRoomDTO(*room)})
}

// DeleteRoom 删除房间，仅房主可操作。
func (h *Handler) DeleteRoom(c *gin.Context) {
	sub, ok := subject(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.rooms.Delete(sub.ID, id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListMessages 分页取房间消息，first/after 和 last/before 必须恰好给一组。
func (h *Handler) ListMessages(c *gin.Context) {
	roomID, err := strconv.ParseUint(c.Query("roomId"), 10, 64)
	if err != nil || roomID == 0 {
		writeCode(c, service.CodeParse, "Invalid room id")
		return
	}
	q, err := page.Parse(c.Query("first"), c.Query("after"), c.Query("last"), c.Query("before"))
	if err != nil {
		writeError(c, err)
		return
	}
	msgs, err := h.msgs.List(uint(roomID), q)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]messageDTO, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageDTO(m))
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// PostMessage 发布消息。
func (h *Handler) PostMessage(c *gin.Context) {
	sub, ok := subject(c)
	if !ok {
		return
	}
	var req struct {
		RoomID  uint   `json:"roomId"`
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RoomID == 0 {
		writeCode(c, service.CodeParse, "Invalid payload")
		return
	}
	msg, err := h.msgs.Post(sub.ID, req.RoomID, req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	metrics.MessagesPosted.Inc()
	c.JSON(http.StatusCreated, gin.H{"data": toMessageDTO(*msg)})
}

// EditMessage 编辑消息，仅发送者可操作。
func (h *Handler) EditMessage(c *gin.Context) {
	sub, ok := subject(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeCode(c, service.CodeParse, "Invalid payload")
		return
	}
	msg, err := h.msgs.Edit(sub.ID, id, req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toMessageDTO(*msg)})
}

// DeleteMessage 删除消息，仅发送者可操作。
func (h *Handler) DeleteMessage(c *gin.Context) {
	sub, ok := subject(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.msgs.Delete(sub.ID, id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetUser 返回公开的用户资料，供客户端懒解析消息发送者。
func (h *Handler) GetUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	user, err := h.users.Get(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": user.ID, "name": user.Username, "avatar": user.Avatar}})
}

// UpdateUser 更新用户名或密码，仅本人可操作。
func (h *Handler) UpdateUser(c *gin.Context) {
	sub, ok := subject(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		Name     *string `json:"name"`
		Password *string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeCode(c, service.CodeParse, "Invalid payload")
		return
	}
	if err := h.users.Update(sub.ID, id, req.Name, req.Password); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
