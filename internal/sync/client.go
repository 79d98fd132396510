// Package sync 是客户端侧的增量同步引擎：定时轮询新消息、滚动触发的历史回填、
// 以及带凭证续期的 API 客户端。
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"chatsync/internal/page"
)

// Message / Room / User 对应服务端的 JSON 输出。
type Message struct {
	ID        uint      `json:"id"`
	RoomID    uint      `json:"roomId"`
	Sender    uint      `json:"sender"`
	Content   string    `json:"content"`
	Edited    bool      `json:"edited"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Room struct {
	ID          uint      `json:"id"`
	OwnerID     uint      `json:"ownerId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type User struct {
	ID     uint    `json:"id"`
	Name   string  `json:"name"`
	Avatar *string `json:"avatar"`
}

// Credentials 是登录 / 续期后持有的完整凭证对。
type Credentials struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// APIError 是服务端返回的业务错误码。
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api %d %s: %s", e.Status, e.Code, e.Message)
}

// Client 封装对服务端 REST API 的调用。access token 过期导致的 401 会触发
// 恰好一次续期再重试；并发请求同时观察到过期时，续期调用通过 singleflight
// 合并成一次。
type Client struct {
	base string
	http *http.Client

	mu    sync.Mutex
	creds Credentials

	renew singleflight.Group
}

func NewClient(base string) *Client {
	return &Client{
		base: base,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

// SetCredentials 替换当前凭证，登录成功后由调用方注入。
func (c *Client) SetCredentials(creds Credentials) {
	c.mu.Lock()
	c.creds = creds
	c.mu.Unlock()
}

// Credentials 返回当前凭证的副本。
func (c *Client) Credentials() Credentials {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds
}

func (c *Client) accessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds.Access
}

// Login 登录并保存返回的凭证对。
func (c *Client) Login(ctx context.Context, name, password string) error {
	var creds Credentials
	err := c.do(ctx, http.MethodPost, "/auth/login", nil,
		map[string]string{"name": name, "password": password}, &creds, false, false)
	if err != nil {
		return err
	}
	c.SetCredentials(creds)
	return nil
}

// Register 注册新用户。
func (c *Client) Register(ctx context.Context, name, password string) error {
	return c.do(ctx, http.MethodPost, "/auth/register", nil,
		map[string]string{"name": name, "password": password}, nil, false, true)
}

// Messages 按游标分页拉取房间消息。
func (c *Client) Messages(ctx context.Context, roomID uint, q page.Query) ([]Message, error) {
	query := url.Values{"roomId": {strconv.FormatUint(uint64(roomID), 10)}}
	n := strconv.Itoa(q.Limit())
	if q.Backward() {
		query.Set("last", n)
		if q.Anchor() != 0 {
			query.Set("before", strconv.FormatUint(uint64(q.Anchor()), 10))
		}
	} else {
		query.Set("first", n)
		if q.Anchor() != 0 {
			query.Set("after", strconv.FormatUint(uint64(q.Anchor()), 10))
		}
	}
	var msgs []Message
	if err := c.do(ctx, http.MethodGet, "/messages", query, nil, &msgs, true, true); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Post 发布消息。
func (c *Client) Post(ctx context.Context, roomID uint, content string) (*Message, error) {
	var msg Message
	body := map[string]interface{}{"roomId": roomID, "content": content}
	if err := c.do(ctx, http.MethodPost, "/messages", nil, body, &msg, true, true); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Edit 编辑自己发布的消息。
func (c *Client) Edit(ctx context.Context, messageID uint, content string) (*Message, error) {
	var msg Message
	path := "/messages/" + strconv.FormatUint(uint64(messageID), 10)
	if err := c.do(ctx, http.MethodPatch, path, nil, map[string]string{"content": content}, &msg, true, true); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Delete 删除自己发布的消息。
func (c *Client) Delete(ctx context.Context, messageID uint) error {
	path := "/messages/" + strconv.FormatUint(uint64(messageID), 10)
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil, true, true)
}

// Rooms 分页列出房间。
func (c *Client) Rooms(ctx context.Context, q page.Query) ([]Room, error) {
	query := url.Values{}
	n := strconv.Itoa(q.Limit())
	if q.Backward() {
		query.Set("last", n)
		if q.Anchor() != 0 {
			query.Set("before", strconv.FormatUint(uint64(q.Anchor()), 10))
		}
	} else {
		query.Set("first", n)
		if q.Anchor() != 0 {
			query.Set("after", strconv.FormatUint(uint64(q.Anchor()), 10))
		}
	}
	var rooms []Room
	if err := c.do(ctx, http.MethodGet, "/rooms", query, nil, &rooms, false, true); err != nil {
		return nil, err
	}
	return rooms, nil
}

// CreateRoom 创建房间。
func (c *Client) CreateRoom(ctx context.Context, name, description string) (*Room, error) {
	var room Room
	body := map[string]string{"name": name, "description": description}
	if err := c.do(ctx, http.MethodPost, "/rooms", nil, body, &room, true, true); err != nil {
		return nil, err
	}
	return &room, nil
}

// User 取公开的用户资料。
func (c *Client) User(ctx context.Context, id uint) (*User, error) {
	var user User
	path := "/users/" + strconv.FormatUint(uint64(id), 10)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &user, true, true); err != nil {
		return nil, err
	}
	return &user, nil
}

// do 发起一次请求。authed 请求命中 401 时先合并续期再重试一次，
// retry 防止续期请求自身进入递归。
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}, authed, wrapped bool) error {
	err := c.once(ctx, method, path, query, body, out, authed, wrapped)
	apiErr, ok := err.(*APIError)
	if !ok || !authed || apiErr.Status != http.StatusUnauthorized {
		return err
	}
	if renewErr := c.renewOnce(ctx); renewErr != nil {
		return err
	}
	return c.once(ctx, method, path, query, body, out, authed, wrapped)
}

// renewOnce 合并并发的续期请求：同时过期的多个请求只会触发一次
// POST /auth/renew/refresh。
func (c *Client) renewOnce(ctx context.Context) error {
	_, err, _ := c.renew.Do("renew", func() (interface{}, error) {
		refresh := c.Credentials().Refresh
		if refresh == "" {
			return nil, &APIError{Status: http.StatusUnauthorized, Code: "unauthorized", Message: "No refresh token"}
		}
		var creds Credentials
		err := c.once(ctx, http.MethodPost, "/auth/renew/refresh", nil,
			map[string]string{"refresh": refresh}, &creds, false, false)
		if err != nil {
			return nil, err
		}
		c.SetCredentials(creds)
		return nil, nil
	})
	return err
}

func (c *Client) once(ctx context.Context, method, path string, query url.Values, body, out interface{}, authed, wrapped bool) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+c.accessToken())
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if wrapped {
		wrapper := struct {
			Data json.RawMessage `json:"data"`
		}{}
		if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
			return err
		}
		return json.Unmarshal(wrapper.Data, out)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeAPIError(resp *http.Response) error {
	var body struct {
		Errors []struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || len(body.Errors) == 0 {
		// 传输层故障或无法解析的响应体，与业务错误码区分开
		return &APIError{Status: resp.StatusCode, Code: "unknown", Message: "Unknown error"}
	}
	return &APIError{Status: resp.StatusCode, Code: body.Errors[0].Code, Message: body.Errors[0].Message}
}
