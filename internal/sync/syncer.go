package sync

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"chatsync/internal/page"
)

const (
	defaultPollInterval   = 5 * time.Second
	defaultPinThreshold   = 100.0
	defaultScrollDebounce = 300 * time.Millisecond
)

// Options 控制同步行为，零值使用默认参数。
type Options struct {
	// PollInterval 是轮询新消息的固定间隔。
	PollInterval time.Duration
	// PinThreshold 是判定视口贴底的像素阈值。
	PinThreshold float64
	// ScrollDebounce 是追加新消息后触发自动滚动前的等待时间。
	ScrollDebounce time.Duration
	// OnScrollToBottom 在贴底状态下合并到新消息后被调用。
	OnScrollToBottom func()
}

// Syncer 维护单个房间视图的消息缓存：pages 按页存放，页内和页间都是
// 从旧到新，拼接起来就是已知历史。它是该缓存唯一的写入方。
//
// 去重完全依赖游标语义（严格大于 / 严格小于），合并时不做按 id 的二次去重。
// 轮询和回填可能并发完成，合并前用锚点做 compare-and-set：锚点已经变化的
// 结果直接丢弃，避免丢失更新。
type Syncer struct {
	api    *Client
	roomID uint
	opts   Options

	mu        sync.Mutex
	pages     [][]Message
	exhausted bool
	pinned    bool

	scrollMu    sync.Mutex
	scrollTimer *time.Timer

	posted chan struct{}
	cancel context.CancelFunc
	done   chan struct{}

	nameMu sync.Mutex
	names  map[uint]string
}

func NewSyncer(api *Client, roomID uint, opts Options) *Syncer {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.PinThreshold <= 0 {
		opts.PinThreshold = defaultPinThreshold
	}
	if opts.ScrollDebounce <= 0 {
		opts.ScrollDebounce = defaultScrollDebounce
	}
	return &Syncer{
		api:    api,
		roomID: roomID,
		opts:   opts,
		pinned: true,
		posted: make(chan struct{}, 1),
		names:  make(map[uint]string),
	}
}

// Start 加载最新一页历史并启动轮询。视口初始贴底。
func (s *Syncer) Start(ctx context.Context) error {
	msgs, err := s.api.Messages(ctx, s.roomID, page.Last(page.DefaultSize, 0))
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.pages = [][]Message{msgs}
	s.exhausted = len(msgs) < page.DefaultSize
	s.mu.Unlock()

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.loop(ctx)
	return nil
}

// Stop 取消轮询并等待循环退出，挂起的自动滚动也一并取消。
// 停止后在途请求的结果不会再被合并。
func (s *Syncer) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.scrollMu.Lock()
	if s.scrollTimer != nil {
		s.scrollTimer.Stop()
		s.scrollTimer = nil
	}
	s.scrollMu.Unlock()
}

func (s *Syncer) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll(ctx)
		case <-s.posted:
			s.poll(ctx)
		}
	}
}

// NotifyPosted 在本地发帖成功后立即触发一次轮询，不等下个间隔。
func (s *Syncer) NotifyPosted() {
	select {
	case s.posted <- struct{}{}:
	default:
	}
}

// poll 拉取最新已知消息之后的新消息并追加到缓存尾部。
// 后台轮询失败不上抛，下个周期自然重试。
func (s *Syncer) poll(ctx context.Context) {
	anchor := s.NewestID()
	var (
		msgs []Message
		err  error
	)
	if anchor == 0 {
		// 房间还没有任何已知消息，继续取最新一页
		msgs, err = s.api.Messages(ctx, s.roomID, page.Last(page.DefaultSize, 0))
	} else {
		msgs, err = s.api.Messages(ctx, s.roomID, page.First(page.DefaultSize, anchor))
	}
	if err != nil {
		log.Debug().Err(err).Uint("room_id", s.roomID).Msg("sync poll")
		return
	}
	if len(msgs) == 0 || ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	if s.newestIDLocked() != anchor {
		// 另一次合并先完成了，丢弃本次结果
		s.mu.Unlock()
		return
	}
	s.pages = append(s.pages, msgs)
	pinned := s.pinned
	s.mu.Unlock()

	if pinned {
		s.scheduleScroll()
	}
}

// Backfill 以最旧已知消息为锚点向上回填一页历史。
// 收到短页后标记历史已取完，不再发起回填。
func (s *Syncer) Backfill(ctx context.Context) error {
	s.mu.Lock()
	if s.exhausted {
		s.mu.Unlock()
		return nil
	}
	anchor := s.oldestIDLocked()
	s.mu.Unlock()
	if anchor == 0 {
		return nil
	}

	msgs, err := s.api.Messages(ctx, s.roomID, page.Last(page.DefaultSize, anchor))
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.oldestIDLocked() != anchor {
		return nil
	}
	if len(msgs) < page.DefaultSize {
		s.exhausted = true
	}
	if len(msgs) > 0 {
		s.pages = append([][]Message{msgs}, s.pages...)
	}
	return nil
}

// HandleScroll 接收视口滚动状态：offsetTop 为 0 时触发回填，
// 距底部在阈值内时恢复贴底，离开则解除贴底并抑制自动滚动。
func (s *Syncer) HandleScroll(ctx context.Context, offsetTop, distanceToBottom float64) {
	pinned := distanceToBottom <= s.opts.PinThreshold
	s.mu.Lock()
	s.pinned = pinned
	s.mu.Unlock()
	if !pinned {
		s.scrollMu.Lock()
		if s.scrollTimer != nil {
			s.scrollTimer.Stop()
			s.scrollTimer = nil
		}
		s.scrollMu.Unlock()
	}
	if offsetTop <= 0 {
		if err := s.Backfill(ctx); err != nil {
			log.Debug().Err(err).Uint("room_id", s.roomID).Msg("sync backfill")
		}
	}
}

// scheduleScroll 在布局稳定后把视口滚到底部，连续合并时只保留最后一次。
func (s *Syncer) scheduleScroll() {
	cb := s.opts.OnScrollToBottom
	if cb == nil {
		return
	}
	s.scrollMu.Lock()
	defer s.scrollMu.Unlock()
	if s.scrollTimer != nil {
		s.scrollTimer.Stop()
	}
	s.scrollTimer = time.AfterFunc(s.opts.ScrollDebounce, func() {
		if s.Pinned() {
			cb()
		}
	})
}

// Pinned 返回视口是否贴底。
func (s *Syncer) Pinned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pinned
}

// Exhausted 返回更早的历史是否已全部取完。
func (s *Syncer) Exhausted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exhausted
}

// Messages 返回已知历史的快照，从旧到新。
func (s *Syncer) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Message
	for _, p := range s.pages {
		out = append(out, p...)
	}
	return out
}

// NewestID 返回最新已知消息的 id，缓存为空时返回 0。
func (s *Syncer) NewestID() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newestIDLocked()
}

// OldestID 返回最旧已知消息的 id，缓存为空时返回 0。
func (s *Syncer) OldestID() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.oldestIDLocked()
}

func (s *Syncer) newestIDLocked() uint {
	for i := len(s.pages) - 1; i >= 0; i-- {
		if n := len(s.pages[i]); n > 0 {
			return s.pages[i][n-1].ID
		}
	}
	return 0
}

func (s *Syncer) oldestIDLocked() uint {
	for _, p := range s.pages {
		if len(p) > 0 {
			return p[0].ID
		}
	}
	return 0
}

// SenderName 懒解析消息发送者：自己的消息直接用本地身份，其他发送者
// 每个 id 只查询一次。
func (s *Syncer) SenderName(ctx context.Context, senderID uint) (string, error) {
	creds := s.api.Credentials()
	if senderID == creds.ID {
		return creds.Name, nil
	}
	s.nameMu.Lock()
	name, ok := s.names[senderID]
	s.nameMu.Unlock()
	if ok {
		return name, nil
	}
	user, err := s.api.User(ctx, senderID)
	if err != nil {
		return "", err
	}
	s.nameMu.Lock()
	s.names[senderID] = user.Name
	s.nameMu.Unlock()
	return user.Name, nil
}
