// Package page 实现消息/房间列表的双向游标分页。
//
// 全序键是 (created_at, id) 升序。游标是一条已知记录的 id：
// forward 取序键严格大于锚点的前 N 条，backward 取严格小于锚点的后 N 条。
// 返回页短于请求数量即表示该方向已无更多数据，没有额外的 has-more 标志。
package page

import (
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
)

// DefaultSize 是客户端约定的固定页大小。
const DefaultSize = 30

const maxSize = 100

var ErrBadQuery = errors.New("page: exactly one of first/after or last/before is required")

// Query 是带方向标签的分页请求，只能通过 First / Last / Parse 构造，
// 保证"恰好一个方向"在类型层面成立。
type Query struct {
	backward bool
	anchor   uint
	limit    int
}

// First 构造 forward 查询：锚点之后最早的 n 条。after 为 0 表示从头开始。
func First(n int, after uint) Query {
	return Query{backward: false, anchor: after, limit: clamp(n)}
}

// Last 构造 backward 查询：锚点之前最晚的 n 条。before 为 0 表示从最新开始。
func Last(n int, before uint) Query {
	return Query{backward: true, anchor: before, limit: clamp(n)}
}

func clamp(n int) int {
	if n <= 0 {
		return DefaultSize
	}
	if n > maxSize {
		return maxSize
	}
	return n
}

// Parse 从查询参数构造 Query。first 与 last 必须恰好提供一个，
// after 只能配 first，before 只能配 last，否则返回 ErrBadQuery。
func Parse(first, after, last, before string) (Query, error) {
	switch {
	case first != "" && last == "":
		if before != "" {
			return Query{}, ErrBadQuery
		}
		n, err := strconv.Atoi(first)
		if err != nil || n <= 0 {
			return Query{}, ErrBadQuery
		}
		anchor, err := parseAnchor(after)
		if err != nil {
			return Query{}, ErrBadQuery
		}
		return First(n, anchor), nil
	case last != "" && first == "":
		if after != "" {
			return Query{}, ErrBadQuery
		}
		n, err := strconv.Atoi(last)
		if err != nil || n <= 0 {
			return Query{}, ErrBadQuery
		}
		anchor, err := parseAnchor(before)
		if err != nil {
			return Query{}, ErrBadQuery
		}
		return Last(n, anchor), nil
	default:
		return Query{}, ErrBadQuery
	}
}

func parseAnchor(s string) (uint, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil || v == 0 {
		return 0, ErrBadQuery
	}
	return uint(v), nil
}

func (q Query) Backward() bool { return q.backward }
func (q Query) Anchor() uint   { return q.anchor }
func (q Query) Limit() int     { return q.limit }

// Anchor 是已解析锚点记录的序键。
type Anchor struct {
	At time.Time
	ID uint
}

// Apply 在查询上追加游标谓词、排序和 limit。backward 查询按序键降序取数，
// 调用方需要用 ReverseInPlace 恢复升序。
func Apply(db *gorm.DB, q Query, anchor *Anchor) *gorm.DB {
	if q.backward {
		if anchor != nil {
			db = db.Where("created_at < ? OR (created_at = ? AND id < ?)", anchor.At, anchor.At, anchor.ID)
		}
		return db.Order("created_at desc, id desc").Limit(q.limit)
	}
	if anchor != nil {
		db = db.Where("created_at > ? OR (created_at = ? AND id > ?)", anchor.At, anchor.At, anchor.ID)
	}
	return db.Order("created_at asc, id asc").Limit(q.limit)
}

// ReverseInPlace 把 backward 查询取回的降序结果翻转成升序。
func ReverseInPlace[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
