// Package slug 负责从任意文本生成唯一的、URL 安全的标识。
//
// Allocate 只对调用时传入的快照保证唯一；并发创建时由持久层在写入时
// 重新校验唯一性，冲突后刷新快照再次分配。
package slug

import (
	"crypto/rand"
	"io"
	"math/big"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// MaxLength 是规范化后 base 的最大长度。
	MaxLength = 100
	// MaxSuffixAttempts 是数字后缀的尝试上限，超过后使用时间戳后缀。
	MaxSuffixAttempts = 100

	randomLength   = 8
	randomAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// Set 是已存在 slug 的快照。
type Set map[string]struct{}

// NewSet 从切片构造 Set。
func NewSet(slugs ...string) Set {
	s := make(Set, len(slugs))
	for _, v := range slugs {
		s[v] = struct{}{}
	}
	return s
}

// Has 判断 slug 是否已被占用。
func (s Set) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Allocator 生成唯一 slug。零值不可用，请使用 New。
type Allocator struct {
	now    func() time.Time
	random io.Reader
}

// Option 定制 Allocator。
type Option func(*Allocator)

// WithClock 替换时间源（用于时间戳兜底后缀）。
func WithClock(now func() time.Time) Option {
	return func(a *Allocator) { a.now = now }
}

// WithRandom 替换随机源（用于空 base 的随机串）。
func WithRandom(r io.Reader) Option {
	return func(a *Allocator) { a.random = r }
}

// New 构造 Allocator。
func New(opts ...Option) *Allocator {
	a := &Allocator{now: time.Now, random: rand.Reader}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate 返回一个不在 existing 中的 slug。不会 panic。
func (a *Allocator) Allocate(text string, existing Set) string {
	base := a.Base(text)
	if !existing.Has(base) {
		return base
	}

	for i := 1; i <= MaxSuffixAttempts; i++ {
		candidate := base + "-" + strconv.Itoa(i)
		if !existing.Has(candidate) {
			return candidate
		}
	}

	stamped := base + "-" + strconv.FormatInt(a.now().Unix(), 10)
	candidate := stamped
	for n := 1; existing.Has(candidate); n++ {
		candidate = stamped + "-" + strconv.Itoa(n)
	}
	return candidate
}

// Base 规范化文本，结果为空时返回随机串。
func (a *Allocator) Base(text string) string {
	if s := Normalize(text); s != "" {
		return s
	}
	return a.randomString(randomLength)
}

// Normalize 将文本转为 slug 形式：去音调、小写、仅保留 [a-z0-9-]、合并连字符、限制长度。
func Normalize(text string) string {
	// 先折叠音调再过滤字符，"Café Été" 得到 cafe-ete 而不是 caf-t。
	folded, _, err := transform.String(foldMarks(), text)
	if err != nil {
		folded = text
	}
	folded = strings.ToLower(strings.TrimSpace(folded))

	var b strings.Builder
	b.Grow(len(folded))
	pendingHyphen := false
	for _, r := range folded {
		switch {
		case unicode.IsSpace(r) || r == '-':
			pendingHyphen = true
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		}
	}

	out := b.String()
	if len(out) > MaxLength {
		out = strings.TrimRight(out[:MaxLength], "-")
	}
	return out
}

func foldMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

func (a *Allocator) randomString(n int) string {
	buf := make([]byte, n)
	limit := big.NewInt(int64(len(randomAlphabet)))
	for i := range buf {
		idx, err := rand.Int(a.random, limit)
		if err != nil {
			return a.fallbackRandom(n)
		}
		buf[i] = randomAlphabet[idx.Int64()]
	}
	return string(buf)
}

// fallbackRandom 在随机源不可用时基于纳秒时间戳生成 base36 串。
func (a *Allocator) fallbackRandom(n int) string {
	s := strconv.FormatInt(a.now().UnixNano(), 36)
	for len(s) < n {
		s = "0" + s
	}
	return s[len(s)-n:]
}
