// Package ratelimiter は外部API呼び出しの回数制限（クォータ）を提供します。
package ratelimiter

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Quota は固定ウィンドウ方式の呼び出し回数カウンタです。
// カウンタはReset されるまで単調増加し、上限に達しても待機はしません。
type Quota struct {
	name   string
	limit  int           // ウィンドウあたりの上限（0以下なら無制限）
	window time.Duration // どの単位でリセットするか

	mu    sync.Mutex
	count int
}

// NewQuota は新しいQuotaのインスタンスを生成します。
func NewQuota(name string, limit int, window time.Duration) *Quota {
	return &Quota{name: name, limit: limit, window: window}
}

// Name はクォータ名を返します。
func (q *Quota) Name() string { return q.name }

// Limit はウィンドウあたりの上限を返します。
func (q *Quota) Limit() int { return q.limit }

// Window はリセット間隔を返します。
func (q *Quota) Window() time.Duration { return q.window }

// Exhausted はカウンタが上限以上に達しているかを返します。
func (q *Quota) Exhausted() bool {
	if q.limit <= 0 {
		return false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count >= q.limit
}

// Add はカウンタを1つ進めます。
func (q *Quota) Add() {
	q.mu.Lock()
	q.count++
	q.mu.Unlock()
}

// Set はカウンタを任意の値に設定します。
func (q *Quota) Set(n int) {
	q.mu.Lock()
	q.count = n
	q.mu.Unlock()
}

// Count は現在のカウンタ値を返します。
func (q *Quota) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Reset はカウンタを0に戻します。
func (q *Quota) Reset() {
	q.mu.Lock()
	prev := q.count
	q.count = 0
	q.mu.Unlock()
	if prev > 0 {
		slog.Debug("quota reset", "quota", q.name, "previous", prev)
	}
}

// Budget は分単位と日単位の2つのクォータをまとめて扱います。
type Budget struct {
	Minute *Quota
	Day    *Quota
}

// NewBudget はperMinute/perDayの上限を持つBudgetを生成します。
func NewBudget(perMinute int, minuteWindow time.Duration, perDay int, dayWindow time.Duration) *Budget {
	if minuteWindow <= 0 {
		minuteWindow = time.Minute
	}
	if dayWindow <= 0 {
		dayWindow = 24 * time.Hour
	}
	return &Budget{
		Minute: NewQuota("minute", perMinute, minuteWindow),
		Day:    NewQuota("day", perDay, dayWindow),
	}
}

// Exhausted はどちらかのクォータが上限に達しているかを返します。
func (b *Budget) Exhausted() bool {
	return b.Minute.Exhausted() || b.Day.Exhausted()
}

// Consume は両方のカウンタを1つ進めます。
func (b *Budget) Consume() {
	b.Minute.Add()
	b.Day.Add()
}

// Run はそれぞれのウィンドウ毎に独立したタイマーでカウンタをリセットします。
// ctxがキャンセルされるまでブロックします。
func (b *Budget) Run(ctx context.Context) {
	minute := time.NewTicker(b.Minute.Window())
	defer minute.Stop()
	day := time.NewTicker(b.Day.Window())
	defer day.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-minute.C:
			b.Minute.Reset()
		case <-day.C:
			b.Day.Reset()
		}
	}
}
