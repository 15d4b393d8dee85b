// Package store — адаптер иерархического хранилища документов (Firebase Realtime Database
// и совместимые бэкенды). Путь — сегменты через "/", документ — JSON.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/psds-microservice/support-bot/internal/errs"
)

// Пространства имён.
const (
	NSTickets  = "tickets"
	NSUsers    = "users"
	NSMessages = "messages"
	NSRelays   = "relays"
	NSCounters = "counters"
)

// SeedFunc возвращает начальное значение счётчика, если его ещё нет.
type SeedFunc func(ctx context.Context) (int64, error)

// Store — операции над документами. Каждый вызов — отдельный round trip, без транзакций между вызовами.
type Store interface {
	// Get декодирует документ по path в v. Отсутствующий документ оставляет v нулевым.
	Get(ctx context.Context, path string, v interface{}) error
	// Set перезаписывает документ по path.
	Set(ctx context.Context, path string, v interface{}) error
	// Push добавляет v дочерним документом path с ключом, упорядоченным по времени, и возвращает ключ.
	Push(ctx context.Context, path string, v interface{}) (string, error)
	// Increment атомарно увеличивает целое по path и возвращает новое значение.
	Increment(ctx context.Context, path string, seed SeedFunc) (int64, error)
	// Count возвращает число прямых потомков path.
	Count(ctx context.Context, path string) (int, error)
	Close() error
}

// Join собирает путь из сегментов.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// ValidKey сообщает, можно ли использовать s как сегмент пути.
func ValidKey(s string) bool {
	if s == "" || len(s) > 768 {
		return false
	}
	return !strings.ContainsAny(s, ".$#[]/") && !strings.ContainsAny(s, "\x00\n\r\t")
}

// split проверяет путь и разбивает его на сегменты.
func split(path string) ([]string, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", errs.ErrInvalidPath)
	}
	segs := strings.Split(path, "/")
	for _, s := range segs {
		if !ValidKey(s) {
			return nil, fmt.Errorf("%w: %q", errs.ErrInvalidPath, path)
		}
	}
	return segs, nil
}

func unavailable(op, path string, err error) error {
	return fmt.Errorf("store: %s %s: %w: %w", op, path, errs.ErrStoreUnavailable, err)
}
