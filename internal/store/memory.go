package store

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
)

// Memory — хранилище в памяти процесса с семантикой Realtime Database. Для тестов и локального запуска.
type Memory struct {
	mu     sync.Mutex
	root   map[string]interface{}
	writes int
}

func NewMemory() *Memory {
	return &Memory{root: make(map[string]interface{})}
}

func (m *Memory) Get(ctx context.Context, path string, v interface{}) error {
	segs, err := split(path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return unavailable("get", path, err)
	}
	m.mu.Lock()
	data, err := json.Marshal(m.lookup(segs))
	m.mu.Unlock()
	if err != nil {
		return err
	}
	node, err := decodeTree(data)
	if err != nil {
		return err
	}
	return fromTree(node, v)
}

func (m *Memory) Set(ctx context.Context, path string, v interface{}) error {
	segs, err := split(path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return unavailable("set", path, err)
	}
	node, err := toTree(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if node == nil {
		m.remove(segs)
		return nil
	}
	graft(m.root, segs, node)
	return nil
}

func (m *Memory) Push(ctx context.Context, path string, v interface{}) (string, error) {
	key, err := newKey()
	if err != nil {
		return "", err
	}
	if err := m.Set(ctx, Join(path, key), v); err != nil {
		return "", err
	}
	return key, nil
}

func (m *Memory) Increment(ctx context.Context, path string, seed SeedFunc) (int64, error) {
	segs, err := split(path)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, unavailable("increment", path, err)
	}

	// seed может читать это же хранилище, поэтому вызывается без блокировки.
	var seeded int64
	m.mu.Lock()
	absent := m.lookup(segs) == nil
	m.mu.Unlock()
	if absent && seed != nil {
		if seeded, err = seed(ctx); err != nil {
			return 0, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	cur := seeded
	if node := m.lookup(segs); node != nil {
		if cur, err = counterValue(node); err != nil {
			return 0, err
		}
	}
	cur++
	m.writes++
	graft(m.root, segs, json.Number(strconv.FormatInt(cur, 10)))
	return cur, nil
}

func (m *Memory) Count(ctx context.Context, path string) (int, error) {
	segs, err := split(path)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, unavailable("count", path, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	children, _ := m.lookup(segs).(map[string]interface{})
	return len(children), nil
}

// Writes возвращает число выполненных записей (Set, Push, Increment).
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *Memory) Close() error { return nil }

func (m *Memory) lookup(segs []string) interface{} {
	var node interface{} = m.root
	for _, s := range segs {
		dir, ok := node.(map[string]interface{})
		if !ok {
			return nil
		}
		if node, ok = dir[s]; !ok {
			return nil
		}
	}
	return node
}

func (m *Memory) remove(segs []string) {
	if parent, ok := m.lookup(segs[:len(segs)-1]).(map[string]interface{}); ok {
		delete(parent, segs[len(segs)-1])
	}
}
