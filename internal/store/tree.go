package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// newKey возвращает ключ дочернего документа. UUIDv7 монотонен, поэтому ключи сортируются по времени вставки.
func newKey() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("store: generate key: %w", err)
	}
	return id.String(), nil
}

// toTree переводит значение в дерево map[string]interface{} / json.Number, как его хранит Realtime Database.
func toTree(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("store: encode: %w", err)
	}
	return decodeTree(data)
}

func decodeTree(data []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out interface{}
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("store: decode: %w", err)
	}
	return out, nil
}

// fromTree декодирует узел дерева в v; nil-узел оставляет v без изменений.
func fromTree(node interface{}, v interface{}) error {
	if node == nil {
		return nil
	}
	data, err := json.Marshal(node)
	if err != nil {
		return fmt.Errorf("store: encode: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("store: decode: %w", err)
	}
	return nil
}

// graft помещает value в tree по относительному пути segs, создавая промежуточные узлы.
func graft(tree map[string]interface{}, segs []string, value interface{}) {
	cur := tree
	for _, s := range segs[:len(segs)-1] {
		next, ok := cur[s].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			cur[s] = next
		}
		cur = next
	}
	cur[segs[len(segs)-1]] = value
}

func counterValue(node interface{}) (int64, error) {
	switch n := node.(type) {
	case json.Number:
		return n.Int64()
	case float64:
		return int64(n), nil
	case int64:
		return n, nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("store: value %v is not a counter", node)
	}
}
