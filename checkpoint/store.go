// Package checkpoint persists the offsets produced by a position tracker and
// feeds them back on restart.
package checkpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

var ErrEmptyPartition = errors.New("partition cannot be empty")

// Store keeps one offset per partition.
type Store interface {
	// Save replaces the offset stored for partition.
	Save(ctx context.Context, partition map[string]string, offset map[string]any) error

	// Load returns the offset stored for partition, or nil when there is none.
	Load(ctx context.Context, partition map[string]string) (map[string]any, error)

	// Delete removes the offset stored for partition.
	Delete(ctx context.Context, partition map[string]string) error

	// Close releases any resources held by the store.
	Close() error
}

// PartitionKey renders a partition as "k1=v1,k2=v2" with keys sorted.
func PartitionKey(partition map[string]string) (string, error) {
	if len(partition) == 0 {
		return "", ErrEmptyPartition
	}

	keys := make([]string, 0, len(partition))
	for k := range partition {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(partition[k])
	}
	return sb.String(), nil
}

func encodeOffset(offset map[string]any) ([]byte, error) {
	data, err := json.Marshal(offset)
	if err != nil {
		return nil, fmt.Errorf("encode offset: %w", err)
	}
	return data, nil
}

// decodeOffset keeps numbers as json.Number so 64-bit positions survive.
func decodeOffset(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var offset map[string]any
	if err := dec.Decode(&offset); err != nil {
		return nil, fmt.Errorf("decode offset: %w", err)
	}
	return offset, nil
}

func encodePartition(partition map[string]string) ([]byte, error) {
	data, err := json.Marshal(partition)
	if err != nil {
		return nil, fmt.Errorf("encode partition: %w", err)
	}
	return data, nil
}
