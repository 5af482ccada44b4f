// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/poiesic/clinroute/core"
)

// storedEntry is the persisted form of an Entry.
type storedEntry[T any] struct {
	Record T         `json:"record"`
	Vector []float32 `json:"vector"`
}

// storedCheckpoint is the persisted form of a thread checkpoint.
type storedCheckpoint struct {
	State   core.PipelineState `json:"state"`
	SavedAt time.Time          `json:"saved_at"`
}

// MarshalID serializes an ID to 8 big-endian bytes so keys sort numerically.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

// UnmarshalID deserializes an ID written by MarshalID.
func UnmarshalID(data []byte) (core.ID, error) {
	if len(data) < 8 {
		return 0, ErrTruncatedData
	}
	return core.ID(binary.BigEndian.Uint64(data)), nil
}

// MarshalEntry serializes a catalog entry.
func MarshalEntry[T any](entry Entry[T]) ([]byte, error) {
	return marshal(storedEntry[T]{Record: entry.Record, Vector: entry.Vector})
}

// UnmarshalEntry deserializes a catalog entry written by MarshalEntry.
func UnmarshalEntry[T any](data []byte) (Entry[T], error) {
	var stored storedEntry[T]
	if err := unmarshal(data, &stored); err != nil {
		return Entry[T]{}, err
	}
	return Entry[T]{Record: stored.Record, Vector: stored.Vector}, nil
}

// MarshalCheckpoint serializes a pipeline state checkpoint.
func MarshalCheckpoint(state core.PipelineState, savedAt time.Time) ([]byte, error) {
	return marshal(storedCheckpoint{State: state, SavedAt: savedAt})
}

// UnmarshalCheckpoint deserializes a checkpoint written by MarshalCheckpoint.
func UnmarshalCheckpoint(data []byte) (*core.PipelineState, time.Time, error) {
	var stored storedCheckpoint
	if err := unmarshal(data, &stored); err != nil {
		return nil, time.Time{}, err
	}
	return &stored.State, stored.SavedAt, nil
}

// MarshalThread serializes a thread.
func MarshalThread(thread *core.Thread) ([]byte, error) {
	return marshal(thread)
}

// UnmarshalThread deserializes a thread.
func UnmarshalThread(data []byte) (*core.Thread, error) {
	var thread core.Thread
	if err := unmarshal(data, &thread); err != nil {
		return nil, err
	}
	return &thread, nil
}

// MarshalMessage serializes a thread message.
func MarshalMessage(msg *core.Message) ([]byte, error) {
	return marshal(msg)
}

// UnmarshalMessage deserializes a thread message.
func UnmarshalMessage(data []byte) (*core.Message, error) {
	var msg core.Message
	if err := unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

func unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return ErrTruncatedData
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return nil
}
