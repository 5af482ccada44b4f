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

import "errors"

var (
	// ErrNotFound is returned when a thread, message or catalog record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrTransactionFailed is returned when a backend transaction cannot commit.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrStorageClosed is returned by operations on a closed backend.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrInvalidQuery is returned for non-positive batch sizes and similar
	// malformed arguments.
	ErrInvalidQuery = errors.New("invalid query parameters")

	// ErrDimensionMismatch is returned when a query vector's length differs
	// from the stored vectors, usually after switching embedding models
	// without re-embedding.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrSerializationFailed wraps encoding and decoding failures of stored values.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrTruncatedData is returned when a stored value is shorter than its header claims.
	ErrTruncatedData = errors.New("truncated data")
)
