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

// Package storage provides the storage abstraction layer for clinroute.
//
// This package defines repository interfaces that decouple storage
// implementation from the routing pipeline. Two backends implement them:
// storage/badger (embedded, also used in memory for tests) and
// storage/postgres (pgvector).
//
// # Constructor Return Type Pattern
//
// Public constructors in backend packages return interfaces:
//
//	tools, err := badger.NewToolCatalog(backend) // returns storage.CatalogStore[core.ToolRecord]
//
// Internal constructors may return concrete types since they're only used
// within the implementation package.
//
// # Architecture
//
//   - CatalogStore[T]: similarity search and maintenance for one catalog
//   - CheckpointStore: last pipeline state per conversation thread
//   - ThreadRepository: conversation threads and their messages
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation
// and timeout support.
package storage
