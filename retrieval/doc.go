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

// Package retrieval provides semantic similarity search over a catalog.
//
// A Retriever embeds the query text and asks its catalog store for the
// nearest records by cosine similarity. One generic implementation serves
// every catalog:
//
//	tools, _ := retrieval.New("tools", embedder, toolStore)
//	orgs, _ := retrieval.New("orgs", embedder, orgStore)
//
// Retrieval never mutates the catalog and never retries. Embedder and store
// failures are returned wrapped in ErrRetrieval.
package retrieval
