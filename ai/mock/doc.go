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

// Package mock provides test double implementations of AI service interfaces.
//
// The doubles make retrieval and routing tests reproducible without network
// calls and let tests assert on exactly what was sent to the model.
//
// # Usage in Tests
//
//	chat := mock.NewMockChatModel("tool_finder")
//	embedder := mock.NewMockEmbedder()
//	provider := mock.NewMockProviderWithServices(embedder, chat)
//
//	// ... run code under test ...
//
//	calls := chat.Calls()
//	system := calls[0][0].Content // the system instruction of the first call
//
// # Default Behavior
//
//   - MockEmbedder: deterministic unit vectors seeded from an FNV hash of the text
//   - MockChatModel: scripted Responses in order, then Response
//   - MockProvider: aggregates mock embedder and chat model
package mock
