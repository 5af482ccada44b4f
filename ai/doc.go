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

// Package ai provides abstractions for the AI services used by clinroute.
//
// Two capabilities are needed by the query pipeline: turning text into a
// fixed-length vector (Embedder) and turning a role-tagged message list into
// text (ChatModel). Both are injected as interfaces so retrieval and agent
// logic can be exercised with deterministic doubles.
//
// # Implementation Packages
//
//   - ai/openai: production implementation over OpenAI-compatible APIs
//   - ai/mock: deterministic test doubles that record their calls
//   - ai/cache: an Embedder decorator caching query embeddings
//
// # Constructor Return Type Pattern
//
// Public production constructors (openai.NewProvider, openai.NewEmbedder,
// openai.NewChatModel) return INTERFACE types. Test constructors
// (mock.NewMockEmbedder, mock.NewMockChatModel) return CONCRETE types so
// tests can inspect recorded calls and inject behavior.
//
// # Usage Example
//
//	provider, err := openai.NewProvider(ai.NewConfig(ai.WithHost("http://localhost:11434")))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, "ambient documentation")
//	text, err := provider.ChatModel().Generate(ctx, []ai.Message{
//	    ai.SystemMessage("You are a routing agent..."),
//	    ai.HumanMessage("Which hospitals use AI for sepsis?"),
//	})
package ai
