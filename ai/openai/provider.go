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

package openai

import (
	"log/slog"

	"github.com/poiesic/clinroute/ai"
)

// Provider pairs the embedder used for retrieval with the chat model used
// for routing and answers. Both may point at different hosts.
type Provider struct {
	embedder *Embedder
	chat     *ChatModel
	logger   *slog.Logger
}

var _ ai.AIProvider = (*Provider)(nil)

// NewProvider validates and normalizes config, then builds both clients.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	logger := slog.Default()

	embedder, err := newEmbedder(config, logger)
	if err != nil {
		return nil, err
	}
	chat, err := newChatModel(config, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("ai provider ready",
		"embedding_host", config.EmbeddingHost, "embedding_model", config.EmbeddingModel,
		"chat_host", config.ChatHost, "chat_model", config.ChatModel)
	return &Provider{
		embedder: embedder,
		chat:     chat,
		logger:   logger.With("component", "openai-provider"),
	}, nil
}

func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

func (p *Provider) ChatModel() ai.ChatModel {
	return p.chat
}

// Close is a no-op; the HTTP clients hold no resources that need releasing.
func (p *Provider) Close() error {
	p.logger.Debug("closing provider")
	return nil
}
