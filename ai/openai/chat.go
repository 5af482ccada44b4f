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
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/clinroute/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ChatModel implements ai.ChatModel using OpenAI-compatible chat APIs.
type ChatModel struct {
	client      llms.Model
	temperature float64
	logger      *slog.Logger
}

// newChatModel expects a validated config.
func newChatModel(config *ai.Config, logger *slog.Logger) (*ChatModel, error) {
	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return &ChatModel{
		client:      client,
		temperature: config.Temperature,
		logger:      logger.With("component", "openai-chat", "model", config.ChatModel),
	}, nil
}

// NewChatModel creates a chat model from config.
func NewChatModel(config *ai.Config) (ai.ChatModel, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return newChatModel(config, slog.Default())
}

// Generate sends the messages in order and returns the first choice's text.
func (m *ChatModel) Generate(ctx context.Context, messages []ai.Message) (string, error) {
	if len(messages) == 0 {
		return "", ErrNoMessages
	}

	content := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		msgType, err := messageType(msg.Role)
		if err != nil {
			return "", err
		}
		content = append(content, llms.MessageContent{
			Role:  msgType,
			Parts: []llms.ContentPart{llms.TextPart(scrubString(msg.Content))},
		})
	}

	m.logger.Debug("generating chat completion", "messages", len(content))
	resp, err := m.client.GenerateContent(ctx, content, llms.WithTemperature(m.temperature))
	if err != nil {
		m.logger.Error("chat completion failed", "err", err)
		return "", err
	}

	if len(resp.Choices) == 0 {
		m.logger.Warn("chat completion returned no choices")
		return "", ErrEmptyResponse
	}

	return resp.Choices[0].Content, nil
}

func messageType(role ai.Role) (llms.ChatMessageType, error) {
	switch role {
	case ai.RoleSystem:
		return llms.ChatMessageTypeSystem, nil
	case ai.RoleHuman:
		return llms.ChatMessageTypeHuman, nil
	case ai.RoleAI:
		return llms.ChatMessageTypeAI, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedRole, role)
	}
}
