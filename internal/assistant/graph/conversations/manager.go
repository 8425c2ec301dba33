package conversations

import (
	"context"

	"github.com/padpal/server/internal/assistant/model"

	"github.com/cloudwego/eino/schema"
)

type MessagesManager struct {
	conversationRepo model.ConversationRepository
}

func NewMessagesManager(conversationRepo model.ConversationRepository) *MessagesManager {
	return &MessagesManager{
		conversationRepo: conversationRepo,
	}
}

// RecordUserMessage persists the incoming user message before any model call,
// so history stays complete even when the turn fails midway.
func (cm *MessagesManager) RecordUserMessage(ctx context.Context, conversationID string, query string) error {
	return cm.conversationRepo.AddMessage(ctx, conversationID, schema.UserMessage(query))
}

// BuildResponseContext returns the persona model's message list: system
// prompt followed by the persisted conversation history.
func (cm *MessagesManager) BuildResponseContext(ctx context.Context, conversationID string, systemPrompt string) ([]*schema.Message, error) {
	history, err := cm.conversationRepo.LoadHistory(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
	}

	messages = append(messages, history.Messages...)

	return messages, nil
}

// SaveResponse persists the assistant's final message for the turn.
func (cm *MessagesManager) SaveResponse(ctx context.Context, conversationID string, content string) error {
	assistantMsg := schema.AssistantMessage(content, nil)
	return cm.conversationRepo.AddMessage(ctx, conversationID, assistantMsg)
}

// RecentTurn returns the latest user/assistant pair, for post-turn analysis.
func (cm *MessagesManager) RecentTurn(ctx context.Context, conversationID string) (user, assistant string, err error) {
	history, err := cm.conversationRepo.LoadHistory(ctx, conversationID)
	if err != nil {
		return "", "", err
	}
	for i := len(history.Messages) - 1; i >= 0; i-- {
		msg := history.Messages[i]
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.Assistant:
			if assistant == "" {
				assistant = msg.Content
			}
		case schema.User:
			if user == "" {
				user = msg.Content
			}
		}
		if user != "" && assistant != "" {
			break
		}
	}
	return user, assistant, nil
}
