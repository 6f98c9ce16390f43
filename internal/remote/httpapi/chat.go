package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dvir/roombill-client/internal/domain"
	"github.com/tidwall/gjson"
)

func (c *Client) GetMessages(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error) {
	path := fmt.Sprintf("/rooms/%s/messages?limit=%d", url.PathEscape(roomID), limit)
	respBody, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var messages []domain.ChatMessage
	for _, m := range gjson.GetBytes(respBody, "messages").Array() {
		messages = append(messages, parseMessage(m))
	}
	return messages, nil
}

func (c *Client) SendMessage(ctx context.Context, roomID, text, clientKey string) (*domain.ChatMessage, error) {
	path := fmt.Sprintf("/rooms/%s/messages", url.PathEscape(roomID))
	body := map[string]string{"text": text, "clientKey": clientKey}
	respBody, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	msg := parseMessage(gjson.GetBytes(respBody, "message"))
	return &msg, nil
}

func (c *Client) GetChatStatus(ctx context.Context, roomID string) (bool, error) {
	path := fmt.Sprintf("/rooms/%s/chat-status", url.PathEscape(roomID))
	respBody, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return false, err
	}
	return gjson.GetBytes(respBody, "chatEnabled").Bool(), nil
}

func (c *Client) SetChatEnabled(ctx context.Context, roomID string, enabled bool) error {
	path := fmt.Sprintf("/rooms/%s/chat-status", url.PathEscape(roomID))
	_, err := c.do(ctx, http.MethodPut, path, map[string]bool{"chatEnabled": enabled})
	return err
}

func (c *Client) DeleteMessage(ctx context.Context, roomID, messageID string) error {
	path := fmt.Sprintf("/rooms/%s/messages/%s", url.PathEscape(roomID), url.PathEscape(messageID))
	_, err := c.do(ctx, http.MethodDelete, path, nil)
	return err
}

func parseMessage(v gjson.Result) domain.ChatMessage {
	sender := v.Get("sender")
	return domain.ChatMessage{
		ID:        v.Get("id").String(),
		RoomID:    v.Get("roomId").String(),
		Text:      v.Get("text").String(),
		SenderID:  v.Get("senderId").String(),
		ClientKey: v.Get("clientKey").String(),
		Sender: domain.MessageSender{
			ID:        sender.Get("id").String(),
			Name:      sender.Get("name").String(),
			AvatarURL: sender.Get("avatar").String(),
		},
		CreatedAt: v.Get("createdAt").Time(),
		ExpiresAt: v.Get("expiresAt").Time(),
	}
}
