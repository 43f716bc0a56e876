package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/vacancy-matcher/internal/entities"
	log "github.com/sirupsen/logrus"
)

type apiInterface interface {
	Send(chattable botApi.Chattable) (botApi.Message, error)
}

// ActivityBot forwards matching activity to a recruiters' telegram chat.
type ActivityBot struct {
	api    apiInterface
	chatID int64
}

func NewActivityBot(token string, chatID int64) (*ActivityBot, error) {

	if chatID == 0 {
		return nil, errors.New("chat id is not set")
	}

	api, err := botApi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	log.Infof("Authorized on account %s", api.Self.UserName)

	err = botApi.SetLogger(log.StandardLogger())
	if err != nil {
		return nil, err
	}

	return newActivityBot(api, chatID), nil
}

func newActivityBot(api apiInterface, chatID int64) *ActivityBot {
	return &ActivityBot{api: api, chatID: chatID}
}

func (b *ActivityBot) Record(ctx context.Context, activity entities.Activity) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := botApi.NewMessage(b.chatID, formatActivity(activity))
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("error occured while sending message: %w", err)
	}
	return nil
}

func formatActivity(activity entities.Activity) string {

	icon := "✅"
	if activity.Type == entities.ActivityError {
		icon = "❗"
	}

	text := icon + " " + activity.Title
	if activity.Description != "" {
		text += "\n" + activity.Description
	}

	if len(activity.Metadata) > 0 {
		keys := make([]string, 0, len(activity.Metadata))
		for key := range activity.Metadata {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		lines := make([]string, 0, len(keys))
		for _, key := range keys {
			lines = append(lines, fmt.Sprintf("%s: %v", key, activity.Metadata[key]))
		}
		text += "\n\n" + strings.Join(lines, "\n")
	}
	return text
}
