package bot

import (
	"context"
	"errors"
	"testing"

	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/vacancy-matcher/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockApi struct {
	mock.Mock
}

func (m *mockApi) Send(chattable botApi.Chattable) (botApi.Message, error) {
	args := m.Called(chattable)
	return botApi.Message{}, args.Error(0)
}

func Test_ActivityBot_SendsFormattedActivity(t *testing.T) {
	api := &mockApi{}
	api.On("Send", mock.Anything).Return(nil)

	bot := newActivityBot(api, 42)
	err := bot.Record(context.Background(), entities.Activity{
		Type:        entities.ActivityError,
		Title:       "Candidate matching failed",
		Description: "Matching of vacancy 7 failed",
		Metadata:    map[string]any{"vacancyId": 7, "failedAt": "QueryBuilt"},
	})
	require.NoError(t, err)

	msg, ok := api.Calls[0].Arguments.Get(0).(botApi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, "❗ Candidate matching failed\nMatching of vacancy 7 failed\n\nfailedAt: QueryBuilt\nvacancyId: 7",
		msg.Text)
}

func Test_ActivityBot_ReturnsSendError(t *testing.T) {
	api := &mockApi{}
	api.On("Send", mock.Anything).Return(errors.New("Forbidden: bot was kicked"))

	err := newActivityBot(api, 42).Record(context.Background(), entities.Activity{Title: "x"})
	assert.ErrorContains(t, err, "bot was kicked")
}

func Test_FormatActivity_WithoutMetadata(t *testing.T) {
	text := formatActivity(entities.Activity{Type: entities.ActivityMatching, Title: "Candidate matching completed"})
	assert.Equal(t, "✅ Candidate matching completed", text)
}
