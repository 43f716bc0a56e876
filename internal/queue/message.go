package queue

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Message is the refresh trigger consumed by the matching worker.
type Message struct {
	VacancyID int `json:"vacancyId" validate:"required,gt=0"`
}

var validate = validator.New()

// EncodeMessage serializes the message as base64-wrapped JSON.
func EncodeMessage(msg Message) (string, error) {
	if err := validate.Struct(msg); err != nil {
		return "", fmt.Errorf("invalid message: %w", err)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func DecodeMessage(body string) (Message, error) {
	data, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return Message{}, fmt.Errorf("message is not base64: %w", err)
	}

	var msg Message
	if err = json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("message is not json: %w", err)
	}

	if err = validate.Struct(msg); err != nil {
		return Message{}, fmt.Errorf("invalid message: %w", err)
	}
	return msg, nil
}
