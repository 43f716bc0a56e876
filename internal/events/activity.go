package events

import (
	"github.com/maxaizer/vacancy-matcher/internal/entities"
)

var ActivityRecordedTopic = "ActivityRecordedEvent"

type ActivityRecorded struct {
	Activity entities.Activity
}
