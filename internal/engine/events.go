package engine

import (
	"github.com/dshills/cryptex/internal/event/topic"
	"github.com/dshills/cryptex/internal/model"
)

// Engine topics. Edit layer notifications use EditTopic.
const (
	TopicUndo         topic.Topic = "engine.undo"
	TopicRedo         topic.Topic = "engine.redo"
	TopicBaseLoaded   topic.Topic = "engine.base.loaded"
	TopicReverted     topic.Topic = "engine.reverted"
	TopicReplayLoaded topic.Topic = "engine.replay.loaded"
	TopicLogCleared   topic.Topic = "engine.log.cleared"
	TopicViewChanged  topic.Topic = "engine.view.changed"
)

// EventSource is the Metadata.Source of every engine event.
const EventSource = "engine"

// EditTopic returns the topic an edit layer notification is published on.
func EditTopic(kind model.NotificationKind) topic.Topic {
	return topic.Topic("edit").Child(string(kind))
}

// Step is the payload of undo, redo, revert and replay events.
type Step struct {
	Name    string
	Records int
}

// ViewChanged is the payload of TopicViewChanged.
type ViewChanged struct {
	View View
}
