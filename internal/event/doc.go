/*
Package event provides a pub/sub event system for template generation runs.

Publishers emit events and subscribers react to them without direct
dependencies. In-process subscribers receive the typed Event by direct call;
every event is also mirrored as a JSON watermill message on Topic so stream
consumers such as the SSE endpoint can read them through Messages.

# Event Types

Template Events:
  - template.started: A generation session began streaming
  - template.updated: A unit was applied; Data carries a snapshot
  - template.unit.skipped: A malformed unit was dropped
  - template.completed: The session finalized (complete or truncated)
  - template.cancelled: The consumer stopped the session
  - template.failed: The token source failed

Other Events:
  - chat.message: An assistant conversation produced a message
  - toolkit.generated: A toolkit generator finished

# Basic Usage

	bus := event.Default()
	unsubscribe := bus.Subscribe(event.TemplateUpdated, func(e event.Event) {
		data := e.Data.(event.TemplateUpdatedData)
		logging.Info().Str("name", data.Template.Name).Msg("updated")
	})
	defer unsubscribe()

	bus.Publish(event.Event{Type: event.TemplateStarted, Data: event.TemplateStartedData{SessionID: id}})

Subscribers called through PublishSync run in the publisher's goroutine and
must not block or publish re-entrantly.

Use NewBus for isolated buses in tests, and Reset to replace the default one.
*/
package event
