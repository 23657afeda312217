package store

import (
	"log"

	"github.com/seckatie/linksaver/internal/core/links"
)

// ------------------------------
// Event System
// ------------------------------
//
// The Store emits typed events after a change has been written. Register
// listeners to react to these changes.
//
// Example usage:
//
//	s.RegisterEventListener(store.OnLinkAddedEvent, func(event store.Event) error {
//	    ev := event.(store.LinkAddedEvent)
//	    log.Printf("Saved %s into %s", ev.Item.URL, ev.Category)
//	    return nil
//	})
//
// Event is the common interface for all store events.
type Event interface {
	Kind() EventKind
}

// EventKind represents all the kinds of events that can be emitted by the Store.
type EventKind int

const (
	// OnLinkAddedEvent is emitted when a link is added to a category.
	OnLinkAddedEvent EventKind = iota
	// OnLinkDuplicateEvent is emitted when an add is dropped because the
	// category already holds the URL.
	OnLinkDuplicateEvent
	// OnLinkRemovedEvent is emitted when a link is deleted.
	OnLinkRemovedEvent
	// OnLinkMovedEvent is emitted when a link changes category.
	OnLinkMovedEvent
	// OnLinkAbsorbedEvent is emitted when a moved link is dropped because
	// the destination already holds its URL.
	OnLinkAbsorbedEvent
	// OnLinkUpdatedEvent is emitted when a link's display fields change.
	OnLinkUpdatedEvent
	// OnCategoryCreatedEvent is emitted when a category is created.
	OnCategoryCreatedEvent
	// OnCategoryRemovedEvent is emitted when a category is removed.
	OnCategoryRemovedEvent
	// OnDocumentMigratedEvent is emitted when a legacy document is migrated.
	OnDocumentMigratedEvent
)

func (k EventKind) String() string {
	switch k {
	case OnLinkAddedEvent:
		return "link_added"
	case OnLinkDuplicateEvent:
		return "link_duplicate"
	case OnLinkRemovedEvent:
		return "link_removed"
	case OnLinkMovedEvent:
		return "link_moved"
	case OnLinkAbsorbedEvent:
		return "link_absorbed"
	case OnLinkUpdatedEvent:
		return "link_updated"
	case OnCategoryCreatedEvent:
		return "category_created"
	case OnCategoryRemovedEvent:
		return "category_removed"
	case OnDocumentMigratedEvent:
		return "document_migrated"
	default:
		return "unknown"
	}
}

// LinkAddedEvent is emitted after a new link is written.
type LinkAddedEvent struct {
	Item     links.Item
	Category string
}

func (e LinkAddedEvent) Kind() EventKind { return OnLinkAddedEvent }

// LinkDuplicateEvent is emitted when an add was a no-op.
type LinkDuplicateEvent struct {
	URL      string
	Category string
}

func (e LinkDuplicateEvent) Kind() EventKind { return OnLinkDuplicateEvent }

// LinkRemovedEvent carries the link as it was before deletion.
type LinkRemovedEvent struct {
	Item     links.Item
	Category string
}

func (e LinkRemovedEvent) Kind() EventKind { return OnLinkRemovedEvent }

// LinkMovedEvent is emitted after a link is relocated.
type LinkMovedEvent struct {
	Item links.Item
	From string
	To   string
}

func (e LinkMovedEvent) Kind() EventKind { return OnLinkMovedEvent }

// LinkAbsorbedEvent is emitted after a move dropped the link.
type LinkAbsorbedEvent struct {
	Item links.Item
	From string
	To   string
}

func (e LinkAbsorbedEvent) Kind() EventKind { return OnLinkAbsorbedEvent }

// LinkUpdatedEvent carries the link after the update.
type LinkUpdatedEvent struct {
	Item     links.Item
	Category string
}

func (e LinkUpdatedEvent) Kind() EventKind { return OnLinkUpdatedEvent }

// CategoryCreatedEvent is emitted after a category is created.
type CategoryCreatedEvent struct {
	Name string
}

func (e CategoryCreatedEvent) Kind() EventKind { return OnCategoryCreatedEvent }

// CategoryRemovedEvent is emitted after a category is removed. Rehomed lists
// the links that moved to Unsorted; the others were duplicates and dropped.
type CategoryRemovedEvent struct {
	Name    string
	Rehomed []links.Item
	Dropped int
}

func (e CategoryRemovedEvent) Kind() EventKind { return OnCategoryRemovedEvent }

// DocumentMigratedEvent is emitted after legacy links were migrated.
type DocumentMigratedEvent struct {
	Count int
}

func (e DocumentMigratedEvent) Kind() EventKind { return OnDocumentMigratedEvent }

// EventListener is a callback that handles events of a specific kind.
type EventListener func(event Event) error

// RegisterEventListener adds a listener for a specific event kind.
// Listeners are called synchronously in registration order after the write
// succeeds. They may call back into the Store.
func (s *Store) RegisterEventListener(eventKind EventKind, listener EventListener) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	if s.eventListeners == nil {
		s.eventListeners = make(map[EventKind][]EventListener)
	}
	s.eventListeners[eventKind] = append(s.eventListeners[eventKind], listener)
}

// emit dispatches an event to all registered listeners for that event kind.
func (s *Store) emit(event Event) {
	s.listenersMu.Lock()
	listeners := append([]EventListener(nil), s.eventListeners[event.Kind()]...)
	s.listenersMu.Unlock()
	for _, listener := range listeners {
		if err := listener(event); err != nil {
			log.Printf("Event listener error for %s: %v", event.Kind(), err)
		}
	}
}
