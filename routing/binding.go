package routing

import (
	"fmt"
	"regexp"
)

// eventTypePattern validates event types: hierarchical, full-stop delimited, [a-zA-Z0-9_.]
var eventTypePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+(\.[a-zA-Z0-9_]+)*$`)

/* Binding maps one provider event type to a named handler action
 * The open set of event types is extended by editing events.yaml,
 * not by modifying the dispatcher
 */
type Binding struct {
	EventType string
	Action    string
	Disabled  bool
}

// Validate checks if the binding configuration is valid
func (b *Binding) Validate() error {
	if b.EventType == "" {
		return fmt.Errorf("event_type cannot be empty")
	}
	if !eventTypePattern.MatchString(b.EventType) {
		return fmt.Errorf("event_type must be hierarchical and contain only [a-zA-Z0-9_.]: %s", b.EventType)
	}
	if b.Action == "" {
		return fmt.Errorf("action cannot be empty for event type %s", b.EventType)
	}
	return nil
}
