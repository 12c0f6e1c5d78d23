package routes

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nerrad567/mqtt-launcher/internal/infrastructure/config"
)

// Placeholder is replaced by the parameter in default-variant arguments.
const Placeholder = "@!@"

// Command is an argument vector. Element 0 is the program.
type Command []string

// String joins the arguments with spaces, for logging only.
func (c Command) String() string {
	return strings.Join(c, " ")
}

// clone returns an independent copy so callers cannot mutate the table.
func (c Command) clone() Command {
	out := make(Command, len(c))
	copy(out, c)
	return out
}

// Route is the set of command variants configured for one topic.
type Route struct {
	topic      string
	exact      map[string]Command
	def        Command
	hasDefault bool
}

// Topic returns the topic this route belongs to.
func (r *Route) Topic() string { return r.topic }

// HasDefault reports whether the route has a default variant.
func (r *Route) HasDefault() bool { return r.hasDefault }

// Resolve selects the command for a parameter. A nil param means the
// message carried no parameter.
//
// The returned command is a copy and may be modified by the caller.
// ok is false when no variant applies.
func (r *Route) Resolve(param *string) (cmd Command, ok bool) {
	if param != nil {
		if exact, found := r.exact[*param]; found {
			return exact.clone(), true
		}
	}

	if !r.hasDefault {
		return nil, false
	}

	if param == nil {
		return r.def.clone(), true
	}

	cmd = make(Command, len(r.def))
	for i, arg := range r.def {
		cmd[i] = strings.ReplaceAll(arg, Placeholder, *param)
	}
	return cmd, true
}

// Table maps topics to routes. It is immutable once built.
type Table struct {
	routes map[string]*Route
	topics []string
}

// New builds a table from the decoded topiclist.
//
// Returns:
//   - *Table: Ready for concurrent lookups
//   - error: ErrNoTopics, ErrInvalidTopic, ErrEmptyCommand or ErrNoVariants (wrapped)
func New(topics map[string]config.TopicVariants) (*Table, error) {
	if len(topics) == 0 {
		return nil, ErrNoTopics
	}

	t := &Table{
		routes: make(map[string]*Route, len(topics)),
		topics: make([]string, 0, len(topics)),
	}

	for topic, variants := range topics {
		if err := validateTopic(topic); err != nil {
			return nil, err
		}

		route := &Route{
			topic: topic,
			exact: make(map[string]Command, len(variants.Exact)),
		}
		for param, args := range variants.Exact {
			if len(args) == 0 {
				return nil, fmt.Errorf("%w: topic %q parameter %q", ErrEmptyCommand, topic, param)
			}
			route.exact[param] = Command(args).clone()
		}
		if variants.HasDefault {
			if len(variants.Default) == 0 {
				return nil, fmt.Errorf("%w: topic %q default", ErrEmptyCommand, topic)
			}
			route.def = Command(variants.Default).clone()
			route.hasDefault = true
		}
		if len(route.exact) == 0 && !route.hasDefault {
			return nil, fmt.Errorf("%w: %q", ErrNoVariants, topic)
		}

		t.routes[topic] = route
		t.topics = append(t.topics, topic)
	}

	sort.Strings(t.topics)
	return t, nil
}

// Lookup returns the route for a topic.
func (t *Table) Lookup(topic string) (*Route, bool) {
	r, ok := t.routes[topic]
	return r, ok
}

// Topics returns every configured topic in sorted order.
func (t *Table) Topics() []string {
	out := make([]string, len(t.topics))
	copy(out, t.topics)
	return out
}

// Len returns the number of configured topics.
func (t *Table) Len() int {
	return len(t.topics)
}

func validateTopic(topic string) error {
	if topic == "" {
		return fmt.Errorf("%w: empty", ErrInvalidTopic)
	}
	if strings.ContainsAny(topic, "+#") {
		return fmt.Errorf("%w: %q contains a wildcard", ErrInvalidTopic, topic)
	}
	return nil
}
