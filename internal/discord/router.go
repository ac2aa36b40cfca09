package discord

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/roshanbot/roshan/internal/observe"
)

// MessageHandlerFunc handles one prefixed chat command. args holds the
// whitespace-split words after the command name; raw is the untouched
// remainder of the message for commands that parse their own syntax
// (e.g. "!poll Question | option | option").
type MessageHandlerFunc func(s *discordgo.Session, m *discordgo.MessageCreate, args []string, raw string)

// ComponentHandlerFunc handles a button or select interaction.
type ComponentHandlerFunc func(s *discordgo.Session, i *discordgo.InteractionCreate)

// Router dispatches prefixed chat messages and component interactions
// to registered handlers.
type Router struct {
	prefix  string
	metrics *observe.Metrics

	mu              sync.RWMutex
	commands        map[string]MessageHandlerFunc // command name (without prefix) → handler
	components      map[string]ComponentHandlerFunc
	componentPrefix map[string]ComponentHandlerFunc // custom_id prefix → handler
}

// NewRouter creates an empty router for the given command prefix.
func NewRouter(prefix string) *Router {
	return &Router{
		prefix:          prefix,
		commands:        make(map[string]MessageHandlerFunc),
		components:      make(map[string]ComponentHandlerFunc),
		componentPrefix: make(map[string]ComponentHandlerFunc),
	}
}

// SetMetrics enables the per-command dispatch counter. A nil metrics
// leaves dispatching unrecorded.
func (r *Router) SetMetrics(m *observe.Metrics) {
	r.metrics = m
}

// RegisterCommand registers a handler for a chat command name (without
// the prefix). Names are matched case-insensitively.
func (r *Router) RegisterCommand(name string, handler MessageHandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[strings.ToLower(name)] = handler
}

// RegisterComponent registers a handler for an exact component custom_id.
func (r *Router) RegisterComponent(customID string, handler ComponentHandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components[customID] = handler
}

// RegisterComponentPrefix registers a handler matching any component
// whose custom_id starts with the given prefix. Used for buttons with
// dynamic suffixes (e.g. "group_join:" matches "group_join:voice-123").
func (r *Router) RegisterComponentPrefix(prefix string, handler ComponentHandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.componentPrefix[prefix] = handler
}

// CommandCount returns the number of registered chat commands.
func (r *Router) CommandCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// HandleMessage dispatches a chat message if it is a prefixed command.
// Bot messages and non-command chatter are ignored silently.
func (r *Router) HandleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	content := strings.TrimSpace(m.Content)
	if !strings.HasPrefix(content, r.prefix) {
		return
	}

	body := strings.TrimPrefix(content, r.prefix)
	name, rest, _ := strings.Cut(body, " ")
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return
	}

	r.mu.RLock()
	handler, ok := r.commands[name]
	r.mu.RUnlock()
	if !ok {
		// Unknown commands stay silent: "!" starts plenty of ordinary
		// chat messages.
		return
	}

	// Only recognized names are counted; arbitrary chat starting with
	// the prefix would blow up label cardinality.
	if r.metrics != nil {
		r.metrics.RecordCommand(context.Background(), name, "ok")
	}

	raw := strings.TrimSpace(rest)
	handler(s, m, strings.Fields(raw), raw)
}

// HandleInteraction dispatches a component interaction.
func (r *Router) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}
	customID := i.MessageComponentData().CustomID

	r.mu.RLock()
	handler, ok := r.components[customID]
	if !ok {
		for prefix, h := range r.componentPrefix {
			if strings.HasPrefix(customID, prefix) {
				handler = h
				ok = true
				break
			}
		}
	}
	r.mu.RUnlock()

	if !ok {
		slog.Warn("discord: unknown component", "custom_id", customID)
		RespondEphemeral(s, i, "This button is no longer active.")
		return
	}
	handler(s, i)
}
