package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/roshanbot/roshan/internal/discord"
	"github.com/roshanbot/roshan/internal/games"
)

// Component custom IDs for the squad buttons. The forming channel ID
// rides after the colon.
const (
	groupJoinPrefix  = "group_join:"
	groupLeavePrefix = "group_leave:"
)

// GroupCommands handles squad forming: !x5, !x4, !teams, !roles and the
// join/leave buttons.
type GroupCommands struct {
	groups *games.Groups
	rng    *rand.Rand
}

// NewGroupCommands creates a GroupCommands handler.
func NewGroupCommands(groups *games.Groups, rng *rand.Rand) *GroupCommands {
	return &GroupCommands{groups: groups, rng: rng}
}

// Register registers the squad commands and buttons with the router.
func (g *GroupCommands) Register(router *discord.Router) {
	router.RegisterCommand("x5", func(s *discordgo.Session, m *discordgo.MessageCreate, _ []string, _ string) {
		g.create(s, m, 5)
	})
	router.RegisterCommand("x4", func(s *discordgo.Session, m *discordgo.MessageCreate, _ []string, _ string) {
		g.create(s, m, 4)
	})
	router.RegisterCommand("teams", g.handleTeams)
	router.RegisterCommand("roles", g.handleRoles)
	router.RegisterCommand("groupcancel", g.handleCancel)
	router.RegisterComponentPrefix(groupJoinPrefix, g.handleJoinButton)
	router.RegisterComponentPrefix(groupLeavePrefix, g.handleLeaveButton)
}

func (g *GroupCommands) create(s *discordgo.Session, m *discordgo.MessageCreate, size int) {
	grp, err := g.groups.Create(m.ChannelID, messageMember(m), size)
	if err != nil {
		discord.Reply(s, m, groupErrorMessage(err))
		return
	}

	send := &discordgo.MessageSend{
		Content: formatGroup(grp),
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Join",
						Style:    discordgo.SuccessButton,
						CustomID: groupJoinPrefix + m.ChannelID,
					},
					discordgo.Button{
						Label:    "Leave",
						Style:    discordgo.SecondaryButton,
						CustomID: groupLeavePrefix + m.ChannelID,
					},
				},
			},
		},
	}
	if _, err := discord.ReplyComplex(s, m, send); err != nil {
		slog.Error("commands: group message failed", "channel_id", m.ChannelID, "error", err)
	}
}

func (g *GroupCommands) handleJoinButton(s *discordgo.Session, i *discordgo.InteractionCreate) {
	channelID := strings.TrimPrefix(i.MessageComponentData().CustomID, groupJoinPrefix)
	member := interactionMember(i)

	grp, full, err := g.groups.Join(channelID, member)
	if err != nil {
		discord.RespondEphemeral(s, i, groupErrorMessage(err))
		return
	}

	content := formatGroup(grp)
	if full {
		content += "\n✅ **Squad complete!** `!teams` to split, `!roles` to assign positions."
	}
	discord.UpdateMessage(s, i, &discordgo.InteractionResponseData{
		Content:    content,
		Components: i.Message.Components,
	})
}

func (g *GroupCommands) handleLeaveButton(s *discordgo.Session, i *discordgo.InteractionCreate) {
	channelID := strings.TrimPrefix(i.MessageComponentData().CustomID, groupLeavePrefix)
	member := interactionMember(i)

	grp, disbanded, err := g.groups.Leave(channelID, member.ID)
	if err != nil {
		discord.RespondEphemeral(s, i, groupErrorMessage(err))
		return
	}

	if disbanded {
		discord.UpdateMessage(s, i, &discordgo.InteractionResponseData{
			Content:    "❌ The organizer bailed. Squad disbanded.",
			Components: []discordgo.MessageComponent{},
		})
		return
	}
	discord.UpdateMessage(s, i, &discordgo.InteractionResponseData{
		Content:    formatGroup(grp),
		Components: i.Message.Components,
	})
}

func (g *GroupCommands) handleTeams(s *discordgo.Session, m *discordgo.MessageCreate, _ []string, _ string) {
	grp := g.groups.Get(m.ChannelID)
	if grp == nil {
		discord.Reply(s, m, groupErrorMessage(games.ErrNoGroup))
		return
	}
	if len(grp.Members) < 2 {
		discord.Reply(s, m, "Need at least two people to split teams.")
		return
	}

	radiant, dire := grp.SplitTeams(g.rng)
	var sb strings.Builder
	sb.WriteString("⚔️ **Teams:**\n🟢 Radiant: ")
	sb.WriteString(memberNames(radiant))
	sb.WriteString("\n🔴 Dire: ")
	sb.WriteString(memberNames(dire))
	discord.Reply(s, m, sb.String())
}

func (g *GroupCommands) handleRoles(s *discordgo.Session, m *discordgo.MessageCreate, _ []string, _ string) {
	grp := g.groups.Get(m.ChannelID)
	if grp == nil {
		discord.Reply(s, m, groupErrorMessage(games.ErrNoGroup))
		return
	}

	var sb strings.Builder
	sb.WriteString("🎲 **Positions:**\n")
	for _, a := range grp.AssignRoles(g.rng) {
		fmt.Fprintf(&sb, "· %s — **%s**\n", a.Member.DisplayName(), a.Role)
	}
	discord.Reply(s, m, sb.String())
}

func (g *GroupCommands) handleCancel(s *discordgo.Session, m *discordgo.MessageCreate, _ []string, _ string) {
	if err := g.groups.Cancel(m.ChannelID, m.Author.ID); err != nil {
		discord.Reply(s, m, groupErrorMessage(err))
		return
	}
	discord.Reply(s, m, "❌ Squad disbanded.")
}

// interactionMember converts a component interaction's member to a game
// member.
func interactionMember(i *discordgo.InteractionCreate) games.Member {
	m := games.Member{}
	if i.Member != nil {
		m.Nick = i.Member.Nick
		if i.Member.User != nil {
			m.ID = i.Member.User.ID
			m.Username = i.Member.User.Username
		}
	}
	return m
}

// formatGroup renders the forming-squad message body.
func formatGroup(grp *games.Group) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🎮 **Looking for %d!** (%d/%d)\n", grp.Size, len(grp.Members), grp.Size)
	for _, m := range grp.Members {
		fmt.Fprintf(&sb, "· %s\n", m.DisplayName())
	}
	if open := grp.Open(); open > 0 {
		fmt.Fprintf(&sb, "%d slot(s) open.", open)
	}
	return sb.String()
}

// memberNames joins display names with commas.
func memberNames(members []games.Member) string {
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.DisplayName()
	}
	return strings.Join(names, ", ")
}

// groupErrorMessage maps a games squad error to the chat reply.
func groupErrorMessage(err error) string {
	switch {
	case errors.Is(err, games.ErrGroupActive):
		return "A squad is already forming in this channel."
	case errors.Is(err, games.ErrNoGroup):
		return "No squad is forming here. Start one with `!x5` or `!x4`."
	case errors.Is(err, games.ErrAlreadyIn):
		return "You're already in."
	case errors.Is(err, games.ErrNotInGroup):
		return "You're not in this squad."
	case errors.Is(err, games.ErrGroupFull):
		return "The squad is full."
	case errors.Is(err, games.ErrNotOrganizer):
		return "Only the organizer can do that."
	case errors.Is(err, games.ErrBadGroupSize):
		return "Squads come in sizes 4 and 5."
	default:
		return "Squad bookkeeping failed. Check the logs."
	}
}
