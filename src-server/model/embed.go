package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// ToDiscordEmbed renders the event for a reminder message.
func (e EventItem) ToDiscordEmbed() *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Memo,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Start",
				Value:  fmt.Sprintf("<t:%d:f>", e.StartDate.Unix()),
				Inline: true,
			},
			{
				Name:   "End",
				Value:  fmt.Sprintf("<t:%d:t>", e.EndDate.Unix()),
				Inline: true,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: e.ID,
		},
	}
	if e.Location != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Location",
			Value: e.Location,
		})
	}
	if c := e.Category; c != nil {
		name := c.Name
		if icon, ok := DefaultCatalog().Icon(c.Icon); ok && name == "" {
			name = icon.Name
		}
		if name != "" {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name:   "Category",
				Value:  name,
				Inline: true,
			})
		}
		if color, err := strconv.ParseInt(strings.TrimPrefix(c.Color, "#"), 16, 32); err == nil {
			embed.Color = int(color)
		}
	}
	return embed
}
