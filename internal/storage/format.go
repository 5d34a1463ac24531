// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"strconv"
	"strings"

	"github.com/jeranaias/rigmark/internal/util"
)

// ShortIDLength is the ID prefix shown in session listings.
const ShortIDLength = 8

// ShortID returns the display prefix of a conversation ID.
func ShortID(id string) string {
	if len(id) > ShortIDLength {
		return id[:ShortIDLength]
	}
	return id
}

// FormatSessionList formats a list of sessions for display in a table format.
// Returns a human-readable string with session ID, update time, message count, and title.
func FormatSessionList(sessions []ConversationMeta) string {
	if len(sessions) == 0 {
		return "No sessions found."
	}

	var sb strings.Builder
	sb.WriteString(util.PadRight("ID", 10) + util.PadRight("Updated", 18) + util.PadRight("Msgs", 6) + "Title\n")
	sb.WriteString(strings.Repeat("-", 74) + "\n")

	for _, s := range sessions {
		sb.WriteString(util.PadRight(ShortID(s.ID), 10))
		sb.WriteString(util.PadRight(s.UpdatedAt.Local().Format("2006-01-02 15:04"), 18))
		sb.WriteString(util.PadRight(strconv.Itoa(s.MessageCount), 6))
		sb.WriteString(util.TruncateWidth(s.Title, 40))
		sb.WriteString("\n")
	}
	return sb.String()
}
