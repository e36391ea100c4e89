package permissions

import (
	"encoding/json"
	"fmt"
)

// Capability is a single grantable action within a server. The set is closed:
// role grants and channel overrides referencing unknown names are ignored at
// resolution time.
type Capability uint8

const (
	CapViewChannels Capability = iota
	CapSendMessages
	CapManageMessages
	CapAttachFiles
	CapAddReactions
	CapMentionEveryone
	CapCreateInvites
	CapManageChannels
	CapManageRoles
	CapKickMembers
	CapBanMembers
	CapManageServer

	capCount
)

var capNames = [capCount]string{
	CapViewChannels:    "view_channels",
	CapSendMessages:    "send_messages",
	CapManageMessages:  "manage_messages",
	CapAttachFiles:     "attach_files",
	CapAddReactions:    "add_reactions",
	CapMentionEveryone: "mention_everyone",
	CapCreateInvites:   "create_invites",
	CapManageChannels:  "manage_channels",
	CapManageRoles:     "manage_roles",
	CapKickMembers:     "kick_members",
	CapBanMembers:      "ban_members",
	CapManageServer:    "manage_server",
}

var capByName = func() map[string]Capability {
	m := make(map[string]Capability, capCount)
	for c, name := range capNames {
		m[name] = Capability(c)
	}
	return m
}()

// String returns the canonical wire name of the capability.
func (c Capability) String() string {
	if c >= capCount {
		return fmt.Sprintf("capability(%d)", uint8(c))
	}
	return capNames[c]
}

// CapabilityFromString maps a wire name to a Capability. The boolean reports
// whether the name is known.
func CapabilityFromString(name string) (Capability, bool) {
	c, ok := capByName[name]
	return c, ok
}

// AllCapabilities lists every known capability in declaration order.
func AllCapabilities() []Capability {
	caps := make([]Capability, capCount)
	for i := range caps {
		caps[i] = Capability(i)
	}
	return caps
}

// EffectiveSet is the resolved allow/deny decision for every capability.
// The zero value is the minimum-privilege state (everything denied).
type EffectiveSet [capCount]bool

// Has reports whether the capability is granted.
func (s EffectiveSet) Has(c Capability) bool {
	if c >= capCount {
		return false
	}
	return s[c]
}

// MarshalJSON emits a flat object containing every capability name, so
// clients never have to special-case missing keys.
func (s EffectiveSet) MarshalJSON() ([]byte, error) {
	out := make(map[string]bool, capCount)
	for c, name := range capNames {
		out[name] = s[c]
	}
	return json.Marshal(out)
}

// RoleGrants is the resolver's view of one role assigned to a member:
// its precedence position and its capability grants keyed by wire name.
// Lower position means higher precedence (position 0 is the top role).
type RoleGrants struct {
	RoleID   string
	Position int
	Grants   map[string]bool
}

// ChannelOverride adjusts one role's capabilities inside one channel.
// Capabilities listed in neither slice inherit the role-level value.
type ChannelOverride struct {
	ChannelID string
	RoleID    string
	Allow     []string
	Deny      []string
}
