package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeEffectiveNoRoles(t *testing.T) {
	set := ComputeEffective(nil, nil, false)
	for _, c := range AllCapabilities() {
		assert.False(t, set.Has(c), "capability %s should be denied", c)
	}
}

func TestComputeEffectiveUngrantedStaysDenied(t *testing.T) {
	roles := []RoleGrants{
		{RoleID: "r1", Position: 0, Grants: map[string]bool{"send_messages": true}},
		{RoleID: "r2", Position: 1, Grants: map[string]bool{"view_channels": true}},
	}
	set := ComputeEffective(roles, nil, false)
	assert.True(t, set.Has(CapSendMessages))
	assert.True(t, set.Has(CapViewChannels))
	assert.False(t, set.Has(CapBanMembers))
	assert.False(t, set.Has(CapManageRoles))
}

func TestComputeEffectiveGrantsAreUnion(t *testing.T) {
	roles := []RoleGrants{
		{RoleID: "low", Position: 5, Grants: map[string]bool{"send_messages": true, "attach_files": false}},
		{RoleID: "high", Position: 0, Grants: map[string]bool{"attach_files": true}},
	}
	set := ComputeEffective(roles, nil, false)
	assert.True(t, set.Has(CapSendMessages))
	assert.True(t, set.Has(CapAttachFiles), "a false grant must not revoke another role's grant")
}

// Lower position means higher precedence; the fold must produce the same
// result regardless of the order roles arrive in.
func TestComputeEffectivePrecedenceOrderIndependent(t *testing.T) {
	a := RoleGrants{RoleID: "top", Position: 0, Grants: map[string]bool{"manage_channels": true}}
	b := RoleGrants{RoleID: "mid", Position: 3, Grants: map[string]bool{"send_messages": true}}
	c := RoleGrants{RoleID: "bottom", Position: 9, Grants: map[string]bool{"view_channels": true}}

	forward := ComputeEffective([]RoleGrants{a, b, c}, nil, false)
	reversed := ComputeEffective([]RoleGrants{c, b, a}, nil, false)
	require.Equal(t, forward, reversed)
	assert.True(t, forward.Has(CapManageChannels))
	assert.True(t, forward.Has(CapSendMessages))
	assert.True(t, forward.Has(CapViewChannels))
}

func TestComputeEffectiveUnknownGrantNamesIgnored(t *testing.T) {
	roles := []RoleGrants{
		{RoleID: "r1", Position: 0, Grants: map[string]bool{"send_messages": true, "teleport": true}},
	}
	set := ComputeEffective(roles, nil, false)
	assert.True(t, set.Has(CapSendMessages))
	for _, c := range AllCapabilities() {
		if c == CapSendMessages {
			continue
		}
		assert.False(t, set.Has(c))
	}
}

func TestComputeEffectiveOverrideAllow(t *testing.T) {
	roles := []RoleGrants{
		{RoleID: "r1", Position: 0, Grants: map[string]bool{"view_channels": true}},
	}
	overrides := []ChannelOverride{
		{ChannelID: "c1", RoleID: "r1", Allow: []string{"send_messages"}},
	}
	set := ComputeEffective(roles, overrides, false)
	assert.True(t, set.Has(CapSendMessages))
}

func TestComputeEffectiveOverrideDeny(t *testing.T) {
	roles := []RoleGrants{
		{RoleID: "r1", Position: 0, Grants: map[string]bool{"send_messages": true}},
	}
	overrides := []ChannelOverride{
		{ChannelID: "c1", RoleID: "r1", Deny: []string{"send_messages"}},
	}
	set := ComputeEffective(roles, overrides, false)
	assert.False(t, set.Has(CapSendMessages))
}

func TestComputeEffectiveDenyWinsAcrossRoles(t *testing.T) {
	roles := []RoleGrants{
		{RoleID: "mods", Position: 1, Grants: map[string]bool{"view_channels": true}},
		{RoleID: "muted", Position: 8, Grants: map[string]bool{"view_channels": true}},
	}
	overrides := []ChannelOverride{
		{ChannelID: "c1", RoleID: "mods", Allow: []string{"send_messages"}},
		{ChannelID: "c1", RoleID: "muted", Deny: []string{"send_messages"}},
	}
	set := ComputeEffective(roles, overrides, false)
	assert.False(t, set.Has(CapSendMessages), "a deny from any role narrows access")
	assert.True(t, set.Has(CapViewChannels))
}

func TestComputeEffectiveOwnerBypass(t *testing.T) {
	overrides := []ChannelOverride{
		{ChannelID: "c1", RoleID: "r1", Deny: []string{"manage_server", "send_messages"}},
	}
	set := ComputeEffective(nil, overrides, true)
	for _, c := range AllCapabilities() {
		assert.True(t, set.Has(c), "owner must hold %s", c)
	}
}

func TestEffectiveSetMarshalContainsEveryKey(t *testing.T) {
	set := ComputeEffective([]RoleGrants{
		{RoleID: "r1", Position: 0, Grants: map[string]bool{"send_messages": true}},
	}, nil, false)

	data, err := set.MarshalJSON()
	require.NoError(t, err)
	for _, c := range AllCapabilities() {
		assert.Contains(t, string(data), `"`+c.String()+`"`)
	}
}

func TestCapabilityFromString(t *testing.T) {
	c, ok := CapabilityFromString("kick_members")
	require.True(t, ok)
	assert.Equal(t, CapKickMembers, c)

	_, ok = CapabilityFromString("fly")
	assert.False(t, ok)
}
