package permissions

import "sort"

// ComputeEffective merges role grants with channel overrides into the final
// capability set for one member.
//
//  1. Everything starts denied; a member with no roles keeps the zero set.
//  2. Roles are folded lowest-precedence first (highest position number
//     first). Grants are a union: any role granting a capability sets it,
//     and no role can take away a grant made by another role.
//  3. Channel overrides are applied after role aggregation. Allows from any
//     applicable role force the capability on, but a deny from any applicable
//     role wins over every allow, so a single restrictive role narrows
//     channel access regardless of what the member's other roles permit.
//  4. Owners bypass the whole computation and receive every capability.
//
// Unknown capability names in grants or overrides are ignored. The function
// is pure and never fails.
func ComputeEffective(roles []RoleGrants, overrides []ChannelOverride, owner bool) EffectiveSet {
	var set EffectiveSet
	if owner {
		for i := range set {
			set[i] = true
		}
		return set
	}

	ordered := make([]RoleGrants, len(roles))
	copy(ordered, roles)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Position > ordered[j].Position
	})

	for _, role := range ordered {
		for name, granted := range role.Grants {
			capID, ok := CapabilityFromString(name)
			if !ok || !granted {
				continue
			}
			set[capID] = true
		}
	}

	// Aggregate overrides across the member's roles before applying them so
	// that deny beats allow even when they come from different roles.
	var allow, deny EffectiveSet
	for _, o := range overrides {
		for _, name := range o.Allow {
			if capID, ok := CapabilityFromString(name); ok {
				allow[capID] = true
			}
		}
		for _, name := range o.Deny {
			if capID, ok := CapabilityFromString(name); ok {
				deny[capID] = true
			}
		}
	}
	for c := range set {
		if allow[c] {
			set[c] = true
		}
		if deny[c] {
			set[c] = false
		}
	}

	return set
}
