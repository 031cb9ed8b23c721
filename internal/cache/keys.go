package cache

import "strings"

// Key identifies one cached read. Keys are canonical: every mutation handler
// that changes server state must invalidate the keys of every view that
// depends on it, and views must build their keys through these constructors
// so the two sides cannot drift apart.
type Key string

// BakraUserKey is the dashboard aggregate for the bakra account.
func BakraUserKey() Key {
	return "bakraUser"
}

// CurrentUserDataKey is the logged-in member's own roster record.
func CurrentUserDataKey(memberID string) Key {
	return Key("currentUserData/" + memberID)
}

// FamilyMembersKey is the full roster of a family.
func FamilyMembersKey(familyID string) Key {
	return Key("family-members/" + familyID)
}

// IndebtedToKey is the counterparty-to-amount debt map of a member.
func IndebtedToKey(memberID string) Key {
	return Key("indebted-to/" + memberID)
}

// MemberDetailsKey is a single member's record.
func MemberDetailsKey(memberID string) Key {
	return Key("member-details/" + memberID)
}

// MultipleMemberDetailsKey is a batch of member records. The key preserves
// the requested id order, matching how the view asks for them.
func MultipleMemberDetailsKey(memberIDs []string) Key {
	return Key("multiple-member-details/" + strings.Join(memberIDs, ","))
}

// PendingRequestsKey is the pending money requests addressed to a member.
func PendingRequestsKey(memberID string) Key {
	return Key("pending-requests/" + memberID)
}

// TransactionsKey is the transaction history involving a member.
func TransactionsKey(memberID string) Key {
	return Key("transactions/" + memberID)
}
