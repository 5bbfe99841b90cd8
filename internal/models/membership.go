package models

// MembershipStatus is the chat membership status reported by Telegram.
type MembershipStatus string

const (
	MembershipCreator       MembershipStatus = "creator"
	MembershipAdministrator MembershipStatus = "administrator"
	MembershipMember        MembershipStatus = "member"
	MembershipRestricted    MembershipStatus = "restricted"
	MembershipLeft          MembershipStatus = "left"
	MembershipKicked        MembershipStatus = "kicked"
	MembershipError         MembershipStatus = "error"
)

// Subscribed reports whether the status counts as subscribed.
// Only creator, administrator and member do.
func (s MembershipStatus) Subscribed() bool {
	switch s {
	case MembershipCreator, MembershipAdministrator, MembershipMember:
		return true
	}
	return false
}
