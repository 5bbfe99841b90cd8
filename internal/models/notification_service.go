package models

import "context"

// AdminNotifier delivers operator-facing alerts. Delivery is best effort.
type AdminNotifier interface {
	NotifyAdmins(ctx context.Context, message string)
}

// MessageSender sends a text message to a Telegram chat.
type MessageSender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// MembershipLookup queries a user's membership status in a public channel.
type MembershipLookup interface {
	GetMembershipStatus(ctx context.Context, channelUsername string, userID int64) (MembershipStatus, error)
}
