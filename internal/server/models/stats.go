package models

// DailyStats is the read-side view of a recipient's mailbox, recomputed from
// the threads table on demand. Computing it never mutates anything.
type DailyStats struct {
	TodayAssigned      bool     `json:"today_assigned"`
	TodayReceivedCount int      `json:"today_received_count"`
	UnreadCount        int      `json:"unread_count"`
	SentCount          int      `json:"sent_count"`
	ReceivedCount      int      `json:"received_count"`
	LatestUnread       []Thread `json:"latest_unread"`
}

// BoxKind selects one of the fixed mailbox views. The set is closed: each
// kind compiles to exactly one query shape in the repository.
type BoxKind int

const (
	// BoxSent lists threads the user wrote, newest first.
	BoxSent BoxKind = iota
	// BoxReceived lists threads addressed to the user (private or picked).
	BoxReceived
	// BoxMine lists only pool-assigned (picked) threads of the user.
	BoxMine
)

func (b BoxKind) String() string {
	switch b {
	case BoxSent:
		return "sent"
	case BoxReceived:
		return "received"
	case BoxMine:
		return "mybox"
	default:
		return "unknown"
	}
}
