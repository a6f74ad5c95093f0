package activity

// ListActivityOptions provides filtering options for listing activity.
type ListActivityOptions struct {
	TopicID      *uint64
	VotingID     *uint64
	ActivityType *ActivityType
	Limit        int
	Offset       int
}
