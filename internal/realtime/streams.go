package realtime

// Named realtime streams.
const (
	// StreamNotifications carries in-app notifications for the connected profile.
	StreamNotifications = "notifications"
	// StreamProjects carries project status changes and new thread messages
	// for projects the profile participates in.
	StreamProjects = "projects"
	// StreamAdmin carries operator events such as new freelancer applications.
	StreamAdmin = "admin"
)

// StreamsForRole returns the streams a profile with the given role may join.
func StreamsForRole(role string) map[string]struct{} {
	allowed := map[string]struct{}{
		StreamNotifications: {},
		StreamProjects:      {},
	}
	if role == "admin" {
		allowed[StreamAdmin] = struct{}{}
	}
	return allowed
}
