package registry

import "fmt"

// BadRequestError indicates an invalid subscription option. It is raised
// during validation, before any room or channel state is touched.
type BadRequestError struct {
	Option string
	Value  string
}

func (e *BadRequestError) Error() string {
	return fmt.Sprintf("invalid %s value %q", e.Option, e.Value)
}

// NotFoundError indicates an operation targeting an unknown or permanently
// removed room.
type NotFoundError struct {
	RoomID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("room %s not found", e.RoomID)
}

// NotSubscribedError indicates an unsubscribe for a (connection, room) pair
// with no customer record.
type NotSubscribedError struct {
	ConnectionID string
	RoomID       string
}

func (e *NotSubscribedError) Error() string {
	return fmt.Sprintf("connection %s is not subscribed to room %s", e.ConnectionID, e.RoomID)
}
