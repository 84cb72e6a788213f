package gateway

// Gateway operation codes for the outbound side-effect calls the build
// process delegates to the connection.
const (
	OpRequestGuildMembers = 8
	OpGuildSync           = 12
)

// Event is one decoded gateway frame: a dispatch type plus its raw data.
type Event struct {
	Type string
	Data []byte
}

// Conn is the wire connection the session sends protocol requests through.
// Framing, reconnects and authentication live behind this interface.
type Conn interface {
	Send(op int, data interface{}) error
}
