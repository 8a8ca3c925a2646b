package bpgsql

import "time"

// Notification is an asynchronous event delivered in response to a
// NOTIFY command executed by some backend.
type Notification struct {
	// Channel is the name given in the NOTIFY command.
	Channel string
	// PID is the process id of the backend that issued it.
	PID int
}

func (cn *Conn) handleNotification() {
	pid := int(cn.s.readInt32())
	channel := cn.s.readCString()
	cn.notifyQueue = append(cn.notifyQueue, &Notification{Channel: channel, PID: pid})
	cn.log(LogLevelDebug, "notification received", map[string]interface{}{"channel": channel, "from": pid})
}

// WaitForNotification returns the oldest queued notification, waiting
// up to timeout for one to arrive.  A negative timeout waits
// indefinitely; zero checks once and returns.  The bound only covers
// waiting for a message to begin: once the first byte of a message has
// arrived the entire message is read no matter how long decoding takes.
// An elapsed timeout yields an error of kind ErrorKindTimeout.
func (cn *Conn) WaitForNotification(timeout time.Duration) (n *Notification, err error) {
	if cn.closed {
		return nil, interfaceErrorf("connection is closed")
	}
	defer cn.errRecover(&err)

	for {
		if len(cn.notifyQueue) > 0 {
			n := cn.notifyQueue[0]
			cn.notifyQueue = cn.notifyQueue[1:]
			return n, nil
		}
		if !cn.s.waitReadable(timeout) {
			return nil, &Error{Kind: ErrorKindTimeout, Message: "timed out waiting for notification"}
		}
		cn.dispatchOne()
	}
}
