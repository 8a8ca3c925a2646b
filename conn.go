package bpgsql

import (
	"net"
	"strconv"
	"strings"

	"github.com/bpgsql/bpgsql/oid"
)

// Conn is a single synchronous session with a backend.  All operations
// block until the server reports ready; the caller must issue one
// logical operation at a time — there is no internal locking, and
// interleaving a query with an in-flight copy or function call corrupts
// the session.
type Conn struct {
	cfg *Config
	s   *stream

	authenticated bool
	ready         bool
	broken        bool
	closed        bool

	// session identification sent once by the backend
	processID int
	secretKey int

	// open result sequence; nil when no submission is in progress
	result *resultSet

	// payload of the last function-call response; nil means no value
	funcResult []byte

	notifyQueue []*Notification

	// lazily-built large-object function catalog, and its inverse for
	// diagnostics
	loFuncs map[string]oid.Oid
	loNames map[oid.Oid]string

	copyInBuf lineReader
}

// Connect establishes a session using a libpq-style DSN.
func Connect(dsn string) (*Conn, error) {
	cfg, err := ParseConfig(dsn, nil)
	if err != nil {
		return nil, err
	}
	return ConnectConfig(cfg)
}

// ConnectConfig establishes a session and performs the full startup
// handshake before returning.
func ConnectConfig(cfg *Config) (cn *Conn, err error) {
	network, addr := "tcp", net.JoinHostPort(cfg.Host, strconv.FormatUint(uint64(cfg.Port), 10))
	if strings.HasPrefix(cfg.Host, "/") {
		network, addr = "unix", cfg.Host
	}
	c, err := net.Dial(network, addr)
	if err != nil {
		return nil, operationalErrorf(err, "dial %s: %v", addr, err)
	}

	cn = &Conn{cfg: cfg, s: newStream(c)}
	defer func() {
		if err != nil {
			c.Close()
			cn = nil
		}
	}()
	defer cn.errRecover(&err)

	cn.log(LogLevelDebug, "connecting", map[string]interface{}{
		"host": cfg.Host, "port": cfg.Port, "database": cfg.Database, "user": cfg.User,
	})
	cn.startup()
	return cn, nil
}

// Close sends the termination byte and closes the socket.  Safe to call
// more than once.
func (cn *Conn) Close() (err error) {
	if cn.closed {
		return nil
	}
	cn.closed = true
	defer cn.errRecover(&err)
	defer func() {
		cerr := cn.s.close()
		if err == nil {
			err = cerr
		}
	}()
	if !cn.broken {
		cn.s.send([]byte{'X'})
	}
	return nil
}

// BackendPID returns the server process id received during startup.
func (cn *Conn) BackendPID() int {
	return cn.processID
}

// Execute submits a command string, which may hold several
// semicolon-separated statements, and returns one ResultBlock per
// statement.  A statement failing mid-submission is recorded on its own
// block without discarding its siblings' results; callers must check
// each block's Err.
func (cn *Conn) Execute(query string, args ...interface{}) (blocks []*ResultBlock, err error) {
	if cn.closed {
		return nil, interfaceErrorf("connection is closed")
	}
	defer cn.errRecover(&err)

	if len(args) > 0 {
		query = interpolate(query, args)
	}
	cn.log(LogLevelDebug, "executing query", map[string]interface{}{"sql": query})

	cn.result = newResultSet()
	// the submission must not outlive this call: a failed dispatch would
	// otherwise leave later server errors deferring onto a dead result
	defer func() { cn.result = nil }()
	cn.ready = false
	w := &writeBuf{}
	w.byte('Q')
	w.cstring(query)
	cn.s.send(w.buf)
	cn.waitUntilReady()

	return cn.result.finish(), nil
}

// waitUntilReady dispatches incoming messages until the ready marker is
// observed.  Every request/response exchange (startup, query, function
// call) funnels through this loop.
func (cn *Conn) waitUntilReady() {
	for !cn.ready {
		cn.dispatchOne()
	}
}

// dispatchOne reads a single tag byte and routes it to the handler for
// that tag.  An unregistered tag is a hard protocol error.
func (cn *Conn) dispatchOne() {
	t := cn.s.readByte()
	switch t {
	case 'A':
		cn.handleNotification()
	case 'B':
		cn.readRow(true)
	case 'C':
		cn.handleCompleted()
	case 'D':
		cn.readRow(false)
	case 'E':
		cn.handleError()
	case 'G':
		cn.handleCopyIn()
	case 'H':
		cn.handleCopyOut()
	case 'I':
		cn.handleEmptyQuery()
	case 'K':
		cn.handleBackendKeyData()
	case 'N':
		cn.handleNotice()
	case 'P':
		cn.handleCursorName()
	case 'R':
		cn.handleAuth()
	case 'T':
		cn.handleRowDescription()
	case 'V':
		cn.handleFunctionResult()
	case 'Z':
		cn.ready = true
	default:
		panic(interfaceErrorf("unrecognized message tag from server: %q", t))
	}
}

// mustResult returns the open result sequence, failing if row-bearing
// messages arrive outside a submission.
func (cn *Conn) mustResult() *resultSet {
	if cn.result == nil {
		panic(interfaceErrorf("result data received outside a query submission"))
	}
	return cn.result
}

func (cn *Conn) handleRowDescription() {
	n := int(cn.s.readInt16())
	cols := make([]Column, n)
	for i := range cols {
		cols[i].Name = cn.s.readCString()
		cols[i].Type = oid.Oid(cn.s.readInt32())
		cols[i].Size = cn.s.readInt16()
		cols[i].Modifier = cn.s.readInt32()
	}
	rs := cn.mustResult()
	rs.open().Columns = cols
	rs.fieldCount = n
}

func (cn *Conn) handleCursorName() {
	name := cn.s.readCString()
	cn.log(LogLevelTrace, "cursor response", map[string]interface{}{"cursor": name})
	blk := cn.mustResult().open()
	if blk.Rows == nil {
		blk.Rows = []Row{}
	}
}

func (cn *Conn) handleCompleted() {
	cn.mustResult().closeCurrent(cn.s.readCString())
}

// handleError attaches a statement failure to the current block when a
// submission is in progress, so one failed statement does not discard
// its siblings; with no submission in progress the error is raised
// immediately.
func (cn *Conn) handleError() {
	err := databaseError(cn.s.readCString())
	if cn.result == nil {
		panic(err)
	}
	cn.result.failCurrent(err)
}

func (cn *Conn) handleEmptyQuery() {
	marker := cn.s.readCString()
	cn.log(LogLevelDebug, "empty query response", map[string]interface{}{"marker": marker})
}

func (cn *Conn) handleBackendKeyData() {
	cn.processID = int(cn.s.readInt32())
	cn.secretKey = int(cn.s.readInt32())
}

func (cn *Conn) handleNotice() {
	notice := cn.s.readCString()
	if h := cn.cfg.NoticeHandler; h != nil {
		h(notice)
		return
	}
	cn.log(LogLevelInfo, "notice", map[string]interface{}{"notice": notice})
}

func (cn *Conn) handleFunctionResult() {
	cn.funcResult = nil
	for {
		switch ch := cn.s.readByte(); ch {
		case '0':
			return
		case 'G':
			n := int(cn.s.readInt32())
			cn.funcResult = cn.s.readExact(n)
		default:
			panic(interfaceErrorf("unexpected byte %q in function call response", ch))
		}
	}
}
