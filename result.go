package bpgsql

import "github.com/bpgsql/bpgsql/oid"

// Column describes one field of a result set.
type Column struct {
	Name     string
	Type     oid.Oid
	Size     int16
	Modifier int32
}

// Field holds one decoded cell.  A nil Field is SQL NULL; an empty
// non-nil Field is a zero-length value.
type Field []byte

// Row is one decoded row.
type Row []Field

// ResultBlock is the decoded outcome of one statement within a
// (possibly multi-statement) submission.
type ResultBlock struct {
	Columns []Column
	Rows    []Row

	// Completed is the server's command-completion tag, e.g. "SELECT".
	Completed string

	// Err holds a statement failure that arrived after the submission
	// had begun.  Sibling blocks are unaffected; callers must inspect
	// each block.
	Err error
}

func (b *ResultBlock) empty() bool {
	return b.Columns == nil && len(b.Rows) == 0 && b.Completed == "" && b.Err == nil
}

// resultSet is the in-flight accumulation state of one submission.  The
// trailing block is always the open one; completing or failing a
// statement appends a fresh empty block.
type resultSet struct {
	blocks []*ResultBlock

	// field count of the most recent row description, used to decode
	// subsequent data rows
	fieldCount int
}

func newResultSet() *resultSet {
	return &resultSet{blocks: []*ResultBlock{{}}}
}

func (rs *resultSet) last() *ResultBlock {
	return rs.blocks[len(rs.blocks)-1]
}

// open returns the block new row data should land in: the trailing
// block if it has not accumulated anything yet, otherwise a freshly
// appended one.
func (rs *resultSet) open() *ResultBlock {
	if b := rs.last(); b.empty() {
		return b
	}
	b := &ResultBlock{}
	rs.blocks = append(rs.blocks, b)
	return b
}

func (rs *resultSet) closeCurrent(tag string) {
	rs.last().Completed = tag
	rs.blocks = append(rs.blocks, &ResultBlock{})
}

func (rs *resultSet) failCurrent(err error) {
	rs.last().Err = err
	rs.blocks = append(rs.blocks, &ResultBlock{})
}

// finish discards the trailing empty block and returns the completed
// blocks in submission order.
func (rs *resultSet) finish() []*ResultBlock {
	if n := len(rs.blocks); n > 0 && rs.blocks[n-1].empty() {
		return rs.blocks[:n-1]
	}
	return rs.blocks
}

// readRow decodes one data row into the open block.  The row starts
// with a ceil(N/8)-byte presence bitmap, most significant bit first,
// whose leading bit corresponds to the first field; a set bit is
// followed (in field order) by an int32-prefixed payload.  Text rows
// count the prefix itself in the length, binary rows do not.
func (cn *Conn) readRow(binaryFormat bool) {
	rs := cn.mustResult()
	n := rs.fieldCount

	var bitmap []byte
	if byteCount := (n + 7) / 8; byteCount > 0 {
		bitmap = cn.s.readExact(byteCount)
	}

	row := make(Row, n)
	for i := 0; i < n; i++ {
		if bitmap[i/8]&(0x80>>uint(i%8)) == 0 {
			continue // null, nothing on the wire
		}
		size := int(cn.s.readInt32())
		if !binaryFormat {
			size -= 4
		}
		if size < 0 {
			panic(interfaceErrorf("corrupt data row: field %d has negative length %d", i, size))
		}
		row[i] = Field(cn.s.readExact(size))
	}
	blk := rs.last()
	blk.Rows = append(blk.Rows, row)
}
