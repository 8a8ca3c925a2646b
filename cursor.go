package bpgsql

import (
	"strconv"
	"strings"
)

// Scroll modes accepted by Cursor.Scroll.
const (
	ScrollRelative = "relative"
	ScrollAbsolute = "absolute"
)

// Cursor provides buffered, scrollable access to the first result set
// of its most recent Execute.  A cursor that has not executed anything
// reports sentinel values (nil description, rowcount -1, rownumber -1)
// and refuses to fetch; a closed cursor behaves the same way.
type Cursor struct {
	// Arraysize is the default row count for FetchMany.
	Arraysize int

	cn        *Conn
	block     *ResultBlock
	rownumber int
}

// Cursor returns a new cursor on the connection.
func (cn *Conn) Cursor() *Cursor {
	return &Cursor{Arraysize: 1, cn: cn, rownumber: -1}
}

// Execute substitutes args into $1..$n placeholders, submits the
// command, and binds the cursor to the first returned block.
func (c *Cursor) Execute(query string, args ...interface{}) (err error) {
	if c.cn == nil {
		return interfaceErrorf("cursor is closed")
	}
	blocks, err := c.cn.Execute(query, args...)
	if err != nil {
		return err
	}
	c.block = nil
	c.rownumber = -1
	if len(blocks) == 0 {
		return nil
	}
	c.block = blocks[0]
	if c.block.Err != nil {
		err := c.block.Err
		c.block = nil
		return err
	}
	if c.block.Rows != nil {
		c.rownumber = 0
	}
	return nil
}

// Description returns the column descriptors of the bound result set,
// or nil before any execution.
func (c *Cursor) Description() []Column {
	if c.block == nil {
		return nil
	}
	return c.block.Columns
}

// RowCount returns the number of buffered rows, or -1 before any
// execution.
func (c *Cursor) RowCount() int {
	if c.block == nil || c.block.Rows == nil {
		return -1
	}
	return len(c.block.Rows)
}

// RowNumber returns the current position in the result set, or -1 when
// no result set exists.
func (c *Cursor) RowNumber() int {
	return c.rownumber
}

// Connection returns the owning connection, or nil once the cursor is
// closed.
func (c *Cursor) Connection() *Conn {
	return c.cn
}

// Close detaches the cursor from its connection.  The cursor afterwards
// acts like one that never executed anything.
func (c *Cursor) Close() {
	c.cn = nil
	c.block = nil
	c.rownumber = -1
}

// Scroll moves the cursor position.  ScrollRelative adds value to the
// current position, ScrollAbsolute jumps to it.  A target outside
// [0, rowcount) — rowcount itself included — is rejected with a bounds
// error and the position is left unchanged.
func (c *Cursor) Scroll(value int, mode string) error {
	if err := c.requireResult(); err != nil {
		return err
	}
	var target int
	switch mode {
	case ScrollRelative:
		target = c.rownumber + value
	case ScrollAbsolute:
		target = value
	default:
		return interfaceErrorf("unknown scroll mode %q", mode)
	}
	if target < 0 || target >= len(c.block.Rows) {
		return interfaceErrorf("scroll target %d out of range [0, %d)", target, len(c.block.Rows))
	}
	c.rownumber = target
	return nil
}

// FetchOne returns the row at the current position and advances, or nil
// when the position has run past the end.
func (c *Cursor) FetchOne() (Row, error) {
	rows, err := c.fetch(1)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// Next is an iteration-style alias for FetchOne.
func (c *Cursor) Next() (Row, error) {
	return c.FetchOne()
}

// FetchMany returns up to n rows starting at the current position; n <=
// 0 means Arraysize.  Running past the end yields an empty result, not
// an error.
func (c *Cursor) FetchMany(n int) ([]Row, error) {
	if n <= 0 {
		n = c.Arraysize
	}
	return c.fetch(n)
}

// FetchAll returns all remaining rows.
func (c *Cursor) FetchAll() ([]Row, error) {
	return c.fetch(-1)
}

func (c *Cursor) fetch(n int) ([]Row, error) {
	if err := c.requireResult(); err != nil {
		return nil, err
	}
	rows := c.block.Rows
	if c.rownumber >= len(rows) {
		return nil, nil
	}
	end := len(rows)
	if n >= 0 && c.rownumber+n < end {
		end = c.rownumber + n
	}
	out := rows[c.rownumber:end]
	c.rownumber = end
	return out, nil
}

func (c *Cursor) requireResult() error {
	if c.cn == nil || c.block == nil || c.block.Rows == nil {
		return interfaceErrorf("no result set to operate on")
	}
	return nil
}

// interpolate substitutes args into $1..$n placeholders.  Strings are
// quoted with embedded quote and backslash characters doubled, nil
// becomes the NULL literal, and numeric values stay bare.  The query is
// scanned once, left to right, and substituted values are never
// rescanned: a value containing placeholder text stays literal instead
// of picking up another argument's substitution.  A $n with no matching
// argument is left as-is.
func interpolate(query string, args []interface{}) string {
	var sb strings.Builder
	for i := 0; i < len(query); {
		if query[i] != '$' {
			sb.WriteByte(query[i])
			i++
			continue
		}
		j := i + 1
		for j < len(query) && query[j] >= '0' && query[j] <= '9' {
			j++
		}
		if j == i+1 {
			// bare '$' with no digits
			sb.WriteByte('$')
			i = j
			continue
		}
		n, err := strconv.Atoi(query[i+1 : j])
		if err != nil || n < 1 || n > len(args) {
			sb.WriteString(query[i:j])
		} else {
			sb.WriteString(literal(args[n-1]))
		}
		i = j
	}
	return sb.String()
}

func literal(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return quoteLiteral(x)
	case []byte:
		return quoteLiteral(string(x))
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case int:
		return strconv.Itoa(x)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		panic(interfaceErrorf("unsupported parameter type %T", v))
	}
}

func quoteLiteral(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `''`)
	return "'" + s + "'"
}
