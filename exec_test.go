package bpgsql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpgsql/bpgsql/oid"
)

func TestExecuteSingleStatement(t *testing.T) {
	cn, be := newTestConn(t, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.Equal(t, "SELECT oid, typname FROM pg_type", be.readQuery())
		be.write(concat(
			msgCursorName("blank"),
			msgRowDescription(
				Column{Name: "oid", Type: oid.T_oid, Size: 4, Modifier: -1},
				Column{Name: "typname", Type: oid.T_name, Size: 64, Modifier: -1},
			),
			msgTextRow([]byte("16"), []byte("bool")),
			msgTextRow([]byte("25"), []byte("text")),
			msgComplete("SELECT"),
			msgReady(),
		))
	}()

	blocks, err := cn.Execute("SELECT oid, typname FROM pg_type")
	<-done
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	blk := blocks[0]
	require.NoError(t, blk.Err)
	assert.Equal(t, "SELECT", blk.Completed)
	require.Len(t, blk.Columns, 2)
	assert.Equal(t, "oid", blk.Columns[0].Name)
	assert.Equal(t, oid.T_name, blk.Columns[1].Type)
	require.Len(t, blk.Rows, 2)
	assert.Equal(t, Row{Field("16"), Field("bool")}, blk.Rows[0])
	assert.Equal(t, Row{Field("25"), Field("text")}, blk.Rows[1])
}

func TestExecuteMultiStatement(t *testing.T) {
	cn, be := newTestConn(t, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		be.readQuery()
		be.write(concat(
			msgCursorName("blank"),
			msgRowDescription(Column{Name: "?column?", Type: oid.T_int4, Size: 4, Modifier: -1}),
			msgTextRow([]byte("1")),
			msgComplete("SELECT"),
			msgError(`ERROR:  syntax error at or near "BOGUS"`),
			msgCursorName("blank"),
			msgRowDescription(Column{Name: "?column?", Type: oid.T_int4, Size: 4, Modifier: -1}),
			msgTextRow([]byte("2")),
			msgComplete("SELECT"),
			msgReady(),
		))
	}()

	blocks, err := cn.Execute("SELECT 1; BOGUS; SELECT 2")
	<-done
	require.NoError(t, err)
	require.Len(t, blocks, 3)

	require.NoError(t, blocks[0].Err)
	assert.Equal(t, Row{Field("1")}, blocks[0].Rows[0])

	require.Error(t, blocks[1].Err)
	kind, ok := KindOf(blocks[1].Err)
	require.True(t, ok)
	assert.Equal(t, ErrorKindDatabase, kind)
	assert.Nil(t, blocks[1].Rows)

	require.NoError(t, blocks[2].Err)
	assert.Equal(t, Row{Field("2")}, blocks[2].Rows[0])
}

func TestExecuteEmptyQuery(t *testing.T) {
	cn, be := newTestConn(t, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		be.readQuery()
		be.write(concat(msgEmptyQuery(), msgReady()))
	}()

	blocks, err := cn.Execute("")
	<-done
	require.NoError(t, err)
	assert.Len(t, blocks, 0)
}

func TestExecuteInterpolatesArgs(t *testing.T) {
	cn, be := newTestConn(t, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.Equal(t, "SELECT * FROM t WHERE a = 'x''y' AND b = 7", be.readQuery())
		be.write(concat(msgComplete("SELECT"), msgReady()))
	}()

	_, err := cn.Execute("SELECT * FROM t WHERE a = $1 AND b = $2", "x'y", 7)
	<-done
	require.NoError(t, err)
}

func TestExecuteNoticeHandler(t *testing.T) {
	var notices []string
	cfg := &Config{NoticeHandler: func(n string) { notices = append(notices, n) }}
	cn, be := newTestConn(t, cfg)

	done := make(chan struct{})
	go func() {
		defer close(done)
		be.readQuery()
		be.write(concat(
			msgNotice("NOTICE:  nothing to vacuum"),
			msgComplete("VACUUM"),
			msgReady(),
		))
	}()

	blocks, err := cn.Execute("VACUUM")
	<-done
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, []string{"NOTICE:  nothing to vacuum"}, notices)
}

func TestExecuteOnClosedConn(t *testing.T) {
	cn, _ := newTestConn(t, nil)
	cn.closed = true

	_, err := cn.Execute("SELECT 1")
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, ErrorKindInterface, kind)
}

func TestErrorOutsideSubmissionIsRaised(t *testing.T) {
	cn, be := newTestConn(t, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		be.write(msgError("FATAL:  terminating connection"))
	}()

	// an error arriving while idle has no block to land in
	_, err := cn.WaitForNotification(-1)
	<-done
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, ErrorKindDatabase, kind)
}

func TestFailedExecuteClosesSubmission(t *testing.T) {
	cn, be := newTestConn(t, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		be.readQuery()
		be.write([]byte{'q'}) // not a known tag
	}()

	_, err := cn.Execute("SELECT 1")
	<-done
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, ErrorKindInterface, kind)

	// the aborted submission is gone: a server error arriving while
	// idle is raised immediately, not deferred onto it
	done2 := make(chan struct{})
	go func() {
		defer close(done2)
		be.write(msgError("FATAL:  terminating connection"))
	}()
	_, err = cn.WaitForNotification(-1)
	<-done2
	require.Error(t, err)
	kind, ok = KindOf(err)
	require.True(t, ok)
	assert.Equal(t, ErrorKindDatabase, kind)
}

func TestBackendKeyData(t *testing.T) {
	cn, be := newTestConn(t, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		be.readQuery()
		be.write(concat(msgKeyData(777, 12345), msgComplete("SET"), msgReady()))
	}()

	_, err := cn.Execute("SET search_path TO public")
	<-done
	require.NoError(t, err)
	assert.Equal(t, 777, cn.BackendPID())
}

func TestCloseIsIdempotent(t *testing.T) {
	cn, be := newTestConn(t, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		be.expectByte('X')
	}()

	require.NoError(t, cn.Close())
	<-done
	require.NoError(t, cn.Close())
	_, err := cn.Execute("SELECT 1")
	require.Error(t, err)
}
