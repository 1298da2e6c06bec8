package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"nimbusadmin/internal/core"
	"nimbusadmin/internal/data"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func newTestGateway(t *testing.T) (*CommandGateway, *data.ProfileRepo, *EncryptionService) {
	t.Helper()
	db, err := data.InitDB(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	crypto, err := NewEncryptionService(testKey)
	require.NoError(t, err)

	profiles := data.NewProfileRepo(db)
	return NewCommandGateway(profiles, data.NewAuditRepo(db), crypto), profiles, crypto
}

func TestExecuteValidatesInput(t *testing.T) {
	gw, _, _ := newTestGateway(t)

	var validation *core.ValidationError

	_, err := gw.Execute(context.Background(), "", "SELECT 1", "")
	require.ErrorAs(t, err, &validation)

	_, err = gw.Execute(context.Background(), "c1", "   ", "")
	require.ErrorAs(t, err, &validation)
}

func TestExecuteUnknownProfile(t *testing.T) {
	gw, _, _ := newTestGateway(t)

	_, err := gw.Execute(context.Background(), "missing", "SELECT 1", "")
	var notFound *core.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestIsQueryShaped(t *testing.T) {
	cases := map[string]bool{
		"SELECT 1":                          true,
		"  select * from t  ":               true,
		"SHOW NIMBUS REPLICATION":           true,
		"EXPLAIN SELECT 1":                  true,
		"DESC t":                            true,
		"WITH x AS (SELECT 1) SELECT * FROM x": true,
		"USE db2; SELECT 1":                 true,
		"SET NIMBUS FULL_REPLICATION = ON":  false,
		"INSERT INTO t VALUES (1)":          false,
		"USE db2":                           false,
		"SELECT 1; UPDATE t SET a=1":        false,
		"UPDATE t SET a=1; SELECT 1;":       true,
		"":                                  false,
		" ; ; ":                             false,
		// semicolons inside literals do not end a statement
		"SELECT ';' AS sep":                         true,
		"SELECT * FROM t WHERE note = 'a;b'":        true,
		`SELECT * FROM t WHERE note = "a;b"`:        true,
		"INSERT INTO t VALUES ('x;y'); SELECT 1":    true,
		"SELECT 1; INSERT INTO t VALUES ('a;b')":    false,
	}
	for statement, want := range cases {
		require.Equal(t, want, isQueryShaped(statement), "statement: %q", statement)
	}
}

func TestLastStatement(t *testing.T) {
	require.Equal(t, "SELECT 1", lastStatement("USE db2; SELECT 1"))
	require.Equal(t, "SELECT 1", lastStatement("SELECT 1;"))
	require.Equal(t, "SELECT 1", lastStatement("SELECT 1; ;  "))
	require.Equal(t, "SELECT 'x;y' AS v", lastStatement("USE db2; SELECT 'x;y' AS v"))
	require.Equal(t, "", lastStatement(""))
}

func TestSplitStatements(t *testing.T) {
	require.Equal(t, []string{"USE db2", " SELECT 1"}, splitStatements("USE db2; SELECT 1"))
	require.Equal(t, []string{"SELECT ';' AS sep"}, splitStatements("SELECT ';' AS sep"))
	require.Equal(t, []string{`SELECT ";" AS sep`}, splitStatements(`SELECT ";" AS sep`))
	require.Equal(t, []string{"SELECT `a;b` FROM t"}, splitStatements("SELECT `a;b` FROM t"))
	require.Equal(t, []string{`SELECT 'it\';s' AS v`}, splitStatements(`SELECT 'it\';s' AS v`))
	require.Equal(t, []string{"SELECT 'a;b'", " SELECT 2"}, splitStatements("SELECT 'a;b'; SELECT 2"))
	require.Equal(t, []string{""}, splitStatements(""))
}

func TestUpstreamErrKeepsEngineCode(t *testing.T) {
	err := upstreamErr(&mysql.MySQLError{Number: 1146, Message: "Table 'x.y' doesn't exist"})
	var upstream *core.UpstreamError
	require.ErrorAs(t, err, &upstream)
	require.Equal(t, uint16(1146), upstream.Code)
	require.Equal(t, "Table 'x.y' doesn't exist", upstream.Message)
	require.Contains(t, upstream.Error(), "1146")
}

func TestUpstreamErrWrapsTransportFailures(t *testing.T) {
	err := upstreamErr(errors.New("dial tcp: connection refused"))
	var upstream *core.UpstreamError
	require.ErrorAs(t, err, &upstream)
	require.Zero(t, upstream.Code)
	require.Contains(t, upstream.Message, "connection refused")
}

func TestExecuteAuditsFailures(t *testing.T) {
	gw, profiles, crypto := newTestGateway(t)

	enc, err := crypto.Encrypt("pw")
	require.NoError(t, err)
	require.NoError(t, profiles.Upsert(&core.ConnectionProfile{
		ID: "c1", Name: "unreachable", Host: "127.0.0.1", Port: 1, Username: "root", Password: enc,
	}))

	_, err = gw.Execute(context.Background(), "c1", "SELECT 1", "")
	var upstream *core.UpstreamError
	require.ErrorAs(t, err, &upstream)

	entries, err := gw.audits.GetRecent(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "ERROR", entries[0].Status)
	require.Equal(t, "c1", entries[0].ConnectionID)
	require.Equal(t, "SELECT 1", entries[0].Statement)
	require.NotEmpty(t, entries[0].ErrorMessage)
}

func TestCollectLastResultSetScansRows(t *testing.T) {
	db, err := data.InitDB(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE samples (id INTEGER, note TEXT, payload BLOB)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO samples VALUES (1, 'alpha', X'616263'), (2, NULL, NULL)`)
	require.NoError(t, err)

	rows, err := db.Query("SELECT id, note, payload FROM samples ORDER BY id")
	require.NoError(t, err)
	columns, rowMaps, err := collectLastResultSet(rows)
	rows.Close()
	require.NoError(t, err)

	require.Equal(t, []string{"id", "note", "payload"}, columns)
	require.Len(t, rowMaps, 2)
	require.Equal(t, int64(1), rowMaps[0]["id"])
	require.Equal(t, "alpha", rowMaps[0]["note"])
	// blobs come back as []byte and must be stringified
	require.Equal(t, "abc", rowMaps[0]["payload"])
	require.Nil(t, rowMaps[1]["note"])
}

func TestCollectLastResultSetEmptyRowSet(t *testing.T) {
	db, err := data.InitDB(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query("SELECT id FROM users WHERE 1 = 0")
	require.NoError(t, err)
	columns, rowMaps, err := collectLastResultSet(rows)
	rows.Close()
	require.NoError(t, err)

	require.Equal(t, []string{"id"}, columns)
	require.Empty(t, rowMaps)
}

// A stand-in engine driver: understands USE, the context probe, and a few
// canned SELECTs, returning one result set per statement the way a
// multi-statement connection does.

func init() { sql.Register("enginestub", engineStubDriver{}) }

func useEngineStub(t *testing.T) {
	t.Helper()
	prev := engineDriver
	engineDriver = "enginestub"
	t.Cleanup(func() { engineDriver = prev })
}

type engineStubDriver struct{}

func (engineStubDriver) Open(string) (driver.Conn, error) { return &engineStubConn{}, nil }

type engineStubConn struct{ db string }

func (c *engineStubConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}
func (c *engineStubConn) Close() error              { return nil }
func (c *engineStubConn) Begin() (driver.Tx, error) { return nil, errors.New("begin not supported") }

func (c *engineStubConn) ExecContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Result, error) {
	for _, stmt := range splitStatements(query) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := c.run(stmt); err != nil {
			return nil, err
		}
	}
	return driver.RowsAffected(1), nil
}

func (c *engineStubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	var sets []engineStubResultSet
	for _, stmt := range splitStatements(query) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		set, err := c.run(stmt)
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	return &engineStubRows{sets: sets}, nil
}

func (c *engineStubConn) run(stmt string) (engineStubResultSet, error) {
	s := strings.TrimSpace(stmt)
	switch lower := strings.ToLower(s); {
	case strings.HasPrefix(lower, "use "):
		c.db = strings.TrimSpace(s[4:])
		return engineStubResultSet{}, nil
	case lower == "select database()":
		return engineStubResultSet{
			cols: []string{"DATABASE()"},
			rows: [][]driver.Value{{c.db}},
		}, nil
	case lower == "select 1":
		return engineStubResultSet{
			cols: []string{"1"},
			rows: [][]driver.Value{{int64(1)}},
		}, nil
	case lower == "select 'a;b' as v":
		return engineStubResultSet{
			cols: []string{"v"},
			rows: [][]driver.Value{{[]byte("a;b")}},
		}, nil
	default:
		return engineStubResultSet{}, fmt.Errorf("unexpected statement %q", s)
	}
}

type engineStubResultSet struct {
	cols []string
	rows [][]driver.Value
}

type engineStubRows struct {
	sets []engineStubResultSet
	set  int
	row  int
}

func (r *engineStubRows) Columns() []string {
	if r.set >= len(r.sets) {
		return []string{}
	}
	return r.sets[r.set].cols
}

func (r *engineStubRows) Close() error { return nil }

func (r *engineStubRows) Next(dest []driver.Value) error {
	if r.set >= len(r.sets) || r.row >= len(r.sets[r.set].rows) {
		return io.EOF
	}
	copy(dest, r.sets[r.set].rows[r.row])
	r.row++
	return nil
}

func (r *engineStubRows) HasNextResultSet() bool { return r.set+1 < len(r.sets) }

func (r *engineStubRows) NextResultSet() error {
	if !r.HasNextResultSet() {
		return io.EOF
	}
	r.set++
	r.row = 0
	return nil
}

func stubProfile(t *testing.T, profiles *data.ProfileRepo, crypto *EncryptionService) {
	t.Helper()
	enc, err := crypto.Encrypt("pw")
	require.NoError(t, err)
	require.NoError(t, profiles.Upsert(&core.ConnectionProfile{
		ID: "c1", Name: "stub", Host: "127.0.0.1", Port: 3306, Username: "root", Password: enc,
	}))
}

func TestExecuteTracksDatabaseContext(t *testing.T) {
	useEngineStub(t)
	gw, profiles, crypto := newTestGateway(t)
	stubProfile(t, profiles, crypto)

	result, err := gw.Execute(context.Background(), "c1", "USE db2; SELECT 1", "")
	require.NoError(t, err)

	require.Equal(t, "db2", result.CurrentDatabase)
	require.Equal(t, []string{"1"}, result.Columns)
	require.Len(t, result.Rows, 1)
	require.Equal(t, int64(1), result.Rows[0]["1"])
	require.Nil(t, result.AffectedRows)
}

func TestExecuteKeepsRowsWithQuotedSemicolon(t *testing.T) {
	useEngineStub(t)
	gw, profiles, crypto := newTestGateway(t)
	stubProfile(t, profiles, crypto)

	result, err := gw.Execute(context.Background(), "c1", "SELECT 'a;b' AS v", "")
	require.NoError(t, err)

	require.Equal(t, []string{"v"}, result.Columns)
	require.Len(t, result.Rows, 1)
	require.Equal(t, "a;b", result.Rows[0]["v"])
	require.Nil(t, result.AffectedRows)
}
