package service

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"nimbusadmin/internal/core"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

const (
	// Metadata database used when the caller gives no database hint.
	defaultDatabase = "information_schema"
	// Bound on dialing a dead or firewalled target.
	connectTimeout = 5 * time.Second
)

// engineDriver is the database/sql driver name used for engine
// connections. Tests register a stand-in driver here.
var engineDriver = "mysql"

// CommandGateway executes SQL and control statements against target engines.
// It holds no long-lived engine connections; every call opens and closes its
// own transport connection.
type CommandGateway struct {
	profiles core.ProfileRepository
	audits   core.AuditRepository
	crypto   *EncryptionService
}

func NewCommandGateway(profiles core.ProfileRepository, audits core.AuditRepository, crypto *EncryptionService) *CommandGateway {
	return &CommandGateway{profiles: profiles, audits: audits, crypto: crypto}
}

// Execute resolves the profile, runs the statement verbatim over a fresh
// connection, probes the current database, and returns the normalized
// envelope. The statement may be a semicolon-joined sequence.
func (g *CommandGateway) Execute(ctx context.Context, profileID, statement, databaseHint string) (result *core.QueryResult, err error) {
	if profileID == "" || strings.TrimSpace(statement) == "" {
		return nil, core.NewValidationError("connectionId and sql are required")
	}

	profile, err := g.profiles.GetByID(profileID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, core.NewNotFoundError("connection profile not found")
	}

	password, err := g.crypto.Decrypt(profile.Password)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()

	defer func() {
		entry := &core.AuditEntry{
			Timestamp:    startTime.UnixMilli(),
			ConnectionID: profileID,
			Statement:    statement,
			DurationMs:   time.Since(startTime).Milliseconds(),
			Status:       "SUCCESS",
		}
		if uid, ok := ctx.Value(core.ContextKeyUserID).(int64); ok {
			entry.UserID = uid
		}
		if err != nil {
			entry.Status = "ERROR"
			entry.ErrorMessage = err.Error()
		}
		_ = g.audits.Create(entry)
	}()

	database := databaseHint
	if database == "" {
		database = defaultDatabase
	}

	db, err := open(profile.Host, profile.Port, profile.Username, password, database)
	if err != nil {
		return nil, upstreamErr(err)
	}
	defer db.Close()

	// Pin one connection so a USE inside the statement is visible to the
	// context probe below.
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, upstreamErr(err)
	}
	defer conn.Close()

	result = &core.QueryResult{Columns: []string{}, Rows: []map[string]interface{}{}}

	if isQueryShaped(statement) {
		rows, qerr := conn.QueryContext(ctx, statement)
		if qerr != nil {
			return nil, upstreamErr(qerr)
		}
		columns, rowMaps, qerr := collectLastResultSet(rows)
		rows.Close()
		if qerr != nil {
			return nil, upstreamErr(qerr)
		}
		result.Columns = columns
		result.Rows = rowMaps
	} else {
		res, xerr := conn.ExecContext(ctx, statement)
		if xerr != nil {
			return nil, upstreamErr(xerr)
		}
		affected, _ := res.RowsAffected()
		result.AffectedRows = &affected
	}

	// Context probe: a failure here omits the field, never fails the call.
	var current sql.NullString
	if perr := conn.QueryRowContext(ctx, "SELECT DATABASE()").Scan(&current); perr == nil && current.Valid {
		result.CurrentDatabase = current.String
	}

	result.DurationMs = time.Since(startTime).Milliseconds()
	return result, nil
}

// TestConnection is an ad hoc reachability probe (SELECT 1) that bypasses
// the profile registry, for validating credentials before saving them.
func TestConnection(ctx context.Context, host string, port int, user, password string) ([]map[string]interface{}, error) {
	db, err := open(host, port, user, password, defaultDatabase)
	if err != nil {
		return nil, upstreamErr(err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, "SELECT 1 AS val")
	if err != nil {
		return nil, upstreamErr(err)
	}
	defer rows.Close()

	_, rowMaps, err := collectLastResultSet(rows)
	if err != nil {
		return nil, upstreamErr(err)
	}
	return rowMaps, nil
}

func open(host string, port int, user, password, database string) (*sql.DB, error) {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	cfg.DBName = database
	cfg.Timeout = connectTimeout
	cfg.MultiStatements = true

	return sql.Open(engineDriver, cfg.FormatDSN())
}

// isQueryShaped classifies the final statement of a semicolon-joined
// sequence: row-set producers go through the query path, everything else is
// treated as a mutation acknowledgement.
func isQueryShaped(statement string) bool {
	last := lastStatement(statement)
	fields := strings.Fields(strings.ToLower(last))
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "select", "show", "describe", "desc", "explain", "with":
		return true
	}
	return false
}

func lastStatement(statement string) string {
	parts := splitStatements(statement)
	for i := len(parts) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(parts[i]); s != "" {
			return s
		}
	}
	return ""
}

// splitStatements splits on semicolons outside quoted spans. Semicolons
// inside '...', "..." and `...` literals, including backslash-escaped
// quotes, do not terminate a statement.
func splitStatements(statement string) []string {
	var parts []string
	var quote byte
	start := 0
	for i := 0; i < len(statement); i++ {
		c := statement[i]
		switch {
		case quote != 0:
			if c == '\\' && quote != '`' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == ';':
			parts = append(parts, statement[start:i])
			start = i + 1
		}
	}
	return append(parts, statement[start:])
}

// collectLastResultSet walks every result set the driver returns (USE and
// friends yield empty ones under multi-statement execution) and keeps the
// last one that declared columns.
func collectLastResultSet(rows *sql.Rows) ([]string, []map[string]interface{}, error) {
	columns := []string{}
	rowMaps := []map[string]interface{}{}

	for {
		cols, err := rows.Columns()
		if err != nil {
			return nil, nil, err
		}

		if len(cols) > 0 {
			scanned, err := scanRows(rows, cols)
			if err != nil {
				return nil, nil, err
			}
			columns = cols
			rowMaps = scanned
		}

		if !rows.NextResultSet() {
			break
		}
	}

	return columns, rowMaps, rows.Err()
}

func scanRows(rows *sql.Rows, columns []string) ([]map[string]interface{}, error) {
	result := []map[string]interface{}{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range columns {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		rowMap := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			// The text protocol hands most values back as []byte.
			if b, ok := values[i].([]byte); ok {
				rowMap[col] = string(b)
			} else {
				rowMap[col] = values[i]
			}
		}
		result = append(result, rowMap)
	}
	return result, rows.Err()
}

// upstreamErr preserves the engine's native error number and message.
func upstreamErr(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return &core.UpstreamError{Code: myErr.Number, Message: myErr.Message}
	}
	return &core.UpstreamError{Message: err.Error()}
}
