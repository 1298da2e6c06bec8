package service

import (
	"context"
	"errors"
	"fmt"
	"nimbusadmin/internal/core"
	"strconv"
	"strings"
)

// CommandRunner is the slice of the gateway the translator needs.
type CommandRunner interface {
	Execute(ctx context.Context, profileID, statement, databaseHint string) (*core.QueryResult, error)
}

// SettingsTranslator maps structured configuration intents to the engine's
// SHOW NIMBUS / SET NIMBUS control commands and parses the single-row
// responses back into typed objects. The command table is closed: caller
// values are validated and re-serialized per field type, never spliced into
// command text as raw strings.
type SettingsTranslator struct {
	runner CommandRunner
}

func NewSettingsTranslator(runner CommandRunner) *SettingsTranslator {
	return &SettingsTranslator{runner: runner}
}

// Read commands.
const (
	cmdShowReplication = "SHOW NIMBUS REPLICATION"
	cmdShowPerformance = "SHOW NIMBUS PERFORMANCE"
	cmdShowBinlog      = "SHOW NIMBUS BINLOG"
	cmdShowMysqlSource = "SHOW NIMBUS MYSQL"
	cmdShowIncludedDbs = "SHOW NIMBUS INCLUDED_DBS"
	cmdShowSchemaSync  = "SHOW NIMBUS SCHEMA_SYNC"
)

// Settable keys.
const (
	keyFullReplication        = "FULL_REPLICATION"
	keyIncrementalReplication = "INCREMENTAL_REPLICATION"
	keyBinlogPosition         = "BINLOG_POSITION"
	keyIncludedDbs            = "INCLUDED_DBS"
	keySyncSchema             = "SYNC_SCHEMA"
	keyMysqlHost              = "MYSQL_HOST"
	keyMysqlPort              = "MYSQL_PORT"
	keyMysqlUser              = "MYSQL_USER"
	keyMysqlPassword          = "MYSQL_PASSWORD"
	keyMysqlServerID          = "MYSQL_SERVER_ID"
)

// performanceKeys is the closed set of tunable integer settings.
var performanceKeys = map[string]string{
	"binlog_batch_size": "BINLOG_BATCH_SIZE",
	"fetch_batch_size":  "FETCH_BATCH_SIZE",
	"flush_interval_ms": "FLUSH_INTERVAL_MS",
}

// --- Replication ---

func (t *SettingsTranslator) ReplicationStatus(ctx context.Context, profileID string) (*core.ReplicationStatus, error) {
	row, err := t.readRow(ctx, profileID, cmdShowReplication, "replication status")
	if err != nil {
		return nil, err
	}
	return &core.ReplicationStatus{
		FullReplication:        rowString(row, "full_replication"),
		IncrementalReplication: rowString(row, "incremental_replication"),
		FullRunning:            rowString(row, "full_running"),
		IncrementalRunning:     rowString(row, "incremental_running"),
	}, nil
}

func (t *SettingsTranslator) SetFullReplication(ctx context.Context, profileID string, enable bool) error {
	return t.set(ctx, profileID, keyFullReplication, onOff(enable))
}

func (t *SettingsTranslator) SetIncrementalReplication(ctx context.Context, profileID string, enable bool) error {
	return t.set(ctx, profileID, keyIncrementalReplication, onOff(enable))
}

// --- Performance ---

func (t *SettingsTranslator) PerformanceConfig(ctx context.Context, profileID string) (*core.PerformanceConfig, error) {
	row, err := t.readRow(ctx, profileID, cmdShowPerformance, "performance config")
	if err != nil {
		return nil, err
	}
	return &core.PerformanceConfig{
		BinlogBatchSize: int(rowInt(row, "binlog_batch_size")),
		FetchBatchSize:  int(rowInt(row, "fetch_batch_size")),
		FlushIntervalMs: int(rowInt(row, "flush_interval_ms")),
	}, nil
}

// SetPerformanceValue writes one tunable. The key must be one of the known
// performance settings; the value is re-serialized as an integer.
func (t *SettingsTranslator) SetPerformanceValue(ctx context.Context, profileID, key string, value int) error {
	upper, ok := performanceKeys[strings.ToLower(key)]
	if !ok {
		return core.NewValidationError("unknown performance setting: " + key)
	}
	return t.set(ctx, profileID, upper, strconv.Itoa(value))
}

// --- Binlog checkpoint ---

func (t *SettingsTranslator) BinlogPosition(ctx context.Context, profileID string) (*core.BinlogPosition, error) {
	row, err := t.readRow(ctx, profileID, cmdShowBinlog, "binlog position")
	if err != nil {
		return nil, err
	}
	return &core.BinlogPosition{
		File:      rowString(row, "file"),
		Position:  rowInt(row, "position"),
		ServerID:  rowInt(row, "server_id"),
		Timestamp: rowString(row, "timestamp"),
	}, nil
}

// SetBinlogPosition rewrites the replication checkpoint:
// SET NIMBUS BINLOG_POSITION = '<file>' <position>
func (t *SettingsTranslator) SetBinlogPosition(ctx context.Context, profileID, file string, position int64) error {
	if file == "" {
		return core.NewValidationError("binlog file is required")
	}
	if position < 0 {
		return core.NewValidationError("binlog position must not be negative")
	}
	value := fmt.Sprintf("%s %d", quoteString(file), position)
	return t.set(ctx, profileID, keyBinlogPosition, value)
}

// --- Upstream source ---

// SourceConfigUpdate is a partial update; nil fields are left untouched.
type SourceConfigUpdate struct {
	Host     *string `json:"mysql_host"`
	Port     *int    `json:"mysql_port"`
	User     *string `json:"mysql_user"`
	Password *string `json:"mysql_password"`
	ServerID *int64  `json:"mysql_server_id"`
}

func (t *SettingsTranslator) SourceConfig(ctx context.Context, profileID string) (*core.MySqlSourceConfig, error) {
	row, err := t.readRow(ctx, profileID, cmdShowMysqlSource, "mysql source config")
	if err != nil {
		return nil, err
	}
	return &core.MySqlSourceConfig{
		Host:     rowString(row, "mysql_host"),
		Port:     int(rowInt(row, "mysql_port")),
		User:     rowString(row, "mysql_user"),
		Password: rowString(row, "mysql_password"),
		ServerID: rowInt(row, "mysql_server_id"),
	}, nil
}

// UpdateSourceConfig issues one SET per present field. The sequence is not
// transactional: a failure partway through leaves earlier fields applied,
// and the error names the field that failed.
func (t *SettingsTranslator) UpdateSourceConfig(ctx context.Context, profileID string, upd SourceConfigUpdate) error {
	type fieldWrite struct {
		key   string
		value string
		skip  bool
	}
	writes := []fieldWrite{
		{key: keyMysqlHost, value: quoteDeref(upd.Host), skip: upd.Host == nil || *upd.Host == ""},
		{key: keyMysqlPort, value: intDeref(upd.Port), skip: upd.Port == nil},
		{key: keyMysqlUser, value: quoteDeref(upd.User), skip: upd.User == nil || *upd.User == ""},
		{key: keyMysqlPassword, value: quoteDeref(upd.Password), skip: upd.Password == nil || *upd.Password == ""},
		{key: keyMysqlServerID, value: int64Deref(upd.ServerID), skip: upd.ServerID == nil},
	}
	for _, w := range writes {
		if w.skip {
			continue
		}
		if err := t.set(ctx, profileID, w.key, w.value); err != nil {
			return fmt.Errorf("updating %s: %w", w.key, err)
		}
	}
	return nil
}

// --- Included databases ---

// IncludedDbs returns the inclusion filter as a comma-separated list; an
// empty string means all databases are replicated.
func (t *SettingsTranslator) IncludedDbs(ctx context.Context, profileID string) (string, error) {
	result, err := t.runner.Execute(ctx, profileID, cmdShowIncludedDbs, "")
	if err != nil {
		return "", err
	}
	if len(result.Rows) == 0 {
		return "", nil
	}
	return firstColumnString(result), nil
}

func (t *SettingsTranslator) SetIncludedDbs(ctx context.Context, profileID, csv string) error {
	return t.set(ctx, profileID, keyIncludedDbs, quoteString(csv))
}

// --- Schema sync ---

// SchemaSync reads the schema-sync toggle. Older engine versions do not
// support this topic and reject it with a parse error, so an engine-coded
// failure or an empty read soft-defaults to true. Transport failures
// (no engine error code) propagate; an unreachable engine must not read
// as "enabled".
func (t *SettingsTranslator) SchemaSync(ctx context.Context, profileID string) (bool, error) {
	result, err := t.runner.Execute(ctx, profileID, cmdShowSchemaSync, "")
	if err != nil {
		var upstream *core.UpstreamError
		if errors.As(err, &upstream) && upstream.Code != 0 {
			return true, nil
		}
		return false, err
	}
	if len(result.Rows) == 0 {
		return true, nil
	}
	switch strings.ToUpper(firstColumnString(result)) {
	case "OFF", "0", "FALSE":
		return false, nil
	}
	return true, nil
}

func (t *SettingsTranslator) SetSchemaSync(ctx context.Context, profileID string, enable bool) error {
	return t.set(ctx, profileID, keySyncSchema, onOff(enable))
}

// --- Command plumbing ---

func (t *SettingsTranslator) set(ctx context.Context, profileID, key, value string) error {
	statement := fmt.Sprintf("SET NIMBUS %s = %s", key, value)
	_, err := t.runner.Execute(ctx, profileID, statement, "")
	return err
}

// readRow runs a SHOW command and returns its single response row, failing
// with an upstream error when the engine returned nothing.
func (t *SettingsTranslator) readRow(ctx context.Context, profileID, command, topic string) (map[string]interface{}, error) {
	result, err := t.runner.Execute(ctx, profileID, command, "")
	if err != nil {
		return nil, err
	}
	if len(result.Rows) == 0 {
		return nil, &core.UpstreamError{Message: "failed to retrieve " + topic}
	}
	return result.Rows[0], nil
}

func onOff(enable bool) string {
	if enable {
		return "ON"
	}
	return "OFF"
}

// quoteString single-quotes a string value, escaping quote and backslash so
// caller text cannot break out of the literal.
func quoteString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

func quoteDeref(s *string) string {
	if s == nil {
		return "''"
	}
	return quoteString(*s)
}

func intDeref(v *int) string {
	if v == nil {
		return "0"
	}
	return strconv.Itoa(*v)
}

func int64Deref(v *int64) string {
	if v == nil {
		return "0"
	}
	return strconv.FormatInt(*v, 10)
}

// rowString reads a column as text regardless of the driver's concrete type.
func rowString(row map[string]interface{}, key string) string {
	switch v := row[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// rowInt reads a column as an integer; text-protocol responses deliver
// numbers as strings.
func rowInt(row map[string]interface{}, key string) int64 {
	switch v := row[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case []byte:
		n, _ := strconv.ParseInt(string(v), 10, 64)
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}

// firstColumnString returns the value of the result's first declared column
// in its first row.
func firstColumnString(result *core.QueryResult) string {
	row := result.Rows[0]
	if len(result.Columns) > 0 {
		return rowString(row, result.Columns[0])
	}
	for k := range row {
		return rowString(row, k)
	}
	return ""
}
