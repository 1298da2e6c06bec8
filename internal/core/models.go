package core

// User is an administrative account. Password material is never serialized.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Salt         string `json:"-"`
	CreatedAt    int64  `json:"created_at"` // unix milliseconds
}

// Session is a bearer token minted at login. Expiry is re-checked on every
// lookup; there is no sliding window.
type Session struct {
	Token     string `json:"-"`
	UserID    int64  `json:"user_id"`
	ExpiresAt int64  `json:"expires_at"` // unix milliseconds
}

// ConnectionProfile identifies one target NimbusDB instance. It is a recipe
// for opening a connection, not a held resource.
type ConnectionProfile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	CreatedAt int64  `json:"created_at"` // unix milliseconds
}

// QueryResult is the uniform envelope for everything the target engine can
// return. Exactly one of Rows or AffectedRows is meaningful for a given
// execution: row sets leave AffectedRows nil, acknowledgements leave Rows
// empty.
type QueryResult struct {
	Columns         []string                 `json:"columns"`
	Rows            []map[string]interface{} `json:"rows"`
	DurationMs      int64                    `json:"duration_ms"`
	AffectedRows    *int64                   `json:"affected_rows,omitempty"`
	CurrentDatabase string                   `json:"current_database,omitempty"`
}

// Replication state values as the engine reports them.
const (
	ReplicationOn  = "ON"
	ReplicationOff = "OFF"
	StateRunning   = "Running"
	StateStopped   = "Stopped"
)

type ReplicationStatus struct {
	FullReplication        string `json:"full_replication"`
	IncrementalReplication string `json:"incremental_replication"`
	FullRunning            string `json:"full_running"`
	IncrementalRunning     string `json:"incremental_running"`
}

type PerformanceConfig struct {
	BinlogBatchSize int `json:"binlog_batch_size"`
	FetchBatchSize  int `json:"fetch_batch_size"`
	FlushIntervalMs int `json:"flush_interval_ms"`
}

type BinlogPosition struct {
	File      string `json:"file"`
	Position  int64  `json:"position"`
	ServerID  int64  `json:"server_id"`
	Timestamp string `json:"timestamp"`
}

type MySqlSourceConfig struct {
	Host     string `json:"mysql_host"`
	Port     int    `json:"mysql_port"`
	User     string `json:"mysql_user"`
	Password string `json:"mysql_password,omitempty"`
	ServerID int64  `json:"mysql_server_id"`
}

// AuditEntry records one gateway execution for operator review.
type AuditEntry struct {
	ID           int64  `json:"id"`
	Timestamp    int64  `json:"timestamp"` // unix milliseconds
	UserID       int64  `json:"user_id"`
	ConnectionID string `json:"connection_id"`
	Statement    string `json:"statement"`
	DurationMs   int64  `json:"duration_ms"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Context keys
type contextKey int

const (
	ContextKeyUserID contextKey = iota
)
