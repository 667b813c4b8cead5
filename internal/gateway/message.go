package gateway

import "time"

// MessageType identifies a message on the wire.
type MessageType string

const (
	// Client -> Server message types
	MessageTypeJoinGroup       MessageType = "join_group"
	MessageTypeLeaveGroup      MessageType = "leave_group"
	MessageTypeSend            MessageType = "send"
	MessageTypePing            MessageType = "ping"
	MessageTypeHeartbeat       MessageType = "heartbeat"
	MessageTypeRequestRecovery MessageType = "request_recovery"
	MessageTypeGetHealth       MessageType = "get_health"
	MessageTypeGetStats        MessageType = "get_stats"

	// Server -> Client message types
	MessageTypeConnected        MessageType = "connected"
	MessageTypeError            MessageType = "error"
	MessageTypeGroupJoined      MessageType = "group_joined"
	MessageTypeGroupLeft        MessageType = "group_left"
	MessageTypePong             MessageType = "pong"
	MessageTypeRecoveryStarted  MessageType = "recovery_started"
	MessageTypeHealth           MessageType = "health"
	MessageTypeStats            MessageType = "stats"
	MessageTypeSendAck          MessageType = "send_ack"
	MessageTypeBirthdayWish     MessageType = "birthday_wish"
	MessageTypeAttendanceStatus MessageType = "attendance_status"
	MessageTypeProductivityAck  MessageType = "productivity_ack"
)

// TargetKind selects the recipient set of a directed message.
type TargetKind string

const (
	TargetConnection TargetKind = "connection"
	TargetUser       TargetKind = "user"
	TargetBranch     TargetKind = "branch"
	TargetRole       TargetKind = "role"
	TargetBroadcast  TargetKind = "broadcast"
)

// Message is the inbound client envelope.
type Message struct {
	Type    MessageType `json:"type"`
	Group   string      `json:"group,omitempty"`
	Kind    TargetKind  `json:"kind,omitempty"`
	Target  string      `json:"target,omitempty"`
	Event   MessageType `json:"event,omitempty"`
	Message string      `json:"message,omitempty"`
	Status  string      `json:"status,omitempty"`
	AlertID int64       `json:"alertId,omitempty"`
}

// ConnectionEstablished acknowledges a successful connect to the new
// connection only.
type ConnectionEstablished struct {
	Type         MessageType `json:"type"`
	ConnectionID string      `json:"connectionId"`
	ConnectedAt  time.Time   `json:"connectedAt"`
	UserID       string      `json:"userId"`
	EmployeeID   string      `json:"employeeId"`
}

// ErrorEvent reports a validation or access failure to the originating
// connection.
type ErrorEvent struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

// GroupJoined acknowledges a successful group join.
type GroupJoined struct {
	Type      MessageType `json:"type"`
	GroupName string      `json:"groupName"`
	JoinedAt  time.Time   `json:"joinedAt"`
}

// GroupLeft acknowledges a successful group leave.
type GroupLeft struct {
	Type      MessageType `json:"type"`
	GroupName string      `json:"groupName"`
	LeftAt    time.Time   `json:"leftAt"`
}

// Pong answers a ping, independent of identity.
type Pong struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// RecoveryStarted acknowledges a recovery handshake.
type RecoveryStarted struct {
	Type              MessageType `json:"type"`
	ConnectionID      string      `json:"connectionId"`
	UserID            string      `json:"userId"`
	EmployeeID        string      `json:"employeeId"`
	RecoveryStartedAt time.Time   `json:"recoveryStartedAt"`
}

// HealthEvent reports the health of the caller's connection.
type HealthEvent struct {
	Type                MessageType `json:"type"`
	ConnectionID        string      `json:"connectionId"`
	IsHealthy           bool        `json:"isHealthy"`
	LastSeen            time.Time   `json:"lastSeen"`
	ConsecutiveFailures int         `json:"consecutiveFailures"`
	RecoveryAttempts    int         `json:"recoveryAttempts"`
	CheckedAt           time.Time   `json:"checkedAt"`
}

// StatsEvent carries aggregate connection statistics for administrators.
type StatsEvent struct {
	Type                MessageType    `json:"type"`
	TotalConnections    int            `json:"totalConnections"`
	ConnectionsByBranch map[string]int `json:"connectionsByBranch"`
	ConnectionsByRole   map[string]int `json:"connectionsByRole"`
	RetrievedAt         time.Time      `json:"retrievedAt"`
}

// SendAck confirms a directed message was accepted and dispatched.
type SendAck struct {
	Type       MessageType `json:"type"`
	Kind       TargetKind  `json:"kind"`
	Target     string      `json:"target,omitempty"`
	Recipients int         `json:"recipients"`
	SentAt     time.Time   `json:"sentAt"`
}

// BirthdayWish is delivered to the resolved recipients of a birthday
// message.
type BirthdayWish struct {
	Type       MessageType `json:"type"`
	FromUserID string      `json:"fromUserId"`
	Message    string      `json:"message"`
	SentAt     time.Time   `json:"sentAt"`
}

// AttendanceStatus is delivered when an employee's attendance state changes.
type AttendanceStatus struct {
	Type       MessageType `json:"type"`
	FromUserID string      `json:"fromUserId"`
	EmployeeID string      `json:"employeeId"`
	Status     string      `json:"status"`
	SentAt     time.Time   `json:"sentAt"`
}

// ProductivityAck is delivered when a productivity alert is acknowledged.
type ProductivityAck struct {
	Type           MessageType `json:"type"`
	FromUserID     string      `json:"fromUserId"`
	AlertID        int64       `json:"alertId"`
	AcknowledgedAt time.Time   `json:"acknowledgedAt"`
}
