package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/stride-hr/presence-gateway/internal/audit"
	"github.com/stride-hr/presence-gateway/internal/groups"
	"github.com/stride-hr/presence-gateway/internal/health"
	"github.com/stride-hr/presence-gateway/internal/metrics"
	"github.com/stride-hr/presence-gateway/internal/model"
	"github.com/stride-hr/presence-gateway/internal/registry"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking in production
		return true
	},
}

// Options configures a Gateway.
type Options struct {
	// MaxMessageChars caps free-text payload length.
	MaxMessageChars int
	// SendBufferSize is the per-client outbound buffer.
	SendBufferSize int
	// SuperAdminRole may join any group.
	SuperAdminRole string
	// AdminRoles may query connection statistics.
	AdminRoles []string
}

// Gateway is the externally facing entry point of the presence subsystem.
// It accepts connection lifecycle events and client messages, coordinates
// the registry, group policy and health tracker, and pushes outbound events.
type Gateway struct {
	opts     Options
	registry *registry.Registry
	policy   groups.Policy
	tracker  *health.Tracker
	auditor  *audit.Store
	metrics  *metrics.Metrics
	logger   *slog.Logger

	adminRoles map[string]struct{}

	mu      sync.RWMutex
	clients map[string]*Client
}

// New creates a Gateway. The tracker's expire callback should be wired to
// the returned gateway's Expire method by the caller. The audit store and
// metrics may be nil (disabled).
func New(opts Options, reg *registry.Registry, tracker *health.Tracker, auditor *audit.Store, m *metrics.Metrics, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxMessageChars <= 0 {
		opts.MaxMessageChars = 500
	}
	if opts.SuperAdminRole == "" {
		opts.SuperAdminRole = "SuperAdmin"
	}
	admins := make(map[string]struct{}, len(opts.AdminRoles))
	for _, role := range opts.AdminRoles {
		admins[role] = struct{}{}
	}

	return &Gateway{
		opts:       opts,
		registry:   reg,
		policy:     groups.Policy{SuperAdminRole: opts.SuperAdminRole},
		tracker:    tracker,
		auditor:    auditor,
		metrics:    m,
		logger:     logger,
		adminRoles: admins,
		clients:    make(map[string]*Client),
	}
}

// Registry returns the connection registry.
func (g *Gateway) Registry() *registry.Registry {
	return g.registry
}

// HandleConnection upgrades the HTTP request and runs the connection until
// the peer goes away. Identity must already be extracted by the caller.
func (g *Gateway) HandleConnection(w http.ResponseWriter, r *http.Request, identity model.Identity) error {
	if err := identity.Validate(); err != nil {
		if g.metrics != nil {
			g.metrics.RejectedConnections.Inc()
		}
		http.Error(w, "userId and employeeId are required", http.StatusUnauthorized)
		return err
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client, err := g.Connect(conn, identity, r.UserAgent(), r.RemoteAddr)
	if err != nil {
		conn.Close()
		return err
	}

	go g.writePump(client)
	go g.readPump(client)

	return nil
}

// Connect validates the identity, registers the connection, starts health
// tracking, joins default groups and acknowledges the new connection. On
// validation failure nothing is registered and no health record exists.
func (g *Gateway) Connect(conn *websocket.Conn, identity model.Identity, userAgent, ipAddress string) (*Client, error) {
	if err := identity.Validate(); err != nil {
		if g.metrics != nil {
			g.metrics.RejectedConnections.Inc()
		}
		g.logger.Warn("connection rejected", "reason", err, "user_agent", userAgent, "ip", ipAddress)
		return nil, err
	}

	record := &model.Connection{
		ID:          uuid.NewString(),
		Identity:    identity,
		ConnectedAt: time.Now(),
		UserAgent:   userAgent,
		IPAddress:   ipAddress,
	}

	if err := g.registry.Register(record); err != nil {
		return nil, fmt.Errorf("register connection: %w", err)
	}

	client := NewClient(conn, record.ID, identity, g.opts.SendBufferSize)

	g.mu.Lock()
	g.clients[record.ID] = client
	g.mu.Unlock()

	g.tracker.Track(record.ID)

	// Default-group joining is best effort: a failed join is logged and the
	// remaining joins still proceed.
	for _, group := range groups.ComputeDefaultGroups(identity) {
		if err := g.registry.JoinGroup(record.ID, group); err != nil {
			g.logger.Warn("default group join failed",
				"connection_id", record.ID, "group", group, "error", err)
			continue
		}
		g.logger.Debug("joined default group", "connection_id", record.ID, "group", group)
	}

	if g.metrics != nil {
		g.metrics.Connects.Inc()
		g.metrics.ActiveConnections.Inc()
	}
	g.logger.Info("connection established",
		"connection_id", record.ID, "user_id", identity.UserID, "employee_id", identity.EmployeeID)

	g.sendEvent(client, ConnectionEstablished{
		Type:         MessageTypeConnected,
		ConnectionID: record.ID,
		ConnectedAt:  record.ConnectedAt,
		UserID:       identity.UserID,
		EmployeeID:   identity.EmployeeID,
	})

	return client, nil
}

// Disconnect removes the connection and its health record. A connection
// already removed by expiry is tolerated with a warning.
func (g *Gateway) Disconnect(client *Client, cause error) {
	removed, err := g.registry.Remove(client.ID())
	if errors.Is(err, model.ErrConnectionNotFound) {
		g.logger.Warn("disconnect for already removed connection", "connection_id", client.ID())
	} else if removed != nil {
		g.logger.Info("connection closed",
			"connection_id", client.ID(), "user_id", removed.Identity.UserID,
			"duration", removed.Duration(), "cause", causeLabel(cause))
		if g.metrics != nil {
			g.metrics.ActiveConnections.Dec()
			g.metrics.Disconnects.WithLabelValues(causeLabel(cause)).Inc()
		}
	}

	g.tracker.Forget(client.ID())

	g.mu.Lock()
	delete(g.clients, client.ID())
	g.mu.Unlock()

	client.Close()
}

// Expire force-removes a connection that exceeded the unresponsive
// threshold, as if the client disconnected abnormally. It is the tracker's
// expire callback and is idempotent: the registry removal is the
// exactly-once guard.
func (g *Gateway) Expire(connectionID string) {
	removed, err := g.registry.Remove(connectionID)
	if err != nil {
		// Already gone; another path cleaned up first.
		return
	}

	g.tracker.Forget(connectionID)

	g.mu.Lock()
	client := g.clients[connectionID]
	delete(g.clients, connectionID)
	g.mu.Unlock()

	if client != nil {
		client.Close()
		if conn := client.Conn(); conn != nil {
			conn.Close()
		}
	}

	if g.metrics != nil {
		g.metrics.ActiveConnections.Dec()
		g.metrics.Disconnects.WithLabelValues("expired").Inc()
	}
	g.logger.Info("connection expired",
		"connection_id", connectionID, "user_id", removed.Identity.UserID,
		"duration", removed.Duration())
	g.recordAudit(audit.KindExpired, connectionID, removed.Identity.UserID,
		"removed by heartbeat sweep")
}

// Client returns the live client for a connection id, or nil.
func (g *Gateway) Client(connectionID string) *Client {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.clients[connectionID]
}

// HandleMessage dispatches one inbound client message.
func (g *Gateway) HandleMessage(client *Client, msg *Message) {
	switch msg.Type {
	case MessageTypeJoinGroup:
		g.handleJoinGroup(client, msg)
	case MessageTypeLeaveGroup:
		g.handleLeaveGroup(client, msg)
	case MessageTypeSend:
		g.handleSend(client, msg)
	case MessageTypePing:
		g.sendEvent(client, Pong{Type: MessageTypePong, Timestamp: time.Now()})
	case MessageTypeHeartbeat:
		g.handleHeartbeat(client)
	case MessageTypeRequestRecovery:
		g.handleRequestRecovery(client)
	case MessageTypeGetHealth:
		g.handleGetHealth(client)
	case MessageTypeGetStats:
		g.handleGetStats(client)
	default:
		g.sendError(client, fmt.Sprintf("unknown message type %q", msg.Type))
	}
}

func (g *Gateway) handleJoinGroup(client *Client, msg *Message) {
	group := strings.TrimSpace(msg.Group)
	if group == "" {
		g.sendError(client, model.ErrEmptyGroupName.Error())
		return
	}

	if err := g.policy.ValidateJoin(client.Identity(), group); err != nil {
		g.denyJoin(client, group)
		return
	}

	if err := g.registry.JoinGroup(client.ID(), group); err != nil {
		// Connection vanished between read and join; benign.
		g.logger.Warn("join for removed connection", "connection_id", client.ID(), "group", group)
		return
	}

	g.sendEvent(client, GroupJoined{
		Type:      MessageTypeGroupJoined,
		GroupName: group,
		JoinedAt:  time.Now(),
	})
}

func (g *Gateway) handleLeaveGroup(client *Client, msg *Message) {
	group := strings.TrimSpace(msg.Group)
	if group == "" {
		g.sendError(client, model.ErrEmptyGroupName.Error())
		return
	}

	if err := g.registry.LeaveGroup(client.ID(), group); err != nil {
		g.logger.Warn("leave for removed connection", "connection_id", client.ID(), "group", group)
		return
	}

	g.sendEvent(client, GroupLeft{
		Type:      MessageTypeGroupLeft,
		GroupName: group,
		LeftAt:    time.Now(),
	})
}

// denyJoin surfaces an explicit error to the requester and records the
// denial with the full caller identity.
func (g *Gateway) denyJoin(client *Client, group string) {
	id := client.Identity()
	g.logger.Warn("group join denied",
		"connection_id", client.ID(), "group", group,
		"user_id", id.UserID, "employee_id", id.EmployeeID,
		"branch_id", id.BranchID, "roles", id.Roles)
	if g.metrics != nil {
		g.metrics.Denials.WithLabelValues("join_group").Inc()
	}
	g.recordAudit(audit.KindJoinDenied, client.ID(), id.UserID, "group="+group)
	g.sendError(client, "not allowed to join group "+group)
}

func (g *Gateway) handleSend(client *Client, msg *Message) {
	event, err := g.buildDomainEvent(client, msg)
	if err != nil {
		g.sendError(client, err.Error())
		return
	}

	ids, err := g.resolveTargets(msg.Kind, msg.Target)
	if err != nil {
		g.sendError(client, err.Error())
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		g.sendError(client, "failed to encode message")
		return
	}

	delivered := 0
	for _, c := range g.clientsFor(ids) {
		c.Send(data)
		delivered++
		if g.metrics != nil {
			g.metrics.Deliveries.WithLabelValues(string(msg.Event)).Inc()
		}
	}

	g.sendEvent(client, SendAck{
		Type:       MessageTypeSendAck,
		Kind:       msg.Kind,
		Target:     msg.Target,
		Recipients: delivered,
		SentAt:     time.Now(),
	})
}

// buildDomainEvent validates the payload variant and produces the outbound
// event. Validation failures abandon the operation with no deliveries.
func (g *Gateway) buildDomainEvent(client *Client, msg *Message) (any, error) {
	now := time.Now()
	id := client.Identity()

	switch msg.Event {
	case MessageTypeBirthdayWish:
		text := strings.TrimSpace(msg.Message)
		if text == "" {
			return nil, model.ErrEmptyMessage
		}
		if len([]rune(msg.Message)) > g.opts.MaxMessageChars {
			return nil, model.ErrMessageTooLong
		}
		return BirthdayWish{
			Type:       MessageTypeBirthdayWish,
			FromUserID: id.UserID,
			Message:    msg.Message,
			SentAt:     now,
		}, nil
	case MessageTypeAttendanceStatus:
		if strings.TrimSpace(msg.Status) == "" {
			return nil, fmt.Errorf("attendance status is required")
		}
		return AttendanceStatus{
			Type:       MessageTypeAttendanceStatus,
			FromUserID: id.UserID,
			EmployeeID: id.EmployeeID,
			Status:     msg.Status,
			SentAt:     now,
		}, nil
	case MessageTypeProductivityAck:
		if msg.AlertID <= 0 {
			return nil, model.ErrInvalidAlertID
		}
		return ProductivityAck{
			Type:           MessageTypeProductivityAck,
			FromUserID:     id.UserID,
			AlertID:        msg.AlertID,
			AcknowledgedAt: now,
		}, nil
	default:
		return nil, fmt.Errorf("unknown event %q", msg.Event)
	}
}

// resolveTargets maps a target kind to the recipient connection ids. The
// membership snapshot is taken under the registry lock; delivery happens
// afterwards.
func (g *Gateway) resolveTargets(kind TargetKind, target string) ([]string, error) {
	if kind != TargetBroadcast && strings.TrimSpace(target) == "" {
		return nil, fmt.Errorf("target is required for kind %q", kind)
	}

	switch kind {
	case TargetConnection:
		return []string{target}, nil
	case TargetUser:
		return g.registry.MembersOf(groups.UserGroup(target)), nil
	case TargetBranch:
		return g.registry.MembersOf(groups.BranchGroup(target)), nil
	case TargetRole:
		return g.registry.MembersOf(groups.RoleGroup(target)), nil
	case TargetBroadcast:
		return g.registry.AllIDs(), nil
	default:
		return nil, model.ErrUnknownTarget
	}
}

func (g *Gateway) clientsFor(ids []string) []*Client {
	g.mu.RLock()
	defer g.mu.RUnlock()

	clients := make([]*Client, 0, len(ids))
	for _, id := range ids {
		if c, ok := g.clients[id]; ok {
			clients = append(clients, c)
		}
	}
	return clients
}

func (g *Gateway) handleHeartbeat(client *Client) {
	if g.tracker.RecordHeartbeat(client.ID()) && g.metrics != nil {
		g.metrics.Heartbeats.Inc()
	}
}

func (g *Gateway) handleRequestRecovery(client *Client) {
	g.tracker.RequestRecovery(client.ID())
	if g.metrics != nil {
		g.metrics.RecoveryRequests.Inc()
	}

	id := client.Identity()
	g.sendEvent(client, RecoveryStarted{
		Type:              MessageTypeRecoveryStarted,
		ConnectionID:      client.ID(),
		UserID:            id.UserID,
		EmployeeID:        id.EmployeeID,
		RecoveryStartedAt: time.Now(),
	})
}

func (g *Gateway) handleGetHealth(client *Client) {
	status := g.tracker.GetHealth(client.ID())
	g.sendEvent(client, HealthEvent{
		Type:                MessageTypeHealth,
		ConnectionID:        status.ConnectionID,
		IsHealthy:           status.IsHealthy,
		LastSeen:            status.LastSeen,
		ConsecutiveFailures: status.ConsecutiveFailures,
		RecoveryAttempts:    status.RecoveryAttempts,
		CheckedAt:           time.Now(),
	})
}

func (g *Gateway) handleGetStats(client *Client) {
	stats, err := g.Stats(client.Identity())
	if err != nil {
		id := client.Identity()
		g.logger.Warn("stats query denied",
			"connection_id", client.ID(), "user_id", id.UserID, "roles", id.Roles)
		if g.metrics != nil {
			g.metrics.Denials.WithLabelValues("stats").Inc()
		}
		g.recordAudit(audit.KindStatsDenied, client.ID(), id.UserID, "")
		g.sendError(client, "not allowed to query connection stats")
		return
	}
	g.sendEvent(client, stats)
}

// Stats computes aggregate connection statistics for an administrative
// identity. All groupings come from a single registry snapshot.
func (g *Gateway) Stats(identity model.Identity) (StatsEvent, error) {
	if !g.isAdmin(identity) {
		return StatsEvent{}, model.ErrAccessDenied
	}

	snapshot := g.registry.Snapshot()
	return StatsEvent{
		Type:                MessageTypeStats,
		TotalConnections:    len(snapshot),
		ConnectionsByBranch: registry.CountByBranch(snapshot),
		ConnectionsByRole:   registry.CountByRole(snapshot),
		RetrievedAt:         time.Now(),
	}, nil
}

func (g *Gateway) isAdmin(identity model.Identity) bool {
	for _, role := range identity.Roles {
		if _, ok := g.adminRoles[role]; ok {
			return true
		}
	}
	return false
}

func (g *Gateway) sendError(client *Client, message string) {
	g.sendEvent(client, ErrorEvent{Type: MessageTypeError, Message: message})
}

func (g *Gateway) sendEvent(client *Client, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		g.logger.Error("failed to marshal event", "error", err)
		return
	}
	client.Send(data)
}

func (g *Gateway) recordAudit(kind, connectionID, userID, detail string) {
	if g.auditor == nil {
		return
	}
	if err := g.auditor.Record(context.Background(), kind, connectionID, userID, detail); err != nil {
		g.logger.Error("failed to record audit event", "kind", kind, "error", err)
	}
}

func causeLabel(cause error) string {
	if cause == nil {
		return "graceful"
	}
	return "abnormal"
}

// readPump pumps messages from the WebSocket connection into the gateway.
func (g *Gateway) readPump(client *Client) {
	var cause error
	defer func() {
		g.Disconnect(client, cause)
		client.Conn().Close()
	}()

	client.Conn().SetReadLimit(maxMessageSize)
	client.Conn().SetReadDeadline(time.Now().Add(pongWait))
	client.Conn().SetPongHandler(func(string) error {
		client.Conn().SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := client.Conn().ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				g.logger.Warn("websocket read error", "connection_id", client.ID(), "error", err)
				cause = err
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			g.logger.Warn("malformed client message", "connection_id", client.ID(), "error", err)
			g.sendError(client, "malformed message")
			continue
		}

		g.HandleMessage(client, &msg)
	}
}

// writePump pumps queued events to the WebSocket connection.
func (g *Gateway) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn().Close()
	}()

	for {
		select {
		case message, ok := <-client.SendChan():
			client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn().WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One event per frame so clients can JSON-decode each frame
			// independently.
			if err := client.Conn().WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			n := len(client.SendChan())
			for i := 0; i < n; i++ {
				queued, ok := <-client.SendChan()
				if !ok {
					client.Conn().WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.Conn().WriteMessage(websocket.TextMessage, queued); err != nil {
					return
				}
			}
		case <-ticker.C:
			client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn().WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SetCheckOrigin sets a custom origin checker for the WebSocket upgrader.
func SetCheckOrigin(fn func(r *http.Request) bool) {
	upgrader.CheckOrigin = fn
}
