// Package gateway implements the real-time dispatch gateway for employee
// clients.
//
// The package implements:
//   - Client: one live WebSocket connection with a buffered send channel
//   - Gateway: connect/disconnect lifecycle, message routing and fan-out
//   - Message: the JSON wire envelope and the outbound event types
//
// Key behaviors:
//   - Connect validation: identities without userId/employeeId are rejected
//     before anything is registered
//   - Group fan-out: recipient sets are snapshotted under the registry lock
//     and delivery happens outside it, so a stalled client never blocks
//     unrelated connections
//   - Heartbeat passthrough: heartbeat, recovery and health queries forward
//     into the health tracker; expiry from the tracker's sweep removes the
//     connection exactly once
package gateway
