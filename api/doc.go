// Package api defines the wire types of the fedbroker HTTP API.
//
// # API Overview
//
// The broker exposes a small RPC-style surface over plain HTTP:
//   - Task lifecycle: /reset, /create_task, /task_info, /get_tasks, /stop_task
//   - Membership: /join_task, /get_participants, /get_joined_tasks
//   - Mailboxes: /aggregator_send, /aggregator_receive, /participant_send, /participant_receive
//   - Health monitoring: /health, /healthz, /ready, /readyz, /version
//
// Success bodies have the form {"message": ...}. Payloads are JSON values the
// broker forwards verbatim. Failures use the structured error envelope:
//
//	{"success": false, "error": {"code": "NOT_JOINED", "message": "..."}, "timestamp": "..."}
//
// # Polling
//
// Receive endpoints never block. An empty mailbox answers 404 with code
// MAILBOX_EMPTY and clients retry until their own deadline.
//
// # Base URL
//
// The default base URL is:
//
//	http://localhost:8080
package api
