// Package payload defines the signal message exchanged between the publisher
// and the subscriber, and its JSON wire format.
//
// Wire format (one JSON object, exactly these keys):
//
//	{"message_id": 7, "timestamp": "2026-10-19 14:03:00", "value": 42, "status": "yellow"}
//
// Parse is strict about presence of every key and lenient about extra keys.
package payload
