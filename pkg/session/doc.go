/*
Package session implements session management and persistence orchestration.

The Manager serializes access to each session with a reference-counted
per-session lock, optionally backed by a distributed locker so that replicas
sharing a store never apply two events of the same session at once. Sessions
of different IDs never contend.

The Sweeper removes sessions that outlived their idle or hard deadline. It
never blocks on a session that is handling an event.
*/
package session
