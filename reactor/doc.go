// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor implements the single-threaded, epoll-backed I/O
// readiness loop. It delivers one-shot resumption callbacks to the
// scheduler when registered descriptors become readable or writable.
package reactor
