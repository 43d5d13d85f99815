// Copyright 2024 The Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

// Package log is a small, redaction-aware logging shim in the shape of the
// teacher repo's internal util/log package: leveled free functions that take
// a context (whose logtags are rendered as a line prefix) and format with
// github.com/cockroachdb/redact so that caller-supplied byte blobs (keys,
// TIDs, values) are marked safe or unsafe explicitly instead of by accident.
package log

import (
	"context"
	"fmt"
	"os"

	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/redact"
)

// vDepth controls which VEventf calls are emitted. Set via SetVerbosity;
// defaults to 0 (only level-0 VEventf calls are emitted) to keep the hot path
// quiet by default, with verbosity raised only for debugging.
var vDepth int32

// SetVerbosity sets the verbosity threshold for VEventf.
func SetVerbosity(v int32) { vDepth = v }

// WithTag attaches a key/value tag to ctx, rendered as a prefix on every
// subsequent log line derived from the returned context (e.g. "tid=DEADBEEF").
func WithTag(ctx context.Context, key string, value interface{}) context.Context {
	return logtags.AddTag(ctx, key, value)
}

func prefix(ctx context.Context) string {
	if tags := logtags.FromContext(ctx); tags != nil {
		return tags.String() + " "
	}
	return ""
}

// Infof logs at info level.
func Infof(ctx context.Context, format string, args ...interface{}) {
	emit(ctx, "I", format, args...)
}

// Warningf logs at warning level.
func Warningf(ctx context.Context, format string, args ...interface{}) {
	emit(ctx, "W", format, args...)
}

// Errorf logs at error level.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	emit(ctx, "E", format, args...)
}

// VEventf logs a verbose trace event if the current verbosity is >= level.
func VEventf(ctx context.Context, level int32, format string, args ...interface{}) {
	if level > vDepth {
		return
	}
	emit(ctx, "V", format, args...)
}

// Event is a zero-argument convenience wrapper over VEventf at level 1.
func Event(ctx context.Context, msg string) {
	VEventf(ctx, 1, "%s", redact.SafeString(msg))
}

// Fatalf logs at fatal level and terminates the process, mirroring the
// teacher's log.Fatalf used on the bug path: an invariant violation here
// is unrecoverable and must not be allowed to keep running.
func Fatalf(ctx context.Context, format string, args ...interface{}) {
	emit(ctx, "F", format, args...)
	os.Exit(2)
}

func emit(ctx context.Context, sev, format string, args ...interface{}) {
	msg := redact.Sprintf(format, args...)
	fmt.Fprintf(os.Stderr, "%s%s %s\n", prefix(ctx), sev, msg.StripMarkers())
}
