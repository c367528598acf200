// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

import (
	"log"
	"os"
)

// Logger is the minimal logging facility used throughout the engine. It
// wraps the standard library logger rather than pulling in a structured
// logging dependency, matching how the rest of this codebase reports
// events such as quiet index-corruption recovery or adaptive index
// creation (see interrupt.Register for the same style of usage).
type Logger struct {
	*log.Logger
}

// NewLogger creates a Logger that writes to stderr, prefixed with name.
func NewLogger(name string) *Logger {
	return &Logger{log.New(os.Stderr, "["+name+"] ", log.LstdFlags)}
}

// Info logs an informational event.
func (l *Logger) Info(format string, args ...any) {
	l.Printf("INFO "+format, args...)
}

// Warn logs a recoverable problem, such as a corrupted index being rebuilt.
func (l *Logger) Warn(format string, args ...any) {
	l.Printf("WARN "+format, args...)
}

// Debug logs a low-level diagnostic event.
func (l *Logger) Debug(format string, args ...any) {
	l.Printf("DEBUG "+format, args...)
}

// Default is the package-wide logger used by components that do not
// receive an explicit Logger through their options.
var Default = NewLogger("typedstore")
