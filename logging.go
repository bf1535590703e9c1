// Copyright 2024 The gofuse Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fuse

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Logger is the structured logger Session writes diagnostic output
// through. A MountConfig with a nil Logger gets a discard-level
// entry, so the library is silent unless a caller opts in.
type Logger = *logrus.Entry

// discardLogger backs MountConfig.Logger when the caller supplies none.
func discardLogger() Logger {
	log := logrus.New()
	log.SetOutput(discardWriter{})
	return logrus.NewEntry(log)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// requestFields builds the standard field set attached to every
// request-scoped log line.
func requestFields(unique uint64, opcode fmt.Stringer) logrus.Fields {
	return logrus.Fields{"unique": unique, "opcode": opcode}
}
