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

package fuseops

import "time"

// SetattrTime is either a concrete point in time or the "set to now"
// sentinel the kernel uses for utimensat(..., UTIME_NOW). Keeping this as
// a tagged variant, rather than overloading a magic timestamp value, avoids
// picking an arbitrary sentinel time that a caller could plausibly mean
// literally.
type SetattrTime struct {
	Time time.Time
	Now  bool
}

// AbsoluteTime builds a concrete SetattrTime.
func AbsoluteTime(t time.Time) SetattrTime {
	return SetattrTime{Time: t}
}

// TimeNow builds the "set to now" sentinel.
func TimeNow() SetattrTime {
	return SetattrTime{Now: true}
}

func secNsec(sec uint64, nsec uint32) time.Time {
	return time.Unix(int64(sec), int64(nsec))
}
