// Copyright 2015 Google Inc. All Rights Reserved.
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

// DirentType is the d_type value embedded in a directory entry, matching
// the DT_* constants from <dirent.h>.
type DirentType uint32

const (
	DT_Unknown         DirentType = 0
	DT_FIFO            DirentType = 1
	DT_Char            DirentType = 2
	DT_Dir             DirentType = 4
	DT_Block           DirentType = 6
	DT_Regular         DirentType = 8
	DT_Symlink         DirentType = 10
	DT_Socket          DirentType = 12
)
