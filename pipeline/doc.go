// Copyright 2025 Poiesic Systems
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

// Package pipeline runs one query turn through the routing graph:
//
//	start -> supervisor -> {tool_finder | org_matcher | workflow_advisor} -> terminal
//
// Invoke runs both stages and returns the final state. Stream yields one
// Event per stage as it completes, so exactly two events for a successful
// turn. A failure ends the stream with an Event whose Stage is StageError.
// Breaking out of the range loop stops the pipeline before the next stage.
//
// When a state carries a ThreadID and a CheckpointStore is configured, the
// previous checkpoint advances the turn counter and the final state of each
// successful turn replaces it.
//
// A Pipeline holds no per-invocation state and is safe for concurrent use.
package pipeline
