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

// Package agents implements the language-model stages of the routing pipeline.
//
//   - Supervisor classifies a query into one of the three routes. Unrecognized
//     model output falls back to the workflow advisor and is never an error.
//   - Specialist (tool finder, org matcher) retrieves candidates from one
//     catalog and asks the model to recommend among them.
//   - Advisor retrieves from both catalogs concurrently and asks the model for
//     combined guidance.
//
// Every stage takes a core.PipelineState by value and returns the updated
// copy, so concurrent invocations never share mutable state. Model failures
// are wrapped in ErrModel; retrieval failures keep retrieval.ErrRetrieval.
package agents
