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

package core

import "errors"

var (
	// ErrInvalidQuery indicates a query failed validation.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrEmptyQuery indicates the query text is empty or whitespace.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrQueryTooLong indicates the query exceeds MaxQueryLength characters.
	ErrQueryTooLong = errors.New("query is too long")

	// ErrInvalidTitle indicates a thread title failed validation.
	ErrInvalidTitle = errors.New("invalid thread title")

	// ErrEmptyTitle indicates the title is empty.
	ErrEmptyTitle = errors.New("title cannot be empty")

	// ErrTitleTooLong indicates the title exceeds MaxTitleLength characters.
	ErrTitleTooLong = errors.New("title is too long")

	// ErrInvalidRecord indicates a catalog record failed validation.
	ErrInvalidRecord = errors.New("invalid catalog record")

	// ErrEmptyName indicates the record Name field is empty.
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrInvalidRoute indicates a route value that is not recognized.
	ErrInvalidRoute = errors.New("invalid route")

	// ErrInvalidMessage indicates a thread message failed validation.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrInvalidRole indicates a message role other than user or assistant.
	ErrInvalidRole = errors.New("invalid message role")
)
