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

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// MaxQueryLength is the longest accepted query, in characters.
	MaxQueryLength = 2000
	// MaxTitleLength is the longest accepted thread title, in characters.
	MaxTitleLength = 255
)

// ValidateQuery checks that a query holds 1 to MaxQueryLength characters
// and is not blank.
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, ErrEmptyQuery)
	}
	if n := utf8.RuneCountInString(query); n > MaxQueryLength {
		return fmt.Errorf("%w: %w: %d characters", ErrInvalidQuery, ErrQueryTooLong, n)
	}
	return nil
}

// ValidateTitle checks a thread title for rename requests.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTitle, ErrEmptyTitle)
	}
	if n := utf8.RuneCountInString(title); n > MaxTitleLength {
		return fmt.Errorf("%w: %w: %d characters", ErrInvalidTitle, ErrTitleTooLong, n)
	}
	return nil
}

// ValidateToolRecord checks a tool before it is written to a catalog.
func ValidateToolRecord(record *ToolRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}
	if strings.TrimSpace(record.Name) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyName)
	}
	return nil
}

// ValidateOrgRecord checks an organization before it is written to a catalog.
func ValidateOrgRecord(record *OrgRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}
	if strings.TrimSpace(record.Name) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyName)
	}
	return nil
}

func ValidateRole(role MessageRole) error {
	if role != RoleUser && role != RoleAssistant {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	return nil
}

// ValidateMessage checks a message before it is appended to a thread.
func ValidateMessage(msg *Message) error {
	if msg == nil {
		return fmt.Errorf("%w: message is nil", ErrInvalidMessage)
	}
	if msg.ThreadID == "" {
		return fmt.Errorf("%w: thread id is empty", ErrInvalidMessage)
	}
	if err := ValidateRole(msg.Role); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	if msg.Route != RouteNone && !msg.Route.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidMessage, ErrInvalidRoute, msg.Route)
	}
	return nil
}

// AutoTitle derives a thread title from the first query asked in it:
// the first 50 characters, with "..." appended when the query was longer.
func AutoTitle(query string) string {
	const maxRunes = 50
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) <= maxRunes {
		return query
	}
	runes := []rune(query)
	return string(runes[:maxRunes]) + "..."
}
