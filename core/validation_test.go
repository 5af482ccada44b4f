package core

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr error
	}{
		{name: "single character", query: "a", wantErr: nil},
		{name: "typical question", query: "How can we reduce documentation burden for physicians?", wantErr: nil},
		{name: "exactly max length", query: strings.Repeat("x", MaxQueryLength), wantErr: nil},
		{name: "multibyte characters counted as runes", query: strings.Repeat("é", MaxQueryLength), wantErr: nil},
		{name: "empty", query: "", wantErr: ErrEmptyQuery},
		{name: "whitespace only", query: " \t\n ", wantErr: ErrEmptyQuery},
		{name: "one over max length", query: strings.Repeat("x", MaxQueryLength+1), wantErr: ErrQueryTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuery(tt.query)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateQuery() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateQuery() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidQuery) {
				t.Errorf("ValidateQuery() error should wrap ErrInvalidQuery, got %v", err)
			}
		})
	}
}

func TestValidateTitle(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		wantErr error
	}{
		{name: "default title", title: DefaultThreadTitle, wantErr: nil},
		{name: "max length", title: strings.Repeat("t", MaxTitleLength), wantErr: nil},
		{name: "empty", title: "", wantErr: ErrEmptyTitle},
		{name: "too long", title: strings.Repeat("t", MaxTitleLength+1), wantErr: ErrTitleTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTitle(tt.title)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateTitle() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateTitle() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateToolRecord(t *testing.T) {
	if err := ValidateToolRecord(&ToolRecord{Name: "Lexicomp Drug Information"}); err != nil {
		t.Errorf("unexpected error for valid tool: %v", err)
	}
	if err := ValidateToolRecord(&ToolRecord{Name: "  "}); !errors.Is(err, ErrEmptyName) {
		t.Errorf("expected ErrEmptyName, got %v", err)
	}
	if err := ValidateToolRecord(nil); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("expected ErrInvalidRecord, got %v", err)
	}
}

func TestValidateOrgRecord(t *testing.T) {
	if err := ValidateOrgRecord(&OrgRecord{Name: "Mayo Clinic"}); err != nil {
		t.Errorf("unexpected error for valid org: %v", err)
	}
	if err := ValidateOrgRecord(&OrgRecord{}); !errors.Is(err, ErrEmptyName) {
		t.Errorf("expected ErrEmptyName, got %v", err)
	}
}

func TestValidateMessage(t *testing.T) {
	tests := []struct {
		name    string
		msg     *Message
		wantErr error
	}{
		{
			name:    "user message",
			msg:     &Message{ThreadID: "t1", Role: RoleUser, Content: "hello"},
			wantErr: nil,
		},
		{
			name:    "assistant message with route",
			msg:     &Message{ThreadID: "t1", Role: RoleAssistant, Content: "hi", Route: RouteOrgMatcher},
			wantErr: nil,
		},
		{
			name:    "nil message",
			msg:     nil,
			wantErr: ErrInvalidMessage,
		},
		{
			name:    "missing thread",
			msg:     &Message{Role: RoleUser},
			wantErr: ErrInvalidMessage,
		},
		{
			name:    "bad role",
			msg:     &Message{ThreadID: "t1", Role: "system"},
			wantErr: ErrInvalidRole,
		},
		{
			name:    "bad route",
			msg:     &Message{ThreadID: "t1", Role: RoleAssistant, Route: "banana"},
			wantErr: ErrInvalidRoute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMessage(tt.msg)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateMessage() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateMessage() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAutoTitle(t *testing.T) {
	short := "Which hospitals use AI for sepsis?"
	if got := AutoTitle(short); got != short {
		t.Errorf("AutoTitle(%q) = %q", short, got)
	}

	exact := strings.Repeat("a", 50)
	if got := AutoTitle(exact); got != exact {
		t.Errorf("AutoTitle() of 50 chars should be unchanged, got %q", got)
	}

	long := strings.Repeat("b", 60)
	want := strings.Repeat("b", 50) + "..."
	if got := AutoTitle(long); got != want {
		t.Errorf("AutoTitle() = %q, want %q", got, want)
	}
}
