package ai

// Role tags a chat message with its author.
type Role string

const (
	RoleSystem Role = "system"
	RoleHuman  Role = "human"
	RoleAI     Role = "ai"
)

// Message is one role-tagged entry of a chat model request.
type Message struct {
	Role    Role
	Content string
}

// SystemMessage returns a system-role message carrying a fixed instruction.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// HumanMessage returns a human-role message carrying task content.
func HumanMessage(content string) Message {
	return Message{Role: RoleHuman, Content: content}
}
