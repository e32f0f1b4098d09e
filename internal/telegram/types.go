package telegram

// Minimal Bot API types; only the fields the bot reads.

type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"` // private, group, supergroup, channel
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type ChatMember struct {
	User   User   `json:"user"`
	Status string `json:"status"` // creator, administrator, member, ...
}
