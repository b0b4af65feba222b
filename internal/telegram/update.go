package telegram

import "clipd/internal/media"

// Update is one entry from getUpdates.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message is the subset of a chat message the bot acts on.
type Message struct {
	MessageID int       `json:"message_id"`
	From      *User     `json:"from"`
	Chat      Chat      `json:"chat"`
	Text      string    `json:"text"`
	Caption   string    `json:"caption"`
	Video     *Video    `json:"video"`
	Document  *Document `json:"document"`
}

// User identifies a Telegram account.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

// Chat identifies the conversation a message belongs to.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// Video is a natively recognized video attachment.
type Video struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	FileSize int64  `json:"file_size"`
	Duration int    `json:"duration"`
}

// Document is a generic file attachment.
type Document struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	FileSize int64  `json:"file_size"`
}

// File is a getFile result pointing at downloadable content.
type File struct {
	FileID   string `json:"file_id"`
	FileSize int64  `json:"file_size"`
	FilePath string `json:"file_path"`
}

// Attachment extracts the message's media payload, preferring the native
// video field over a document. ok is false for messages with neither.
func Attachment(msg *Message) (media.Info, bool) {
	if msg == nil {
		return media.Info{}, false
	}
	ref := media.SourceRef{ChatID: msg.Chat.ID, MessageID: msg.MessageID}

	if msg.Video != nil {
		ref.FileID = msg.Video.FileID
		return media.Info{
			Ref:      ref,
			FileName: msg.Video.FileName,
			MimeType: msg.Video.MimeType,
			Size:     msg.Video.FileSize,
			Duration: msg.Video.Duration,
			Video:    true,
		}, true
	}
	if msg.Document != nil {
		ref.FileID = msg.Document.FileID
		return media.Info{
			Ref:      ref,
			FileName: msg.Document.FileName,
			MimeType: msg.Document.MimeType,
			Size:     msg.Document.FileSize,
		}, true
	}
	return media.Info{}, false
}
