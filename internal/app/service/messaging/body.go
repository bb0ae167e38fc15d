package messaging

import (
	"strings"

	"github.com/dalemusser/studyhub/internal/app/system/apperr"
	"github.com/dalemusser/studyhub/internal/app/system/inputval"
	"github.com/dalemusser/studyhub/internal/domain/models"
)

// BodyKind says which parts a message body carries.
type BodyKind int

const (
	TextOnly BodyKind = iota + 1
	FilesOnly
	TextAndFiles
)

// MessageBody is the validated content of a new message. The zero value
// is invalid; build one with NewMessageBody.
type MessageBody struct {
	kind  BodyKind
	text  string
	files []models.Attachment
}

// NewMessageBody validates content and files. Content is trimmed and
// otherwise stored as given; it may be empty only when files are present.
func NewMessageBody(content string, files []models.Attachment) (MessageBody, error) {
	content = strings.TrimSpace(content)
	if inputval.Len(content) > inputval.MessageMax {
		return MessageBody{}, apperr.Invalidf("message must be at most %d characters", inputval.MessageMax)
	}
	if len(files) > inputval.MaxAttachments {
		return MessageBody{}, apperr.Invalidf("a message can carry at most %d files", inputval.MaxAttachments)
	}
	for _, f := range files {
		if strings.TrimSpace(f.URL) == "" {
			return MessageBody{}, apperr.Invalidf("attachment is missing its url")
		}
		if inputval.Len(f.Name) > inputval.AttachmentNameMax {
			return MessageBody{}, apperr.Invalidf("attachment name must be at most %d characters", inputval.AttachmentNameMax)
		}
	}

	text := content
	switch {
	case text != "" && len(files) > 0:
		return MessageBody{kind: TextAndFiles, text: text, files: files}, nil
	case text != "":
		return MessageBody{kind: TextOnly, text: text}, nil
	case len(files) > 0:
		return MessageBody{kind: FilesOnly, files: files}, nil
	default:
		return MessageBody{}, apperr.Invalidf("message must have text or at least one file")
	}
}

// Kind reports which parts b carries; 0 for an unbuilt body.
func (b MessageBody) Kind() BodyKind { return b.kind }

// Text returns the message text, empty for FilesOnly.
func (b MessageBody) Text() string { return b.text }

// Files returns the attachments, nil for TextOnly.
func (b MessageBody) Files() []models.Attachment { return b.files }
