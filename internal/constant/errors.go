package constant

import "errors"

var (
	ErrDocumentNotFound   = errors.New("document not found")
	ErrTextNotFound       = errors.New("text not found in section")
	ErrExport             = errors.New("document export failed")
	ErrStorageIO          = errors.New("storage i/o failure")
	ErrPreconditionFailed = errors.New("no active document")
	ErrSessionNotFound    = errors.New("session not found")
	ErrAttachmentRejected = errors.New("attachment rejected")
)
