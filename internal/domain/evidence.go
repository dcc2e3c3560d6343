package domain

import (
	"errors"
	"strings"
)

// EvidenceKind enumerates supported evidence item types.
type EvidenceKind string

const (
	EvidenceKindImage EvidenceKind = "image"
	EvidenceKindPDF   EvidenceKind = "pdf"
	EvidenceKindAudio EvidenceKind = "audio"
	EvidenceKindVideo EvidenceKind = "video"
	EvidenceKindLink  EvidenceKind = "link"
)

// UploadStatus tracks asynchronous encoding of binary evidence.
type UploadStatus string

const (
	UploadPending UploadStatus = "pending"
	UploadDone    UploadStatus = "done"
	UploadFailed  UploadStatus = "failed"
)

// EvidenceItem is one unit of submitted proof. Binary kinds carry a base64
// payload; link items carry only a URL reference. The two are mutually
// exclusive by kind.
type EvidenceItem struct {
	ID             string       `json:"id"`
	Kind           EvidenceKind `json:"kind"`
	Base64Data     string       `json:"base64Data,omitempty"`
	LinkURL        string       `json:"linkUrl,omitempty"`
	MIMEType       string       `json:"mimeType"`
	DisplayName    string       `json:"displayName"`
	UploadStatus   UploadStatus `json:"uploadStatus"`
	UploadProgress int          `json:"uploadProgress"`
}

// IsBinary reports whether the kind carries an inline payload.
func (e *EvidenceItem) IsBinary() (bool, error) {
	switch e.Kind {
	case EvidenceKindImage, EvidenceKindPDF, EvidenceKindAudio, EvidenceKindVideo:
		return true, nil
	case EvidenceKindLink:
		return false, nil
	default:
		return false, errors.New("unknown evidence kind: " + string(e.Kind))
	}
}

// Validate enforces the payload/reference exclusivity per kind.
func (e *EvidenceItem) Validate() error {
	binary, err := e.IsBinary()
	if err != nil {
		return err
	}
	if binary {
		if e.LinkURL != "" {
			return errors.New("binary evidence must not carry a link reference")
		}
		if e.MIMEType == "" {
			return errors.New("binary evidence requires a mime type")
		}
		return nil
	}
	if e.Base64Data != "" {
		return errors.New("link evidence must not carry a binary payload")
	}
	if e.LinkURL == "" {
		return errors.New("link evidence requires a url")
	}
	return nil
}

// KindForMIME maps an uploaded file's mime type to an evidence kind.
// Unrecognized types default to image, matching permissive intake.
func KindForMIME(mimeType string) EvidenceKind {
	switch {
	case strings.Contains(mimeType, "pdf"):
		return EvidenceKindPDF
	case strings.Contains(mimeType, "audio"):
		return EvidenceKindAudio
	case strings.Contains(mimeType, "video"):
		return EvidenceKindVideo
	default:
		return EvidenceKindImage
	}
}
