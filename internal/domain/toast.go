package domain

import "time"

// ToastSeverity classifies a transient user-facing message.
type ToastSeverity string

const (
	ToastSuccess ToastSeverity = "success"
	ToastError   ToastSeverity = "error"
	ToastInfo    ToastSeverity = "info"
	ToastWarning ToastSeverity = "warning"
)

// Toast is ephemeral and in-memory only; it self-destructs after TTL.
type Toast struct {
	ID       string        `json:"id"`
	Text     string        `json:"text"`
	Severity ToastSeverity `json:"severity"`
	TTL      time.Duration `json:"-"`
}
