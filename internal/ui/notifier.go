package ui

import (
	"github.com/BioHazard786/roomtalk/internal/session"
)

// Toast is one passive notification shown in the chat screen.
type Toast struct {
	Kind    session.Kind
	Message string
}

// ToastQueue is a session.Notifier that hands toasts to the chat screen.
// Notify never blocks; toasts beyond the buffer are dropped.
type ToastQueue struct {
	ch chan Toast
}

func NewToastQueue(size int) *ToastQueue {
	return &ToastQueue{ch: make(chan Toast, size)}
}

func (q *ToastQueue) Notify(kind session.Kind, message string) {
	select {
	case q.ch <- Toast{Kind: kind, Message: message}:
	default:
	}
}

// C is the stream of queued toasts.
func (q *ToastQueue) C() <-chan Toast {
	return q.ch
}

// PrintNotifier prints notifications as status lines, for commands that
// run without the chat screen.
type PrintNotifier struct{}

func (PrintNotifier) Notify(kind session.Kind, message string) {
	if kind == session.KindError {
		PrintError(message)
		return
	}
	PrintInfo(message)
}
