package session

// Kind classifies a user notification.
type Kind int

const (
	KindInfo Kind = iota
	KindError
)

func (k Kind) String() string {
	if k == KindError {
		return "error"
	}
	return "info"
}

// Notifier shows passive, non-blocking notifications to the user.
type Notifier interface {
	Notify(kind Kind, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(kind Kind, message string)

func (f NotifierFunc) Notify(kind Kind, message string) {
	f(kind, message)
}

// Clipboard copies text to the system clipboard.
type Clipboard interface {
	Copy(text string) error
}

type notification struct {
	kind    Kind
	message string
}
