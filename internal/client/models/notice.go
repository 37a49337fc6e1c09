package models

// Notice is a user-facing outcome message of a view operation. An empty
// Text means there is nothing to report.
type Notice struct {
	Text  string
	Error bool
}

func Success(text string) Notice { return Notice{Text: text} }

func Failure(text string) Notice { return Notice{Text: text, Error: true} }

func (n Notice) IsZero() bool { return n.Text == "" }
