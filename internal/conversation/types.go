// Package conversation routes user events through a per-user state machine.
//
// A Session is the user's current state together with the scratch fields of
// that state. Handlers receive the session and an Event and return the next
// session plus the replies to send. The Router owns the shared rules: restart,
// back navigation, unmatched events and fault recovery.
package conversation

// State names a step of a flow.
type State string

// Session is a state with its scratch fields. Each state has its own
// implementation so fields of an abandoned flow cannot leak into another.
type Session interface {
	State() State
}

// Token is the wire form of a callback action: "<namespace>|<payload>" after
// telebot's unique prefix.
type Token struct {
	Namespace string
	Payload   string
}

// String renders the token for logs.
func (t Token) String() string {
	if t.Payload == "" {
		return t.Namespace
	}
	return t.Namespace + ":" + t.Payload
}

// Action is a decoded callback. Implementations are plain value types owned
// by the domain package.
type Action interface {
	Token() Token
}

// Decoder turns a token into an Action, or nil when the namespace is unknown.
type Decoder func(Token) Action

// Raw wraps a token no decoder recognised. Only Route.Default sees it.
type Raw struct {
	Tok Token
}

func (r Raw) Token() Token { return r.Tok }

// Event is one inbound user interaction.
type Event interface {
	event()
}

// Text is a free text message.
type Text struct {
	Body string
}

// Callback is a button press.
type Callback struct {
	Raw    Token
	Action Action
}

// Restart is the /start command.
type Restart struct{}

func (Text) event()     {}
func (Callback) event() {}
func (Restart) event()  {}

// Format selects message markup.
type Format int

const (
	// Plain sends text without parse mode.
	Plain Format = iota
	// Markdown sends legacy Telegram Markdown.
	Markdown
)

// Button is an inline keyboard button carrying an action.
type Button struct {
	Text   string
	Action Action
}

// Reply is one outbound message or edit.
type Reply struct {
	Text   string
	Format Format
	// Inline keyboard rows attached to the message.
	Buttons [][]Button
	// Menu replaces the persistent reply keyboard when non-nil.
	Menu [][]string
	// Edit asks to edit the message that carried the callback instead of sending.
	Edit bool
	// Toast is shown as a callback answer; other fields may be empty.
	Toast string
}

// Turn identifies who is acting and when.
type Turn struct {
	UserID   int64
	Username string
}

// Result is what a handler returns. A nil Next keeps the current session.
type Result struct {
	Next    Session
	Replies []Reply
}
