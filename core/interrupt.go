package core

// InterruptKind names the decision point that paused the workflow. The
// dashboard uses it to pick a rendering template.
type InterruptKind string

const (
	// InterruptLoginConfirmation asks the human to confirm they completed
	// the manual login before profile processing starts.
	InterruptLoginConfirmation InterruptKind = "login_confirmation"
	// InterruptMessageApproval asks the human to approve, edit or skip a
	// drafted message before it is sent.
	InterruptMessageApproval InterruptKind = "message_confirmation"
	// InterruptPageConfirmation asks whether paginated search should fetch
	// the next page.
	InterruptPageConfirmation InterruptKind = "page_confirmation"
	// InterruptDisambiguation asks the human to pick one of several
	// candidate profiles an ambiguous scrape returned.
	InterruptDisambiguation InterruptKind = "disambiguation"
)

// Interrupt is the pending decision payload attached to a paused workflow.
// Options is the enumerated set of valid replies; when FreeText is true a
// reply outside the option set is accepted as open text (e.g. an edited
// message draft). Data carries kind-specific context for rendering, such as
// message_text and profile_url for a message approval.
type Interrupt struct {
	Kind         InterruptKind  `json:"type"`
	Message      string         `json:"message"`
	Instructions string         `json:"instructions,omitempty"`
	Options      []string       `json:"options,omitempty"`
	FreeText     bool           `json:"free_text,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
}

// Clone returns a deep copy of the interrupt.
func (i *Interrupt) Clone() *Interrupt {
	if i == nil {
		return nil
	}
	clone := *i
	clone.Options = make([]string, len(i.Options))
	copy(clone.Options, i.Options)
	if i.Data != nil {
		clone.Data = make(map[string]any, len(i.Data))
		for k, v := range i.Data {
			clone.Data[k] = v
		}
	}
	return &clone
}

// DataString returns a string entry from Data, or "" when absent.
func (i *Interrupt) DataString(key string) string {
	if i == nil || i.Data == nil {
		return ""
	}
	s, _ := i.Data[key].(string)
	return s
}
