package spec

// SessionID identifies one continuous conversation instance (UUIDv7 string).
type SessionID string

// SlotType describes how the host elicits and normalizes a slot.
type SlotType string

const (
	// SlotTypeString is a free-form text slot (order number, enterprise code).
	SlotTypeString SlotType = "string"

	// SlotTypeEntity is a slot whose value must match one entry of its schema.
	SlotTypeEntity SlotType = "entity"

	// SlotTypeConfirmation is a yes/no slot guarding a terminal action.
	SlotTypeConfirmation SlotType = "confirmation"
)

// Confirmation values as normalized by the host channel adapter.
const (
	ConfirmationYes = "yes"
	ConfirmationNo  = "no"
)

// EntityOption is one allowed entry of an entity slot's schema.
type EntityOption struct {
	Label    string   `json:"label"`
	Value    string   `json:"value"`
	Synonyms []string `json:"synonyms,omitempty"`
}

// SlotValue is the raw user utterance plus its normalized form.
type SlotValue struct {
	Raw        string `json:"raw"`
	Normalized string `json:"normalized"`
}

// SlotErrorKindInvalid marks a value that failed schema validation.
const SlotErrorKindInvalid = "invalid"

// SlotError is a structured validation failure attached to a slot.
// The host uses it to re-prompt for the same slot.
type SlotError struct {
	Kind string         `json:"kind"`
	Data map[string]any `json:"data,omitempty"`
}

// Slot is a named input the dialog must collect. A slot with a non-empty
// Schema must, once filled, hold a Value whose normalized form matches
// exactly one schema entry; otherwise it carries an Error and no Value.
//
// SetValue never validates against Schema. Validation is the job of the
// change handler registered for the slot.
type Slot struct {
	Name   string         `json:"name"`
	Type   SlotType       `json:"type"`
	Schema []EntityOption `json:"schema,omitempty"`
	Value  *SlotValue     `json:"value,omitempty"`
	Error  *SlotError     `json:"error,omitempty"`
	Prompt string         `json:"prompt,omitempty"`
}

// SetValue fills the slot and clears any previous error.
func (s *Slot) SetValue(v SlotValue) {
	s.Value = &v
	s.Error = nil
}

// SetError attaches a validation failure and clears the value in the same
// operation. Value and Error are mutually exclusive within a turn.
func (s *Slot) SetError(kind string, data map[string]any) {
	s.Error = &SlotError{Kind: kind, Data: data}
	s.Value = nil
}

// SetSchema replaces the slot's allowed option set. An empty schema means
// the slot is open (any value).
func (s *Slot) SetSchema(entries []EntityOption) {
	if len(entries) == 0 {
		s.Schema = nil
		return
	}
	s.Schema = append([]EntityOption(nil), entries...)
}

// Clear removes both value and error, returning the slot to unfilled.
func (s *Slot) Clear() {
	s.Value = nil
	s.Error = nil
}

// Filled reports whether the slot holds a value.
func (s *Slot) Filled() bool { return s.Value != nil }

// Normalized returns the normalized value, or "" if the slot is unfilled.
func (s *Slot) Normalized() string {
	if s.Value == nil {
		return ""
	}
	return s.Value.Normalized
}

// Clone returns a deep copy of the slot.
func (s *Slot) Clone() *Slot {
	if s == nil {
		return nil
	}
	out := &Slot{Name: s.Name, Type: s.Type, Prompt: s.Prompt}
	out.Schema = append([]EntityOption(nil), s.Schema...)
	if s.Value != nil {
		v := *s.Value
		out.Value = &v
	}
	if s.Error != nil {
		e := SlotError{Kind: s.Error.Kind}
		if s.Error.Data != nil {
			e.Data = make(map[string]any, len(s.Error.Data))
			for k, v := range s.Error.Data {
				e.Data[k] = v
			}
		}
		out.Error = &e
	}
	return out
}

// Order is the order record a skill operates on. It lives in conversation
// context and is not owned by any single skill; whoever consumes or
// abandons it must drop it from context.
type Order struct {
	OrderNo              string   `json:"OrderNo"`
	OrderHeaderKey       string   `json:"OrderHeaderKey"`
	EnterpriseCode       string   `json:"EnterpriseCode"`
	AllowedModifications []string `json:"AllowedModifications,omitempty"`
}

// OrderCriteria identifies an order for lookup.
type OrderCriteria struct {
	OrderNo        string `json:"orderNo"`
	EnterpriseCode string `json:"enterpriseCode"`
}

// ModificationRequest is the single terminal mutation of a skill.
type ModificationRequest struct {
	OrderHeaderKey   string `json:"orderHeaderKey"`
	ModificationType string `json:"modificationType"`
	ReasonCode       string `json:"reasonCode"`
	ReasonText       string `json:"reasonText"`
	Note             string `json:"note,omitempty"`
}

// ReferenceOption is one raw reference-data record as returned by the
// provider. Mapping: CodeShortDescription becomes the option label,
// CodeValue the option value.
type ReferenceOption struct {
	CodeValue            string `json:"CodeValue"`
	CodeShortDescription string `json:"CodeShortDescription"`
}

// CompletionMetadata reports how a skill activation ended.
type CompletionMetadata struct {
	ActionPerformed     bool   `json:"actionPerformed"`
	ModificationAllowed *bool  `json:"modificationAllowed,omitempty"`
	UserCancelled       bool   `json:"userCancelled,omitempty"`
	Failed              bool   `json:"failed,omitempty"`
	Message             string `json:"message,omitempty"`
}

// Navigation asks the host UI to move to a view, e.g. back to the order
// details after a finalize.
type Navigation struct {
	View string         `json:"view"`
	Data map[string]any `json:"data,omitempty"`
}

// ViewOrderDetails is the order-details host view targeted after finalize.
const ViewOrderDetails = "order-details"
