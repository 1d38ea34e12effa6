/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package journal

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Operation is the kind of a journal entry.
type Operation int

// Journal operations.
const (
	OperationApply Operation = iota + 1
	OperationRevert
)

const (
	operationApplyLabel  = "APPLY"
	operationRevertLabel = "REVERT"
)

// ParseOperation converts a stored label back into an Operation.
// Any string other than "APPLY" or "REVERT" fails with *OperationDecodeError.
func ParseOperation(s string) (Operation, error) {
	switch s {
	case operationApplyLabel:
		return OperationApply, nil
	case operationRevertLabel:
		return OperationRevert, nil
	}
	return 0, &OperationDecodeError{Value: s}
}

// String returns the canonical label of the operation.
// Implements fmt.Stringer interface.
func (op Operation) String() string {
	switch op {
	case OperationApply:
		return operationApplyLabel
	case OperationRevert:
		return operationRevertLabel
	}
	return fmt.Sprintf("Operation(%d)", int(op))
}

// Valid reports whether op is one of the known operations.
func (op Operation) Valid() bool {
	return op == OperationApply || op == OperationRevert
}

// MarshalText encodes the operation as its label.
// Implements encoding.TextMarshaler interface.
func (op Operation) MarshalText() ([]byte, error) {
	if !op.Valid() {
		return nil, fmt.Errorf("invalid operation %d", int(op))
	}
	return []byte(op.String()), nil
}

// UnmarshalText decodes the operation from its label.
// Implements encoding.TextUnmarshaler interface, which is used by mapstructure.TextUnmarshallerHookFunc.
func (op *Operation) UnmarshalText(text []byte) error {
	parsed, err := ParseOperation(string(text))
	if err != nil {
		return err
	}
	*op = parsed
	return nil
}

// MarshalJSON encodes the operation as a JSON string.
func (op Operation) MarshalJSON() ([]byte, error) {
	if !op.Valid() {
		return nil, fmt.Errorf("invalid operation %d", int(op))
	}
	return json.Marshal(op.String())
}

// UnmarshalJSON decodes the operation from a JSON string.
func (op *Operation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid operation: %w", err)
	}
	return op.UnmarshalText([]byte(s))
}

// MarshalYAML encodes the operation as a YAML string.
func (op Operation) MarshalYAML() (interface{}, error) {
	if !op.Valid() {
		return nil, fmt.Errorf("invalid operation %d", int(op))
	}
	return op.String(), nil
}

// UnmarshalYAML decodes the operation from a YAML string.
func (op *Operation) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("invalid operation: %w", err)
	}
	return op.UnmarshalText([]byte(s))
}
