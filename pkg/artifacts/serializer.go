package artifacts

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Serializer maps artifacts to and from their wire form.
type Serializer interface {
	Serialize(v interface{}) ([]byte, error)
	Deserialize(data []byte, v interface{}) error
}

// JSONSerializer is the default Serializer. Outgoing values are checked
// against their validate struct tags before encoding.
type JSONSerializer struct {
	validate *validator.Validate
}

// NewJSONSerializer creates a JSON serializer with struct validation.
func NewJSONSerializer() *JSONSerializer {
	return &JSONSerializer{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Serialize validates and encodes v.
func (s *JSONSerializer) Serialize(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, nil
	}

	err := s.validate.Struct(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchemaMismatch, err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding body: %w", ErrSchemaMismatch, err)
	}

	return data, nil
}

// Deserialize decodes data into v. Empty payloads leave v untouched.
func (s *JSONSerializer) Deserialize(data []byte, v interface{}) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	err := json.Unmarshal(data, v)
	if err != nil {
		return fmt.Errorf("%w: decoding body: %w", ErrSchemaMismatch, err)
	}

	return nil
}
