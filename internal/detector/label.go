package detector

import "fmt"

// Label is the classification of a single channel within a frame.
type Label uint8

const (
	Quiet        Label = iota // at or below the noise floor
	Candidate                 // narrowband signal, the entity of interest
	Interference              // part of a broadband signal, e.g. Wi-Fi
)

var labelNames = [...]string{
	Quiet:        "quiet",
	Candidate:    "candidate",
	Interference: "interference",
}

func (l Label) String() string {
	if int(l) < len(labelNames) {
		return labelNames[l]
	}
	return fmt.Sprintf("Label(%d)", uint8(l))
}

// MarshalText encodes the label by name, so JSON payloads stay readable.
func (l Label) MarshalText() ([]byte, error) {
	if int(l) >= len(labelNames) {
		return nil, fmt.Errorf("unknown label %d", uint8(l))
	}
	return []byte(labelNames[l]), nil
}

// UnmarshalText decodes a label name.
func (l *Label) UnmarshalText(text []byte) error {
	parsed, err := ParseLabel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLabel returns the label with the given name.
func ParseLabel(name string) (Label, error) {
	for i, n := range labelNames {
		if n == name {
			return Label(i), nil
		}
	}
	return Quiet, fmt.Errorf("unknown label %q", name)
}
