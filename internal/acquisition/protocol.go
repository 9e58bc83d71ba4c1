package acquisition

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// LabelLeft and LabelRight are the line prefixes emitted by the scanner
	// firmware for its two radios.
	LabelLeft  = "DATA_LEFT"
	LabelRight = "DATA_RIGHT"

	labelSeparator = ":"
	valueSeparator = ","
)

var (
	// ErrMalformedLine is returned for lines that do not follow the
	// "LABEL:v1,v2,...,vn" format.
	ErrMalformedLine = errors.New("malformed line")

	// ErrUnknownLabel is returned when a line carries a label no radio is
	// registered for.
	ErrUnknownLabel = errors.New("unknown label")
)

// ParseLine splits a "LABEL:v1,v2,...,vn" line into its label and values.
// Tokens that are not plain non-negative decimal integers are dropped rather
// than failing the line, so a partially garbled line still yields the
// readings that survived.
func ParseLine(line string) (string, []int, error) {
	line = strings.TrimSpace(line)

	label, payload, ok := strings.Cut(line, labelSeparator)
	label = strings.TrimSpace(label)
	if !ok || label == "" {
		return "", nil, fmt.Errorf("%w: expected LABEL%sv1%sv2...", ErrMalformedLine, labelSeparator, valueSeparator)
	}

	tokens := strings.Split(payload, valueSeparator)
	values := make([]int, 0, len(tokens))
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if !isDigits(token) {
			continue
		}

		v, err := strconv.Atoi(token)
		if err != nil {
			continue // out of range
		}
		values = append(values, v)
	}

	return label, values, nil
}

// FormatLine is the inverse of ParseLine.
func FormatLine(label string, values []int) string {
	var sb strings.Builder
	sb.WriteString(label)
	sb.WriteString(labelSeparator)
	for i, v := range values {
		if i > 0 {
			sb.WriteString(valueSeparator)
		}
		sb.WriteString(strconv.Itoa(v))
	}
	return sb.String()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Normalize fits values to exactly n channels: missing readings are zero
// padded and excess readings are dropped. The input is never modified.
func Normalize(values []int, n int) []int {
	frame := make([]int, n)
	copy(frame, values)
	return frame
}
