package abi

import (
	"fmt"
	"regexp"
	"strings"
)

var identifierRegex = regexp.MustCompile(`^[a-zA-Z_$][a-zA-Z0-9_$]*$`)

// ParseEventSignature parses an event signature string into an event definition.
// Supported formats:
//   - "Transfer(address,address,uint256)"
//   - "Transfer(address indexed from, address indexed to, uint256 value)"
//   - "Transfer(address from, address to, uint256 value)"
//
// Unnamed parameters are named after their position ("param0", "param1", ...),
// prefixed with "_" while that name is taken by a named parameter.
func ParseEventSignature(sig string) (*EventDefinition, error) {
	sig = strings.TrimSpace(sig)

	if sig == "" {
		return nil, fmt.Errorf("empty signature")
	}

	openParen := strings.Index(sig, "(")
	if openParen == -1 {
		return nil, fmt.Errorf("invalid signature: missing opening parenthesis")
	}

	eventName := strings.TrimSpace(sig[:openParen])
	if !identifierRegex.MatchString(eventName) {
		return nil, fmt.Errorf("invalid event name '%s'", eventName)
	}

	closeParen := strings.LastIndex(sig, ")")
	if closeParen == -1 || closeParen != len(sig)-1 {
		return nil, fmt.Errorf("invalid signature: missing closing parenthesis")
	}

	params, err := parseParameters(sig[openParen+1 : closeParen])
	if err != nil {
		return nil, fmt.Errorf("failed to parse parameters of %s: %w", eventName, err)
	}

	return NewEventDefinition(eventName, params)
}

func parseParameters(paramsStr string) ([]Param, error) {
	paramsStr = strings.TrimSpace(paramsStr)
	if paramsStr == "" {
		return []Param{}, nil
	}

	paramStrings := splitParameters(paramsStr)
	params := make([]Param, 0, len(paramStrings))
	for _, paramStr := range paramStrings {
		param, err := parseParameter(strings.TrimSpace(paramStr))
		if err != nil {
			return nil, fmt.Errorf("invalid parameter '%s': %w", paramStr, err)
		}
		params = append(params, param)
	}
	nameUnnamed(params)

	return params, nil
}

// splitParameters splits parameter string by commas, handling nested structures.
func splitParameters(paramsStr string) []string {
	var params []string
	var current strings.Builder
	depth := 0

	for _, ch := range paramsStr {
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				params = append(params, current.String())
				current.Reset()
				continue
			}
		}
		current.WriteRune(ch)
	}

	return append(params, current.String())
}

// parseParameter parses a single parameter string.
// Formats:
//   - "address" (type only)
//   - "address from" (type + name)
//   - "address indexed from" (type + indexed + name)
func parseParameter(paramStr string) (Param, error) {
	parts := strings.Fields(paramStr)
	if len(parts) == 0 {
		return Param{}, fmt.Errorf("empty parameter")
	}

	typ, err := ParseType(parts[0])
	if err != nil {
		return Param{}, err
	}

	param := Param{Type: typ}

	switch len(parts) {
	case 1:
	case 2: //nolint:mnd
		if parts[1] == "indexed" {
			param.Indexed = true
		} else {
			param.Name = parts[1]
		}
	case 3: //nolint:mnd
		if parts[1] != "indexed" {
			return Param{}, fmt.Errorf("expected 'indexed' keyword, got '%s'", parts[1])
		}
		param.Indexed = true
		param.Name = parts[2]
	default:
		return Param{}, fmt.Errorf("too many parts in parameter definition")
	}

	if param.Name != "" && !identifierRegex.MatchString(param.Name) {
		return Param{}, fmt.Errorf("invalid parameter name: %s", param.Name)
	}

	return param, nil
}

// ParseEventSignatures builds a contract interface from a list of event signatures.
func ParseEventSignatures(name string, signatures []string) (*ContractInterface, error) {
	ci := NewContractInterface(name)
	for _, sig := range signatures {
		event, err := ParseEventSignature(sig)
		if err != nil {
			return nil, err
		}
		ci.Add(event)
	}
	return ci, nil
}
