// Package activity normalizes Journey Builder activity requests and builds
// the outbound provider payloads derived from them.
package activity

import (
	"fmt"
	"regexp"
	"strings"
)

// CanonicalRecipientKey is the key the resolved recipient is stored under in
// MappedValues regardless of which alias it arrived on.
const CanonicalRecipientKey = "mobilePhone"

// Alias tables for fields that have shipped under several names over the
// life of the activity. Order is the resolution priority: the first key
// that is present in the merged arguments wins, even when its value is
// empty; emptiness is checked after selection.
var (
	messageAliases   = []string{"messageText", "message", "messageBody"}
	recipientAliases = []string{"mobilePhone", "mobilePhoneAttribute", "mobile", "recipientTo"}
)

var templateTokenPattern = regexp.MustCompile(`\{\{[^}]*\}\}`)

// ExecutionArgs is the validated view of one execute request. Message and
// RecipientTo are non-empty trimmed strings whenever construction succeeds.
type ExecutionArgs struct {
	Message      string
	RecipientTo  string
	MappedValues map[string]string
	// Raw holds the merged inArguments for audit logging. Sanitize before
	// attaching it to a log event.
	Raw map[string]any
}

// ParseExecuteRequest locates the request's inArguments, merges them and
// resolves the message and recipient fields. All missing-field problems are
// collected into a single ValidationError so the caller sees the complete
// list.
func ParseExecuteRequest(body map[string]any) (*ExecutionArgs, error) {
	merged, err := MergeInArguments(body)
	if err != nil {
		return nil, err
	}

	var details []string

	message, ok := resolveAlias(merged, messageAliases)
	if !ok || message == "" {
		details = append(details, "message is required")
	}

	mappedValues := subObject(merged, "mappedValues")
	recipient, ok := resolveRecipient(merged, mappedValues)
	if !ok || recipient == "" {
		details = append(details, "mobilePhone is required")
	}

	if len(details) > 0 {
		return nil, NewValidationError("invalid execute payload", details...)
	}

	mapped := make(map[string]string, len(mappedValues)+1)
	for key, value := range mappedValues {
		if s, ok := value.(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				mapped[key] = trimmed
			}
		}
	}
	mapped[CanonicalRecipientKey] = recipient

	return &ExecutionArgs{
		Message:      message,
		RecipientTo:  recipient,
		MappedValues: mapped,
		Raw:          merged,
	}, nil
}

// MergeInArguments finds the argument source (top-level inArguments, falling
// back to arguments.execute.inArguments) and overlays its entries
// left-to-right, later keys winning. Entries that are not objects are
// skipped rather than rejected.
func MergeInArguments(body map[string]any) (map[string]any, error) {
	if body == nil {
		return nil, NewValidationError("request body must be a JSON object")
	}

	source := argumentSource(body)
	if len(source) == 0 {
		return nil, NewValidationError("inArguments is required and must be a non-empty array")
	}

	merged := make(map[string]any)
	for _, entry := range source {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		for key, value := range obj {
			merged[key] = value
		}
	}
	if len(merged) == 0 {
		return nil, NewValidationError("inArguments did not contain any argument objects")
	}
	return merged, nil
}

// CheckUnresolvedTokens rejects arguments that still carry Journey Builder
// data-binding tokens ({{...}}): their presence means the binding never
// resolved for this contact and the value must not be sent.
func CheckUnresolvedTokens(args *ExecutionArgs) error {
	var details []string
	appendIfUnresolved := func(field, value string) {
		if templateTokenPattern.MatchString(value) {
			details = append(details, fmt.Sprintf("%s contains an unresolved template token", field))
		}
	}

	appendIfUnresolved("message", args.Message)
	appendIfUnresolved(CanonicalRecipientKey, args.RecipientTo)
	for key, value := range args.MappedValues {
		if key == CanonicalRecipientKey {
			continue
		}
		appendIfUnresolved("mappedValues."+key, value)
	}

	if len(details) > 0 {
		return NewValidationError("unresolved template tokens in execute payload", details...)
	}
	return nil
}

func argumentSource(body map[string]any) []any {
	if args, ok := body["inArguments"].([]any); ok && len(args) > 0 {
		return args
	}
	arguments, ok := body["arguments"].(map[string]any)
	if !ok {
		return nil
	}
	execute, ok := arguments["execute"].(map[string]any)
	if !ok {
		return nil
	}
	args, _ := execute["inArguments"].([]any)
	return args
}

// resolveAlias walks the alias list and returns the trimmed value of the
// first key that is present in the arguments. Presence wins over emptiness:
// a present-but-blank value is not skipped in favour of a later alias.
func resolveAlias(merged map[string]any, aliases []string) (string, bool) {
	for _, key := range aliases {
		if value, ok := merged[key]; ok {
			return strings.TrimSpace(stringValue(value)), true
		}
	}
	return "", false
}

// resolveRecipient prefers a recipient nested under mappedValues over the
// flat aliases, mirroring how the configuration UI has historically bound
// the phone attribute.
func resolveRecipient(merged map[string]any, mappedValues map[string]any) (string, bool) {
	if value, ok := mappedValues[CanonicalRecipientKey]; ok {
		return strings.TrimSpace(stringValue(value)), true
	}
	return resolveAlias(merged, recipientAliases)
}

func subObject(merged map[string]any, key string) map[string]any {
	obj, _ := merged[key].(map[string]any)
	return obj
}

func stringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
