// Package statictest injects fixed regression arguments into lifecycle and
// execute requests. It exists so the activity can be exercised end to end in
// environments where Journey Builder data binding is unavailable; handlers
// invoke it explicitly, business logic never sniffs for it.
package statictest

import (
	"strings"
)

// Fixed regression values.
const (
	Recipient   = "+15555550123"
	Campaign    = "Static Regression Campaign"
	Message     = "Lifecycle validation regression test"
	MediaURL    = "https://images.unsplash.com/photo-1549880338-65ddcdfd017b"
	ButtonLabel = "Shop Now"
	ContactKey  = "static-contact-key"
	JourneyID   = "static-journey-id"
	ActivityID  = "static-activity-id"
)

// HeaderFlag and BodyFlag are the opt-in switches callers may set.
const (
	HeaderFlag = "X-Use-Static-Test-Data"
	BodyFlag   = "useStaticTestData"
)

var trueFlagValues = map[string]bool{"true": true, "1": true, "yes": true, "on": true}

// LifecycleDefaults returns the static arguments applied to save, validate
// and publish requests.
func LifecycleDefaults() map[string]any {
	return map[string]any{
		"campaignName": Campaign,
		"messageBody":  Message,
		"message":      Message,
		"recipientTo":  Recipient,
		"mobilePhone":  Recipient,
		"mediaUrl":     MediaURL,
		"buttonLabel":  ButtonLabel,
	}
}

// ExecuteDefaults returns the static arguments applied to execute requests.
func ExecuteDefaults() map[string]any {
	defaults := LifecycleDefaults()
	defaults["messageBody"] = "Thank you for your purchase!"
	defaults["message"] = "Thank you for your purchase!"
	defaults["contactKey"] = ContactKey
	defaults["journeyId"] = JourneyID
	defaults["activityId"] = ActivityID
	return defaults
}

// FlagTrue reports whether a flag value opts in to static test data.
func FlagTrue(value string) bool {
	return trueFlagValues[strings.ToLower(strings.TrimSpace(value))]
}

// Requested reports whether the caller asked for static test data via
// header, query parameter, body flag or process-wide enablement.
func Requested(headerValue, queryValue string, body map[string]any, envEnabled bool) bool {
	if FlagTrue(headerValue) || FlagTrue(queryValue) || envEnabled {
		return true
	}
	switch flag := body[BodyFlag].(type) {
	case bool:
		return flag
	case string:
		return FlagTrue(flag)
	default:
		return false
	}
}

// Apply fills blank or unresolved fields of the request's first inArguments
// entry with the supplied defaults, creating the containers when absent.
// Both the top-level and the nested arguments.execute locations are kept in
// sync, matching how Journey Builder mirrors them. Reports whether anything
// was changed.
func Apply(body map[string]any, defaults map[string]any) bool {
	if body == nil {
		return false
	}

	container := ensureArgumentContainer(body)
	applied := false
	for key, value := range defaults {
		if shouldApplyDefault(container[key]) {
			container[key] = value
			applied = true
		}
	}
	return applied
}

func nestedInArguments(body map[string]any) []any {
	arguments, ok := body["arguments"].(map[string]any)
	if !ok {
		return nil
	}
	execute, ok := arguments["execute"].(map[string]any)
	if !ok {
		return nil
	}
	nested, _ := execute["inArguments"].([]any)
	return nested
}

func ensureArgumentContainer(body map[string]any) map[string]any {
	inArgs, _ := body["inArguments"].([]any)
	if len(inArgs) == 0 {
		if nested := nestedInArguments(body); len(nested) > 0 {
			inArgs = nested
		} else {
			inArgs = []any{map[string]any{}}
		}
		body["inArguments"] = inArgs
	}

	container, ok := inArgs[0].(map[string]any)
	if !ok {
		container = map[string]any{}
		inArgs[0] = container
	}

	arguments, ok := body["arguments"].(map[string]any)
	if !ok {
		arguments = map[string]any{}
		body["arguments"] = arguments
	}
	execute, ok := arguments["execute"].(map[string]any)
	if !ok {
		execute = map[string]any{}
		arguments["execute"] = execute
	}
	if nested, _ := execute["inArguments"].([]any); len(nested) == 0 {
		execute["inArguments"] = inArgs
	}

	return container
}

// shouldApplyDefault treats missing, blank and unresolved template-token
// values as replaceable.
func shouldApplyDefault(current any) bool {
	switch v := current.(type) {
	case nil:
		return true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return true
		}
		return strings.HasPrefix(trimmed, "{{") && strings.HasSuffix(trimmed, "}}")
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}
