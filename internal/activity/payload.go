package activity

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Variant selects the provider payload shape. Three shapes have shipped
// historically; exactly one is active per deployment.
type Variant string

const (
	// VariantSingleMessage sends one recipient envelope per execute call.
	VariantSingleMessage Variant = "single"
	// VariantBulkDataset sends a dataSet of {msisdn, message} entries.
	VariantBulkDataset Variant = "bulk"
	// VariantFlatArguments relays the resolved arguments as a flat
	// inArguments list.
	VariantFlatArguments Variant = "flat"
)

// ParseVariant validates a configured variant name.
func ParseVariant(value string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(value))) {
	case VariantSingleMessage:
		return VariantSingleMessage, nil
	case VariantBulkDataset:
		return VariantBulkDataset, nil
	case VariantFlatArguments, "":
		return VariantFlatArguments, nil
	default:
		return "", fmt.Errorf("unknown payload variant %q", value)
	}
}

// RequestContext carries request-level metadata supplied by Journey Builder
// alongside the inArguments. All fields are descriptive; none block sending.
type RequestContext struct {
	TransactionID        string
	ContactKey           string
	JourneyID            string
	ActivityID           string
	DefinitionInstanceID string
	DataSet              []DataSetEntry
}

// ContextFromBody extracts request-level fields from the raw request body.
func ContextFromBody(body map[string]any) RequestContext {
	ctx := RequestContext{
		TransactionID:        strings.TrimSpace(stringField(body, "transactionID")),
		ContactKey:           strings.TrimSpace(stringField(body, "keyValue")),
		JourneyID:            strings.TrimSpace(stringField(body, "journeyId")),
		ActivityID:           strings.TrimSpace(stringField(body, "activityId")),
		DefinitionInstanceID: strings.TrimSpace(stringField(body, "definitionInstanceId")),
	}
	if ctx.ContactKey == "" {
		ctx.ContactKey = strings.TrimSpace(stringField(body, "contactKey"))
	}

	if raw, ok := body["dataSet"].([]any); ok {
		for _, item := range raw {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			ctx.DataSet = append(ctx.DataSet, DataSetEntry{
				MSISDN:  strings.TrimSpace(stringField(obj, "msisdn")),
				Message: strings.TrimSpace(stringField(obj, "message")),
			})
		}
	}
	return ctx
}

// DataSetEntry is one recipient/message pair in the bulk payload shape.
type DataSetEntry struct {
	MSISDN  string `json:"msisdn"`
	Message string `json:"message"`
}

// TLV carries the Indian DLT registration identifiers the provider forwards
// to carriers for the bulk shape.
type TLV struct {
	PEID           string `json:"PE_ID,omitempty"`
	TemplateID     string `json:"TEMPLATE_ID,omitempty"`
	TelemarketerID string `json:"TELEMARKETER_ID,omitempty"`
}

// Payload is a built provider request ready for delivery. Body is the exact
// JSON object sent; Recipients lists the resolved destination addresses for
// logging (sanitized) and event publication.
type Payload struct {
	TransactionID string
	Recipients    []string
	Body          any
}

type singleMessageBody struct {
	TransactionID string `json:"transactionID"`
	CampaignName  string `json:"campaignName,omitempty"`
	Originator    string `json:"oa,omitempty"`
	Channel       string `json:"channel"`
	To            string `json:"to"`
	Message       string `json:"message"`
	MediaURL      string `json:"mediaUrl,omitempty"`
	ButtonLabel   string `json:"buttonLabel,omitempty"`
}

type bulkDatasetBody struct {
	TransactionID string         `json:"transactionID"`
	CampaignName  string         `json:"campaignName,omitempty"`
	Originator    string         `json:"oa,omitempty"`
	Channel       string         `json:"channel"`
	Tiny          string         `json:"tiny,omitempty"`
	TLV           *TLV           `json:"tlv,omitempty"`
	DataSet       []DataSetEntry `json:"dataSet"`
}

type flatArgumentsBody struct {
	TransactionID        string              `json:"transactionID"`
	DefinitionInstanceID string              `json:"definitionInstanceId"`
	ActivityID           string              `json:"activityId"`
	JourneyID            string              `json:"journeyId"`
	KeyValue             string              `json:"keyValue"`
	InArguments          []map[string]string `json:"inArguments"`
}

// Builder maps validated execution arguments into the provider payload shape
// configured for this deployment.
type Builder struct {
	Variant Variant
	// DefaultRecipients is the fallback bulk recipient list used when the
	// caller supplies no dataSet.
	DefaultRecipients []string
	// Originator is the sender id ("oa") attached to provider payloads.
	Originator string
}

// Build produces a Payload or fails with a ValidationError when the
// resolved recipient set is empty. An empty recipient list is never sent.
func (b *Builder) Build(args *ExecutionArgs, reqCtx RequestContext) (*Payload, error) {
	if args == nil {
		return nil, NewValidationError("execution arguments are required")
	}

	txID := reqCtx.TransactionID
	if txID == "" {
		txID = uuid.NewString()
	}

	switch b.Variant {
	case VariantBulkDataset:
		return b.buildBulk(args, reqCtx, txID)
	case VariantSingleMessage:
		return b.buildSingle(args, reqCtx, txID)
	default:
		return b.buildFlat(args, reqCtx, txID)
	}
}

func (b *Builder) buildSingle(args *ExecutionArgs, reqCtx RequestContext, txID string) (*Payload, error) {
	recipient := strings.TrimSpace(args.RecipientTo)
	if recipient == "" {
		return nil, NewValidationError("provider payload incomplete", "recipient must resolve to a non-empty value")
	}

	body := singleMessageBody{
		TransactionID: txID,
		CampaignName:  resolveContext("", args.Raw, "campaignName"),
		Originator:    b.Originator,
		Channel:       "sms",
		To:            recipient,
		Message:       args.Message,
		MediaURL:      resolveContext("", args.Raw, "mediaUrl"),
		ButtonLabel:   resolveContext("", args.Raw, "buttonLabel"),
	}
	return &Payload{TransactionID: txID, Recipients: []string{recipient}, Body: body}, nil
}

func (b *Builder) buildBulk(args *ExecutionArgs, reqCtx RequestContext, txID string) (*Payload, error) {
	var dataSet []DataSetEntry
	for _, entry := range reqCtx.DataSet {
		if entry.MSISDN == "" {
			continue
		}
		if entry.Message == "" {
			entry.Message = args.Message
		}
		dataSet = append(dataSet, entry)
	}
	if len(dataSet) == 0 {
		for _, addr := range b.DefaultRecipients {
			addr = strings.TrimSpace(addr)
			if addr == "" {
				continue
			}
			dataSet = append(dataSet, DataSetEntry{MSISDN: addr, Message: args.Message})
		}
	}
	if len(dataSet) == 0 {
		return nil, NewValidationError("provider payload incomplete", "no recipients resolved for bulk send")
	}

	var tlv *TLV
	peID := resolveContext("", args.Raw, "PE_ID")
	templateID := resolveContext("", args.Raw, "TEMPLATE_ID")
	telemarketerID := resolveContext("", args.Raw, "TELEMARKETER_ID")
	if peID != "" || templateID != "" || telemarketerID != "" {
		tlv = &TLV{PEID: peID, TemplateID: templateID, TelemarketerID: telemarketerID}
	}

	recipients := make([]string, 0, len(dataSet))
	for _, entry := range dataSet {
		recipients = append(recipients, entry.MSISDN)
	}

	body := bulkDatasetBody{
		TransactionID: txID,
		CampaignName:  resolveContext("", args.Raw, "campaignName"),
		Originator:    b.Originator,
		Channel:       "sms",
		Tiny:          resolveContext("", args.Raw, "tiny"),
		TLV:           tlv,
		DataSet:       dataSet,
	}
	return &Payload{TransactionID: txID, Recipients: recipients, Body: body}, nil
}

func (b *Builder) buildFlat(args *ExecutionArgs, reqCtx RequestContext, txID string) (*Payload, error) {
	recipient := strings.TrimSpace(args.RecipientTo)
	if recipient == "" {
		return nil, NewValidationError("provider payload incomplete", "recipient must resolve to a non-empty value")
	}

	body := flatArgumentsBody{
		TransactionID:        txID,
		DefinitionInstanceID: resolveContext(reqCtx.DefinitionInstanceID, args.Raw, "definitionInstanceId", "definitionId"),
		ActivityID:           resolveContext(reqCtx.ActivityID, args.Raw, "activityId"),
		JourneyID:            resolveContext(reqCtx.JourneyID, args.Raw, "journeyId"),
		KeyValue:             resolveContext(reqCtx.ContactKey, args.Raw, "keyValue", "contactKey"),
	}

	appendArgument := func(key, value string) {
		value = strings.TrimSpace(value)
		if value != "" {
			body.InArguments = append(body.InArguments, map[string]string{key: value})
		}
	}
	appendArgument("campaignName", resolveContext("", args.Raw, "campaignName"))
	appendArgument("messageBody", args.Message)
	appendArgument("recipientTo", recipient)
	appendArgument("mediaUrl", resolveContext("", args.Raw, "mediaUrl"))
	appendArgument("buttonLabel", resolveContext("", args.Raw, "buttonLabel"))

	if len(body.InArguments) == 0 {
		return nil, NewValidationError("provider payload incomplete", "at least one argument must resolve to a value")
	}
	return &Payload{TransactionID: txID, Recipients: []string{recipient}, Body: body}, nil
}

// resolveContext returns the request-level value when present, otherwise the
// first non-empty aliased value from the merged arguments, otherwise "".
func resolveContext(requestValue string, raw map[string]any, aliases ...string) string {
	if trimmed := strings.TrimSpace(requestValue); trimmed != "" {
		return trimmed
	}
	for _, key := range aliases {
		if value, ok := raw[key]; ok {
			if trimmed := strings.TrimSpace(stringValue(value)); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func stringField(obj map[string]any, key string) string {
	value, ok := obj[key]
	if !ok {
		return ""
	}
	return stringValue(value)
}
