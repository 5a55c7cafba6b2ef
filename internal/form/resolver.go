// File: internal/form/resolver.go
package form

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/applypilot-cli/api/schemas"
	"github.com/xkilldash9x/applypilot-cli/internal/profile"
)

// numericTokenRe extracts the first numeric token from a generated answer.
var numericTokenRe = regexp.MustCompile(`\d+(?:\.\d+)?`)

// Answer is a resolved value for one field. Which part is populated depends
// on the field kind.
type Answer struct {
	Kind schemas.FieldKind
	// Check is the desired state for checkbox fields.
	Check bool
	// Text is the value to type into text and textarea fields.
	Text string
	// Option is the label to commit for select and radio fields; OptionIndex
	// is the matching position in the descriptor's option list, -1 when the
	// label was chosen without a positional match.
	Option      string
	OptionIndex int
	// FilePath is the document to attach for file-upload fields. Empty means
	// the control is left untouched.
	FilePath string
}

// Resolver decides the value for each inspected field: from the static
// profile for identity questions, from fixed keyword rules where the portal
// behaves predictably, and from the answer gateway for everything else.
type Resolver struct {
	profile *profile.Profile
	gateway schemas.AnswerGateway
	logger  *zap.Logger
}

func NewResolver(prof *profile.Profile, gateway schemas.AnswerGateway, logger *zap.Logger) *Resolver {
	return &Resolver{
		profile: prof,
		gateway: gateway,
		logger:  logger.Named("resolver"),
	}
}

// Resolve produces the answer for a field. It never fails past its boundary;
// degraded inputs resolve to the documented defaults.
func (r *Resolver) Resolve(ctx context.Context, field schemas.FieldDescriptor) Answer {
	answer := Answer{Kind: field.Kind, OptionIndex: -1}

	switch field.Kind {
	case schemas.FieldCheckbox:
		answer.Check = r.resolveCheckbox(ctx, field.Question)
	case schemas.FieldRadio:
		answer.OptionIndex, answer.Option = r.resolveRadio(ctx, field.Question, field.Options)
	case schemas.FieldSelect:
		answer.OptionIndex, answer.Option = r.resolveSelect(field.Question, field.Options)
	case schemas.FieldText, schemas.FieldTextarea:
		answer.Text = r.resolveText(ctx, field)
	case schemas.FieldFileUpload:
		answer.FilePath = r.resolveUpload(ctx, field)
	}

	r.logger.Debug("Resolved field",
		zap.String("question", field.Question),
		zap.String("kind", string(field.Kind)))
	return answer
}

// resolveCheckbox decides whether a checkbox should end up checked.
// Agreement boxes are always checked, social opt-ins are delegated to the
// gateway, and everything else defaults to checked. The default-to-true bias
// is deliberate: an unanswered box stalls the dialog, a checked one rarely
// does.
func (r *Resolver) resolveCheckbox(ctx context.Context, question string) bool {
	lowered := strings.ToLower(question)

	for _, term := range alwaysAgreeTerms {
		if strings.Contains(lowered, term) {
			return true
		}
	}

	for _, term := range socialOptInTerms {
		if strings.Contains(lowered, term) {
			prompt := fmt.Sprintf("Should I check this box: %s? Answer only Yes or No.", question)
			reply := r.gateway.Ask(ctx, prompt)
			return strings.EqualFold(strings.TrimSpace(reply), "yes")
		}
	}

	return true
}

// resolveRadio picks the option with textual overlap against a candidate
// answer: a predefined keyword answer when one matches the question, a
// generated answer otherwise. The first option satisfying the overlap test
// wins; with no overlap at all the first option is chosen, because a radio
// group must never be left unselected.
func (r *Resolver) resolveRadio(ctx context.Context, question string, options []string) (int, string) {
	if len(options) == 0 {
		r.logger.Warn("Radio field has no options", zap.String("question", question))
		return -1, ""
	}

	candidate, ok := r.profile.PredefinedAnswer(question)
	if !ok {
		candidate = r.gateway.Ask(ctx, question)
	}

	loweredCandidate := strings.ToLower(candidate)
	for i, option := range options {
		loweredOption := strings.ToLower(option)
		if loweredOption == "" {
			continue
		}
		if strings.Contains(loweredOption, loweredCandidate) || strings.Contains(loweredCandidate, loweredOption) {
			return i, option
		}
	}
	return 0, options[0]
}

// resolveSelect applies the fixed dropdown rules. Country-code dropdowns get
// the configured country, experience dropdowns get the lowest bracket, and
// every other dropdown gets the first non-empty option after the first. The
// skip is load bearing: the first option is almost always a non-selectable
// placeholder like "Select an option".
func (r *Resolver) resolveSelect(question string, options []string) (int, string) {
	if len(options) == 0 {
		r.logger.Warn("Select field has no options", zap.String("question", question))
		return -1, ""
	}
	lowered := strings.ToLower(question)

	if strings.Contains(lowered, "country code") {
		for i, option := range options {
			loweredOption := strings.ToLower(option)
			if strings.Contains(loweredOption, r.profile.CountryToken) || strings.Contains(loweredOption, r.profile.DialCode) {
				return i, option
			}
		}
	} else if strings.Contains(lowered, "experience") {
		for i, option := range options {
			loweredOption := strings.ToLower(option)
			if strings.Contains(loweredOption, "1") || strings.Contains(loweredOption, "one") {
				return i, option
			}
		}
	}

	for i := 1; i < len(options); i++ {
		if strings.TrimSpace(options[i]) != "" {
			return i, options[i]
		}
	}
	return 0, options[0]
}

// resolveText answers a text or textarea field. Essential identity fields
// always come from the static profile so the portal sees consistent answers.
// Numeric questions get a bare clamped number; everything else gets the
// gateway's cleaned response verbatim.
func (r *Resolver) resolveText(ctx context.Context, field schemas.FieldDescriptor) string {
	if value, ok := r.profile.EssentialAnswer(field.Question); ok {
		r.logger.Debug("Essential field answered from profile", zap.String("question", field.Question))
		return value
	}

	isNumeric, constraint := r.detectNumeric(ctx, field)
	if isNumeric {
		return r.numericAnswer(ctx, field.Question, constraint)
	}

	return r.gateway.Ask(ctx, field.Question)
}

// detectNumeric decides whether the field wants a number: a native numeric
// input type, a validation message describing digits, or a gateway
// classification of the question itself, in that order.
func (r *Resolver) detectNumeric(ctx context.Context, field schemas.FieldDescriptor) (bool, schemas.NumericConstraint) {
	var constraint schemas.NumericConstraint

	if field.Input != nil {
		if inputType, ok, err := field.Input.Attribute(ctx, "type"); err == nil && ok && inputType == "number" {
			constraint.Min = attributeNumber(ctx, field.Input, "min")
			constraint.Max = attributeNumber(ctx, field.Input, "max")
			return true, constraint
		}
	}

	if message := r.errorMessage(ctx, field.Section); message != "" {
		lowered := strings.ToLower(message)
		for _, term := range numericErrorTerms {
			if strings.Contains(lowered, term) {
				constraint = rangeFromText(message)
				return true, constraint
			}
		}
	}

	prompt := fmt.Sprintf("Does this question require a numeric answer (yes/no)? Question: %s", field.Question)
	reply := r.gateway.Ask(ctx, prompt)
	return strings.EqualFold(strings.TrimSpace(reply), "yes"), constraint
}

// numericAnswer asks the gateway for a bare number, extracts the first
// numeric token, clamps it to the known range and normalizes whole values to
// integers. With no extractable token the constraint minimum (or "1") is
// used instead.
func (r *Resolver) numericAnswer(ctx context.Context, question string, constraint schemas.NumericConstraint) string {
	prompt := fmt.Sprintf(
		"For the question: '%s', provide ONLY a number as answer. "+
			"Consider the context and provide a reasonable value. "+
			"If it's about experience, provide a realistic number of years. "+
			"If it's about projects or products, provide a reasonable count. "+
			"Just return the number, nothing else.",
		question,
	)
	reply := r.gateway.Ask(ctx, prompt)

	token := numericTokenRe.FindString(reply)
	if token == "" {
		fallback := fallbackNumeric(constraint)
		r.logger.Warn("No numeric token in generated answer, using fallback",
			zap.String("question", question),
			zap.String("fallback", fallback))
		return fallback
	}

	value, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return fallbackNumeric(constraint)
	}
	if constraint.Min != nil && value < *constraint.Min {
		value = *constraint.Min
	}
	if constraint.Max != nil && value > *constraint.Max {
		value = *constraint.Max
	}
	return formatNumber(value)
}

// resolveUpload classifies an attachment control by its surrounding markup.
// Controls mentioning neither resume nor cover letter are left untouched;
// some uploads are optional extras the profile has no document for.
func (r *Resolver) resolveUpload(ctx context.Context, field schemas.FieldDescriptor) string {
	target := field.Input
	if target == nil {
		target = field.Section
	}
	html, err := target.OuterHTML(ctx)
	if err != nil {
		r.logger.Warn("Could not read upload control markup", zap.Error(err))
		return ""
	}
	lowered := strings.ToLower(html)

	switch {
	case strings.Contains(lowered, "resume") || strings.Contains(lowered, "cv"):
		return r.profile.ResumePath
	case strings.Contains(lowered, "cover"):
		return r.profile.CoverLetterPath
	}
	return ""
}

func (r *Resolver) errorMessage(ctx context.Context, section schemas.Element) string {
	if section == nil {
		return ""
	}
	matches, err := section.QueryAll(ctx, errorMessageSelector)
	if err != nil {
		return ""
	}
	for _, match := range matches {
		visible, err := match.Visible(ctx)
		if err != nil || !visible {
			continue
		}
		if text, err := match.Text(ctx); err == nil && text != "" {
			return text
		}
	}
	return ""
}

func attributeNumber(ctx context.Context, el schemas.Element, name string) *float64 {
	raw, ok, err := el.Attribute(ctx, name)
	if err != nil || !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil
	}
	return &value
}

// rangeFromText mines a validation message for bounds. Two numeric tokens
// are read as a min/max pair; a single token becomes whichever bound the
// surrounding wording implies.
func rangeFromText(message string) schemas.NumericConstraint {
	var constraint schemas.NumericConstraint
	tokens := numericTokenRe.FindAllString(message, 2)
	switch len(tokens) {
	case 2:
		if low, err := strconv.ParseFloat(tokens[0], 64); err == nil {
			constraint.Min = &low
		}
		if high, err := strconv.ParseFloat(tokens[1], 64); err == nil {
			constraint.Max = &high
		}
	case 1:
		value, err := strconv.ParseFloat(tokens[0], 64)
		if err != nil {
			break
		}
		lowered := strings.ToLower(message)
		if strings.Contains(lowered, "less") || strings.Contains(lowered, "most") || strings.Contains(lowered, "exceed") {
			constraint.Max = &value
		} else {
			constraint.Min = &value
		}
	}
	return constraint
}

func fallbackNumeric(constraint schemas.NumericConstraint) string {
	if constraint.Min != nil {
		if constraint.Max == nil || *constraint.Min <= *constraint.Max {
			return formatNumber(*constraint.Min)
		}
	}
	if constraint.Min == nil && constraint.Max != nil && *constraint.Max >= 0 {
		return "0"
	}
	return "1"
}

func formatNumber(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
