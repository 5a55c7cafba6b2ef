// File: internal/form/inspector.go
package form

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/applypilot-cli/api/schemas"
	"github.com/xkilldash9x/applypilot-cli/internal/config"
)

// Inspector turns a raw form section into a FieldDescriptor: question text,
// field kind and, where relevant, the option set and primary input handle.
// It never fails past its boundary. A sub-step that cannot be read degrades
// to an empty result and a warning, so callers always get a descriptor back,
// possibly with kind FieldUnknown.
type Inspector struct {
	page         schemas.Page
	logger       *zap.Logger
	dropdownWait time.Duration
}

func NewInspector(page schemas.Page, cfg config.ApplyConfig, logger *zap.Logger) *Inspector {
	return &Inspector{
		page:         page,
		logger:       logger.Named("inspector"),
		dropdownWait: cfg.DropdownWait,
	}
}

// Inspect classifies one section. A section yielding no question text hosts
// no answerable field; the returned descriptor carries an empty Question and
// the caller drops it silently.
func (in *Inspector) Inspect(ctx context.Context, section schemas.Element) schemas.FieldDescriptor {
	desc := schemas.FieldDescriptor{
		Section: section,
		Kind:    schemas.FieldUnknown,
	}

	question, err := in.questionText(ctx, section)
	if err != nil {
		in.logger.Warn("Could not read section label", zap.Error(err))
		return desc
	}
	desc.Question = question
	if question == "" {
		return desc
	}

	desc.Kind = in.fieldKind(ctx, section)

	switch desc.Kind {
	case schemas.FieldSelect:
		desc.Options = in.selectOptions(ctx, section)
	case schemas.FieldRadio:
		inputs := in.radioInputs(ctx, section)
		desc.Inputs = inputs
		desc.Options = in.radioOptions(ctx, inputs)
	case schemas.FieldText, schemas.FieldTextarea:
		desc.Input = in.inputElement(ctx, section, desc.Kind)
		if desc.Input != nil {
			if placeholder, ok, err := desc.Input.Attribute(ctx, "placeholder"); err == nil && ok {
				desc.Placeholder = placeholder
			}
		}
	case schemas.FieldFileUpload:
		if input, err := section.Query(ctx, "input[type='file']"); err == nil {
			desc.Input = input
		}
	}

	in.logger.Debug("Inspected section",
		zap.String("question", desc.Question),
		zap.String("kind", string(desc.Kind)),
		zap.Int("options", len(desc.Options)))
	return desc
}

// questionText extracts the section's label by trying, in fixed priority
// order: structural label elements, an aria-label attribute, then the first
// non-empty line of the section's own text. First non-empty result wins.
func (in *Inspector) questionText(ctx context.Context, section schemas.Element) (string, error) {
	for _, selector := range labelSelectors {
		candidates, err := section.QueryAll(ctx, selector)
		if err != nil {
			continue
		}
		for _, candidate := range candidates {
			text, err := candidate.Text(ctx)
			if err != nil {
				continue
			}
			if text != "" {
				return text, nil
			}
		}
	}

	if label, ok, err := section.Attribute(ctx, "aria-label"); err == nil && ok && strings.TrimSpace(label) != "" {
		return strings.TrimSpace(label), nil
	}

	text, err := section.Text(ctx)
	if err != nil {
		return "", fmt.Errorf("reading section text: %w", err)
	}
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed, nil
		}
	}
	return "", nil
}

// fieldKind runs the ordered classification predicates, stopping at the
// first match. Select comes before Text on purpose: dropdown widgets often
// contain nested text markup that would otherwise win.
func (in *Inspector) fieldKind(ctx context.Context, section schemas.Element) schemas.FieldKind {
	if in.isSelect(ctx, section) {
		return schemas.FieldSelect
	}
	if in.isFileUpload(ctx, section) {
		return schemas.FieldFileUpload
	}
	if in.hasAny(ctx, section, "textarea") {
		return schemas.FieldTextarea
	}
	if in.hasAny(ctx, section, "input[type='radio']") {
		return schemas.FieldRadio
	}
	if in.hasAny(ctx, section, "input[type='checkbox']") {
		return schemas.FieldCheckbox
	}
	if in.hasAny(ctx, section, textInputSelector) {
		return schemas.FieldText
	}
	for _, selector := range customTextInputSelectors {
		if in.hasAny(ctx, section, selector) {
			return schemas.FieldText
		}
	}
	return schemas.FieldUnknown
}

func (in *Inspector) isSelect(ctx context.Context, section schemas.Element) bool {
	if in.hasAny(ctx, section, "select") {
		return true
	}
	for _, selector := range customDropdownSelectors {
		if in.hasAny(ctx, section, selector) {
			return true
		}
	}

	html, err := section.OuterHTML(ctx)
	if err != nil {
		return false
	}
	html = strings.ToLower(html)
	for _, token := range dropdownIndicatorTokens {
		if strings.Contains(html, token) {
			return in.hasAny(ctx, section, "[class*='dropdown'], [class*='select']")
		}
	}
	return false
}

// isFileUpload requires both a file input and surrounding markup that talks
// about attaching a document, so a stray hidden input does not reclassify
// the section.
func (in *Inspector) isFileUpload(ctx context.Context, section schemas.Element) bool {
	html, err := section.OuterHTML(ctx)
	if err != nil {
		return false
	}
	html = strings.ToLower(html)
	for _, token := range uploadTokens {
		if strings.Contains(html, token) {
			return in.hasAny(ctx, section, "input[type='file']")
		}
	}
	return false
}

// selectOptions reads the option labels of a select field. A custom dropdown
// has to be opened to render its items; it is closed again afterwards so the
// page is left the way other inspections expect it.
func (in *Inspector) selectOptions(ctx context.Context, section schemas.Element) []string {
	if native, err := section.Query(ctx, "select"); err == nil {
		items, err := native.QueryAll(ctx, "option")
		if err != nil {
			in.logger.Warn("Could not read native select options", zap.Error(err))
			return nil
		}
		return in.elementTexts(ctx, items)
	}

	trigger, err := section.Query(ctx, dropdownTriggerSelector)
	if err != nil {
		return nil
	}
	if err := trigger.Click(ctx); err != nil {
		in.logger.Warn("Could not open custom dropdown", zap.Error(err))
		return nil
	}
	in.page.Settle(ctx, in.dropdownWait)

	var options []string
	for _, selector := range dropdownOptionSelectors {
		items, err := in.page.QueryAll(ctx, selector)
		if err != nil || len(items) == 0 {
			continue
		}
		if texts := in.elementTexts(ctx, items); len(texts) > 0 {
			options = texts
			break
		}
	}

	if err := trigger.Click(ctx); err != nil {
		in.logger.Warn("Could not close custom dropdown", zap.Error(err))
	}
	return options
}

// radioInputs gathers the group's inputs across all matcher variants,
// order-preserving and deduplicated. Identity is the input's id attribute
// when present, its markup otherwise.
func (in *Inspector) radioInputs(ctx context.Context, section schemas.Element) []schemas.Element {
	seen := make(map[string]struct{})
	var inputs []schemas.Element
	for _, selector := range radioSelectors {
		matches, err := section.QueryAll(ctx, selector)
		if err != nil {
			continue
		}
		for _, match := range matches {
			key := in.elementIdentity(ctx, match)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			inputs = append(inputs, match)
		}
	}
	return inputs
}

func (in *Inspector) elementIdentity(ctx context.Context, el schemas.Element) string {
	if id, ok, err := el.Attribute(ctx, "id"); err == nil && ok && id != "" {
		return "id:" + id
	}
	html, err := el.OuterHTML(ctx)
	if err != nil {
		return fmt.Sprintf("unidentified:%p", el)
	}
	return "html:" + html
}

// radioOptions resolves each input's visible text via the same priority
// chain as question extraction, applied per control.
func (in *Inspector) radioOptions(ctx context.Context, inputs []schemas.Element) []string {
	options := make([]string, 0, len(inputs))
	for _, input := range inputs {
		options = append(options, in.radioOptionText(ctx, input))
	}
	return options
}

func (in *Inspector) radioOptionText(ctx context.Context, input schemas.Element) string {
	if text, err := input.Text(ctx); err == nil && text != "" {
		return text
	}
	if id, ok, err := input.Attribute(ctx, "id"); err == nil && ok && id != "" {
		if label, err := in.page.QueryAll(ctx, fmt.Sprintf("label[for=%q]", id)); err == nil && len(label) > 0 {
			if text, err := label[0].Text(ctx); err == nil && text != "" {
				return text
			}
		}
	}
	if label, ok, err := input.Attribute(ctx, "aria-label"); err == nil && ok && strings.TrimSpace(label) != "" {
		return strings.TrimSpace(label)
	}
	if value, ok, err := input.Attribute(ctx, "value"); err == nil && ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return ""
}

func (in *Inspector) inputElement(ctx context.Context, section schemas.Element, kind schemas.FieldKind) schemas.Element {
	if kind == schemas.FieldTextarea {
		if input, err := section.Query(ctx, "textarea"); err == nil {
			return input
		}
		return nil
	}
	if input, err := section.Query(ctx, textInputSelector); err == nil {
		return input
	}
	for _, selector := range customTextInputSelectors {
		if input, err := section.Query(ctx, selector); err == nil {
			return input
		}
	}
	in.logger.Warn("No input element found in text section")
	return nil
}

func (in *Inspector) hasAny(ctx context.Context, section schemas.Element, selector string) bool {
	matches, err := section.QueryAll(ctx, selector)
	return err == nil && len(matches) > 0
}

func (in *Inspector) elementTexts(ctx context.Context, items []schemas.Element) []string {
	texts := make([]string, 0, len(items))
	for _, item := range items {
		text, err := item.Text(ctx)
		if err != nil || text == "" {
			continue
		}
		texts = append(texts, text)
	}
	return texts
}
